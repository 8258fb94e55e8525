// Package bencode decodes and encodes the bencode serialization format
// used by BitTorrent: integers, byte strings, lists and dicts.
//
// Decoding produces an Object tree; byte strings are binary safe and
// dict keys compare over their raw bytes.
package bencode
