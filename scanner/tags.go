package scanner

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"src.userspace.com.au/go-bencode/metainfo"
)

// Default tags, can be supplimented or overwritten by options
var tags = map[string]string{
	"flac":        `\.flac$`,
	"episode":     "(season|episode|s[0-9]{2}e[0-9]{2})",
	"1080":        "1080",
	"720":         "720",
	"hd":          "hd|720|1080",
	"bdrip":       "bdrip",
	"xxx":         "(xxx|porn|sex)",
	"dvdrip":      "dvdrip",
	"ebook":       "epub",
	"application": `\.(apk|exe|msi|dmg)$`,
	"android":     `\.apk$`,
	"apple":       `\.dmg$`,
	"subtitles":   `\.s(rt|ub)$`,
	"archive":     `\.(zip|rar|p7|tgz|bz2)$`,
	"video":       `\.(3g2|3gp|amv|asf|avi|drc|f4a|f4b|f4p|f4v|flv|gif|gifv|m2v|m4p|m4v|mkv|mng|mov|mp2|mp4|mpe|mpeg|mpg|mpv|mxf|net|nsv|ogv|qt|rm|rmvb|roq|svi|vob|webm|wmv|yuv)$`,
	"audio":       `\.(aa|aac|aax|act|aiff|amr|ape|au|awb|dct|dss|dvf|flac|gsm|iklax|ivs|m4a|m4b|mmf|mp3|mpc|msv|ogg|opus|ra|raw|sln|tta|vox|wav|wma|wv)$`,
	"document":    `\.(cbr|cbz|cb7|cbt|cba|epub|djvu|fb2|ibook|azw.|lit|prc|mobi|pdb|oxps|xps)$`,
	"font":        `(font|\.(ttf|fon)$)`,
}

func compileTagRegexps(userTags map[string]string) map[string]*regexp.Regexp {
	tagREs := make(map[string]*regexp.Regexp)
	for tag, re := range tags {
		tagREs[tag] = regexp.MustCompile("(?i)" + re)
	}
	// Add character classes
	for cc := range unicode.Scripts {
		if cc == "Latin" || cc == "Common" {
			continue
		}
		className := strings.ToLower(cc)
		// Test for 3 or more characters per character class
		tagREs[className] = regexp.MustCompile(fmt.Sprintf(`(?i)\p{%s}{3,}`, cc))
	}
	// Merge user tags
	for tag, re := range userTags {
		tagREs[tag] = regexp.MustCompile("(?i)" + re)
	}
	return tagREs
}

// tagTorrent matches the torrent name and file paths against each tag
// regexp and returns the sorted matching tags.
func (s *Scanner) tagTorrent(t *metainfo.Torrent) []string {
	matched := make(map[string]bool)
	for tag, re := range s.tagREs {
		if re.MatchString(t.Name) {
			matched[tag] = true
			continue
		}
		for _, f := range t.Files {
			if re.MatchString(f.Path) {
				matched[tag] = true
				break
			}
		}
	}

	out := make([]string, 0, len(matched))
	for tag := range matched {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
