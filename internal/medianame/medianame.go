// Package medianame derives a searchable title and release year from media
// filenames, which usually arrive dot-separated with release metadata bolted
// on the end.
package medianame

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	yearPattern = regexp.MustCompile(`^[\(\[]?((19|20)\d{2})[\)\]]?$`)

	// releaseTags end the title portion even when no year is present.
	releaseTags = map[string]struct{}{
		"480p": {}, "720p": {}, "1080p": {}, "2160p": {}, "4k": {},
		"bluray": {}, "brrip": {}, "bdrip": {}, "webrip": {}, "webdl": {},
		"web": {}, "hdtv": {}, "dvdrip": {}, "remux": {},
		"x264": {}, "x265": {}, "h264": {}, "h265": {}, "hevc": {}, "av1": {},
		"aac": {}, "ac3": {}, "dts": {}, "proper": {}, "repack": {},
	}

	titleCaser = cases.Title(language.English)
)

// Parse extracts a display title and year from a file path. Year is zero
// when the name carries none. The title keeps its word order and is
// re-cased, so "the.matrix.1999.1080p.x264.mkv" parses to ("The Matrix",
// 1999).
func Parse(path string) (string, int) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(base)

	words := strings.Fields(base)
	year := 0
	var titleWords []string
	for _, word := range words {
		if match := yearPattern.FindStringSubmatch(word); match != nil && len(titleWords) > 0 {
			year, _ = strconv.Atoi(match[1])
			break
		}
		if _, tag := releaseTags[strings.ToLower(word)]; tag && len(titleWords) > 0 {
			break
		}
		titleWords = append(titleWords, word)
	}

	title := titleCaser.String(strings.ToLower(strings.Join(titleWords, " ")))
	return title, year
}
