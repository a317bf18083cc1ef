// Package subtitles finds English captions for a job: embedded tracks first,
// an external search fallback second, converted to the caption format the
// playlist references.
package subtitles

import "strings"

// SRTToWebVTT converts SubRip text to WebVTT. Cue numbers are dropped,
// timestamp separators switch from comma to period, and cue boundaries stay
// blank-line delimited. The transform is pure text, no timing math.
func SRTToWebVTT(srt string) string {
	normalized := strings.ReplaceAll(srt, "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(normalized), "\n\n")

	var cues []string
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 0 {
			continue
		}
		if isCueNumber(lines[0]) {
			lines = lines[1:]
		}
		if len(lines) == 0 {
			continue
		}
		if strings.Contains(lines[0], "-->") {
			lines[0] = strings.ReplaceAll(lines[0], ",", ".")
		}
		cues = append(cues, strings.Join(lines, "\n"))
	}

	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, cue := range cues {
		b.WriteString("\n")
		b.WriteString(cue)
		b.WriteString("\n")
	}
	return b.String()
}

func isCueNumber(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
