package subtitles

import (
	"strings"

	"reelsync/internal/services/ffmpeg"
)

// SelectEnglishTracks narrows embedded subtitle tracks to a detected-English
// subset. Language tags win; failing that, track titles mentioning English;
// failing that, the first untagged track is assumed English, which matches
// how single-subtitle releases are usually muxed.
func SelectEnglishTracks(tracks []ffmpeg.SubtitleTrack) []ffmpeg.SubtitleTrack {
	var tagged []ffmpeg.SubtitleTrack
	for _, track := range tracks {
		lang := strings.ToLower(strings.TrimSpace(track.Language))
		if lang == "en" || lang == "eng" {
			tagged = append(tagged, track)
		}
	}
	if len(tagged) > 0 {
		return tagged
	}

	var titled []ffmpeg.SubtitleTrack
	for _, track := range tracks {
		if strings.Contains(strings.ToLower(track.Title), "english") {
			titled = append(titled, track)
		}
	}
	if len(titled) > 0 {
		return titled
	}

	for _, track := range tracks {
		if strings.TrimSpace(track.Language) == "" {
			return []ffmpeg.SubtitleTrack{track}
		}
	}
	return nil
}
