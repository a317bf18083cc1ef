package ffmpeg

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"reelsync/internal/services"
)

// SubtitleTrack describes one embedded subtitle stream.
type SubtitleTrack struct {
	Index    int
	Codec    string
	Language string
	Title    string
}

// MediaInfo is the probe summary the pipeline needs.
type MediaInfo struct {
	DurationSeconds float64
	VideoCodec      string
	AudioCodec      string
	SubtitleTracks  []SubtitleTrack
}

// CodecPlan captures the copy-versus-transcode decision per stream.
type CodecPlan struct {
	CopyVideo bool
	CopyAudio bool
}

// Plan derives the codec plan from the probed codecs. H.264 video and AAC
// audio are segment-compatible and can be stream-copied.
func (m MediaInfo) Plan() CodecPlan {
	return CodecPlan{
		CopyVideo: strings.EqualFold(m.VideoCodec, "h264"),
		CopyAudio: strings.EqualFold(m.AudioCodec, "aac"),
	}
}

type probeStream struct {
	Index     int               `json:"index"`
	CodecName string            `json:"codec_name"`
	CodecType string            `json:"codec_type"`
	Tags      map[string]string `json:"tags"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probePayload struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// Probe executes ffprobe against the provided path and summarizes the result.
func (c *CLI) Probe(ctx context.Context, path string) (MediaInfo, error) {
	if strings.TrimSpace(path) == "" {
		return MediaInfo{}, services.Wrap(services.ErrValidation, "transcode", "probe", "empty source path", nil)
	}

	cmd := commandContext(ctx, c.probeBinary,
		"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		return MediaInfo{}, services.Wrap(services.ErrExternalTool, "transcode", "probe", path, err)
	}

	var payload probePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return MediaInfo{}, services.Wrap(services.ErrExternalTool, "transcode", "probe", "parse output", err)
	}

	info := MediaInfo{}
	if seconds, err := strconv.ParseFloat(strings.TrimSpace(payload.Format.Duration), 64); err == nil && seconds > 0 {
		info.DurationSeconds = seconds
	}
	for _, stream := range payload.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = stream.CodecName
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = stream.CodecName
			}
		case "subtitle":
			info.SubtitleTracks = append(info.SubtitleTracks, SubtitleTrack{
				Index:    stream.Index,
				Codec:    stream.CodecName,
				Language: strings.ToLower(strings.TrimSpace(stream.Tags["language"])),
				Title:    strings.TrimSpace(stream.Tags["title"]),
			})
		}
	}
	return info, nil
}
