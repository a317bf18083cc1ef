package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"reelsync/internal/services"
)

var commandContext = exec.CommandContext

// SegmentPattern is the zero-padded segment naming scheme. Lexicographic
// order of the produced filenames equals ordinal order.
const SegmentPattern = "segment_%06d.ts"

// ProgressUpdate captures one transcoder progress event.
type ProgressUpdate struct {
	ElapsedSeconds float64
	Speed          float64
}

// TranscodeRequest describes one segmenting run.
type TranscodeRequest struct {
	SourcePath     string
	OutputDir      string
	SegmentSeconds int
	Plan           CodecPlan
}

// Client defines the transcoder behaviour the pipeline depends on.
type Client interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
	Transcode(ctx context.Context, req TranscodeRequest, progress func(ProgressUpdate)) ([]string, error)
	ExtractSubtitle(ctx context.Context, sourcePath string, trackIndex int, outPath string) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithProbeBinary overrides the default ffprobe binary name.
func WithProbeBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.probeBinary = binary
		}
	}
}

// CLI wraps the ffmpeg command-line tools.
type CLI struct {
	binary      string
	probeBinary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", probeBinary: "ffprobe"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcode segments the source into fixed-duration .ts files under
// req.OutputDir and returns the ordered segment filenames (base names).
// Progress events parsed from the tool's machine-readable output are passed to
// the optional callback.
func (c *CLI) Transcode(ctx context.Context, req TranscodeRequest, progress func(ProgressUpdate)) ([]string, error) {
	if strings.TrimSpace(req.SourcePath) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcode", "run", "source path required", nil)
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcode", "run", "output directory required", nil)
	}
	if _, err := os.Stat(req.SourcePath); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "transcode", "run", req.SourcePath, err)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcode", "run", "create output dir", err)
	}

	cmd := commandContext(ctx, c.binary, buildArgs(req)...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcode", "run", "stdout pipe", err)
	}
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcode", "run", "start "+c.binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	tracker := progressTracker{}
	for scanner.Scan() {
		if update, ok := tracker.consume(scanner.Text()); ok && progress != nil {
			progress(update)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return nil, services.Wrap(services.ErrExternalTool, "transcode", "run", "read progress", err)
	}
	if err := cmd.Wait(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcode", "run", "encode failed", err)
	}

	return listSegments(req.OutputDir)
}

// ExtractSubtitle dumps one embedded subtitle stream as SRT.
func (c *CLI) ExtractSubtitle(ctx context.Context, sourcePath string, trackIndex int, outPath string) error {
	args := []string{
		"-hide_banner", "-nostats", "-y",
		"-i", sourcePath,
		"-map", fmt.Sprintf("0:%d", trackIndex),
		"-c:s", "srt",
		outPath,
	}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		detail := strings.TrimSpace(string(output))
		if len(detail) > 512 {
			detail = detail[len(detail)-512:]
		}
		return services.Wrap(services.ErrExternalTool, "subtitles", "extract track", detail, err)
	}
	return nil
}

func buildArgs(req TranscodeRequest) []string {
	args := []string{"-hide_banner", "-nostats", "-y", "-i", req.SourcePath}

	if req.Plan.CopyVideo {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args, "-c:v", "libx264", "-preset", "veryfast", "-crf", "23")
	}
	if req.Plan.CopyAudio {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "aac", "-b:a", "128k")
	}

	segmentSeconds := req.SegmentSeconds
	if segmentSeconds <= 0 {
		segmentSeconds = 10
	}
	args = append(args,
		"-sn",
		"-progress", "pipe:1",
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(req.OutputDir, "segment_%06d.ts"),
		filepath.Join(req.OutputDir, "local.m3u8"),
	)
	return args
}

func listSegments(outputDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, "segment_*.ts"))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcode", "list segments", "", err)
	}
	if len(matches) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "transcode", "list segments", "no segments produced", nil)
	}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, filepath.Base(match))
	}
	sort.Strings(names)
	return names, nil
}

var _ Client = (*CLI)(nil)
