// Package ffmpeg wraps the external ffmpeg/ffprobe binaries used to inspect a
// source file and convert it into fixed-duration HLS segments. The command
// construction is deliberately minimal; codec compatibility decides stream
// copy versus re-encode and everything else is left to the tool's defaults.
package ffmpeg
