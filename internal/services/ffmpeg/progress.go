package ffmpeg

import (
	"strconv"
	"strings"
)

// progressTracker accumulates the key=value progress lines ffmpeg emits with
// -progress pipe:1. A block ends at the "progress=" line, at which point one
// update is produced.
type progressTracker struct {
	elapsed float64
	speed   float64
}

func (t *progressTracker) consume(line string) (ProgressUpdate, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return ProgressUpdate{}, false
	}
	value = strings.TrimSpace(value)
	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds; ffmpeg kept the historical _ms name.
		if micros, err := strconv.ParseInt(value, 10, 64); err == nil && micros >= 0 {
			t.elapsed = float64(micros) / 1e6
		}
	case "speed":
		if parsed, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil && parsed >= 0 {
			t.speed = parsed
		}
	case "progress":
		return ProgressUpdate{ElapsedSeconds: t.elapsed, Speed: t.speed}, true
	}
	return ProgressUpdate{}, false
}
