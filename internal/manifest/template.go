// Package manifest emits the segment playlist in template form and drives the
// external finalization step that turns it into a client-servable playlist.
package manifest

import (
	"fmt"
	"math"
	"strings"

	"reelsync/internal/conversion"
)

// RenderTemplate produces the template playlist text for the given entries.
// Entries are listed with bare filenames and nominal durations, in the order
// given (callers pass ordinal order). The end-of-stream marker is deliberately
// omitted even when every segment is listed; the external finalizer decides
// completeness and URL resolution.
func RenderTemplate(entries []conversion.SegmentEntry) []byte {
	target := 0
	for _, entry := range entries {
		if ceil := int(math.Ceil(entry.DurationSeconds)); ceil > target {
			target = ceil
		}
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", target)
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "#EXTINF:%.3f,\n", entry.DurationSeconds)
		b.WriteString(entry.Filename)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
