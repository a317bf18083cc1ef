package objectstore

import "strings"

// KeySet computes the remote key hierarchy for one job:
//
//	{mediaPath}/{tenant}/{kind}/{jobID}/segments/{filename}
//	{mediaPath}/{tenant}/{kind}/{jobID}/playlist-template.m3u8
//	{mediaPath}/{tenant}/{kind}/{jobID}/playlist.m3u8
//	{mediaPath}/{tenant}/{kind}/{jobID}/subtitles/{filename}
type KeySet struct {
	MediaPath string
	Tenant    string
	Kind      string
	JobID     string
}

func (k KeySet) root() string {
	parts := make([]string, 0, 4)
	for _, part := range []string{k.MediaPath, k.Tenant, k.Kind, k.JobID} {
		part = strings.Trim(strings.TrimSpace(part), "/")
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "/")
}

// SegmentPrefix returns the listing prefix covering every segment object.
func (k KeySet) SegmentPrefix() string {
	return k.root() + "/segments/"
}

// Segment returns the key for one segment file.
func (k KeySet) Segment(filename string) string {
	return k.SegmentPrefix() + filename
}

// PlaylistTemplate returns the key of the incomplete template playlist.
func (k KeySet) PlaylistTemplate() string {
	return k.root() + "/playlist-template.m3u8"
}

// Playlist returns the key of the finalized, client-servable playlist.
func (k KeySet) Playlist() string {
	return k.root() + "/playlist.m3u8"
}

// Subtitle returns the key for one caption file.
func (k KeySet) Subtitle(filename string) string {
	return k.root() + "/subtitles/" + filename
}

// SegmentName extracts the bare segment filename from a listed key, or ""
// when the key does not live under the segment prefix.
func (k KeySet) SegmentName(key string) string {
	prefix := k.SegmentPrefix()
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	name := strings.TrimPrefix(key, prefix)
	if name == "" || strings.Contains(name, "/") {
		return ""
	}
	return name
}
