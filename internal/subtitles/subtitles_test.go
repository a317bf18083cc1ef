package subtitles_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"reelsync/internal/services/ffmpeg"
	"reelsync/internal/services/objectstore"
	"reelsync/internal/services/subsearch"
	"reelsync/internal/subtitles"
)

const sampleSRT = "1\r\n00:00:01,000 --> 00:00:03,500\r\nHello there.\r\n\r\n2\r\n00:00:04,000 --> 00:00:06,000\r\nSecond cue,\r\nwith a comma in the text.\r\n"

func TestSRTToWebVTT(t *testing.T) {
	got := subtitles.SRTToWebVTT(sampleSRT)

	if !strings.HasPrefix(got, "WEBVTT\n") {
		t.Fatalf("missing header: %q", got)
	}
	if strings.Contains(got, "00:00:01,000") {
		t.Fatal("timestamp separators must become periods")
	}
	if !strings.Contains(got, "00:00:01.000 --> 00:00:03.500") {
		t.Fatalf("first cue timing missing: %q", got)
	}
	if !strings.Contains(got, "with a comma in the text.") {
		t.Fatal("commas in cue text must be left alone")
	}
	for _, line := range strings.Split(got, "\n") {
		if line == "1" || line == "2" {
			t.Fatalf("cue number %q survived the transform", line)
		}
	}
}

func TestSelectEnglishTracks(t *testing.T) {
	eng := ffmpeg.SubtitleTrack{Index: 2, Language: "eng"}
	titled := ffmpeg.SubtitleTrack{Index: 3, Language: "und", Title: "English (SDH)"}
	untagged := ffmpeg.SubtitleTrack{Index: 4}
	french := ffmpeg.SubtitleTrack{Index: 5, Language: "fre"}

	if got := subtitles.SelectEnglishTracks([]ffmpeg.SubtitleTrack{french, eng, untagged}); len(got) != 1 || got[0].Index != 2 {
		t.Fatalf("language tag must win: %+v", got)
	}
	if got := subtitles.SelectEnglishTracks([]ffmpeg.SubtitleTrack{french, titled}); len(got) != 1 || got[0].Index != 3 {
		t.Fatalf("title heuristic must apply without tags: %+v", got)
	}
	if got := subtitles.SelectEnglishTracks([]ffmpeg.SubtitleTrack{french, untagged}); len(got) != 1 || got[0].Index != 4 {
		t.Fatalf("first untagged track is the fallback: %+v", got)
	}
	if got := subtitles.SelectEnglishTracks([]ffmpeg.SubtitleTrack{french}); got != nil {
		t.Fatalf("nothing plausibly English: %+v", got)
	}
}

type stubExtractor struct {
	srt      string
	failures map[int]bool
}

func (s *stubExtractor) Probe(context.Context, string) (ffmpeg.MediaInfo, error) {
	return ffmpeg.MediaInfo{}, nil
}

func (s *stubExtractor) Transcode(context.Context, ffmpeg.TranscodeRequest, func(ffmpeg.ProgressUpdate)) ([]string, error) {
	return nil, nil
}

func (s *stubExtractor) ExtractSubtitle(_ context.Context, _ string, trackIndex int, outPath string) error {
	if s.failures[trackIndex] {
		return errors.New("extraction failed")
	}
	return os.WriteFile(outPath, []byte(s.srt), 0o644)
}

type stubSearch struct {
	candidates []subsearch.Candidate
	payloads   map[string][]byte
	searchErr  error
}

func (s *stubSearch) Search(context.Context, string, int) ([]subsearch.Candidate, error) {
	return s.candidates, s.searchErr
}

func (s *stubSearch) Download(_ context.Context, url string) ([]byte, error) {
	payload, ok := s.payloads[url]
	if !ok {
		return nil, errors.New("download failed")
	}
	return payload, nil
}

func testSubtitleKeys() objectstore.KeySet {
	return objectstore.KeySet{MediaPath: "media", Tenant: "acme", Kind: "movie", JobID: "job-1"}
}

func TestResolvePrefersEmbeddedTracks(t *testing.T) {
	store := objectstore.NewMemory()
	search := &stubSearch{searchErr: errors.New("must not be called")}
	resolver := subtitles.NewResolver(&stubExtractor{srt: sampleSRT}, search, store, nil)
	tracks := []ffmpeg.SubtitleTrack{{Index: 2, Language: "eng"}, {Index: 3, Language: "eng"}}

	names := resolver.Resolve(context.Background(), "/src/movie.mkv", tracks, "Movie", 2020, t.TempDir(), testSubtitleKeys())

	if len(names) != 2 {
		t.Fatalf("expected 2 captions, got %v", names)
	}
	data, ok := store.Get(testSubtitleKeys().Subtitle(names[0]))
	if !ok {
		t.Fatal("caption not stored")
	}
	if !strings.HasPrefix(string(data), "WEBVTT") {
		t.Fatalf("stored caption is not WebVTT: %q", data)
	}
}

func TestResolveEmbeddedPartialFailure(t *testing.T) {
	store := objectstore.NewMemory()
	extractor := &stubExtractor{srt: sampleSRT, failures: map[int]bool{2: true}}
	resolver := subtitles.NewResolver(extractor, nil, store, nil)
	tracks := []ffmpeg.SubtitleTrack{{Index: 2, Language: "eng"}, {Index: 3, Language: "eng"}}

	names := resolver.Resolve(context.Background(), "/src/movie.mkv", tracks, "", 0, t.TempDir(), testSubtitleKeys())

	if len(names) != 1 {
		t.Fatalf("one track failing must not sink the other: %v", names)
	}
}

func TestResolveFallsBackToSearch(t *testing.T) {
	archive := zipWithEntry(t, "movie.srt", sampleSRT)
	search := &stubSearch{
		candidates: []subsearch.Candidate{
			{Release: "good-plain", DownloadURL: "u1"},
			{Release: "broken", DownloadURL: "u2"},
			{Release: "good-zipped", DownloadURL: "u3"},
		},
		payloads: map[string][]byte{
			"u1": []byte(sampleSRT),
			"u3": archive,
		},
	}
	store := objectstore.NewMemory()
	resolver := subtitles.NewResolver(&stubExtractor{srt: sampleSRT}, search, store, nil)

	names := resolver.Resolve(context.Background(), "/src/movie.mkv", nil, "Movie", 2020, t.TempDir(), testSubtitleKeys())

	if len(names) != 2 {
		t.Fatalf("expected the two good candidates, got %v", names)
	}
	for _, name := range names {
		data, ok := store.Get(testSubtitleKeys().Subtitle(name))
		if !ok || !strings.HasPrefix(string(data), "WEBVTT") {
			t.Fatalf("candidate %s not stored as WebVTT", name)
		}
	}
}

func TestResolveWithoutSearchClient(t *testing.T) {
	resolver := subtitles.NewResolver(&stubExtractor{srt: sampleSRT}, nil, objectstore.NewMemory(), nil)

	names := resolver.Resolve(context.Background(), "/src/movie.mkv", nil, "Movie", 2020, t.TempDir(), testSubtitleKeys())

	if len(names) != 0 {
		t.Fatalf("no tracks and no search client means no captions, got %v", names)
	}
}

func zipWithEntry(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	entry, err := w.Create(name)
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	fmt.Fprint(entry, content)
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}
