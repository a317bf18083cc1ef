package resume_test

import (
	"context"
	"errors"
	"testing"

	"reelsync/internal/resume"
	"reelsync/internal/services/objectstore"
)

func testKeys() objectstore.KeySet {
	return objectstore.KeySet{MediaPath: "media", Tenant: "acme", Kind: "movie", JobID: "job-1"}
}

func TestInspectFindsExistingSegments(t *testing.T) {
	store := objectstore.NewMemory()
	keys := testKeys()
	store.Seed(keys.Segment("segment_000000.ts"), []byte("aa"))
	store.Seed(keys.Segment("segment_000001.ts"), []byte("bb"))
	store.Seed(keys.Segment("segment_000002.ts"), []byte("cc"))

	state := resume.NewProbe(store, nil).Inspect(context.Background(), keys)

	if len(state.ExistingSegments) != 3 {
		t.Fatalf("expected 3 existing segments, got %d", len(state.ExistingSegments))
	}
	for i := 0; i < 3; i++ {
		if !state.Has(i) {
			t.Fatalf("segment %d should be in the resume set", i)
		}
	}
	if state.Has(3) {
		t.Fatal("segment 3 was never uploaded")
	}
	if state.ManifestPublished {
		t.Fatal("no playlist artifacts exist")
	}
}

func TestInspectIgnoresZeroSizeAndForeignKeys(t *testing.T) {
	store := objectstore.NewMemory()
	keys := testKeys()
	store.Seed(keys.Segment("segment_000000.ts"), nil)
	store.Seed(keys.Segment("segment_000001.ts"), []byte("ok"))
	store.Seed(keys.Segment("notes.txt"), []byte("junk"))
	store.Seed(keys.Segment("segment_01.ts"), []byte("short index"))

	state := resume.NewProbe(store, nil).Inspect(context.Background(), keys)

	if len(state.ExistingSegments) != 1 || !state.Has(1) {
		t.Fatalf("expected only segment 1, got %v", state.ExistingSegments)
	}
}

func TestInspectListFailureDegradesToEmptySet(t *testing.T) {
	store := objectstore.NewMemory()
	keys := testKeys()
	store.Seed(keys.Segment("segment_000000.ts"), []byte("aa"))
	store.ListErr = errors.New("listing denied")

	state := resume.NewProbe(store, nil).Inspect(context.Background(), keys)

	if len(state.ExistingSegments) != 0 {
		t.Fatalf("listing failure must yield an empty resume set, got %v", state.ExistingSegments)
	}
}

func TestInspectManifestRequiresBothArtifacts(t *testing.T) {
	store := objectstore.NewMemory()
	keys := testKeys()
	store.Seed(keys.PlaylistTemplate(), []byte("#EXTM3U"))

	probe := resume.NewProbe(store, nil)
	if probe.Inspect(context.Background(), keys).ManifestPublished {
		t.Fatal("template alone must not count as published")
	}

	store.Seed(keys.Playlist(), []byte("#EXTM3U"))
	if !probe.Inspect(context.Background(), keys).ManifestPublished {
		t.Fatal("both artifacts present, manifest should report published")
	}
}
