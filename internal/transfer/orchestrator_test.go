package transfer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsync/internal/conversion"
	"reelsync/internal/manifest"
	"reelsync/internal/resume"
	"reelsync/internal/services/mediaapi"
	"reelsync/internal/services/objectstore"
	"reelsync/internal/transfer"
)

type apiRecorder struct {
	mu        sync.Mutex
	finalizes []mediaapi.FinalizeRequest
	statuses  []mediaapi.StatusUpdate
	pushErr   error
}

func (a *apiRecorder) ProcessPlaylist(_ context.Context, _ string, req mediaapi.FinalizeRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finalizes = append(a.finalizes, req)
	return nil
}

func (a *apiRecorder) PushStatus(_ context.Context, _ string, update mediaapi.StatusUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statuses = append(a.statuses, update)
	return a.pushErr
}

func (a *apiRecorder) finalizeCalls() []mediaapi.FinalizeRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]mediaapi.FinalizeRequest(nil), a.finalizes...)
}

func (a *apiRecorder) lastStatus() (mediaapi.StatusUpdate, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.statuses) == 0 {
		return mediaapi.StatusUpdate{}, false
	}
	return a.statuses[len(a.statuses)-1], true
}

type harness struct {
	store   *objectstore.Memory
	api     *apiRecorder
	keys    objectstore.KeySet
	record  conversion.Record
	session *transfer.Session
	orch    *transfer.Orchestrator
	state   resume.State
}

func newHarness(t *testing.T, total, priorityCount, batchSize int, resumed []int, manifestPublished bool) *harness {
	t.Helper()
	dir := t.TempDir()
	names := make([]string, 0, total)
	for i := 0; i < total; i++ {
		name := conversion.SegmentFilename(i)
		content := strings.Repeat("x", i+1)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write segment: %v", err)
		}
		names = append(names, name)
	}

	state := resume.State{ExistingSegments: make(map[int]struct{}), ManifestPublished: manifestPublished}
	for _, index := range resumed {
		state.ExistingSegments[index] = struct{}{}
	}

	h := &harness{
		store:   objectstore.NewMemory(),
		api:     &apiRecorder{},
		keys:    objectstore.KeySet{MediaPath: "media", Tenant: "acme", Kind: "movie", JobID: "job-1"},
		record:  conversion.NewRecord(dir, names, 10, float64(total*10)),
		session: transfer.NewSession("job-1", total, len(resumed)),
	}
	builder := manifest.NewBuilder(h.store, h.api, h.keys, "job-1", nil)
	reporter := transfer.NewReporter(h.api, "job-1", 0, nil)
	h.orch = transfer.NewOrchestrator(h.store, builder, reporter, h.keys, priorityCount, batchSize, nil)

	// Run consults the resume state passed in, not the store, so remote
	// presence of resumed segments is implied rather than seeded.
	h.state = state
	return h
}

func (h *harness) run(t *testing.T) error {
	t.Helper()
	return h.orch.Run(context.Background(), h.record, h.state, h.session)
}

func (h *harness) storedSegmentIndices(t *testing.T) []int {
	t.Helper()
	var indices []int
	for _, key := range h.store.Keys() {
		name := h.keys.SegmentName(key)
		if name == "" {
			continue
		}
		index, ok := conversion.SegmentIndex(name)
		if !ok {
			t.Fatalf("unexpected segment key %q", key)
		}
		indices = append(indices, index)
	}
	return indices
}

func TestRunResumedScenario(t *testing.T) {
	h := newHarness(t, 12, 5, 3, []int{0, 1, 2}, false)

	if err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := h.storedSegmentIndices(t); len(got) != 9 || got[0] != 3 || got[len(got)-1] != 11 {
		t.Fatalf("expected fresh transfers for segments 3..11, got %v", got)
	}
	if h.session.UploadedSegments() != 12 {
		t.Fatalf("uploaded = %d, want 12", h.session.UploadedSegments())
	}
	if h.session.SkippedSegments() != 3 {
		t.Fatalf("skipped = %d, want 3", h.session.SkippedSegments())
	}
	if h.session.FreshSegments() != 9 {
		t.Fatalf("fresh = %d, want 9", h.session.FreshSegments())
	}
	if h.session.Status() != transfer.StatusCompleted {
		t.Fatalf("status = %s, want completed", h.session.Status())
	}

	calls := h.api.finalizeCalls()
	wantCounts := []int{5, 8, 11, 12}
	if len(calls) != len(wantCounts) {
		t.Fatalf("finalize calls = %d, want %d: %+v", len(calls), len(wantCounts), calls)
	}
	for i, call := range calls {
		if call.SegmentCount != wantCounts[i] {
			t.Fatalf("finalize %d segmentCount = %d, want %d", i, call.SegmentCount, wantCounts[i])
		}
		if call.TotalSegments != 12 {
			t.Fatalf("finalize %d totalSegments = %d", i, call.TotalSegments)
		}
		if wantComplete := i == len(wantCounts)-1; call.IsComplete != wantComplete {
			t.Fatalf("finalize %d isComplete = %v", i, call.IsComplete)
		}
	}

	template, ok := h.store.Get(h.keys.PlaylistTemplate())
	if !ok {
		t.Fatal("template playlist missing")
	}
	if !strings.Contains(string(template), conversion.SegmentFilename(11)) {
		t.Fatal("final template must list the last segment")
	}
}

func TestRunPriorityCoversWholeShortMedia(t *testing.T) {
	h := newHarness(t, 3, 5, 2, nil, false)

	if err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	calls := h.api.finalizeCalls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one finalize call, got %+v", calls)
	}
	if calls[0].SegmentCount != 3 || !calls[0].IsComplete {
		t.Fatalf("finalize = %+v, want complete with count 3", calls[0])
	}
	if h.session.UploadedSegments() != 3 {
		t.Fatalf("uploaded = %d", h.session.UploadedSegments())
	}
}

func TestRunFullyResumedWithManifestRepublishesAtMilestoneOnly(t *testing.T) {
	resumed := make([]int, 12)
	for i := range resumed {
		resumed[i] = i
	}
	h := newHarness(t, 12, 5, 3, resumed, true)

	if err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := h.storedSegmentIndices(t); len(got) != 0 {
		t.Fatalf("fully resumed run must transfer nothing, sent %v", got)
	}
	calls := h.api.finalizeCalls()
	if len(calls) != 1 {
		t.Fatalf("expected one milestone republish, got %+v", calls)
	}
	if !calls[0].IsComplete || calls[0].SegmentCount != 12 {
		t.Fatalf("milestone finalize = %+v", calls[0])
	}
	template, ok := h.store.Get(h.keys.PlaylistTemplate())
	if !ok {
		t.Fatal("milestone republish must rewrite the template")
	}
	if !strings.Contains(string(template), conversion.SegmentFilename(11)) {
		t.Fatal("republished template must cover every remote segment")
	}
}

func TestRunFullyResumedWithoutManifestPublishesImmediately(t *testing.T) {
	resumed := make([]int, 6)
	for i := range resumed {
		resumed[i] = i
	}
	h := newHarness(t, 6, 3, 2, resumed, false)

	if err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}

	calls := h.api.finalizeCalls()
	if len(calls) == 0 {
		t.Fatal("missing manifest must force a publish even with nothing to send")
	}
	if first := calls[0]; first.SegmentCount != 6 || !first.IsComplete {
		t.Fatalf("first finalize = %+v, want full coverage", first)
	}
	template, _ := h.store.Get(h.keys.PlaylistTemplate())
	if !strings.Contains(string(template), conversion.SegmentFilename(5)) {
		t.Fatal("template must extend over resumed segments")
	}
}

func TestRunSegmentFailureFailsJobAndStopsBatches(t *testing.T) {
	h := newHarness(t, 12, 5, 3, nil, false)
	failKey := h.keys.Segment(conversion.SegmentFilename(7))
	h.store.PutHook = func(_ context.Context, key string) error {
		if key == failKey {
			return errors.New("connection reset")
		}
		return nil
	}

	err := h.run(t)
	if err == nil {
		t.Fatal("expected failure")
	}
	if h.session.Status() != transfer.StatusFailed {
		t.Fatalf("status = %s, want failed", h.session.Status())
	}

	calls := h.api.finalizeCalls()
	if len(calls) != 1 || calls[0].SegmentCount != 5 {
		t.Fatalf("only the priority checkpoint should have finalized: %+v", calls)
	}
	for _, index := range h.storedSegmentIndices(t) {
		if index >= 8 {
			t.Fatalf("segment %d from a later batch must not transfer after failure", index)
		}
	}

	status, ok := h.api.lastStatus()
	if !ok || status.StageName != string(transfer.StatusFailed) {
		t.Fatalf("last status push = %+v, want failed stage", status)
	}
}

func TestRunBatchBarrier(t *testing.T) {
	const (
		total         = 8
		priorityCount = 2
		batchSize     = 3
	)
	h := newHarness(t, total, priorityCount, batchSize, nil, false)

	batchOf := func(index int) int {
		if index < priorityCount {
			return 0
		}
		return 1 + (index-priorityCount)/batchSize
	}
	batchMembers := func(batch int) []int {
		var members []int
		for i := 0; i < total; i++ {
			if batchOf(i) == batch {
				members = append(members, i)
			}
		}
		return members
	}

	var (
		mu         sync.Mutex
		violations []string
	)
	h.store.PutHook = func(_ context.Context, key string) error {
		name := h.keys.SegmentName(key)
		if name == "" {
			return nil
		}
		index, ok := conversion.SegmentIndex(name)
		if !ok {
			return nil
		}
		batch := batchOf(index)
		if batch > 0 {
			for _, prev := range batchMembers(batch - 1) {
				if _, done := h.store.Get(h.keys.Segment(conversion.SegmentFilename(prev))); !done {
					mu.Lock()
					violations = append(violations,
						fmt.Sprintf("segment %d started before segment %d settled", index, prev))
					mu.Unlock()
				}
			}
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	}

	if err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("batch barrier violated:\n%s", strings.Join(violations, "\n"))
	}
	if got := h.storedSegmentIndices(t); len(got) != total {
		t.Fatalf("expected %d transfers, got %v", total, got)
	}
}
