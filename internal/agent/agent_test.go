package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/scannamer/internal/config"
	"github.com/Lllllllleong/scannamer/internal/scan"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

// fakeSuggester returns a canned suggestion (or error) and records how it was
// called. Safe for use from the watch goroutines.
type fakeSuggester struct {
	mu       sync.Mutex
	name     string
	err      error
	calls    int
	lastMIME string
}

func (f *fakeSuggester) SuggestName(_ context.Context, mime string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMIME = mime
	if f.err != nil {
		return "", f.err
	}
	return f.name, nil
}

func (f *fakeSuggester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSuggester) mime() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMIME
}

func writeScan(t *testing.T, dir, name, content string, at time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, at, at))
	return path
}

func newTestAgent(dir string, s Suggester) (*Agent, *config.Config, scan.Tracker) {
	cfg := &config.Config{ScanFolder: dir, CheckInterval: time.Minute}
	tracker := scan.NewMemoryTracker()
	return New(cfg, tracker, s), cfg, tracker
}

func TestRunOnceRenamesMultiPageGroup(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "page-1", base)
	writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens(1).jpg", "page-2", base.Add(5*time.Second))
	writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens(2).jpg", "page-3", base.Add(10*time.Second))

	fake := &fakeSuggester{name: "Acme Invoice March 2022"}
	ag, _, _ := newTestAgent(dir, fake)

	stats := ag.RunOnce(context.Background())

	assert.Equal(t, RunStats{Discovered: 3, Groups: 1, Renamed: 3}, stats)
	assert.Equal(t, 1, fake.callCount(), "only the first page goes to the model")

	// Page numbering follows creation order, not directory order.
	for i, want := range []string{"page-1", "page-2", "page-3"} {
		name := fmt.Sprintf("Acme_Invoice_March_2022_page_%02d.jpg", i+1)
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, "expected %s to exist", name)
		assert.Equal(t, want, string(data))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRunOnceRenamesSingleScanWithoutPageSuffix(t *testing.T) {
	dir := t.TempDir()
	writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "front", time.Now().Add(-time.Hour))

	fake := &fakeSuggester{name: "Tax Receipt"}
	ag, _, _ := newTestAgent(dir, fake)

	stats := ag.RunOnce(context.Background())

	assert.Equal(t, RunStats{Discovered: 1, Groups: 1, Renamed: 1}, stats)
	assert.FileExists(t, filepath.Join(dir, "Tax_Receipt.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "3_28_22, 12_51 PM Microsoft Lens.jpg"))
	assert.NotEmpty(t, fake.mime())
}

func TestRunOnceDistinctGroupsResolveNameCollisions(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "first", base)
	writeScan(t, dir, "3_28_22, 12_52 PM Microsoft Lens.jpg", "second", base.Add(70*time.Second))

	fake := &fakeSuggester{name: "Receipt"}
	ag, _, _ := newTestAgent(dir, fake)

	stats := ag.RunOnce(context.Background())

	assert.Equal(t, RunStats{Discovered: 2, Groups: 2, Renamed: 2}, stats)
	assert.Equal(t, 2, fake.callCount())

	// Groups are processed oldest first, so the older scan wins the bare name.
	data, err := os.ReadFile(filepath.Join(dir, "Receipt.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "Receipt_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestRunOnceEmptySuggestionMarksProcessed(t *testing.T) {
	dir := t.TempDir()
	path := writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "scan", time.Now().Add(-time.Hour))

	fake := &fakeSuggester{name: "   "}
	ag, _, _ := newTestAgent(dir, fake)

	stats := ag.RunOnce(context.Background())

	assert.Equal(t, RunStats{Discovered: 1, Groups: 1, Skipped: 1}, stats)
	assert.FileExists(t, path, "the file keeps its original name")

	// The file stays marked, so the next pass does not retry it.
	stats = ag.RunOnce(context.Background())
	assert.Equal(t, 0, stats.Discovered)
	assert.Equal(t, 1, fake.callCount())
}

func TestRunOnceSuggestionErrorSkipsButMarks(t *testing.T) {
	dir := t.TempDir()
	path := writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "scan", time.Now().Add(-time.Hour))

	fake := &fakeSuggester{err: errors.New("model unavailable")}
	ag, _, _ := newTestAgent(dir, fake)

	stats := ag.RunOnce(context.Background())

	assert.Equal(t, RunStats{Discovered: 1, Groups: 1, Skipped: 1}, stats)
	assert.FileExists(t, path)

	stats = ag.RunOnce(context.Background())
	assert.Equal(t, 0, stats.Discovered)
	assert.Equal(t, 1, fake.callCount())
}

func TestRunOncePayloadFailureSkipsWithoutModelCall(t *testing.T) {
	dir := t.TempDir()
	path := writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.pdf", "not a pdf", time.Now().Add(-time.Hour))

	fake := &fakeSuggester{name: "unused"}
	ag, _, _ := newTestAgent(dir, fake)

	stats := ag.RunOnce(context.Background())

	assert.Equal(t, RunStats{Discovered: 1, Groups: 1, Skipped: 1}, stats)
	assert.Equal(t, 0, fake.callCount())
	assert.FileExists(t, path)

	stats = ag.RunOnce(context.Background())
	assert.Equal(t, 0, stats.Discovered)
}

func TestRunOnceForceClearsProcessedSet(t *testing.T) {
	dir := t.TempDir()
	writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "scan", time.Now().Add(-time.Hour))

	fake := &fakeSuggester{err: errors.New("model unavailable")}
	ag, cfg, _ := newTestAgent(dir, fake)

	stats := ag.RunOnce(context.Background())
	assert.Equal(t, 1, stats.Discovered)

	stats = ag.RunOnce(context.Background())
	assert.Equal(t, 0, stats.Discovered, "a marked file is not retried")

	cfg.Force = true
	stats = ag.RunOnce(context.Background())
	assert.Equal(t, 1, stats.Discovered, "force clears the processed set")
	assert.Equal(t, 2, fake.callCount())
}

func TestRunOnceCancelledContextLeavesFilesForNextPass(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "first", base)
	writeScan(t, dir, "3_28_22, 12_52 PM Microsoft Lens.jpg", "second", base.Add(70*time.Second))

	fake := &fakeSuggester{name: "Receipt"}
	ag, _, _ := newTestAgent(dir, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats := ag.RunOnce(ctx)

	assert.Equal(t, RunStats{Discovered: 2, Groups: 2}, stats)
	assert.Equal(t, 0, fake.callCount())

	// Nothing was marked, so a fresh pass picks everything up again.
	stats = ag.RunOnce(context.Background())
	assert.Equal(t, RunStats{Discovered: 2, Groups: 2, Renamed: 2}, stats)
}

func TestProcessGroupVanishedAnchorSkipsGroup(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	files := []scan.ScanFile{
		scan.NewScanFile(filepath.Join(dir, "3_28_22, 12_51 PM Microsoft Lens.jpg"), base),
		scan.NewScanFile(filepath.Join(dir, "3_28_22, 12_51 PM Microsoft Lens(1).jpg"), base.Add(5*time.Second)),
	}
	groups := scan.BuildGroups(files)
	require.Len(t, groups, 1)

	fake := &fakeSuggester{name: "unused"}
	ag, _, tracker := newTestAgent(dir, fake)

	var stats RunStats
	ag.processGroup(context.Background(), groups[0], &stats)

	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, fake.callCount())
	for _, f := range files {
		assert.True(t, tracker.Seen(f.Path), "vanished files stay marked")
	}
}

func TestProcessFileRenamesSingleScan(t *testing.T) {
	dir := t.TempDir()
	path := writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "front", time.Now())

	fake := &fakeSuggester{name: "Insurance Card"}
	ag, _, tracker := newTestAgent(dir, fake)

	ag.ProcessFile(context.Background(), path)

	assert.FileExists(t, filepath.Join(dir, "Insurance_Card.jpg"))
	assert.NoFileExists(t, path)
	assert.True(t, tracker.Seen(path))
}

func TestProcessFileIgnoresNonMatchingNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("notes"), 0o644))

	fake := &fakeSuggester{name: "unused"}
	ag, _, tracker := newTestAgent(dir, fake)

	ag.ProcessFile(context.Background(), path)

	assert.Equal(t, 0, fake.callCount())
	assert.False(t, tracker.Seen(path))
	assert.FileExists(t, path)
}

func TestProcessFileDeduplicatesAgainstPolling(t *testing.T) {
	dir := t.TempDir()
	path := writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "front", time.Now())

	fake := &fakeSuggester{name: "Receipt"}
	ag, _, tracker := newTestAgent(dir, fake)
	tracker.Mark(path)

	ag.ProcessFile(context.Background(), path)

	assert.Equal(t, 0, fake.callCount(), "an already-marked file is never reprocessed")
	assert.FileExists(t, path)
}

func TestProcessFileVanishedStaysMarked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "3_28_22, 12_51 PM Microsoft Lens.jpg")

	fake := &fakeSuggester{name: "unused"}
	ag, _, tracker := newTestAgent(dir, fake)

	ag.ProcessFile(context.Background(), path)

	assert.Equal(t, 0, fake.callCount())
	assert.True(t, tracker.Seen(path), "a vanished file stays marked")
}

func TestWatchStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeSuggester{name: "unused"}
	ag, cfg, _ := newTestAgent(dir, fake)
	cfg.CheckInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ag.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestWatchPicksUpNewScan(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeSuggester{name: "Bank Statement"}
	ag, cfg, _ := newTestAgent(dir, fake)
	cfg.CheckInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ag.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "front", time.Now())

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "Bank_Statement.jpg"))
		return err == nil
	}, 5*time.Second, 50*time.Millisecond, "new scan was not renamed")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestDiagnoseDoesNotTouchFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeScan(t, dir, "3_28_22, 12_51 PM Microsoft Lens.jpg", "front", time.Now())
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("notes"), 0o644))

	require.NoError(t, Diagnose(dir))

	assert.FileExists(t, path)
	assert.FileExists(t, other)
}

func TestDiagnoseMissingFolder(t *testing.T) {
	err := Diagnose(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
