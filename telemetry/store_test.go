package telemetry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/darwin/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "db", "darwin.sqlite"), nil)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	cfg := config.Default()
	runID, err := s.BeginRun(ctx, cfg)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	for step := 1; step <= 20; step++ {
		s.RecordStep(StepStats{Step: step, Animals: step * 2, PopularGenome: "0011", EnergyP50: float64(step) / 2})
	}
	s.RecordWindow(WindowStats{WindowStart: 0, WindowEnd: 20, AnimalsPeak: 40})
	s.RecordBookmark(Bookmark{Type: BookmarkGenomeTakeover, Step: 20, Description: "0011"})
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	steps, err := s.Steps(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 20 {
		t.Fatalf("got %d steps, want 20", len(steps))
	}
	if steps[9].Step != 10 || steps[9].Animals != 20 || steps[9].EnergyP50 != 5 || steps[9].PopularGenome != "0011" {
		t.Errorf("step 10 = %+v", steps[9])
	}

	bookmarks, err := s.Bookmarks(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bookmarks) != 1 || bookmarks[0].Type != BookmarkGenomeTakeover {
		t.Errorf("bookmarks = %+v", bookmarks)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != runID || runs[0].Variant != cfg.World.Variant || runs[0].Width != cfg.World.Width {
		t.Errorf("runs = %+v", runs)
	}
	if s.Dropped() != 0 {
		t.Errorf("dropped %d rows", s.Dropped())
	}
}

func TestStoreSeparatesRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.BeginRun(ctx, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	s.RecordStep(StepStats{Step: 1})
	s.RecordStep(StepStats{Step: 2})

	second, err := s.BeginRun(ctx, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	s.RecordStep(StepStats{Step: 1})
	if err := s.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	a, _ := s.Steps(ctx, first)
	b, _ := s.Steps(ctx, second)
	if len(a) != 2 || len(b) != 1 {
		t.Errorf("run rows %d and %d, want 2 and 1", len(a), len(b))
	}
}

func TestStoreClosed(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	s.RecordStep(StepStats{Step: 1}) // dropped silently
	if err := s.Sync(context.Background()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Sync after Close = %v", err)
	}
	if _, err := s.BeginRun(context.Background(), config.Default()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("BeginRun after Close = %v", err)
	}
}

func TestNilStore(t *testing.T) {
	var s *Store
	s.RecordStep(StepStats{Step: 1})
	if _, err := s.BeginRun(context.Background(), config.Default()); err != nil {
		t.Error(err)
	}
	if err := s.Sync(context.Background()); err != nil {
		t.Error(err)
	}
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}
