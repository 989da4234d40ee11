package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/zstd"

	"github.com/pthm-cable/darwin/config"
)

// csvTable appends gocsv records to a file, writing the header once.
type csvTable struct {
	name          string
	file          *os.File
	enc           *zstd.Encoder // nil unless compressed
	w             io.Writer
	headerWritten bool
}

func openTable(dir, name string, compress bool) (*csvTable, error) {
	if compress {
		name += ".zst"
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	t := &csvTable{name: name, file: f, w: f}
	if compress {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("creating %s encoder: %w", name, err)
		}
		t.enc = enc
		t.w = enc
	}
	return t, nil
}

func (t *csvTable) write(records any) error {
	if !t.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, t.w); err != nil {
			return fmt.Errorf("writing %s: %w", t.name, err)
		}
		t.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, t.w); err != nil {
		return fmt.Errorf("writing %s: %w", t.name, err)
	}
	return nil
}

func (t *csvTable) close() error {
	var firstErr error
	if t.enc != nil {
		firstErr = t.enc.Close()
	}
	if err := t.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// OutputManager handles structured experiment output with CSV logging.
// All methods are no-ops on a nil manager.
type OutputManager struct {
	dir       string
	stats     *csvTable // one row per step, optionally zstd-compressed
	windows   *csvTable
	perf      *csvTable
	bookmarks *csvTable
	lifetimes *csvTable
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled). With compress set, the
// per-step table is written as stats.csv.zst.
func NewOutputManager(dir string, compress bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	tables := []struct {
		dst      **csvTable
		name     string
		compress bool
	}{
		{&om.stats, "stats.csv", compress},
		{&om.windows, "windows.csv", false},
		{&om.perf, "perf.csv", false},
		{&om.bookmarks, "bookmarks.csv", false},
		{&om.lifetimes, "lifetimes.csv", false},
	}
	for _, tb := range tables {
		t, err := openTable(dir, tb.name, tb.compress)
		if err != nil {
			_ = om.Close()
			return nil, err
		}
		*tb.dst = t
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteStep writes a step snapshot to stats.csv.
func (om *OutputManager) WriteStep(stats StepStats) error {
	if om == nil {
		return nil
	}
	return om.stats.write([]StepStats{stats})
}

// WriteWindow writes an aggregated window to windows.csv.
func (om *OutputManager) WriteWindow(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.windows.write([]WindowStats{stats})
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int) error {
	if om == nil {
		return nil
	}
	return om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return om.bookmarks.write([]Bookmark{b})
}

// WriteLifetime writes the record of a tracked animal that died.
func (om *OutputManager) WriteLifetime(l LifetimeStats) error {
	if om == nil {
		return nil
	}
	return om.lifetimes.write([]LifetimeStats{l})
}

// WriteHallOfFame saves the hall of fame as JSON.
func (om *OutputManager) WriteHallOfFame(hof *HallOfFame) error {
	if om == nil || hof == nil {
		return nil
	}
	return hof.Save(filepath.Join(om.dir, "hall_of_fame.json"))
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, t := range []*csvTable{om.stats, om.windows, om.perf, om.bookmarks, om.lifetimes} {
		if t == nil {
			continue
		}
		if err := t.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
