package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/darwin/config"
)

// ErrStoreClosed is returned by synchronous Store calls after Close.
var ErrStoreClosed = errors.New("store closed")

// Store persists run statistics to SQLite. Step, window and bookmark rows
// are queued to a single writer goroutine and dropped when the queue is
// full, so the stepping loop never waits on disk. All methods are no-ops
// on a nil Store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	runID  atomic.Int64

	mu   sync.RWMutex // guards sends on ch against Close
	ch   chan storeReq
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

type storeReqKind int

const (
	reqStep storeReqKind = iota + 1
	reqWindow
	reqBookmark
	reqSync
)

type storeReq struct {
	kind  storeReqKind
	runID int64

	step     StepStats
	window   WindowStats
	bookmark Bookmark
	done     chan struct{}
}

// RunInfo describes one recorded run.
type RunInfo struct {
	ID        int64
	StartedAt time.Time
	Variant   string
	Width     int
	Height    int
	Seed      int64
}

// OpenStore opens or creates the database at path.
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		ch:     make(chan storeReq, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			variant TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			config_yaml TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			step INTEGER NOT NULL,
			animals INTEGER NOT NULL,
			plants INTEGER NOT NULL,
			empty_fields INTEGER NOT NULL,
			burning INTEGER NOT NULL,
			popular_genome TEXT NOT NULL,
			popular_count INTEGER NOT NULL,
			avg_lifetime REAL NOT NULL,
			avg_descendants REAL NOT NULL,
			births INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			energy_mean REAL NOT NULL,
			energy_p10 REAL NOT NULL,
			energy_p50 REAL NOT NULL,
			energy_p90 REAL NOT NULL,
			PRIMARY KEY (run_id, step)
		);`,
		`CREATE TABLE IF NOT EXISTS windows (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			window_end INTEGER NOT NULL,
			window_start INTEGER NOT NULL,
			animals_mean REAL NOT NULL,
			animals_peak INTEGER NOT NULL,
			births INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			burning_peak INTEGER NOT NULL,
			popular_genome TEXT NOT NULL,
			PRIMARY KEY (run_id, window_end)
		);`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			step INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// BeginRun records a new run and makes it the target of later rows.
func (s *Store) BeginRun(ctx context.Context, cfg *config.Config) (int64, error) {
	if s == nil {
		return 0, nil
	}
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}
	text, err := yaml.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("marshaling config: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(started_at, variant, width, height, seed, config_yaml) VALUES(?,?,?,?,?,?)`,
		time.Now().UTC().Format(time.RFC3339Nano), cfg.World.Variant, cfg.World.Width, cfg.World.Height, cfg.World.Seed, string(text))
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	s.runID.Store(id)
	return id, nil
}

// RecordStep queues a step snapshot.
func (s *Store) RecordStep(stats StepStats) {
	s.enqueue(storeReq{kind: reqStep, step: stats})
}

// RecordWindow queues an aggregated window.
func (s *Store) RecordWindow(stats WindowStats) {
	s.enqueue(storeReq{kind: reqWindow, window: stats})
}

// RecordBookmark queues a bookmark.
func (s *Store) RecordBookmark(b Bookmark) {
	s.enqueue(storeReq{kind: reqBookmark, bookmark: b})
}

func (s *Store) enqueue(r storeReq) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return
	}
	r.runID = s.runID.Load()
	select {
	case s.ch <- r:
	default:
		// Drop if the writer falls behind; the CSV output remains complete.
		s.dropped.Add(1)
	}
}

// Dropped returns the number of rows discarded because the queue was full.
func (s *Store) Dropped() int64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

// Sync blocks until every row queued before the call is written.
func (s *Store) Sync(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	s.mu.RLock()
	if s.closed.Load() {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	select {
	case s.ch <- storeReq{kind: reqSync, done: done}:
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	s.mu.RUnlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Steps returns the recorded steps of a run in step order.
func (s *Store) Steps(ctx context.Context, runID int64) ([]StepStats, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT step, animals, plants, empty_fields, burning,
		popular_genome, popular_count, avg_lifetime, avg_descendants, births, deaths,
		energy_mean, energy_p10, energy_p50, energy_p90
		FROM steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying steps: %w", err)
	}
	defer rows.Close()

	var out []StepStats
	for rows.Next() {
		var st StepStats
		if err := rows.Scan(&st.Step, &st.Animals, &st.Plants, &st.EmptyFields, &st.Burning,
			&st.PopularGenome, &st.PopularCount, &st.AvgLifetime, &st.AvgDescendants, &st.Births, &st.Deaths,
			&st.EnergyMean, &st.EnergyP10, &st.EnergyP50, &st.EnergyP90); err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Bookmarks returns the recorded bookmarks of a run in step order.
func (s *Store) Bookmarks(ctx context.Context, runID int64) ([]Bookmark, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT step, type, description FROM bookmarks WHERE run_id = ? ORDER BY step, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying bookmarks: %w", err)
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		var b Bookmark
		var typ string
		if err := rows.Scan(&b.Step, &typ, &b.Description); err != nil {
			return nil, fmt.Errorf("scanning bookmark: %w", err)
		}
		b.Type = BookmarkType(typ)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Runs lists the recorded runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, started_at, variant, width, height, seed FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var r RunInfo
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Variant, &r.Width, &r.Height, &r.Seed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close drains the queue and closes the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// loop writes queued rows, batching whatever is already waiting into one
// transaction.
func (s *Store) loop() {
	ctx := context.Background()
	for r := range s.ch {
		batch := []storeReq{r}
	drain:
		for len(batch) < 512 {
			select {
			case next, ok := <-s.ch:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		if err := s.writeBatch(ctx, batch); err != nil {
			s.logger.Warn("store write failed", "rows", len(batch), "error", err)
		}
		for _, req := range batch {
			if req.done != nil {
				close(req.done)
			}
		}
	}
}

func (s *Store) writeBatch(ctx context.Context, batch []storeReq) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, r := range batch {
		if err := writeReq(ctx, tx, r); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func writeReq(ctx context.Context, tx *sql.Tx, r storeReq) error {
	var err error
	switch r.kind {
	case reqStep:
		st := r.step
		_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO steps(run_id, step, animals, plants, empty_fields, burning,
			popular_genome, popular_count, avg_lifetime, avg_descendants, births, deaths,
			energy_mean, energy_p10, energy_p50, energy_p90) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			r.runID, st.Step, st.Animals, st.Plants, st.EmptyFields, st.Burning,
			st.PopularGenome, st.PopularCount, st.AvgLifetime, st.AvgDescendants, st.Births, st.Deaths,
			st.EnergyMean, st.EnergyP10, st.EnergyP50, st.EnergyP90)
	case reqWindow:
		w := r.window
		_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO windows(run_id, window_end, window_start, animals_mean,
			animals_peak, births, deaths, burning_peak, popular_genome) VALUES(?,?,?,?,?,?,?,?,?)`,
			r.runID, w.WindowEnd, w.WindowStart, w.AnimalsMean, w.AnimalsPeak, w.Births, w.Deaths, w.BurningPeak, w.PopularGenome)
	case reqBookmark:
		b := r.bookmark
		_, err = tx.ExecContext(ctx, `INSERT INTO bookmarks(run_id, step, type, description) VALUES(?,?,?,?)`,
			r.runID, b.Step, string(b.Type), b.Description)
	}
	return err
}
