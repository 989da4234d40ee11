package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkExtinction       BookmarkType = "extinction"
	BookmarkPopulationBoom   BookmarkType = "population_boom"
	BookmarkPopulationCrash  BookmarkType = "population_crash"
	BookmarkGenomeTakeover   BookmarkType = "genome_takeover"
	BookmarkStablePopulation BookmarkType = "stable_population"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Step        int          `csv:"step" json:"step"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	extinct            bool   // extinction already reported
	recentPeak         int    // peak animal count since the last crash
	takeover           string // genome last reported as taking over
	stableWindowsCount int    // consecutive windows with stable population
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable population detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest window and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkExtinction(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		// Boom: window mean > 2x rolling average
		if b := bd.checkBoom(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Crash: dropped >50% from recent peak
		if b := bd.checkCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		if b := bd.checkStablePopulation(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	// Takeover: one genome holds at least half the population
	if b := bd.checkTakeover(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	if stats.Animals > bd.recentPeak {
		bd.recentPeak = stats.Animals
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkExtinction(stats WindowStats) *Bookmark {
	if stats.Animals > 0 {
		bd.extinct = false
		return nil
	}
	if bd.extinct {
		return nil
	}
	bd.extinct = true
	return &Bookmark{
		Type:        BookmarkExtinction,
		Step:        stats.WindowEnd,
		Description: fmt.Sprintf("All animals died (%d deaths in the last window)", stats.Deaths),
	}
}

func (bd *BookmarkDetector) checkBoom(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var sum float64
	for _, h := range history {
		sum += h.AnimalsMean
	}
	avg := sum / float64(len(history))

	if avg > 0 && stats.AnimalsMean > 2*avg && stats.Animals >= 10 {
		return &Bookmark{
			Type:        BookmarkPopulationBoom,
			Step:        stats.WindowEnd,
			Description: fmt.Sprintf("Population mean %.1f is %.1fx the rolling average %.1f", stats.AnimalsMean, stats.AnimalsMean/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkCrash(stats WindowStats) *Bookmark {
	if bd.recentPeak == 0 || stats.Animals == 0 {
		return nil
	}

	drop := 1.0 - float64(stats.Animals)/float64(bd.recentPeak)
	if drop > 0.50 && stats.Animals < bd.recentPeak-10 {
		// Reset peak after crash
		oldPeak := bd.recentPeak
		bd.recentPeak = stats.Animals

		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Step:        stats.WindowEnd,
			Description: fmt.Sprintf("Population crashed %.0f%% from peak %d to %d", drop*100, oldPeak, stats.Animals),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkTakeover(stats WindowStats) *Bookmark {
	if stats.Animals < 10 || stats.PopularGenome == "" {
		return nil
	}
	if 2*stats.PopularCount < stats.Animals || stats.PopularGenome == bd.takeover {
		return nil
	}
	bd.takeover = stats.PopularGenome
	return &Bookmark{
		Type:        BookmarkGenomeTakeover,
		Step:        stats.WindowEnd,
		Description: fmt.Sprintf("Genome %s carried by %d of %d animals", stats.PopularGenome, stats.PopularCount, stats.Animals),
	}
}

func (bd *BookmarkDetector) checkStablePopulation(stats WindowStats) *Bookmark {
	if stats.Animals < 10 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	// Variance over the last four windows
	recent := history[len(history)-4:]
	var sum float64
	for _, h := range recent {
		sum += h.AnimalsMean
	}
	mean := sum / 4

	var variance float64
	for _, h := range recent {
		d := h.AnimalsMean - mean
		variance += d * d
	}
	variance /= 4

	// Low variance: coefficient of variation < 20%
	cv2 := 0.0
	if mean > 0 {
		cv2 = variance / (mean * mean)
	}

	if cv2 < 0.04 {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkStablePopulation,
			Step:        stats.WindowEnd,
			Description: fmt.Sprintf("Stable population around %.0f animals over 5+ windows", mean),
		}
	}
	return nil
}
