package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_Extinction(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(WindowStats{WindowEnd: 100, Animals: 20, AnimalsMean: 20})

	got := bd.Check(WindowStats{WindowEnd: 200, Animals: 0, Deaths: 20})
	if !hasBookmark(got, BookmarkExtinction) {
		t.Fatal("expected extinction bookmark")
	}
	if got[0].Step != 200 {
		t.Errorf("step = %d, want 200", got[0].Step)
	}

	// Reported once while the habitat stays empty
	if hasBookmark(bd.Check(WindowStats{WindowEnd: 300}), BookmarkExtinction) {
		t.Error("extinction reported twice")
	}
}

func TestBookmarkDetector_PopulationBoom(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEnd: i * 100, Animals: 20, AnimalsMean: 20})
	}

	got := bd.Check(WindowStats{WindowEnd: 500, Animals: 60, AnimalsMean: 50})
	if !hasBookmark(got, BookmarkPopulationBoom) {
		t.Error("expected population_boom bookmark")
	}
}

func TestBookmarkDetector_PopulationCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEnd: i * 100, Animals: 100, AnimalsMean: 100})
	}

	got := bd.Check(WindowStats{WindowEnd: 500, Animals: 30, AnimalsMean: 60})
	if !hasBookmark(got, BookmarkPopulationCrash) {
		t.Fatal("expected population_crash bookmark")
	}

	// Peak resets after a crash
	if hasBookmark(bd.Check(WindowStats{WindowEnd: 600, Animals: 25, AnimalsMean: 27}), BookmarkPopulationCrash) {
		t.Error("crash reported again without a new peak")
	}
}

func TestBookmarkDetector_GenomeTakeover(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if hasBookmark(bd.Check(WindowStats{Animals: 40, PopularGenome: "0011", PopularCount: 10}), BookmarkGenomeTakeover) {
		t.Error("a quarter of the population is not a takeover")
	}
	if !hasBookmark(bd.Check(WindowStats{Animals: 40, PopularGenome: "0011", PopularCount: 20}), BookmarkGenomeTakeover) {
		t.Error("expected genome_takeover bookmark")
	}
	if hasBookmark(bd.Check(WindowStats{Animals: 40, PopularGenome: "0011", PopularCount: 30}), BookmarkGenomeTakeover) {
		t.Error("same genome reported twice")
	}
	if !hasBookmark(bd.Check(WindowStats{Animals: 40, PopularGenome: "7766", PopularCount: 25}), BookmarkGenomeTakeover) {
		t.Error("expected takeover by a new genome")
	}
}

func TestBookmarkDetector_StablePopulation(t *testing.T) {
	bd := NewBookmarkDetector(10)

	count := 0
	for i := 0; i < 12; i++ {
		got := bd.Check(WindowStats{WindowEnd: i * 100, Animals: 50, AnimalsMean: 50})
		if hasBookmark(got, BookmarkStablePopulation) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("stable_population reported %d times, want 1", count)
	}
}
