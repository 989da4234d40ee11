package telemetry

import (
	"math"
	"testing"

	c "github.com/pthm-cable/darwin/components"
)

func TestComputeEnergyStats(t *testing.T) {
	tests := []struct {
		name                string
		values              []float64
		mean, p10, p50, p90 float64
	}{
		{"empty", nil, 0, 0, 0, 0},
		{"single", []float64{7}, 7, 7, 7, 7},
		{"one to ten", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5.5, 1, 5, 9},
		{"unsorted", []float64{10, 3, 1, 9, 2, 8, 4, 7, 5, 6}, 5.5, 1, 5, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, p10, p50, p90 := ComputeEnergyStats(tt.values)
			got := []float64{mean, p10, p50, p90}
			want := []float64{tt.mean, tt.p10, tt.p50, tt.p90}
			for i := range got {
				if math.Abs(got[i]-want[i]) > 0.001 {
					t.Errorf("ComputeEnergyStats(%v) = %v, want %v", tt.values, got, want)
					break
				}
			}
		})
	}
}

func TestComputeEnergyStatsLeavesInputUnsorted(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeEnergyStats(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input reordered: %v", values)
	}
}

func TestAnimalState(t *testing.T) {
	s := AnimalState{X: 3, Y: 4, Energy: 0, DiedAt: c.NotDead}
	if s.Position() != c.Pos(3, 4) {
		t.Errorf("Position = %v", s.Position())
	}
	if s.Dead() {
		t.Error("zero energy is alive")
	}
	s.Energy = -1
	if !s.Dead() {
		t.Error("negative energy is dead")
	}
}
