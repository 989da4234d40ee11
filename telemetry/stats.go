package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StepStats is the statistics snapshot emitted after every step.
type StepStats struct {
	Step int `csv:"step" json:"step"`

	// Population at step end
	Animals     int `csv:"animals" json:"animals"`
	Plants      int `csv:"plants" json:"plants"`
	EmptyFields int `csv:"empty_fields" json:"empty_fields"`
	Burning     int `csv:"burning" json:"burning"`

	// Most frequent genome among living animals
	PopularGenome string `csv:"popular_genome" json:"popular_genome"`
	PopularCount  int    `csv:"popular_count" json:"popular_count"`

	AvgLifetime    float64 `csv:"avg_lifetime" json:"avg_lifetime"`       // over all animals dead so far
	AvgDescendants float64 `csv:"avg_descendants" json:"avg_descendants"` // over living animals

	// Events during the step
	Births int `csv:"births" json:"births"`
	Deaths int `csv:"deaths" json:"deaths"`

	// Energy distribution of living animals
	EnergyMean float64 `csv:"energy_mean" json:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10" json:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50" json:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90" json:"energy_p90"`
}

// WindowStats holds aggregated statistics for a window of steps.
type WindowStats struct {
	WindowStart int `csv:"-"`
	WindowEnd   int `csv:"window_end"`

	// Population at window end
	Animals int `csv:"animals"`
	Plants  int `csv:"plants"`

	// Population over the window
	AnimalsMean float64 `csv:"animals_mean"`
	AnimalsPeak int     `csv:"animals_peak"`

	// Events during window
	Births      int `csv:"births"`
	Deaths      int `csv:"deaths"`
	BurningPeak int `csv:"burning_peak"`

	PopularGenome  string  `csv:"popular_genome"`
	PopularCount   int     `csv:"popular_count"`
	AvgLifetime    float64 `csv:"avg_lifetime"`
	AvgDescendants float64 `csv:"avg_descendants"`

	EnergyMean float64 `csv:"energy_mean"`
	EnergyP50  float64 `csv:"energy_p50"`
}

// ComputeEnergyStats calculates mean and empirical percentiles.
// Returns zeros for an empty slice.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", s.Step),
		slog.Int("animals", s.Animals),
		slog.Int("plants", s.Plants),
		slog.Int("empty_fields", s.EmptyFields),
		slog.Int("burning", s.Burning),
		slog.String("popular_genome", s.PopularGenome),
		slog.Int("popular_count", s.PopularCount),
		slog.Float64("avg_lifetime", s.AvgLifetime),
		slog.Float64("avg_descendants", s.AvgDescendants),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p50", s.EnergyP50),
	)
}

// LogStats logs the step stats using slog.
func (s StepStats) LogStats() {
	slog.Info("stats",
		"step", s.Step,
		"animals", s.Animals,
		"plants", s.Plants,
		"empty_fields", s.EmptyFields,
		"burning", s.Burning,
		"popular_genome", s.PopularGenome,
		"popular_count", s.PopularCount,
		"avg_lifetime", s.AvgLifetime,
		"avg_descendants", s.AvgDescendants,
		"births", s.Births,
		"deaths", s.Deaths,
		"energy_mean", s.EnergyMean,
		"energy_p10", s.EnergyP10,
		"energy_p50", s.EnergyP50,
		"energy_p90", s.EnergyP90,
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStart),
		slog.Int("window_end", s.WindowEnd),
		slog.Int("animals", s.Animals),
		slog.Int("plants", s.Plants),
		slog.Float64("animals_mean", s.AnimalsMean),
		slog.Int("animals_peak", s.AnimalsPeak),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("burning_peak", s.BurningPeak),
		slog.String("popular_genome", s.PopularGenome),
	)
}
