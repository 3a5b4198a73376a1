// Package analytics computes per-exercise progress metrics over a series of
// logged sessions. All functions are pure: callers pass the already-filtered,
// date-ascending exercise history and everything is recomputed from scratch.
package analytics

import (
	"github.com/montanaflynn/stats"

	"thebes/thebes-server/internal/domain"
)

// epleyCoefficient is the per-rep factor of the estimated one-rep-max
// formula: eorm = weight * (1 + 0.0333 * reps).
const epleyCoefficient = 0.0333

// minSessionsForTrend is the minimum number of qualifying sessions before a
// regression trend is reported.
const minSessionsForTrend = 3

// Progress holds every derived metric for one exercise over a date range.
type Progress struct {
	// Set-level metrics.
	IsBodyweight           bool    `json:"isBodyweight"`
	TotalSets              int     `json:"totalSets"`
	BestEstimatedOneRepMax float64 `json:"bestEstimatedOneRepMax"`
	EORMChange             float64 `json:"eormChange"`
	BestReps               int     `json:"bestReps"`
	RepsChange             int     `json:"repsChange"`
	AverageRepsPerSet      float64 `json:"averageRepsPerSet"`

	// Session-level metrics. A qualifying session is one exercise record
	// with nonzero computed volume.
	TotalVolume                 float64 `json:"totalVolume"`
	WorkoutFrequency            int     `json:"workoutFrequency"`
	AverageVolumePerSession     float64 `json:"averageVolumePerSession"`
	BestSessionVolume           float64 `json:"bestSessionVolume"`
	VolumeProgression           float64 `json:"volumeProgression"`
	VolumeProgressionPercentage float64 `json:"volumeProgressionPercentage"`
	VolumeConsistency           float64 `json:"volumeConsistency"`
}

// EstimateOneRepMax applies the Epley-style formula to one weighted set.
func EstimateOneRepMax(weight float64, reps int) float64 {
	return weight * (1 + epleyCoefficient*float64(reps))
}

// ComputeProgress derives all metrics from the exercise history. The input
// must be filtered to one exercise name and sorted ascending by date; set
// order within each record is the logged order.
func ComputeProgress(history []domain.Exercise) Progress {
	var p Progress

	// Flatten sets in chronological order.
	var allSets []domain.SetData
	for _, ex := range history {
		allSets = append(allSets, ex.Sets...)
	}
	p.TotalSets = len(allSets)

	// Bodyweight iff no set carries a weight (vacuously true when empty).
	p.IsBodyweight = true
	for _, s := range allSets {
		if !s.IsBodyweight() {
			p.IsBodyweight = false
			break
		}
	}

	// EORM over weighted sets: best estimate, and change from the first
	// observed estimate to the best (not first-to-last).
	firstEORM := 0.0
	sawWeighted := false
	for _, s := range allSets {
		if s.IsBodyweight() {
			continue
		}
		eorm := EstimateOneRepMax(*s.Weight, s.Reps)
		if !sawWeighted {
			firstEORM = eorm
			sawWeighted = true
		}
		if eorm > p.BestEstimatedOneRepMax {
			p.BestEstimatedOneRepMax = eorm
		}
		p.TotalVolume += s.Volume()
	}
	if sawWeighted {
		p.EORMChange = p.BestEstimatedOneRepMax - firstEORM
	}

	// Rep tracking over bodyweight sets, same first-to-best pattern.
	firstReps := 0
	sawBodyweight := false
	for _, s := range allSets {
		if !s.IsBodyweight() {
			continue
		}
		if !sawBodyweight {
			firstReps = s.Reps
			sawBodyweight = true
		}
		if s.Reps > p.BestReps {
			p.BestReps = s.Reps
		}
	}
	if sawBodyweight {
		p.RepsChange = p.BestReps - firstReps
	}

	// Mean reps over every set, weighted or not.
	if len(allSets) > 0 {
		reps := make([]float64, len(allSets))
		for i, s := range allSets {
			reps[i] = float64(s.Reps)
		}
		if mean, err := stats.Mean(reps); err == nil {
			p.AverageRepsPerSet = mean
		}
	}

	// Session-level aggregates. Frequency counts every record; zero-volume
	// sessions are excluded from the volume series.
	p.WorkoutFrequency = len(history)
	var sessionVolumes []float64
	for _, ex := range history {
		if v := ex.SessionVolume(); v > 0 {
			sessionVolumes = append(sessionVolumes, v)
			if v > p.BestSessionVolume {
				p.BestSessionVolume = v
			}
		}
	}
	if p.WorkoutFrequency > 0 {
		p.AverageVolumePerSession = p.TotalVolume / float64(p.WorkoutFrequency)
	}

	p.VolumeProgression = volumeTrend(sessionVolumes)

	// First-vs-last ratio; measures something different from the fitted
	// trend above and the two are not expected to agree.
	if len(sessionVolumes) >= 2 && sessionVolumes[0] != 0 {
		first := sessionVolumes[0]
		last := sessionVolumes[len(sessionVolumes)-1]
		p.VolumeProgressionPercentage = (last - first) / first * 100
	}

	if len(sessionVolumes) >= 2 {
		if sd, err := stats.StandardDeviationPopulation(sessionVolumes); err == nil {
			p.VolumeConsistency = sd
		}
	}

	return p
}

// volumeTrend fits an ordinary-least-squares line to session volume against
// session index and returns slope*n: the model's total fitted change across
// the whole series, not the per-session slope.
func volumeTrend(volumes []float64) float64 {
	n := len(volumes)
	if n < minSessionsForTrend {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range volumes {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	return slope * fn
}
