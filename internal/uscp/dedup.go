package uscp

import (
	"math"
	"time"
)

const (
	dedupWeightType     = 0.4
	dedupWeightStrength = 0.4
	dedupWeightSource   = 0.2
)

// similarity scores two candidates on (type, strength, source) with the
// configured weights (§4.6 L2 de-duplication).
func similarity(a, b StandardizedSignal) float64 {
	var score float64
	if a.SignalType == b.SignalType {
		score += dedupWeightType
	}
	strengthCloseness := 1 - math.Min(1, math.Abs(a.SignalStrength-b.SignalStrength)*5)
	score += dedupWeightStrength * math.Max(0, strengthCloseness)
	if a.Source == b.Source {
		score += dedupWeightSource
	}
	return score
}

// deduplicate keeps, among candidates whose pairwise similarity is at or
// above threshold within window of each other, only the highest-scoring
// one. Candidates are assumed sorted by CreatedAt.
func deduplicate(candidates []StandardizedSignal, window time.Duration, threshold float64) (kept []StandardizedSignal, dedupCount int) {
	keptFlags := make([]bool, len(candidates))
	for i := range candidates {
		keptFlags[i] = true
	}

	for i := 0; i < len(candidates); i++ {
		if !keptFlags[i] {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			if !keptFlags[j] {
				continue
			}
			if candidates[j].CreatedAt.Sub(candidates[i].CreatedAt) > window {
				break
			}
			if similarity(candidates[i], candidates[j]) < threshold {
				continue
			}
			// Drop the lower-scoring one of the pair.
			if candidates[i].Score.Composite >= candidates[j].Score.Composite {
				keptFlags[j] = false
			} else {
				keptFlags[i] = false
			}
			dedupCount++
			if !keptFlags[i] {
				break
			}
		}
	}

	for i, ok := range keptFlags {
		if ok {
			kept = append(kept, candidates[i])
		}
	}
	return kept, dedupCount
}
