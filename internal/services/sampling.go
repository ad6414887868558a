package services

import (
	"errors"
	"math"
	"math/rand"
)

// ErrSamplingExhausted indicates a weighted draw had no positive mass to draw from.
var ErrSamplingExhausted = errors.New("sampling: no positive weight remaining")

// weightedIndex performs a single categorical draw proportional to weights.
func weightedIndex(rng *rand.Rand, weights []float64) (int, error) {
	total := 0.0
	for _, w := range weights {
		if w > 0 && !math.IsInf(w, 0) {
			total += w
		}
	}
	if total <= 0 || math.IsNaN(total) {
		return -1, ErrSamplingExhausted
	}
	target := rng.Float64() * total
	cumulative := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 || math.IsInf(w, 0) {
			continue
		}
		cumulative += w
		last = i
		if target < cumulative {
			return i, nil
		}
	}
	// float rounding can leave target == total
	return last, nil
}

// sampleWithoutReplacement draws k distinct indices from weights, removing each drawn index before
// the next draw. When no positive weight remains the draw falls back to a uniform choice among the
// remaining indices. The second return value counts fallback draws.
func sampleWithoutReplacement(rng *rand.Rand, weights []float64, k int) ([]int, int) {
	if k > len(weights) {
		k = len(weights)
	}
	remaining := make([]int, len(weights))
	remainingWeights := make([]float64, len(weights))
	for i := range weights {
		remaining[i] = i
		remainingWeights[i] = weights[i]
	}

	picked := make([]int, 0, k)
	fallbacks := 0
	for len(picked) < k && len(remaining) > 0 {
		pos, err := weightedIndex(rng, remainingWeights)
		if err != nil {
			pos = rng.Intn(len(remaining))
			fallbacks++
		}
		picked = append(picked, remaining[pos])
		remaining = append(remaining[:pos], remaining[pos+1:]...)
		remainingWeights = append(remainingWeights[:pos], remainingWeights[pos+1:]...)
	}
	return picked, fallbacks
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func randIntInclusive(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}
