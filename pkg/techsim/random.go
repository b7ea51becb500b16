package techsim

import (
	"hash/fnv"
	"math/rand"
	"strconv"
	"strings"
)

// NewRand returns the generator for a seed token. Numeric tokens are used
// directly; any other token is hashed so that arbitrary strings reproduce.
func NewRand(seed string) *rand.Rand {
	return rand.New(rand.NewSource(SeedValue(seed)))
}

// SeedValue maps a seed token to the int64 fed to the generator.
func SeedValue(seed string) int64 {
	seed = strings.TrimSpace(seed)
	if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
		return n
	}
	h := fnv.New64a()
	h.Write([]byte(seed))
	return int64(h.Sum64())
}

// NewSeed draws a fresh numeric seed token from rng.
func NewSeed(rng *rand.Rand) string {
	return strconv.FormatInt(rng.Int63(), 10)
}

// weightedIndex picks an index with probability proportional to its weight.
// Non-positive weights are never picked. Returns -1 when nothing can be picked.
func weightedIndex(rng *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	r := rng.Intn(total)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

// underdogWeights weights candidates so that weaker tributes are preferred:
// ceiling - power, where ceiling is the strongest candidate's power plus one.
func underdogWeights(sim *Simulation, ids []TributeID, ceiling int) []int {
	weights := make([]int, len(ids))
	for i, id := range ids {
		weights[i] = ceiling - sim.EffectivePower(id)
	}
	return weights
}

func powerCeiling(sim *Simulation, ids []TributeID) int {
	top := 0
	for i, id := range ids {
		if p := sim.EffectivePower(id); i == 0 || p > top {
			top = p
		}
	}
	return top + 1
}
