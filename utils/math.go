package utils

import (
	"math"
	"math/rand"
)

// RandomArray returns size uniform samples in [-1/sqrt(v), 1/sqrt(v)],
// used to initialize weight matrices with fan-in v.
func RandomArray(size int, v float64) []float64 {
	min := -1.0 / math.Sqrt(v+1e-12)
	max := 1.0 / math.Sqrt(v+1e-12)
	out := make([]float64, size)
	for i := 0; i < size; i++ {
		out[i] = min + (max-min)*rand.Float64()
	}
	return out
}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// ExponentiateBase10 returns 10^x. Perplexity is recovered from a base-10
// log-probability as 10^(-logProb/words).
func ExponentiateBase10(x float64) float64 {
	return math.Pow(10.0, x)
}
