package service

import (
	"math"
	"math/rand"
	"sync"
)

// The volatility model sums seven market factors per sample. It exists to
// exercise the batch engine with CPU-bound work; the factors themselves are
// toy closed-form terms.
const (
	factorCount       = 7
	volatilityWorkers = 2
)

// Volatility evaluates iterations samples sequentially and returns their
// mean. Zero iterations yield zero.
func (s *DepositService) Volatility(currentTime int64, iterations int) float64 {
	total := 0.0
	for i := 0; i < iterations; i++ {
		total += volatilitySample(currentTime)
	}
	if iterations == 0 {
		return 0
	}
	return total / float64(iterations)
}

// VolatilityBatched splits the iterations across a small fixed pool of
// workers, each producing a partial sum, and joins the partials.
func (s *DepositService) VolatilityBatched(currentTime int64, iterations int) float64 {
	if iterations == 0 {
		return 0
	}

	partials := make([]float64, volatilityWorkers)
	batchSize := iterations / volatilityWorkers

	var wg sync.WaitGroup
	for w := 0; w < volatilityWorkers; w++ {
		start := w * batchSize
		end := (w + 1) * batchSize
		if w == volatilityWorkers-1 {
			end = iterations
		}

		wg.Add(1)
		go func(slot, start, end int) {
			defer wg.Done()
			sum := 0.0
			for i := start; i < end; i++ {
				sum += volatilitySample(currentTime)
			}
			partials[slot] = sum
		}(w, start, end)
	}
	wg.Wait()

	total := 0.0
	for _, p := range partials {
		total += p
	}
	return total / float64(iterations)
}

// VolatilityPerFactor evaluates each of the seven factors on its own
// goroutine, joins them, and scales the single sample across the requested
// iterations. Factor slots are disjoint, so no synchronization beyond the
// join is needed.
func (s *DepositService) VolatilityPerFactor(currentTime int64, iterations int) float64 {
	if iterations == 0 {
		return 0
	}

	results := make([]float64, factorCount)
	factors := []func() float64{
		randomVolatility,
		func() float64 { return trendVolatility(currentTime) },
		func() float64 { return exponentialVolatility(currentTime) },
		func() float64 { return movingAverage(15) },
		crossCurrencyVolatility,
		seasonalVolatility,
		predictedCurrencyRate,
	}

	var wg sync.WaitGroup
	for i, factor := range factors {
		wg.Add(1)
		go func(slot int, fn func() float64) {
			defer wg.Done()
			results[slot] = fn()
		}(i, factor)
	}
	wg.Wait()

	sample := 0.0
	for _, r := range results {
		sample += r
	}

	total := 0.0
	for i := 0; i < iterations; i++ {
		total += sample
	}
	return total / float64(iterations)
}

func volatilitySample(currentTime int64) float64 {
	return randomVolatility() +
		trendVolatility(currentTime) +
		exponentialVolatility(currentTime) +
		movingAverage(15) +
		crossCurrencyVolatility() +
		seasonalVolatility() +
		predictedCurrencyRate()
}

func randomVolatility() float64 {
	return rand.Float64()*0.1 - 0.05
}

func trendVolatility(currentTime int64) float64 {
	return math.Cos(float64(currentTime)/1000.0) * 0.02
}

func exponentialVolatility(currentTime int64) float64 {
	factor := float64(currentTime) / 10000.0
	if factor > 10 {
		factor = 10
	}
	return math.Min(math.Exp(factor)*0.01, 0.1)
}

func movingAverage(currentRate float64) float64 {
	return currentRate*0.98 + 0.02
}

func crossCurrencyVolatility() float64 {
	usdRate := 1.1
	eurRate := 1.2
	return (usdRate / eurRate) * 0.15
}

func seasonalVolatility() float64 {
	return 0.01
}

func predictedCurrencyRate() float64 {
	return 1.15
}
