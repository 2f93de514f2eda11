// Package analyze computes descriptive statistics and price-distribution
// histograms over persisted listings.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"pricescout/config"
	"pricescout/models"
	"pricescout/store"
)

// ErrInsufficientData reports that a product has no priced listings in the
// requested range. It is a normal outcome, not a failure.
var ErrInsufficientData = errors.New("insufficient data: no priced listings")

// Analyzer reads a product's price series from the store and summarizes it.
type Analyzer struct {
	store        store.Store
	bins         int
	trimOutliers bool
	outputDir    string
	now          func() time.Time
}

// New builds an analyzer over st with cfg's histogram and outlier settings.
func New(st store.Store, cfg *config.Config) *Analyzer {
	return &Analyzer{
		store:        st,
		bins:         cfg.HistogramBins,
		trimOutliers: cfg.TrimOutliers,
		outputDir:    cfg.OutputDir,
		now:          time.Now,
	}
}

// Analyze computes count, mean, median, min, max, and standard deviation
// over the non-null prices observed for product inside [from, to], plus an
// equal-width histogram of the distribution.
func (a *Analyzer) Analyze(ctx context.Context, product string, from, to time.Time) (*models.Stats, error) {
	listings, err := a.store.Query(ctx, product, from, to)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}

	prices := Prices(listings)
	if len(prices) == 0 {
		return nil, ErrInsufficientData
	}

	if a.trimOutliers {
		prices = trimIQR(prices)
	}

	sort.Float64s(prices)

	stats := &models.Stats{
		ProductQuery: product,
		Count:        len(prices),
		Mean:         stat.Mean(prices, nil),
		Median:       percentile(prices, 0.5),
		Min:          prices[0],
		Max:          prices[len(prices)-1],
		P25:          percentile(prices, 0.25),
		P75:          percentile(prices, 0.75),
		Mode:         mode(prices),
		Histogram:    buildHistogram(prices, a.bins),
		GeneratedAt:  a.now(),
	}
	if len(prices) > 1 {
		stats.StdDev = stat.PopStdDev(prices, nil)
	}
	return stats, nil
}

// Report analyzes a product and writes the artifacts (stats JSON, price
// CSV, histogram PNG) to the configured output directory. Returns the
// stats and the artifact paths.
func (a *Analyzer) Report(ctx context.Context, product string, from, to time.Time) (*models.Stats, []string, error) {
	stats, err := a.Analyze(ctx, product, from, to)
	if err != nil {
		return nil, nil, err
	}

	listings, err := a.store.Query(ctx, product, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("query listings: %w", err)
	}

	var paths []string
	jsonPath, err := WriteStatsJSON(stats, a.outputDir)
	if err != nil {
		return nil, nil, err
	}
	paths = append(paths, jsonPath)

	csvPath, err := WriteListingsCSV(product, listings, a.outputDir)
	if err != nil {
		return nil, nil, err
	}
	paths = append(paths, csvPath)

	pngPath, err := RenderHistogram(product, Prices(listings), a.bins, a.outputDir)
	if err != nil {
		return nil, nil, err
	}
	paths = append(paths, pngPath)

	return stats, paths, nil
}

// Prices extracts the non-null prices from a listing sequence.
func Prices(listings []models.Listing) []float64 {
	out := make([]float64, 0, len(listings))
	for i := range listings {
		if price, ok := listings[i].PriceValue(); ok {
			out = append(out, price)
		}
	}
	return out
}

// trimIQR drops values outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Series with
// fewer than four points are returned untouched.
func trimIQR(prices []float64) []float64 {
	if len(prices) < 4 {
		return prices
	}

	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 0.25)
	q3 := percentile(sorted, 0.75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	kept := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p >= lower && p <= upper {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return prices
	}
	return kept
}

// percentile returns the p-quantile (0..1) of a sorted series, linearly
// interpolating between closest ranks. The interpolated 0.5 quantile is
// the conventional median: the mean of the two middle elements when the
// series has an even length.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// mode returns the most frequent price after rounding to cents. Ties go
// to the smallest value.
func mode(prices []float64) float64 {
	counts := make(map[float64]int, len(prices))
	for _, p := range prices {
		counts[math.Round(p*100)/100]++
	}
	var best float64
	bestCount := 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best = v
			bestCount = c
		}
	}
	return best
}

// buildHistogram buckets sorted prices into equal-width intervals spanning
// the observed range.
func buildHistogram(sorted []float64, bins int) models.Histogram {
	if len(sorted) == 0 || bins <= 0 {
		return models.Histogram{}
	}

	min := sorted[0]
	max := sorted[len(sorted)-1]
	if min == max {
		return models.Histogram{
			Buckets: []models.HistogramBucket{{Low: min, High: max, Count: len(sorted)}},
		}
	}

	width := (max - min) / float64(bins)
	buckets := make([]models.HistogramBucket, bins)
	for i := range buckets {
		buckets[i].Low = min + float64(i)*width
		buckets[i].High = min + float64(i+1)*width
	}
	buckets[bins-1].High = max

	for _, v := range sorted {
		idx := int((v - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		buckets[idx].Count++
	}
	return models.Histogram{Buckets: buckets}
}
