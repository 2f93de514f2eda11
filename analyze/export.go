package analyze

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"pricescout/models"
)

// WriteStatsJSON writes the stats artifact as pretty-printed JSON.
func WriteStatsJSON(stats *models.Stats, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, sanitizeName(stats.ProductQuery)+"_stats.json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create stats file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(stats); err != nil {
		return "", fmt.Errorf("encode stats: %w", err)
	}
	return path, nil
}

// WriteListingsCSV exports a product's listings with a header row.
func WriteListingsCSV(product string, listings []models.Listing, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, sanitizeName(product)+"_listings.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	header := []string{"product_query", "title", "price", "url", "observed_at"}
	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for i := range listings {
		l := &listings[i]
		price := ""
		if v, ok := l.PriceValue(); ok {
			price = strconv.FormatFloat(v, 'f', 2, 64)
		}
		record := []string{
			l.ProductQuery,
			l.Title,
			price,
			l.URL,
			l.ObservedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flush csv records: %w", err)
	}
	return path, nil
}

// RenderHistogram renders the price distribution to a PNG.
func RenderHistogram(product string, prices []float64, bins int, dir string) (string, error) {
	if len(prices) == 0 {
		return "", fmt.Errorf("no prices to plot for %q", product)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Price distribution: %s", product)
	p.X.Label.Text = "Price"
	p.Y.Label.Text = "Listings"

	hist, err := plotter.NewHist(plotter.Values(prices), bins)
	if err != nil {
		return "", fmt.Errorf("build histogram: %w", err)
	}
	p.Add(hist)

	path := filepath.Join(dir, sanitizeName(product)+"_histogram.png")
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save histogram: %w", err)
	}
	return path, nil
}

// RenderComparison renders a bar chart of median prices across products.
// At least two products are required for a comparison.
func RenderComparison(medians map[string]float64, dir string) (string, error) {
	if len(medians) < 2 {
		return "", fmt.Errorf("need at least two products to compare, got %d", len(medians))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	names := make([]string, 0, len(medians))
	for name := range medians {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(plotter.Values, len(names))
	for i, name := range names {
		values[i] = medians[name]
	}

	p := plot.New()
	p.Title.Text = "Median price comparison"
	p.Y.Label.Text = "Median price"

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return "", fmt.Errorf("build bar chart: %w", err)
	}
	p.Add(bars)
	p.NominalX(names...)

	path := filepath.Join(dir, "price_comparison.png")
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save comparison chart: %w", err)
	}
	return path, nil
}

// sanitizeName makes a product query safe for use in file names.
func sanitizeName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
