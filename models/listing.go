// Package models defines data structures shared across the scraper.
package models

import "time"

// Listing is one scraped classifieds record. Listings are immutable once
// created: repeated observations of the same ad become new rows.
type Listing struct {
	ProductQuery string    `json:"product_query"`
	Title        string    `json:"title"`
	Price        *float64  `json:"price"` // nil when the price could not be parsed
	URL          string    `json:"url"`
	ObservedAt   time.Time `json:"observed_at"`
}

// PriceValue returns the price and whether it is present.
func (l *Listing) PriceValue() (float64, bool) {
	if l.Price == nil {
		return 0, false
	}
	return *l.Price, true
}

// RunSummary holds the overall result of one scraping run.
type RunSummary struct {
	StartTime         time.Time
	EndTime           time.Time
	TasksAttempted    int
	TasksSucceeded    int
	TasksFailed       int
	ListingsPersisted int
	PerProduct        map[string]int
	ErrorsByType      map[string]int
	RetryCount        int
}

// Stats carries descriptive statistics for a product's price series.
type Stats struct {
	ProductQuery string    `json:"product_query"`
	Count        int       `json:"count"`
	Mean         float64   `json:"mean"`
	Median       float64   `json:"median"`
	Min          float64   `json:"min"`
	Max          float64   `json:"max"`
	StdDev       float64   `json:"std_dev"`
	P25          float64   `json:"p25"`
	P75          float64   `json:"p75"`
	Mode         float64   `json:"mode"`
	Histogram    Histogram `json:"histogram"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Histogram is a bucketed view of a price distribution.
type Histogram struct {
	Buckets []HistogramBucket `json:"buckets"`
}

// HistogramBucket counts prices in the half-open interval [Low, High).
// The last bucket is closed on both ends.
type HistogramBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}
