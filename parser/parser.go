// Package parser extracts listing records from raw classifieds markup.
//
// Extraction is deterministic: the same markup always yields the same
// listing sequence. The tolerance policy is: a listing missing both title
// and URL is dropped; anything else is kept, with an unparsable price
// stored as nil.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pricescout/models"
)

// Selectors for the primary ad-card markup, with generic fallbacks used
// when the site structure changes.
var cardSelectors = []struct {
	card  string
	title string
	price string
	link  string
}{
	{
		card:  `section[data-ds-component="DS-AdCard"]`,
		title: `h2[data-ds-component="DS-Text"].olx-ad-card__title`,
		price: `h3[data-ds-component="DS-Text"].olx-ad-card__price`,
		link:  "a",
	},
	{
		card:  "li[data-testid=ad-card], article.ad-card",
		title: "h2",
		price: ".price, h3",
		link:  "a",
	},
}

var (
	priceRe       = regexp.MustCompile(`R\$\s*([\d.,]+)`)
	installmentRe = regexp.MustCompile(`(?i)(\d+)\s*x\s*de\s*R\$\s*([\d.,]+)`)
)

// ExtractListings parses raw markup into listing records for productQuery.
// Relative ad links are resolved against baseURL. An empty result is not an
// error; a nil error with zero listings means the page had no ad cards.
func ExtractListings(raw []byte, productQuery, baseURL string, observedAt time.Time) ([]models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	for _, sel := range cardSelectors {
		cards := doc.Find(sel.card)
		if cards.Length() == 0 {
			continue
		}

		listings := make([]models.Listing, 0, cards.Length())
		cards.Each(func(_ int, card *goquery.Selection) {
			title := strings.TrimSpace(card.Find(sel.title).First().Text())
			href, _ := card.Find(sel.link).First().Attr("href")
			link := resolveURL(base, strings.TrimSpace(href))

			if title == "" && link == "" {
				return
			}

			listing := models.Listing{
				ProductQuery: productQuery,
				Title:        title,
				URL:          link,
				ObservedAt:   observedAt,
			}
			priceText := strings.TrimSpace(card.Find(sel.price).First().Text())
			if price, ok := NormalizePrice(priceText); ok {
				listing.Price = &price
			}
			listings = append(listings, listing)
		})
		return listings, nil
	}

	return nil, nil
}

// ValidateListing enforces the keep/drop policy for a parsed listing.
func ValidateListing(l *models.Listing) error {
	if l == nil {
		return fmt.Errorf("listing is nil")
	}
	if strings.TrimSpace(l.Title) == "" && strings.TrimSpace(l.URL) == "" {
		return fmt.Errorf("listing missing both title and url")
	}
	if l.Price != nil && *l.Price < 0 {
		return fmt.Errorf("listing %q has negative price", l.Title)
	}
	return nil
}

// NormalizePrice converts a Brazilian-format price text ("R$ 1.299,00")
// into a decimal value. Installment prices ("3x de R$ 333,33") are summed
// to the total. A plain decimal string parses to itself, which makes the
// function idempotent on already-normalized input. Returns false when no
// non-negative price can be extracted.
func NormalizePrice(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}

	if m := installmentRe.FindStringSubmatch(text); m != nil {
		count, err := strconv.Atoi(m[1])
		if err == nil {
			if amount, ok := parseBRDecimal(m[2]); ok {
				return round2(float64(count) * amount), true
			}
		}
	}

	// Already-normalized decimal.
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		if v < 0 {
			return 0, false
		}
		return v, true
	}

	if m := priceRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseBRDecimal(m[1]); ok {
			return v, true
		}
	}

	// Last resort: keep digits and separators only.
	stripped := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			return r
		}
		return -1
	}, text)
	return parseBRDecimal(stripped)
}

// parseBRDecimal parses "1.299,00" (dot thousands, comma decimal).
func parseBRDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
