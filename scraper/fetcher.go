package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"pricescout/config"
	"pricescout/proxy"
)

// PageFetcher retrieves one search-results page. The orchestrator depends
// on this interface so tests can substitute a fake.
type PageFetcher interface {
	Fetch(ctx context.Context, product string, page int, endpoint *proxy.Endpoint, userAgent string) ([]byte, error)
}

// Fetcher issues region- and page-scoped search requests through colly,
// applying the assigned proxy and user agent per request and reporting
// each outcome back to the proxy manager.
type Fetcher struct {
	cfg       *config.Config
	base      *colly.Collector
	proxies   *proxy.Manager
	metrics   *Metrics
	transport http.RoundTripper
}

// NewFetcher builds a fetcher for cfg's target site.
func NewFetcher(cfg *config.Config, proxies *proxy.Manager, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	base := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgents[0]),
		colly.AllowURLRevisit(),
	)
	base.SetRequestTimeout(cfg.Timeout)
	base.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &Fetcher{
		cfg:     cfg,
		base:    base,
		proxies: proxies,
		metrics: metrics,
	}, nil
}

// WithTransport overrides the HTTP transport; tests use this to mock the
// network.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.transport = rt
}

// SearchURL builds the region- and page-scoped search URL.
func SearchURL(baseURL, region, product string, page int) string {
	return fmt.Sprintf("%s/%s?q=%s&o=%d",
		strings.TrimRight(baseURL, "/"),
		region,
		url.QueryEscape(product),
		page,
	)
}

// Fetch retrieves the search-results page for (product, page) through the
// given endpoint, or direct egress when endpoint is nil. Page numbers
// below 1 are rejected before any request is dispatched.
func (f *Fetcher) Fetch(ctx context.Context, product string, page int, endpoint *proxy.Endpoint, userAgent string) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("page number must be >= 1, got %d", page)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := SearchURL(f.cfg.BaseURL, f.cfg.Region, product, page)

	c := f.base.Clone()
	c.SetRequestTimeout(f.cfg.Timeout)
	if f.transport != nil {
		c.WithTransport(f.transport)
	}
	if endpoint != nil {
		proxyURL, err := url.Parse(endpoint.Address)
		if err != nil {
			return nil, ErrNetwork{Err: fmt.Errorf("parse proxy address %q: %w", endpoint.Address, err)}
		}
		c.SetProxyFunc(func(*http.Request) (*url.URL, error) {
			return proxyURL, nil
		})
	}

	var (
		body   []byte
		status int
		reqErr error
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Encoding", "gzip, deflate, br")
		r.Headers.Set("Referer", f.cfg.BaseURL+"/")
		r.Headers.Set("DNT", "1")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	start := time.Now()
	visitErr := c.Visit(target)
	c.Wait()
	latency := time.Since(start)
	f.metrics.ObserveFetchDuration(latency)

	if reqErr == nil && visitErr != nil {
		reqErr = visitErr
	}
	if reqErr == nil && status < http.StatusBadRequest && len(body) == 0 {
		reqErr = errors.New("empty response body")
	}

	success := reqErr == nil && status < http.StatusBadRequest
	if endpoint != nil {
		f.proxies.Report(endpoint, success, latency)
	}

	if success {
		f.metrics.IncFetch("success")
		return body, nil
	}

	classified := classifyError(reqErr, status)
	f.metrics.IncFetch("error")
	return nil, classified
}
