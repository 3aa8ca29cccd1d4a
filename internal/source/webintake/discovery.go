// Package webintake discovers newly published gazette PDFs by scraping
// the publication index page.
package webintake

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls collector behavior.
type Config struct {
	IndexURL  string
	UserAgent string
	Timeout   time.Duration
}

// Discovery lists candidate gazette PDF links from the index page.
type Discovery struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a Discovery.
func New(cfg Config, logger *zap.Logger) (*Discovery, error) {
	if cfg.IndexURL == "" {
		return nil, fmt.Errorf("index url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discovery{cfg: cfg, logger: logger}, nil
}

// DiscoverPDFs visits the index page and returns absolute URLs of every
// linked PDF, in document order, without duplicates.
func (d *Discovery) DiscoverPDFs() ([]string, error) {
	collector := colly.NewCollector(colly.Async(false))
	collector.SetRequestTimeout(d.cfg.Timeout)
	if d.cfg.UserAgent != "" {
		collector.UserAgent = d.cfg.UserAgent
	}

	seen := make(map[string]struct{})
	var links []string
	var visitErr error

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if !strings.HasSuffix(strings.ToLower(href), ".pdf") {
			return
		}
		abs := e.Request.AbsoluteURL(href)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})

	if err := collector.Visit(d.cfg.IndexURL); err != nil {
		return nil, fmt.Errorf("visit index page: %w", err)
	}
	collector.Wait()
	if visitErr != nil {
		return nil, fmt.Errorf("fetch index page: %w", visitErr)
	}

	d.logger.Info("gazette index scraped",
		zap.String("index_url", d.cfg.IndexURL),
		zap.Int("pdf_links", len(links)),
	)
	return links, nil
}

// KeyForURL derives the intake document key (the bare file name) from a
// discovered PDF URL.
func KeyForURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse pdf url: %w", err)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	name := segs[len(segs)-1]
	if name == "" || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return "", fmt.Errorf("url %q does not name a pdf", raw)
	}
	return name, nil
}
