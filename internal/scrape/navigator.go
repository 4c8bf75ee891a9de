package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"auction_watch/internal/browser"

	"github.com/rs/zerolog/log"
)

// NavigatorConfig controls page loading and listing-page redirection.
type NavigatorConfig struct {
	LoadTimeout time.Duration
	// ListingPattern matches the path of search/listing pages.
	ListingPattern *regexp.Regexp
	// DetailPattern matches the path of product detail pages.
	DetailPattern *regexp.Regexp
	LinkSelector  string
}

// DefaultNavigatorConfig follows mac.bid style URLs: /search?... listings
// linking to .../lot/... detail pages.
func DefaultNavigatorConfig() NavigatorConfig {
	return NavigatorConfig{
		LoadTimeout:    15 * time.Second,
		ListingPattern: regexp.MustCompile(`/search\b`),
		DetailPattern:  regexp.MustCompile(`/lot/`),
		LinkSelector:   "a[href]",
	}
}

// Navigator loads a target URL and, for listing pages, follows the first
// detail-page link. It never makes more than one hop.
type Navigator struct {
	cfg NavigatorConfig
}

func NewNavigator(cfg NavigatorConfig) *Navigator {
	if cfg.LinkSelector == "" {
		cfg.LinkSelector = "a[href]"
	}
	return &Navigator{cfg: cfg}
}

// Resolve leaves page on the page to extract from and returns its URL.
// Load timeouts are soft; hard navigation failures are returned unretried.
func (n *Navigator) Resolve(ctx context.Context, page browser.Page, target string) (string, error) {
	if err := n.load(ctx, page, target); err != nil {
		return "", err
	}

	if !n.IsListing(target) {
		return target, nil
	}

	hrefs, err := page.Attrs(ctx, n.cfg.LinkSelector, "href")
	if err != nil {
		return "", fmt.Errorf("failed to list links on %s: %w", target, err)
	}

	link, ok := n.FirstDetailLink(target, hrefs)
	if !ok {
		log.Info().
			Str("url", target).
			Int("links", len(hrefs)).
			Msg("No detail link on listing page; extracting from listing")
		return target, nil
	}

	log.Debug().Str("url", target).Str("detail_url", link).Msg("Following detail link")
	if err := n.load(ctx, page, link); err != nil {
		return "", err
	}
	return link, nil
}

func (n *Navigator) load(ctx context.Context, page browser.Page, target string) error {
	start := time.Now()
	err := page.Goto(ctx, target, n.cfg.LoadTimeout)
	if errors.Is(err, browser.ErrLoadTimeout) {
		log.Warn().
			Str("url", target).
			Dur("timeout", n.cfg.LoadTimeout).
			Msg("Page load timed out; continuing with partial page")
		return nil
	}
	if err != nil {
		return err
	}
	log.Debug().Str("url", target).Dur("elapsed", time.Since(start)).Msg("Page loaded")
	return nil
}

// IsListing reports whether target looks like a search/listing page.
func (n *Navigator) IsListing(target string) bool {
	if n.cfg.ListingPattern == nil {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return n.cfg.ListingPattern.MatchString(target)
	}
	return n.cfg.ListingPattern.MatchString(u.Path)
}

// FirstDetailLink resolves hrefs against base and returns the first whose
// path matches the detail pattern.
func (n *Navigator) FirstDetailLink(base string, hrefs []string) (string, bool) {
	if n.cfg.DetailPattern == nil {
		return "", false
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}

	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := baseURL.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		if n.cfg.DetailPattern.MatchString(abs.Path) {
			return abs.String(), true
		}
	}
	return "", false
}
