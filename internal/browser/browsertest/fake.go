// Package browsertest serves canned HTML through the browser.Page interface.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction_watch/internal/browser"
)

// Site maps URLs to HTML documents and records how pages were used.
type Site struct {
	mu sync.Mutex

	Pages map[string]string
	// NavErrors makes Goto fail hard for the given URLs.
	NavErrors map[string]error
	// Slow makes Goto report a load timeout while still loading the page.
	Slow map[string]bool
	// NewPageErr makes NewPage fail.
	NewPageErr error

	Visits []string
	Opened int
	Closed int
}

func NewSite() *Site {
	return &Site{
		Pages:     make(map[string]string),
		NavErrors: make(map[string]error),
		Slow:      make(map[string]bool),
	}
}

func (s *Site) NewPage(ctx context.Context) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NewPageErr != nil {
		return nil, s.NewPageErr
	}
	s.Opened++
	return &Page{site: s}, nil
}

func (s *Site) Close() error { return nil }

// OpenPages is the number of pages opened and not yet closed.
func (s *Site) OpenPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Opened - s.Closed
}

// Page is a fake tab bound to a Site.
type Page struct {
	site    *Site
	current string
	closed  bool
}

func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	p.site.Visits = append(p.site.Visits, url)
	if err, ok := p.site.NavErrors[url]; ok {
		return fmt.Errorf("%w: %s: %w", browser.ErrNavigation, url, err)
	}
	p.current = url
	if p.site.Slow[url] {
		return fmt.Errorf("%w: %s after %s", browser.ErrLoadTimeout, url, timeout)
	}
	return nil
}

func (p *Page) html() string {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	return p.site.Pages[p.current]
}

func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	texts, err := browser.SelectTexts(p.html(), selector)
	return err == nil && len(texts) > 0
}

func (p *Page) Texts(ctx context.Context, selector string) ([]string, error) {
	return browser.SelectTexts(p.html(), selector)
}

func (p *Page) Attrs(ctx context.Context, selector, attr string) ([]string, error) {
	return browser.SelectAttrs(p.html(), selector, attr)
}

func (p *Page) Location(ctx context.Context) (string, error) {
	return p.current, nil
}

func (p *Page) Close() error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.site.Closed++
	}
	return nil
}
