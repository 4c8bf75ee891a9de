// Package browser hides the headless browser behind a navigable-page
// abstraction: load a URL, wait for a selector, and query text or attribute
// values in document order.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLoadTimeout means the page did not become ready within the load
	// timeout. Whatever loaded is still queryable.
	ErrLoadTimeout = errors.New("page load timed out")
	// ErrNavigation is a hard navigation failure (DNS, refused, aborted).
	ErrNavigation = errors.New("navigation failed")
)

// Page is a single browser tab.
type Page interface {
	// Goto loads url and waits for the document body, bounded by timeout.
	Goto(ctx context.Context, url string, timeout time.Duration) error
	// WaitFor waits until selector matches, bounded by timeout. It reports
	// whether the element appeared; absence is not an error.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) bool
	// Texts returns the trimmed text of every element matching selector.
	Texts(ctx context.Context, selector string) ([]string, error)
	// Attrs returns attr of every matching element that carries it.
	Attrs(ctx context.Context, selector, attr string) ([]string, error)
	// Location is the URL currently loaded in the tab.
	Location(ctx context.Context) (string, error)
	Close() error
}

// Session owns the browser process and hands out pages.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}
