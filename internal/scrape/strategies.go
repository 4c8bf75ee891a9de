package scrape

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"

	"auction_watch/internal/browser"

	"github.com/rs/zerolog/log"
)

// PriceStrategy reads a price from a loaded page. ok is false when the page
// has no recognisable price; err is reserved for query failures.
type PriceStrategy interface {
	Price(ctx context.Context, page browser.Page) (price string, ok bool, err error)
}

// ImageStrategy finds the product image URL on a loaded page.
type ImageStrategy interface {
	Image(ctx context.Context, page browser.Page) (src string, ok bool, err error)
}

// PositionalPrice takes the Index-th text fragment inside Container. The
// default layout renders the currency glyph first and the amount second.
type PositionalPrice struct {
	Container   string
	Fragment    string
	Index       int
	WaitTimeout time.Duration
}

// DefaultPositionalPrice is the lot-page layout: <div ...><span>$</span><span>12.00</span></div>.
func DefaultPositionalPrice() PositionalPrice {
	return PositionalPrice{
		Container:   ".h1.font-weight-normal.text-accent.mb-0",
		Fragment:    "span",
		Index:       1,
		WaitTimeout: 5 * time.Second,
	}
}

func (s PositionalPrice) Price(ctx context.Context, page browser.Page) (string, bool, error) {
	if !page.WaitFor(ctx, s.Container, s.WaitTimeout) {
		log.Debug().Str("selector", s.Container).Msg("Price container did not appear; trying anyway")
	}

	selector := s.Container
	if s.Fragment != "" {
		selector += " " + s.Fragment
	}
	fragments, err := page.Texts(ctx, selector)
	if err != nil {
		return "", false, err
	}
	if s.Index < 0 || s.Index >= len(fragments) {
		return "", false, nil
	}

	price := CleanPrice(fragments[s.Index])
	if IsFormulaLike(price) {
		log.Warn().Str("fragment", price).Msg("Price text looks like a spreadsheet formula; ignoring it")
		return "", false, nil
	}
	return price, price != "", nil
}

// IsFormulaLike reports whether a spreadsheet would evaluate s when entered
// as user input. Page text must never reach the sheet in that form.
func IsFormulaLike(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && strings.ContainsRune("=+-@", rune(s[0]))
}

// CleanPrice trims whitespace and currency symbols from both ends.
func CleanPrice(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.Is(unicode.Sc, r)
	})
}

// PrioritizedImage scans Selectors in order and returns the first src with a
// raster image extension.
type PrioritizedImage struct {
	Selectors   []string
	Extensions  []string
	WaitTimeout time.Duration
}

func DefaultPrioritizedImage() PrioritizedImage {
	return PrioritizedImage{
		Selectors: []string{
			".carousel-item.active img",
			".product-image img",
			".lot-image img",
			".gallery img",
			"img",
		},
		Extensions:  []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
		WaitTimeout: 5 * time.Second,
	}
}

func (s PrioritizedImage) Image(ctx context.Context, page browser.Page) (string, bool, error) {
	if len(s.Selectors) == 0 {
		return "", false, nil
	}
	if !page.WaitFor(ctx, strings.Join(s.Selectors, ", "), s.WaitTimeout) {
		log.Debug().Msg("No image element appeared")
	}

	base, err := page.Location(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Could not read page location; image sources used as-is")
		base = ""
	}

	for _, sel := range s.Selectors {
		srcs, err := page.Attrs(ctx, sel, "src")
		if err != nil {
			return "", false, err
		}
		for _, src := range srcs {
			abs := absolute(base, src)
			if s.hasImageExtension(abs) {
				return abs, true, nil
			}
		}
	}
	return "", false, nil
}

func (s PrioritizedImage) hasImageExtension(src string) bool {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "data" {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, want := range s.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// absolute resolves ref against base; on any parse failure ref is returned unchanged.
func absolute(base, ref string) string {
	if base == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
