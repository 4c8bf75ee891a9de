package scrape

import (
	"context"
	"fmt"
	"strings"

	"auction_watch/internal/browser"

	"github.com/rs/zerolog/log"
)

const (
	// PriceUnavailable is written when no price could be read.
	PriceUnavailable = "Unavailable"
	// NoImage is written when no usable image was found.
	NoImage = "no image found"
)

// ImageMode selects how an image reference is written to its cell.
type ImageMode string

const (
	ImageFormula ImageMode = "formula"
	ImageURL     ImageMode = "url"
	ImageOff     ImageMode = "off"
)

// ParseImageMode maps a config value to a mode, defaulting to ImageFormula.
func ParseImageMode(s string) (ImageMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "formula":
		return ImageFormula, nil
	case "url":
		return ImageURL, nil
	case "off", "none", "disabled":
		return ImageOff, nil
	default:
		return "", fmt.Errorf("unknown image mode %q", s)
	}
}

// Result is the per-row extraction outcome.
type Result struct {
	Price      string
	PriceFound bool
	ImageURL   string
	ImageRef   string
}

// Unavailable is the result written for rows whose page could not be loaded.
func Unavailable() Result {
	return Result{Price: PriceUnavailable, ImageRef: NoImage}
}

// Extractor reads the price and image of a loaded detail page.
type Extractor struct {
	price PriceStrategy
	image ImageStrategy
	mode  ImageMode
}

func NewExtractor(price PriceStrategy, image ImageStrategy, mode ImageMode) *Extractor {
	if image == nil {
		mode = ImageOff
	}
	return &Extractor{price: price, image: image, mode: mode}
}

// WritesImage reports whether results carry an image cell value.
func (e *Extractor) WritesImage() bool {
	return e.mode != ImageOff
}

// Extract never fails on missing elements; those degrade to sentinels. An
// error means the page itself could not be queried.
func (e *Extractor) Extract(ctx context.Context, page browser.Page) (Result, error) {
	res := Unavailable()

	price, ok, err := e.price.Price(ctx, page)
	if err != nil {
		return res, fmt.Errorf("price extraction: %w", err)
	}
	if ok {
		res.Price = price
		res.PriceFound = true
	}

	if !e.WritesImage() {
		res.ImageRef = ""
		return res, nil
	}

	src, ok, err := e.image.Image(ctx, page)
	if err != nil {
		return res, fmt.Errorf("image extraction: %w", err)
	}
	if ok {
		res.ImageURL = src
		res.ImageRef = ImageCell(src, e.mode)
	} else {
		log.Debug().Msg("No image found on page")
	}

	return res, nil
}

// ImageCell renders src for the image column. Formula mode renders the image
// inline and falls back to a link when the image cannot be displayed.
func ImageCell(src string, mode ImageMode) string {
	if mode != ImageFormula {
		return src
	}
	q := strings.ReplaceAll(src, `"`, `""`)
	return fmt.Sprintf(`=IFERROR(IMAGE("%s"),HYPERLINK("%s","View image"))`, q, q)
}
