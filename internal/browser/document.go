package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SelectTexts parses html and returns the trimmed text content of every
// element matching selector, in document order.
func SelectTexts(html, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	var out []string
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out, nil
}

// SelectAttrs parses html and returns attr of every matching element that
// has a non-empty value for it, in document order.
func SelectAttrs(html, selector, attr string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	var out []string
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	})
	return out, nil
}
