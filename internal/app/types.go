package app

import (
	"time"

	"auction_watch/internal/browser"
	"auction_watch/internal/config"
	"auction_watch/internal/notifications"
	"auction_watch/internal/scrape"
	"auction_watch/internal/sheets"
)

// Config is everything a run needs, resolved from the environment once.
type Config struct {
	SpreadsheetID string
	// Credentials is the service-account JSON document.
	Credentials []byte

	Layout   sheets.Layout
	Location *time.Location

	Navigator scrape.NavigatorConfig
	Price     scrape.PositionalPrice
	Image     scrape.PrioritizedImage
	ImageMode scrape.ImageMode

	AlertWindow time.Duration
	SkipAlerted bool

	SMTP notifications.SMTPConfig
	Ntfy notifications.NtfyConfig

	Browser        browser.Options
	PushgatewayURL string

	Resilience config.ResilienceConfig
}
