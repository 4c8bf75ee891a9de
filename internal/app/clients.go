package app

import (
	"context"
	"fmt"

	"auction_watch/internal/alerts"
	"auction_watch/internal/browser"
	"auction_watch/internal/monitoring"
	"auction_watch/internal/notifications"
	"auction_watch/internal/processing"
	"auction_watch/internal/scrape"
	"auction_watch/internal/sheets"

	"github.com/rs/zerolog/log"
)

// Runtime holds the wired pipeline and everything that must be released
// after the run.
type Runtime struct {
	Pipeline *processing.Pipeline
	Metrics  *monitoring.Metrics
	session  browser.Session
}

func (r *Runtime) Close() {
	if r.session == nil {
		return
	}
	if err := r.session.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close browser")
	}
}

// InitializeClients creates the sheets client, launches the browser and
// builds the pipeline. With dryRun set, sheet writes and mail are replaced
// by logging no-ops.
func InitializeClients(ctx context.Context, cfg *Config, dryRun bool) (*Runtime, error) {
	log.Debug().Msg("Initializing clients")

	sheetsClient, err := sheets.NewClient(ctx, cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	session, err := browser.NewChromeSession(ctx, cfg.Browser)
	if err != nil {
		return nil, err
	}

	var (
		store  sheets.RangeStore = sheetsClient
		mailer alerts.Mailer     = notifications.NewSMTPMailer(cfg.SMTP, cfg.Resilience.MailSend)
		mirror alerts.Publisher  = InitializeNotificationClient(cfg)
	)
	if dryRun {
		log.Warn().Msg("Dry run: no sheet writes, no mail, no push notifications")
		store = DryRunStore{Reader: sheetsClient}
		mailer = DryRunMailer{}
		mirror = nil
	} else if !cfg.SMTP.Enabled() {
		log.Warn().Msg("SMTP_HOST/SMTP_FROM not set; closing-soon alerts will fail to send")
	}

	engine := alerts.NewEngine(alerts.Config{
		Window:        cfg.AlertWindow,
		SpreadsheetID: cfg.SpreadsheetID,
		Layout:        cfg.Layout,
		Location:      cfg.Location,
		WriteRetry:    cfg.Resilience.SheetWrite,
	}, mailer, store, mirror)

	var image scrape.ImageStrategy
	if cfg.ImageMode != scrape.ImageOff {
		image = cfg.Image
	}

	metrics := monitoring.NewMetrics()
	pipeline := processing.NewPipeline(processing.Options{
		SpreadsheetID: cfg.SpreadsheetID,
		Layout:        cfg.Layout,
		Location:      cfg.Location,
		SkipAlerted:   cfg.SkipAlerted,
		ReadRetry:     cfg.Resilience.SheetRead,
	},
		store,
		session,
		scrape.NewNavigator(cfg.Navigator),
		scrape.NewExtractor(cfg.Price, image, cfg.ImageMode),
		engine,
		metrics,
	)

	log.Debug().Msg("Clients initialized successfully")
	return &Runtime{Pipeline: pipeline, Metrics: metrics, session: session}, nil
}

// InitializeNotificationClient returns the ntfy mirror, or nil when disabled.
func InitializeNotificationClient(cfg *Config) alerts.Publisher {
	log.Debug().
		Bool("enabled", cfg.Ntfy.Enabled).
		Str("base_url", cfg.Ntfy.BaseURL).
		Str("topic", cfg.Ntfy.Topic).
		Msg("Initializing notification client")

	if !cfg.Ntfy.Enabled {
		log.Debug().Msg("Notifications disabled")
		return nil
	}
	log.Info().Str("topic", cfg.Ntfy.Topic).Msg("Notifications enabled")
	return notifications.NewNtfyClient(cfg.Ntfy, cfg.Resilience.MailSend)
}
