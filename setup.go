package main

import (
	"auction_watch/internal/app"

	"github.com/rs/zerolog/log"
)

// loadConfig resolves the environment and applies command-line overrides.
func loadConfig() (*app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	if sheetName != "" {
		cfg.Layout.Sheet = sheetName
	}

	log.Debug().
		Str("sheet", cfg.Layout.Sheet).
		Str("timezone", cfg.Location.String()).
		Str("image_mode", string(cfg.ImageMode)).
		Dur("alert_window", cfg.AlertWindow).
		Bool("skip_alerted", cfg.SkipAlerted).
		Bool("smtp", cfg.SMTP.Enabled()).
		Bool("ntfy", cfg.Ntfy.Enabled).
		Msg("Configuration loaded")
	return cfg, nil
}
