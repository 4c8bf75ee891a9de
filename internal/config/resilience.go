package config

import (
	"time"

	"auction_watch/internal/retry"
	"auction_watch/internal/sheets"
)

// ResilienceConfig groups the retry profiles for each external call the
// pipeline makes. Page loads are never retried.
type ResilienceConfig struct {
	SheetRead  retry.Config
	SheetWrite retry.Config
	MailSend   retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	SheetRead: retry.Config{
		Name:       "sheet_read",
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    15 * time.Second,
		Retryable:  sheets.IsRetryable,
	},
	SheetWrite: retry.Config{
		Name:       "sheet_write",
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Timeout:    15 * time.Second,
		Retryable:  sheets.IsRetryable,
	},
	MailSend: retry.Config{
		Name:       "mail_send",
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		MaxDelay:   15 * time.Second,
		Timeout:    20 * time.Second,
	},
}
