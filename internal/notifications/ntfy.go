package notifications

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"auction_watch/internal/retry"

	"github.com/rs/zerolog/log"
)

// NtfyConfig configures the optional push mirror.
type NtfyConfig struct {
	Enabled  bool
	BaseURL  string
	Topic    string
	Priority string
}

// NtfyClient publishes plain-text messages to an ntfy topic.
type NtfyClient struct {
	httpClient *http.Client
	cfg        NtfyConfig
	retry      retry.Config
}

func NewNtfyClient(cfg NtfyConfig, retryConfig retry.Config) *NtfyClient {
	retryConfig.Retryable = IsRetryable
	return &NtfyClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cfg:        cfg,
		retry:      retryConfig,
	}
}

// Publish posts message with an optional title. It is a no-op when disabled.
func (c *NtfyClient) Publish(ctx context.Context, title, message string) error {
	if c == nil || !c.cfg.Enabled {
		return nil
	}

	_, err := retry.WithRetry(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.publishOnce(ctx, title, message)
	})
	return err
}

func (c *NtfyClient) publishOnce(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &SendError{Type: "client", Underlying: err}
	}
	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}
	if c.cfg.Priority != "" {
		req.Header.Set("Priority", c.cfg.Priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SendError{Type: "network", Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &SendError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().Int("status_code", resp.StatusCode).Str("topic", c.cfg.Topic).Msg("Push notification sent")
	return nil
}
