package alerts

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"auction_watch/internal/retry"
	"auction_watch/internal/sheets"

	"github.com/rs/zerolog/log"
)

// DefaultWindow is how close to its end an auction must be to trigger an alert.
const DefaultWindow = 30 * time.Minute

// AlertedLayout is the format written to the alerted column.
const AlertedLayout = "2006-01-02 15:04:05"

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Publisher mirrors an alert to a secondary channel. Failures are logged only.
type Publisher interface {
	Publish(ctx context.Context, title, message string) error
}

// Decision is an alert that should be sent for a row.
type Decision struct {
	Row       sheets.Row
	Minutes   float64
	Price     string
	Recipient string
}

// RoundedMinutes is the minutes remaining rounded to the nearest whole minute.
func (d Decision) RoundedMinutes() int {
	return int(math.Round(d.Minutes))
}

// Config wires the engine to its collaborators.
type Config struct {
	Window        time.Duration
	SpreadsheetID string
	Layout        sheets.Layout
	Location      *time.Location
	WriteRetry    retry.Config
}

// Engine decides on, sends and records closing-soon alerts.
type Engine struct {
	cfg    Config
	mailer Mailer
	writer sheets.Writer
	mirror Publisher
}

// NewEngine builds an engine. mirror may be nil.
func NewEngine(cfg Config, mailer Mailer, writer sheets.Writer, mirror Publisher) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{cfg: cfg, mailer: mailer, writer: writer, mirror: mirror}
}

// Decide reports whether row needs an alert now. priceOK is false when
// extraction never ran for the row; an "Unavailable" price still counts.
func (e *Engine) Decide(row sheets.Row, price string, priceOK bool, now time.Time) (Decision, bool) {
	if !row.HasAuctionEnd || row.Alerted() || row.Recipient == "" || !priceOK {
		return Decision{}, false
	}

	minutes := row.AuctionEnd.Sub(now).Minutes()
	if minutes <= 0 || minutes > e.cfg.Window.Minutes() {
		return Decision{}, false
	}

	return Decision{
		Row:       row,
		Minutes:   minutes,
		Price:     price,
		Recipient: row.Recipient,
	}, true
}

// Compose renders the subject and body of an alert.
func (e *Engine) Compose(d Decision) (string, string) {
	subject := fmt.Sprintf("Auction closing soon: row %d", d.Row.Index)

	var b strings.Builder
	fmt.Fprintf(&b, "The auction in row %d closes in %s.\n\n", d.Row.Index, pluralMinutes(d.RoundedMinutes()))
	fmt.Fprintf(&b, "Ends at: %s\n", d.Row.AuctionEnd.In(e.cfg.Location).Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Current price: %s\n", d.Price)
	fmt.Fprintf(&b, "Listing: %s\n", d.Row.URL)
	return subject, b.String()
}

func pluralMinutes(n int) string {
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}

// Dispatch sends the alert and, once delivered, stamps the alerted column of
// the row right away so a failure later in the run cannot cause a resend.
// A send failure leaves the row unmarked.
func (e *Engine) Dispatch(ctx context.Context, d Decision, now time.Time) error {
	subject, body := e.Compose(d)
	logger := log.With().Int("row", d.Row.Index).Str("to", d.Recipient).Logger()

	if err := e.mailer.Send(ctx, d.Recipient, subject, body); err != nil {
		logger.Error().Err(err).Msg("Failed to send closing-soon alert")
		return fmt.Errorf("failed to send alert for row %d: %w", d.Row.Index, err)
	}
	logger.Info().Int("minutes", d.RoundedMinutes()).Msg("Closing-soon alert sent")

	cell := e.cfg.Layout.Cell(e.cfg.Layout.AlertedColumn, d.Row.Index)
	stamp := now.In(e.cfg.Location).Format(AlertedLayout)
	_, err := retry.WithRetry(ctx, e.cfg.WriteRetry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.writer.UpdateRange(ctx, e.cfg.SpreadsheetID, cell, [][]interface{}{{stamp}}, sheets.UserEntered)
	})
	if err != nil {
		// the mail is out; report but do not count the alert as failed
		logger.Error().Err(err).Str("range", cell).Msg("Failed to mark row as alerted")
	}

	if e.mirror != nil {
		if err := e.mirror.Publish(ctx, subject, body); err != nil {
			logger.Warn().Err(err).Msg("Failed to mirror alert")
		}
	}
	return nil
}
