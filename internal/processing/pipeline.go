package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction_watch/internal/alerts"
	"auction_watch/internal/browser"
	"auction_watch/internal/monitoring"
	"auction_watch/internal/retry"
	"auction_watch/internal/scrape"
	"auction_watch/internal/sheets"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrSetup marks failures that abort the run before any row is handled.
var ErrSetup = errors.New("setup failed")

// Status is the per-row result of a run.
type Status string

const (
	StatusUpdated Status = "updated"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// RowOutcome records what happened to a single row.
type RowOutcome struct {
	Row      sheets.Row
	Status   Status
	Reason   string
	FinalURL string
	Price    string

	AlertAttempted bool
	Alerted        bool
}

// Summary aggregates the outcomes of one run.
type Summary struct {
	Rows          int
	Updated       int
	Skipped       int
	Failed        int
	AlertsSent    int
	AlertFailures int
	Flushed       int
	Outcomes      []RowOutcome
}

func (s *Summary) record(o RowOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusUpdated:
		s.Updated++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
	if o.AlertAttempted {
		if o.Alerted {
			s.AlertsSent++
		} else {
			s.AlertFailures++
		}
	}
}

// Options are the run-level settings of a Pipeline.
type Options struct {
	SpreadsheetID string
	Layout        sheets.Layout
	Location      *time.Location
	SkipAlerted   bool
	ReadRetry     retry.Config
}

// Pipeline reads the tracked rows, scrapes each one in turn and writes the
// results back in a single batch.
type Pipeline struct {
	opts      Options
	store     sheets.RangeStore
	session   browser.Session
	navigator *scrape.Navigator
	extractor *scrape.Extractor
	alerts    *alerts.Engine
	metrics   *monitoring.Metrics
	now       func() time.Time
}

func NewPipeline(
	opts Options,
	store sheets.RangeStore,
	session browser.Session,
	navigator *scrape.Navigator,
	extractor *scrape.Extractor,
	engine *alerts.Engine,
	metrics *monitoring.Metrics,
) *Pipeline {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Pipeline{
		opts:      opts,
		store:     store,
		session:   session,
		navigator: navigator,
		extractor: extractor,
		alerts:    engine,
		metrics:   metrics,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run handles every row once. Row-level failures are recorded in the
// summary; only the initial read and the final flush fail the run.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	start := p.now()
	defer func() {
		p.metrics.ObserveRun(p.now().Sub(start).Seconds())
	}()

	rows, err := retry.WithRetry(ctx, p.opts.ReadRetry, func(ctx context.Context) ([]sheets.Row, error) {
		return sheets.ReadRows(ctx, p.store, p.opts.SpreadsheetID, p.opts.Layout, p.opts.Location)
	})
	if err != nil {
		return summary, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	summary.Rows = len(rows)

	batch := sheets.NewBatcher()
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run interrupted at row %d: %w", row.Index, err)
		}
		outcome := p.processRow(ctx, row, batch)
		summary.record(outcome)
		p.metrics.IncRows(string(outcome.Status))
	}

	n, err := batch.Flush(ctx, p.store, p.opts.SpreadsheetID)
	if err != nil {
		return summary, fmt.Errorf("failed to flush %d updates: %w", batch.Len(), err)
	}
	summary.Flushed = n

	log.Info().
		Int("rows", summary.Rows).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("alerts_sent", summary.AlertsSent).
		Int("alert_failures", summary.AlertFailures).
		Msg("Run complete")
	return summary, nil
}

func (p *Pipeline) processRow(ctx context.Context, row sheets.Row, batch *sheets.Batcher) RowOutcome {
	outcome := RowOutcome{Row: row}
	logger := log.With().Int("row", row.Index).Str("url", row.URL).Logger()

	if ok, reason := ShouldProcess(row, p.now(), p.opts.SkipAlerted); !ok {
		logger.Debug().Str("reason", reason).Msg("Skipping row")
		outcome.Status = StatusSkipped
		outcome.Reason = reason
		return outcome
	}

	page, err := p.session.NewPage(ctx)
	if err != nil {
		return p.fail(logger, batch, outcome, fmt.Errorf("failed to open page: %w", err))
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug().Err(err).Msg("Failed to close page")
		}
	}()

	final, err := p.navigator.Resolve(ctx, page, row.URL)
	if err != nil {
		return p.fail(logger, batch, outcome, err)
	}
	outcome.FinalURL = final

	res, err := p.extractor.Extract(ctx, page)
	if err != nil {
		return p.fail(logger, batch, outcome, fmt.Errorf("failed to extract from %s: %w", final, err))
	}
	p.queue(batch, row, res)
	outcome.Status = StatusUpdated
	outcome.Price = res.Price

	logger.Info().
		Str("final_url", final).
		Str("price", res.Price).
		Bool("price_found", res.PriceFound).
		Msg("Row scraped")

	if decision, ok := p.alerts.Decide(row, res.Price, true, p.now()); ok {
		outcome.AlertAttempted = true
		if err := p.alerts.Dispatch(ctx, decision, p.now()); err == nil {
			outcome.Alerted = true
			p.metrics.IncAlerts("sent")
		} else {
			p.metrics.IncAlerts("failed")
		}
	}
	return outcome
}

// fail records a row whose page could not be read. Sentinels are still
// queued so the sheet shows the row was attempted.
func (p *Pipeline) fail(logger zerolog.Logger, batch *sheets.Batcher, outcome RowOutcome, err error) RowOutcome {
	logger.Error().Err(err).Msg("Failed to scrape row")
	p.queue(batch, outcome.Row, scrape.Unavailable())
	outcome.Status = StatusFailed
	outcome.Reason = err.Error()
	outcome.Price = scrape.PriceUnavailable
	return outcome
}

func (p *Pipeline) queue(batch *sheets.Batcher, row sheets.Row, res scrape.Result) {
	layout := p.opts.Layout
	batch.Add(layout.Cell(layout.PriceColumn, row.Index), res.Price)
	if p.extractor.WritesImage() && layout.ImageColumn != "" {
		batch.Add(layout.Cell(layout.ImageColumn, row.Index), res.ImageRef)
	}
}
