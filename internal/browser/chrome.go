package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Options configures the Chrome process and every tab opened from it.
type Options struct {
	ExecPath     string
	Headless     bool
	UserAgent    string
	ExtraHeaders map[string]string
	// Stealth masks the usual automation fingerprints on every new document.
	Stealth bool
	// QueryTimeout bounds DOM snapshots and location lookups.
	QueryTimeout time.Duration
}

// ChromeSession is a single headless Chrome shared by all pages of a run.
type ChromeSession struct {
	opts          Options
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromeSession launches Chrome and waits for it to accept commands.
func NewChromeSession(ctx context.Context, opts Options) (*ChromeSession, error) {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 10 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1366, 768),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Debug().Msgf(format, args...)
		}),
		// CDP unmarshal noise from newer Chrome builds is harmless
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			log.Debug().Msgf(format, args...)
		}),
	)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Debug().Bool("headless", opts.Headless).Bool("stealth", opts.Stealth).Msg("Browser started")
	return &ChromeSession{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewPage opens a new tab with the session's headers and stealth script.
func (s *ChromeSession) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)

	actions := []chromedp.Action{network.Enable()}
	if len(s.opts.ExtraHeaders) > 0 {
		headers := make(network.Headers, len(s.opts.ExtraHeaders))
		for k, v := range s.opts.ExtraHeaders {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	if s.opts.Stealth {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}))
	}

	if err := ctx.Err(); err != nil {
		cancel()
		return nil, err
	}

	// The first Run allocates the tab and must use the tab context itself;
	// a derived timeout here would tear the tab down when it expired.
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &chromePage{ctx: tabCtx, cancel: cancel, queryTimeout: s.opts.QueryTimeout}, nil
}

// Close shuts the browser down.
func (s *ChromeSession) Close() error {
	err := chromedp.Cancel(s.browserCtx)
	s.browserCancel()
	s.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

type chromePage struct {
	ctx          context.Context
	cancel       context.CancelFunc
	queryTimeout time.Duration
}

// bounded derives a timeout context from the tab that is also cancelled with
// the caller's ctx. Expiry of a derived context leaves the tab open.
func (p *chromePage) bounded(ctx context.Context, timeout time.Duration) (context.Context, func()) {
	var (
		tctx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		tctx, cancel = context.WithTimeout(p.ctx, timeout)
	} else {
		tctx, cancel = context.WithCancel(p.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return tctx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	tctx, done := p.bounded(ctx, timeout)
	defer done()

	err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %s", ErrLoadTimeout, url, timeout)
	}
	return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
}

func (p *chromePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	tctx, done := p.bounded(ctx, timeout)
	defer done()

	return chromedp.Run(tctx, chromedp.WaitReady(selector, chromedp.ByQuery)) == nil
}

func (p *chromePage) snapshot(ctx context.Context) (string, error) {
	tctx, done := p.bounded(ctx, p.queryTimeout)
	defer done()

	var html string
	if err := chromedp.Run(tctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to snapshot document: %w", err)
	}
	return html, nil
}

func (p *chromePage) Texts(ctx context.Context, selector string) ([]string, error) {
	html, err := p.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return SelectTexts(html, selector)
}

func (p *chromePage) Attrs(ctx context.Context, selector, attr string) ([]string, error) {
	html, err := p.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return SelectAttrs(html, selector, attr)
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	tctx, done := p.bounded(ctx, p.queryTimeout)
	defer done()

	var loc string
	if err := chromedp.Run(tctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// Close closes the tab. It is safe to call more than once.
func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close page: %w", err)
	}
	return nil
}
