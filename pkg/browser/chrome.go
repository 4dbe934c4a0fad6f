package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"

	"github.com/mikeboe/web-research/pkg/research"
)

// Chrome drives a headless Chrome instance through the DevTools protocol.
// One Chrome serves one research run; pages are loaded sequentially in a
// single shared tab.
type Chrome struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	log           *slog.Logger
}

// NewChrome launches the browser eagerly so acquisition failures surface
// here rather than on the first page load. The no-sandbox and dev-shm flags
// keep the browser usable inside containers.
func NewChrome(ctx context.Context, logger *slog.Logger) (*Chrome, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	logger.Info("headless chrome started")
	return &Chrome{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		log:           logger,
	}, nil
}

// OpenPage navigates the shared tab to url and returns the page title and
// rendered body text. The caller's context bounds the whole operation.
func (c *Chrome) OpenPage(ctx context.Context, url string) (*research.Page, error) {
	runCtx, cancel := context.WithCancel(c.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var title, text string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Title(&title),
		chromedp.Evaluate("document.body.innerText", &text),
	)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}

	c.log.Debug("page loaded", "url", url, "title", title, "chars", len(text))
	return &research.Page{URL: url, Title: title, Text: text}, nil
}

// Close shuts the browser process down.
func (c *Chrome) Close() error {
	c.browserCancel()
	c.allocCancel()
	return nil
}

// Factory adapts NewChrome to the orchestrator's per-run acquisition hook.
func Factory(logger *slog.Logger) research.BrowserFactory {
	return func(ctx context.Context) (research.Browser, error) {
		return NewChrome(ctx, logger)
	}
}
