package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserTransport renders pages in a local headless Chrome.
// Requires Chrome/Chromium to be installed on the system.
type BrowserTransport struct {
	// Settle is how long to wait after load for client-side rendering.
	Settle time.Duration
	Logger *slog.Logger
}

// Fetch implements Transport for KindBrowser tiers.
func (b *BrowserTransport) Fetch(ctx context.Context, tier Tier, targetURL string) (string, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settle := b.Settle
	if settle <= 0 {
		settle = 2 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if tier.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(tier.UserAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if tier.Timeout > 0 {
		browserCtx, cancel = context.WithTimeout(browserCtx, tier.Timeout)
		defer cancel()
	}

	logger.Debug("rendering page in headless browser", "url", targetURL, "tier", tier.Name)

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settle),
		// Dismiss a cookie banner if one is present; absence is not an error.
		chromedp.ActionFunc(func(ctx context.Context) error {
			_ = chromedp.Click(`#sp-cc-accept, input[name="accept"]`, chromedp.NodeVisible, chromedp.AtLeast(0)).Do(ctx)
			return nil
		}),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: targetURL, Message: "browser rendering failed", Cause: err}
	}

	logger.Debug("rendered page", "url", targetURL, "bytes", len(html))
	return html, nil
}

var _ Transport = (*BrowserTransport)(nil)
