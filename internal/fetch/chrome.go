package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeBrowser renders pages with a headless Chrome instance. Every Render
// call allocates its own browser context and tears it down on return, so no
// driver state is shared across concurrent fetches.
type ChromeBrowser struct {
	// UserAgent overrides the default desktop Chrome user agent.
	UserAgent string
	// ExecPath points at a specific Chrome binary. Empty uses lookup.
	ExecPath string
}

// Render implements Browser.
func (b *ChromeBrowser) Render(ctx context.Context, url string, profile Profile) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(b.userAgent()),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	loadCtx := browserCtx
	if profile.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(browserCtx, profile.LoadTimeout+profile.SettleDelay)
		defer cancel()
	}

	tasks := chromedp.Tasks{chromedp.Navigate(url)}
	for i := 0; i < profile.ScrollPasses; i++ {
		tasks = append(tasks,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(time.Second),
		)
	}
	if profile.SettleDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(profile.SettleDelay))
	}
	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(loadCtx, tasks); err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

func (b *ChromeBrowser) userAgent() string {
	if b.UserAgent != "" {
		return b.UserAgent
	}
	return defaultUserAgent
}
