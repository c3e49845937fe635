package browser

import (
	"context"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

func (b *PlaywrightBrowser) WaitForLoadState(ctx context.Context, state string) error {
	page := b.getPage()
	if page == nil {
		return errNotLaunched
	}

	opts := playwright.PageWaitForLoadStateOptions{
		State:   loadState(state),
		Timeout: playwright.Float(b.cfg.Timeout.Seconds() * 1000),
	}

	errChan := make(chan error, 1)
	go func() { errChan <- page.WaitForLoadState(opts) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

func loadState(state string) *playwright.LoadState {
	switch strings.ToLower(state) {
	case "domcontentloaded":
		return playwright.LoadStateDomcontentloaded
	case "networkidle":
		return playwright.LoadStateNetworkidle
	default:
		return playwright.LoadStateLoad
	}
}

func waitUntilState(state string) *playwright.WaitUntilState {
	switch strings.ToLower(state) {
	case "load":
		return playwright.WaitUntilStateLoad
	case "networkidle":
		return playwright.WaitUntilStateNetworkidle
	case "commit":
		return playwright.WaitUntilStateCommit
	default:
		return playwright.WaitUntilStateDomcontentloaded
	}
}

type WaitNavigationOptions struct {
	Timeout   time.Duration
	WaitUntil string
}

type WaitNavigationOption func(*WaitNavigationOptions)

func WithNavigationTimeout(timeout time.Duration) WaitNavigationOption {
	return func(opts *WaitNavigationOptions) {
		if timeout > 0 {
			opts.Timeout = timeout
		}
	}
}

// WithNavigationWaitUntil: load, domcontentloaded, networkidle или commit.
// Студия держит открытые соединения, поэтому networkidle на ней может не наступить.
func WithNavigationWaitUntil(waitUntil string) WaitNavigationOption {
	return func(opts *WaitNavigationOptions) {
		opts.WaitUntil = waitUntil
	}
}
