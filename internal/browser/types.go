package browser

import (
	"context"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"flowAgent/internal/dom"
)

// Browser - вкладка со студией. Движок автоматизации видит только Document().
type Browser interface {
	Launch(ctx context.Context) error
	Navigate(ctx context.Context, url string, options ...WaitNavigationOption) error
	WaitForLoadState(ctx context.Context, state string) error
	Document() (dom.Document, error)
	CurrentURL() string
	Close() error
}

type PlaywrightBrowser struct {
	mu      sync.RWMutex
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	cfg     Config
	log     *zap.Logger
}

type Config struct {
	// Engine: firefox, chromium или webkit.
	Engine          string
	Headless        bool
	UserDataDir     string
	BrowsersPath    string
	Display         string
	Timeout         time.Duration
	NavigateTimeout time.Duration
}
