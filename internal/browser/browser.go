package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"flowAgent/internal/dom"
)

var errNotLaunched = fmt.Errorf("браузер не запущен")

func New(cfg Config, log *zap.Logger) *PlaywrightBrowser {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.NavigateTimeout == 0 {
		cfg.NavigateTimeout = 60 * time.Second // студия грузится долго
	}
	if cfg.Engine == "" {
		cfg.Engine = "firefox"
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &PlaywrightBrowser{
		cfg: cfg,
		log: log,
	}
}

// getPage безопасно возвращает текущую страницу с read lock
func (b *PlaywrightBrowser) getPage() playwright.Page {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.page
}

func (b *PlaywrightBrowser) setPage(page playwright.Page) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.page = page
}

func (b *PlaywrightBrowser) getBrowserArgs() []string {
	if b.cfg.Engine == "chromium" {
		return []string{"--no-sandbox", "--disable-blink-features=AutomationControlled"}
	}
	return nil
}

func (b *PlaywrightBrowser) getEnvMap() map[string]string {
	if b.cfg.Display != "" {
		return map[string]string{
			"DISPLAY": b.cfg.Display,
		}
	}
	return nil
}

// checkEngine проверяет имя движка до запуска драйвера playwright.
func checkEngine(engine string) error {
	switch strings.ToLower(engine) {
	case "firefox", "chromium", "chrome", "webkit":
		return nil
	default:
		return fmt.Errorf("неизвестный движок браузера: %s", engine)
	}
}

func (b *PlaywrightBrowser) browserType() (playwright.BrowserType, error) {
	if err := checkEngine(b.cfg.Engine); err != nil {
		return nil, err
	}
	switch strings.ToLower(b.cfg.Engine) {
	case "firefox":
		return b.pw.Firefox, nil
	case "webkit":
		return b.pw.WebKit, nil
	default:
		return b.pw.Chromium, nil
	}
}

// launchPersistent нужен, чтобы не логиниться в студию при каждом запуске.
func (b *PlaywrightBrowser) launchPersistent(bt playwright.BrowserType) error {
	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(b.cfg.Headless),
		Args:     b.getBrowserArgs(),
	}

	if env := b.getEnvMap(); env != nil {
		opts.Env = env
	}

	browserContext, err := bt.LaunchPersistentContext(b.cfg.UserDataDir, opts)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.context = browserContext
	b.mu.Unlock()

	pages := browserContext.Pages()
	var page playwright.Page
	if len(pages) == 0 {
		page, err = browserContext.NewPage()
		if err != nil {
			return err
		}
	} else {
		page = pages[0]
	}

	b.setPage(page)
	page.SetDefaultTimeout(float64(b.cfg.Timeout.Milliseconds()))
	return nil
}

func (b *PlaywrightBrowser) launchStandard(bt playwright.BrowserType) error {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.cfg.Headless),
		Args:     b.getBrowserArgs(),
	}

	if env := b.getEnvMap(); env != nil {
		opts.Env = env
	}

	browser, err := bt.Launch(opts)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.browser = browser
	b.mu.Unlock()

	page, err := browser.NewPage()
	if err != nil {
		return err
	}

	b.setPage(page)
	page.SetDefaultTimeout(float64(b.cfg.Timeout.Milliseconds()))
	return nil
}

func (b *PlaywrightBrowser) Launch(ctx context.Context) error {
	if b.getPage() != nil {
		return nil
	}
	if b.cfg.BrowsersPath != "" {
		if err := os.Setenv("PLAYWRIGHT_BROWSERS_PATH", b.cfg.BrowsersPath); err != nil {
			return err
		}
	}

	if err := checkEngine(b.cfg.Engine); err != nil {
		return err
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("запуск playwright: %w", err)
	}
	b.mu.Lock()
	b.pw = pw
	b.mu.Unlock()

	bt, err := b.browserType()
	if err != nil {
		b.abortLaunch()
		return err
	}

	if b.cfg.UserDataDir != "" {
		err = b.launchPersistent(bt)
	} else {
		err = b.launchStandard(bt)
	}
	if err != nil {
		b.abortLaunch()
		return fmt.Errorf("запуск %s: %w", b.cfg.Engine, err)
	}

	b.log.Info("Браузер запущен",
		zap.String("engine", b.cfg.Engine),
		zap.Bool("headless", b.cfg.Headless),
		zap.Bool("persistent", b.cfg.UserDataDir != ""),
	)
	return nil
}

// abortLaunch освобождает то, что успел поднять неудачный Launch, включая
// процесс драйвера. Ошибки закрытия только логируются: наружу уходит
// исходная ошибка запуска. Повторный Launch после этого начинает с нуля.
func (b *PlaywrightBrowser) abortLaunch() {
	b.mu.Lock()
	bctx, br, pw := b.context, b.browser, b.pw
	b.context, b.browser, b.page, b.pw = nil, nil, nil, nil
	b.mu.Unlock()

	if bctx != nil {
		if err := bctx.Close(); err != nil {
			b.log.Debug("Не удалось закрыть контекст после сбоя запуска", zap.Error(err))
		}
	}
	if br != nil {
		if err := br.Close(); err != nil {
			b.log.Debug("Не удалось закрыть браузер после сбоя запуска", zap.Error(err))
		}
	}
	if pw != nil {
		if err := pw.Stop(); err != nil {
			b.log.Debug("Не удалось остановить playwright после сбоя запуска", zap.Error(err))
		}
	}
}

func (b *PlaywrightBrowser) Navigate(ctx context.Context, url string, options ...WaitNavigationOption) error {
	page := b.getPage()
	if page == nil {
		return errNotLaunched
	}

	opts := WaitNavigationOptions{
		Timeout:   b.cfg.NavigateTimeout,
		WaitUntil: "domcontentloaded",
	}
	for _, opt := range options {
		opt(&opts)
	}

	navCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: waitUntilState(opts.WaitUntil),
			Timeout:   playwright.Float(float64(opts.Timeout.Milliseconds())),
		})
		errChan <- err
	}()

	select {
	case <-navCtx.Done():
		return fmt.Errorf("navigate timeout after %v", opts.Timeout)
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	b.log.Info("Страница открыта", zap.String("url", url))
	return nil
}

// Document возвращает живой документ текущей вкладки.
func (b *PlaywrightBrowser) Document() (dom.Document, error) {
	page := b.getPage()
	if page == nil {
		return nil, errNotLaunched
	}
	return newPageDocument(page), nil
}

func (b *PlaywrightBrowser) CurrentURL() string {
	page := b.getPage()
	if page == nil {
		return ""
	}
	return page.URL()
}

func (b *PlaywrightBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			return err
		}
		b.context = nil
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			return err
		}
		b.browser = nil
	}
	b.page = nil
	if b.pw != nil {
		err := b.pw.Stop()
		b.pw = nil
		return err
	}
	return nil
}
