package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"flowAgent/internal/automation"
	"flowAgent/internal/browser"
	"flowAgent/internal/cli/ui"
	"flowAgent/internal/selectors"
)

// BrowserHandler обрабатывает команды браузера
type BrowserHandler struct {
	browser   browser.Browser
	provider  *selectors.Provider
	studioURL string
	out       io.Writer
}

func NewBrowserHandler(br browser.Browser, provider *selectors.Provider, studioURL string, out io.Writer) *BrowserHandler {
	return &BrowserHandler{
		browser:   br,
		provider:  provider,
		studioURL: studioURL,
		out:       out,
	}
}

// Open запускает браузер (если еще не запущен) и открывает студию или указанный URL.
// Вкладка остается открытой: в ней можно войти в аккаунт и затем выполнить run.
func (h *BrowserHandler) Open(ctx context.Context, url string) {
	if h.browser == nil {
		fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Браузер не инициализирован"+ui.ColorReset)
		return
	}
	url = strings.TrimSpace(url)
	if url == "" {
		url = h.studioURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	fmt.Fprintln(h.out, ui.ColorCyan+ui.IconGlobe+" Запуск браузера..."+ui.ColorReset)
	if err := h.browser.Launch(ctx); err != nil {
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Ошибка запуска:"+ui.ColorReset+" %v\n", err)
		return
	}

	fmt.Fprintf(h.out, ui.ColorCyan+ui.IconArrow+" Открытие %s..."+ui.ColorReset+"\n", url)
	if err := h.browser.Navigate(ctx, url); err != nil {
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Ошибка навигации:"+ui.ColorReset+" %v\n", err)
		return
	}

	fmt.Fprintln(h.out, ui.ColorGreen+ui.IconCheckmark+" Страница открыта"+ui.ColorReset)
	fmt.Fprintln(h.out, ui.ColorGray+"Войдите в аккаунт, затем используйте '"+ui.ColorYellow+"run"+ui.ColorGray+"'"+ui.ColorReset)
}

// Check сообщает, открыта ли рабочая область проекта. Ничего не кликает.
func (h *BrowserHandler) Check() {
	if h.browser == nil {
		fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Браузер не инициализирован"+ui.ColorReset)
		return
	}
	doc, err := h.browser.Document()
	if err != nil {
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Страница недоступна:"+ui.ColorReset+" %v\n", err)
		return
	}

	wf := automation.New(doc, h.provider)
	if wf.InWorkspace(h.provider.Selectors()) {
		fmt.Fprintln(h.out, ui.ColorGreen+ui.IconCheckmark+" Рабочая область проекта открыта"+ui.ColorReset)
		return
	}
	fmt.Fprintln(h.out, ui.ColorYellow+ui.IconClock+" Открыт дашборд: run начнет с нового проекта"+ui.ColorReset)
}
