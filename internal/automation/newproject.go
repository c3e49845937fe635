package automation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"flowAgent/internal/dom"
	"flowAgent/internal/selectors"
)

// MaxCardViewportShare отсекает контейнеры размером с экран: в тексте body
// почти всегда найдутся и "+", и "new", но это не карточка.
const MaxCardViewportShare = 0.25

// NewProjectStrategy - один способ открыть новый проект.
type NewProjectStrategy struct {
	Name string
	Try  func(ctx context.Context, sel selectors.Config) bool
}

// DefaultNewProjectStrategies возвращает стратегии в порядке применения:
// поиск по тексту, карточка "+ New", сканирование кликабельных элементов,
// клик по фиксированным точкам viewport.
func (w *Workflow) DefaultNewProjectStrategies() []NewProjectStrategy {
	return []NewProjectStrategy{
		{Name: "text_search", Try: w.newProjectByText},
		{Name: "plus_card", Try: w.newProjectByPlusCard},
		{Name: "clickable_scan", Try: w.newProjectByClickable},
		{Name: "viewport_fallback", Try: w.newProjectByCoordinates},
	}
}

// ClickNewProject пробует стратегии по очереди, пока одна не сработает.
func (w *Workflow) ClickNewProject(ctx context.Context, sel selectors.Config) bool {
	ok, _ := w.clickNewProject(ctx, sel)
	return ok
}

func (w *Workflow) clickNewProject(ctx context.Context, sel selectors.Config) (bool, int) {
	for i, s := range w.newProject {
		if ctx.Err() != nil {
			return false, i
		}
		if s.Try(ctx, sel) {
			w.log.Info("Новый проект открыт", zap.String("strategy", s.Name), zap.Int("attempt", i+1))
			return true, i
		}
		w.log.Debug("Стратегия не сработала", zap.String("strategy", s.Name))
	}
	return false, len(w.newProject)
}

func (w *Workflow) newProjectByText(_ context.Context, sel selectors.Config) bool {
	return w.locator.LocateByText(sel.Dashboard.NewProjectTriggers)
}

func (w *Workflow) newProjectByPlusCard(_ context.Context, sel selectors.Config) bool {
	vw, vh, err := w.doc.Viewport()
	if err != nil {
		vw, vh = 0, 0
	}
	maxArea := vw * vh * MaxCardViewportShare
	keywords := newProjectKeywords(sel)

	var best *dom.Described
	for _, d := range w.describe() {
		d := d
		if SkippedTags[d.Info.Tag] {
			continue
		}
		r := d.Info.Rect
		if r.Width < MinCardWidth || r.Height < MinCardHeight {
			continue
		}
		if maxArea > 0 && r.Area() > maxArea {
			continue
		}
		text := d.Info.Text + " " + d.Info.AriaLabel
		if !hasPlusMarker(text) || !containsAny(text, keywords) {
			continue
		}
		if best == nil || r.Area() < best.Info.Rect.Area() {
			best = &d
		}
	}
	if best == nil {
		return false
	}
	SimulateClick(best.Element, w.log)
	return true
}

func (w *Workflow) newProjectByClickable(_ context.Context, sel selectors.Config) bool {
	for _, d := range w.describe() {
		if !isClickable(d.Info) || d.Info.Rect.Area() == 0 {
			continue
		}
		text := d.Info.Text + " " + d.Info.AriaLabel
		for _, phrase := range sel.Dashboard.NewProjectTriggers {
			if matchesTokens(text, phrase) {
				SimulateClick(d.Element, w.log)
				return true
			}
		}
	}
	return false
}

// newProjectByCoordinates кликает по точкам viewport, только если элемент под
// точкой сам похож на кнопку нового проекта. Вслепую не кликает.
func (w *Workflow) newProjectByCoordinates(ctx context.Context, sel selectors.Config) bool {
	vw, vh, err := w.doc.Viewport()
	if err != nil || vw <= 0 || vh <= 0 {
		return false
	}
	keywords := newProjectKeywords(sel)

	for _, pt := range FallbackPoints {
		x, y := vw*pt.X, vh*pt.Y
		el, err := w.doc.ElementFromPoint(x, y)
		if err != nil || el == nil {
			continue
		}
		info, err := el.Info()
		if err != nil {
			continue
		}
		if !containsAny(info.Text+" "+info.AriaLabel, keywords) {
			continue
		}

		SimulateClick(el, w.log)
		w.log.Info("Клик по резервной точке", zap.Float64("x", x), zap.Float64("y", y))
		if !w.tun.VerifyFallbackClick {
			return true
		}
		if err := w.clock.Sleep(ctx, w.tun.StepDelay); err != nil {
			return false
		}
		if w.InWorkspace(sel) {
			return true
		}
		w.log.Warn("Клик по резервной точке не открыл проект", zap.Float64("x", x), zap.Float64("y", y))
	}
	return false
}

func newProjectKeywords(sel selectors.Config) []string {
	out := make([]string, 0, len(sel.Dashboard.NewProjectTriggers)+len(NewProjectKeywords))
	out = append(out, sel.Dashboard.NewProjectTriggers...)
	return append(out, NewProjectKeywords...)
}

func hasPlusMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range PlusMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func isClickable(info dom.Info) bool {
	switch info.Tag {
	case "button", "a":
		return true
	}
	return strings.EqualFold(info.Role, "button") || info.TabIndex
}

// matchesTokens - все слова фразы встречаются в тексте в любом порядке.
func matchesTokens(text, phrase string) bool {
	words := strings.Fields(normalize(phrase))
	if len(words) == 0 {
		return false
	}
	t := normalize(text)
	for _, word := range words {
		if !strings.Contains(t, word) {
			return false
		}
	}
	return true
}
