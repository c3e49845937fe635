package automation

import (
	"go.uber.org/zap"

	"flowAgent/internal/dom"
)

// clickSequence повторяет то, что браузер отправляет при настоящем клике мышью.
// Студия слушает разные подмножества этих событий, одного click() мало.
var clickSequence = []string{"pointerdown", "mousedown", "pointerup", "mouseup", "click"}

// SimulateClick отправляет полную последовательность событий в центр элемента,
// затем вызывает нативный click() и focus(). Возвращает false, только если
// элемент не принял ни одного события (например, отсоединен от документа).
// Реакцию страницы не проверяет.
func SimulateClick(el dom.Element, log *zap.Logger) bool {
	if el == nil {
		return false
	}
	if log == nil {
		log = zap.NewNop()
	}

	var x, y float64
	if info, err := el.Info(); err == nil {
		x, y = info.Rect.Center()
	} else {
		log.Debug("Нет габаритов элемента, события уйдут в (0,0)", zap.Error(err))
	}

	delivered := false
	for _, kind := range clickSequence {
		if err := el.DispatchMouseEvent(kind, x, y); err != nil {
			log.Debug("Событие не отправлено", zap.String("event", kind), zap.Error(err))
			continue
		}
		delivered = true
	}
	if err := el.Click(); err != nil {
		log.Debug("Нативный click() не сработал", zap.Error(err))
	} else {
		delivered = true
	}
	if err := el.Focus(); err != nil {
		log.Debug("focus() не сработал", zap.Error(err))
	}
	return delivered
}

// ClickAtCoordinates кликает по верхнему элементу под точкой.
// Возвращает false, если под точкой ничего нет.
func ClickAtCoordinates(doc dom.Document, x, y float64, log *zap.Logger) bool {
	el, err := doc.ElementFromPoint(x, y)
	if err != nil || el == nil {
		return false
	}
	return SimulateClick(el, log)
}
