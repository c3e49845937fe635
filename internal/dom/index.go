package dom

import (
	"strings"

	"go.uber.org/zap"
)

// MaxShadowDepth ограничивает вложенность shadow roots при обходе.
const MaxShadowDepth = 32

// Collect строит плоский список всех элементов под root, заходя в каждый
// встреченный shadow root. Ошибки обхода (отсоединенные узлы, чужие origin)
// только логируются: возвращается все, что успели собрать.
//
// Результат нельзя переиспользовать между шагами: страница перерисовывается.
func Collect(root Node, log *zap.Logger) []Element {
	if log == nil {
		log = zap.NewNop()
	}
	var out []Element
	walk(root, 0, &out, log)
	return out
}

func walk(root Node, depth int, out *[]Element, log *zap.Logger) {
	if root == nil {
		return
	}
	if depth > MaxShadowDepth {
		log.Debug("Превышена глубина shadow DOM", zap.Int("depth", depth))
		return
	}

	elements, err := root.QuerySelectorAll("*")
	if err != nil {
		log.Debug("Ошибка обхода DOM, продолжаем с частичным результатом", zap.Int("depth", depth), zap.Error(err))
		return
	}

	for _, el := range elements {
		*out = append(*out, el)

		shadow, err := el.ShadowRoot()
		if err != nil {
			log.Debug("Не удалось получить shadow root", zap.Error(err))
			continue
		}
		if shadow != nil {
			walk(shadow, depth+1, out, log)
		}
	}
}

// Described - элемент вместе с его снимком Info.
type Described struct {
	Element Element
	Info    Info
}

// Describe снимает Info со всех элементов; элементы с ошибкой пропускаются.
func Describe(elements []Element, log *zap.Logger) []Described {
	out := make([]Described, 0, len(elements))
	for _, el := range elements {
		info, err := el.Info()
		if err != nil {
			if log != nil {
				log.Debug("Элемент пропущен", zap.Error(err))
			}
			continue
		}
		out = append(out, Described{Element: el, Info: info})
	}
	return out
}

// Snapshot освобождает элементы прошлого снимка (если документ это умеет)
// и строит новый. Элементы живут до следующего Snapshot или Release.
func Snapshot(doc Document, log *zap.Logger) []Described {
	Release(doc, log)
	return Describe(Collect(doc, log), log)
}

// Release освобождает выданные документом элементы, если он это поддерживает.
func Release(doc Document, log *zap.Logger) {
	r, ok := doc.(Releaser)
	if !ok {
		return
	}
	if err := r.Release(); err != nil && log != nil {
		log.Debug("Не удалось освободить элементы", zap.Error(err))
	}
}

// ByTag фильтрует описанные элементы по имени тега.
func ByTag(described []Described, tags ...string) []Described {
	var out []Described
	for _, d := range described {
		for _, tag := range tags {
			if strings.EqualFold(d.Info.Tag, tag) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
