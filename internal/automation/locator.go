package automation

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"flowAgent/internal/dom"
)

// Candidate - элемент и его оценка для одной фразы. Живет в пределах одного вызова.
type Candidate struct {
	Element dom.Element
	Info    dom.Info
	Score   float64
}

// Locator ищет элементы по нечеткому совпадению текста. Индекс DOM строится
// заново при каждом вызове: страница перерисовывается между шагами.
type Locator struct {
	doc dom.Document
	log *zap.Logger
}

func NewLocator(doc dom.Document, log *zap.Logger) *Locator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Locator{doc: doc, log: log}
}

type locateOptions struct {
	clickAncestors bool
}

type LocateOption func(*locateOptions)

// WithoutAncestors кликает только сам найденный элемент.
func WithoutAncestors() LocateOption {
	return func(o *locateOptions) {
		o.clickAncestors = false
	}
}

// LocateByText перебирает фразы по порядку. Для первой фразы, у которой нашлись
// кандидаты, идет по TopCandidates лучшим в порядке оценки и кликает первого,
// принявшего клик, а затем (по умолчанию) его предков. Если ни один из них клик
// не принял, переходит к следующей фразе. Не проверяет, что клик что-то изменил.
func (l *Locator) LocateByText(phrases []string, opts ...LocateOption) bool {
	o := locateOptions{clickAncestors: true}
	for _, opt := range opts {
		opt(&o)
	}

	described := l.index()
	for _, phrase := range phrases {
		candidates := rank(described, phrase)
		if len(candidates) == 0 {
			continue
		}

		l.log.Debug("Найдены кандидаты",
			zap.String("phrase", phrase),
			zap.Int("count", len(candidates)),
			zap.Float64("best_score", candidates[0].Score),
		)

		for i, c := range candidates {
			if i >= TopCandidates {
				break
			}
			if !SimulateClick(c.Element, l.log) {
				l.log.Debug("Кандидат не принял клик", zap.String("phrase", phrase), zap.Int("rank", i))
				continue
			}
			if o.clickAncestors {
				l.clickAncestors(c.Element)
			}
			return true
		}
	}
	return false
}

// Find возвращает отсортированных кандидатов для первой подходящей фразы без клика.
func (l *Locator) Find(phrases []string) []Candidate {
	described := l.index()
	for _, phrase := range phrases {
		if candidates := rank(described, phrase); len(candidates) > 0 {
			return candidates
		}
	}
	return nil
}

func (l *Locator) index() []dom.Described {
	return dom.Snapshot(l.doc, l.log)
}

// clickAncestors кликает до MaxAncestorClicks предков с ненулевой площадью:
// студия часто вешает обработчик на карточку, а не на текстовый узел.
func (l *Locator) clickAncestors(el dom.Element) {
	clicked := 0
	current := el
	for clicked < MaxAncestorClicks {
		parent, err := current.Parent()
		if err != nil || parent == nil {
			return
		}
		current = parent

		info, err := parent.Info()
		if err != nil || info.Rect.Area() == 0 {
			continue
		}
		SimulateClick(parent, l.log)
		clicked++
	}
}

// ScoreElement оценивает совпадение элемента с фразой без учета размера.
func ScoreElement(info dom.Info, phrase string) float64 {
	p := normalize(phrase)
	if p == "" {
		return 0
	}
	text := normalize(info.Text)
	aria := normalize(info.AriaLabel)

	switch {
	case text == p || aria == p:
		return ExactMatchScore
	case strings.Contains(text, p) || strings.Contains(aria, p):
		return SubstringMatchScore
	default:
		return 0
	}
}

// SpecificityBoost - бонус за малую площадь.
func SpecificityBoost(area float64) float64 {
	return math.Max(0, SpecificityBonus-area/SpecificityAreaDivisor)
}

func rank(described []dom.Described, phrase string) []Candidate {
	var out []Candidate
	for _, d := range described {
		if SkippedTags[d.Info.Tag] {
			continue
		}
		area := d.Info.Rect.Area()
		if area == 0 {
			continue
		}
		score := ScoreElement(d.Info, phrase)
		if score <= 0 {
			continue
		}
		out = append(out, Candidate{
			Element: d.Element,
			Info:    d.Info,
			Score:   score + SpecificityBoost(area),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// containsAny - текст (без учета регистра) содержит хотя бы одну из фраз.
func containsAny(text string, phrases []string) bool {
	t := normalize(text)
	for _, p := range phrases {
		if p = normalize(p); p != "" && strings.Contains(t, p) {
			return true
		}
	}
	return false
}
