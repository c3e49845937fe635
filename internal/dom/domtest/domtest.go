// Package domtest - фейковое DOM-дерево в памяти для тестов движка автоматизации.
// Поддерживает shadow roots, hit-test по координатам, запись событий и
// хуки на клик, которыми тесты имитируют реакцию страницы.
package domtest

import (
	"errors"
	"fmt"
	"strings"

	"flowAgent/internal/dom"
)

type Document struct {
	root   *Element
	body   *Element
	width  float64
	height float64

	clicks   []*Element
	hitTests []dom.Rect
	queries  int
	releases int
}

// NewDocument создает <html><body> размером с viewport.
func NewDocument(width, height float64) *Document {
	d := &Document{width: width, height: height}
	d.root = El("html").WithRect(0, 0, width, height)
	d.body = El("body").WithRect(0, 0, width, height)
	d.root.WithChildren(d.body)
	d.adopt(d.root)
	return d
}

// Add добавляет элементы в body.
func (d *Document) Add(children ...*Element) *Document {
	d.body.Append(children...)
	return d
}

// Clicks возвращает элементы в порядке получения события click.
func (d *Document) Clicks() []*Element { return d.clicks }

// HitTests возвращает точки, по которым вызывался ElementFromPoint.
func (d *Document) HitTests() []dom.Rect { return d.hitTests }

// Release только считает вызовы: фейковым элементам нечего освобождать.
func (d *Document) Release() error {
	d.releases++
	return nil
}

func (d *Document) Releases() int { return d.releases }

// Queries - сколько раз вызывался QuerySelectorAll у документа.
func (d *Document) Queries() int { return d.queries }

func (d *Document) adopt(el *Element) {
	el.doc = d
	for _, c := range el.children {
		d.adopt(c)
	}
	if el.shadow != nil {
		for _, c := range el.shadow.children {
			d.adopt(c)
		}
	}
}

func (d *Document) QuerySelectorAll(selector string) ([]dom.Element, error) {
	d.queries++
	match, err := matcher(selector)
	if err != nil {
		return nil, err
	}
	var out []dom.Element
	if match(d.root) {
		out = append(out, d.root)
	}
	collectLight(d.root.children, match, &out)
	return out, nil
}

func (d *Document) ShadowRoot() (dom.Node, error) { return nil, nil }

func (d *Document) ElementFromPoint(x, y float64) (dom.Element, error) {
	d.hitTests = append(d.hitTests, dom.Rect{X: x, Y: y})
	var hit *Element
	var visit func(el *Element)
	visit = func(el *Element) {
		if el.rect.Area() > 0 && el.rect.Contains(x, y) {
			hit = el
		}
		for _, c := range el.children {
			visit(c)
		}
	}
	visit(d.root)
	if hit == nil {
		return nil, nil
	}
	return hit, nil
}

func (d *Document) Viewport() (float64, float64, error) {
	return d.width, d.height, nil
}

func (d *Document) BodyText() (string, error) {
	return d.body.textContent(), nil
}

type ShadowRoot struct {
	host     *Element
	children []*Element
	err      error
}

func (s *ShadowRoot) QuerySelectorAll(selector string) ([]dom.Element, error) {
	if s.err != nil {
		return nil, s.err
	}
	match, err := matcher(selector)
	if err != nil {
		return nil, err
	}
	var out []dom.Element
	collectLight(s.children, match, &out)
	return out, nil
}

func (s *ShadowRoot) ShadowRoot() (dom.Node, error) { return nil, nil }

type Element struct {
	tag      string
	text     string
	aria     string
	role     string
	typ      string
	tabIndex bool
	attrs    map[string]string
	html     string
	rect     dom.Rect
	infoErr  error
	detached error

	children []*Element
	shadow   *ShadowRoot
	parent   *Element
	doc      *Document
	onClick  func(*Element)

	events       []string
	nativeClicks int
	focuses      int
	files        []dom.File
	value        string
}

func El(tag string) *Element {
	return &Element{tag: strings.ToLower(tag), attrs: map[string]string{}}
}

func (e *Element) WithText(text string) *Element { e.text = text; return e }
func (e *Element) WithAria(label string) *Element { e.aria = label; return e }
func (e *Element) WithRole(role string) *Element  { e.role = role; return e }
func (e *Element) WithType(typ string) *Element   { e.typ = strings.ToLower(typ); return e }
func (e *Element) WithTabIndex() *Element         { e.tabIndex = true; return e }
func (e *Element) WithHTML(html string) *Element  { e.html = html; return e }

func (e *Element) WithAttr(name, value string) *Element {
	e.attrs[name] = value
	return e
}

func (e *Element) WithRect(x, y, w, h float64) *Element {
	e.rect = dom.Rect{X: x, Y: y, Width: w, Height: h}
	return e
}

func (e *Element) WithInfoError(err error) *Element { e.infoErr = err; return e }

// WithDetached - элемент виден в индексе, но события и click() на нем падают с err.
func (e *Element) WithDetached(err error) *Element { e.detached = err; return e }

// WithOnClick вызывается при каждом событии click, отправленном элементу.
func (e *Element) WithOnClick(fn func(*Element)) *Element { e.onClick = fn; return e }

func (e *Element) WithChildren(children ...*Element) *Element {
	for _, c := range children {
		c.parent = e
		e.children = append(e.children, c)
	}
	return e
}

// WithShadow прикрепляет открытый shadow root с указанными детьми.
func (e *Element) WithShadow(children ...*Element) *Element {
	e.shadow = &ShadowRoot{host: e}
	for _, c := range children {
		c.parent = e
		e.shadow.children = append(e.shadow.children, c)
	}
	return e
}

// WithBrokenShadow прикрепляет shadow root, обход которого всегда падает.
func (e *Element) WithBrokenShadow(err error) *Element {
	e.shadow = &ShadowRoot{host: e, err: err}
	return e
}

// Append добавляет детей уже после построения дерева, например из OnClick.
func (e *Element) Append(children ...*Element) {
	e.WithChildren(children...)
	if e.doc != nil {
		for _, c := range children {
			e.doc.adopt(c)
		}
	}
}

func (e *Element) Events() []string  { return e.events }
func (e *Element) NativeClicks() int { return e.nativeClicks }
func (e *Element) Focuses() int      { return e.focuses }
func (e *Element) Files() []dom.File { return e.files }
func (e *Element) Value() string     { return e.value }

// Clicked сообщает, получал ли элемент событие click.
func (e *Element) Clicked() bool {
	for _, ev := range e.events {
		if ev == "click" {
			return true
		}
	}
	return false
}

func (e *Element) textContent() string {
	var b strings.Builder
	b.WriteString(e.text)
	for _, c := range e.children {
		b.WriteString(c.textContent())
	}
	return b.String()
}

func (e *Element) QuerySelectorAll(selector string) ([]dom.Element, error) {
	match, err := matcher(selector)
	if err != nil {
		return nil, err
	}
	var out []dom.Element
	collectLight(e.children, match, &out)
	return out, nil
}

func (e *Element) ShadowRoot() (dom.Node, error) {
	if e.shadow == nil {
		return nil, nil
	}
	return e.shadow, nil
}

func (e *Element) Info() (dom.Info, error) {
	if e.infoErr != nil {
		return dom.Info{}, e.infoErr
	}
	return dom.Info{
		Tag:       e.tag,
		Text:      strings.TrimSpace(e.textContent()),
		AriaLabel: e.aria,
		Role:      e.role,
		Type:      e.typ,
		TabIndex:  e.tabIndex,
		Rect:      e.rect,
	}, nil
}

func (e *Element) Parent() (dom.Element, error) {
	if e.parent == nil {
		return nil, nil
	}
	return e.parent, nil
}

func (e *Element) Attribute(name string) (string, error) {
	switch name {
	case "aria-label":
		return e.aria, nil
	case "role":
		return e.role, nil
	case "type":
		return e.typ, nil
	}
	return e.attrs[name], nil
}

func (e *Element) InnerHTML() (string, error) {
	return e.html, nil
}

func (e *Element) DispatchMouseEvent(kind string, x, y float64) error {
	if e.detached != nil {
		return e.detached
	}
	e.events = append(e.events, kind)
	if kind == "click" {
		if e.doc != nil {
			e.doc.clicks = append(e.doc.clicks, e)
		}
		if e.onClick != nil {
			e.onClick(e)
		}
	}
	return nil
}

func (e *Element) Click() error {
	if e.detached != nil {
		return e.detached
	}
	e.nativeClicks++
	e.events = append(e.events, "native-click")
	return nil
}

func (e *Element) Focus() error {
	if e.detached != nil {
		return e.detached
	}
	e.focuses++
	return nil
}

func (e *Element) SetInputFiles(files ...dom.File) error {
	if e.tag != "input" || e.typ != "file" {
		return fmt.Errorf("<%s type=%q> не принимает файлы", e.tag, e.typ)
	}
	e.files = append([]dom.File(nil), files...)
	e.events = append(e.events, "input", "change")
	return nil
}

func (e *Element) SetValue(value string) error {
	if e.tag != "textarea" && e.tag != "input" {
		return errors.New("элемент не поддерживает value")
	}
	e.value = value
	e.events = append(e.events, "input")
	return nil
}

func collectLight(children []*Element, match func(*Element) bool, out *[]dom.Element) {
	for _, c := range children {
		if match(c) {
			*out = append(*out, c)
		}
		collectLight(c.children, match, out)
	}
}

// matcher понимает только "*" и голое имя тега - больше движку не нужно.
func matcher(selector string) (func(*Element) bool, error) {
	selector = strings.TrimSpace(strings.ToLower(selector))
	if selector == "*" {
		return func(*Element) bool { return true }, nil
	}
	if selector == "" || strings.ContainsAny(selector, "[]:.#> ,") {
		return nil, fmt.Errorf("domtest: неподдерживаемый селектор %q", selector)
	}
	return func(el *Element) bool { return el.tag == selector }, nil
}
