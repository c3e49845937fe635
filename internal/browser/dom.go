package browser

import (
	"encoding/json"
	"fmt"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/playwright-community/playwright-go"

	"flowAgent/internal/dom"
)

// describeFn снимает с элемента все, что нужно локатору, за один вызов.
const describeFn = `el => {
	const r = el.getBoundingClientRect();
	const text = (el.innerText !== undefined ? el.innerText : el.textContent) || '';
	return {
		tag: el.tagName.toLowerCase(),
		text: text.trim().slice(0, 500),
		ariaLabel: el.getAttribute('aria-label') || '',
		role: el.getAttribute('role') || '',
		type: (el.getAttribute('type') || '').toLowerCase(),
		tabIndex: el.hasAttribute('tabindex'),
		rect: { x: r.x, y: r.y, width: r.width, height: r.height },
	};
}`

// queryFn возвращает элементы вместе с их описанием, иначе на каждый
// элемент пришлось бы делать отдельный round-trip к браузеру.
const queryFn = `(root, sel) => {
	const describe = ` + describeFn + `;
	const els = Array.from(root.querySelectorAll(sel));
	return { els, infos: els.map(el => Object.assign(describe(el), { shadow: !!el.shadowRoot })) };
}`

const dispatchFn = `(el, ev) => {
	const init = {
		bubbles: true, cancelable: true, composed: true, view: window,
		clientX: ev.x, clientY: ev.y, button: 0, buttons: ev.kind.endsWith('down') ? 1 : 0,
	};
	const Ctor = ev.kind.startsWith('pointer') && typeof PointerEvent === 'function' ? PointerEvent : MouseEvent;
	el.dispatchEvent(new Ctor(ev.kind, init));
}`

// setValueFn обходит контролируемые поля React: обычное присваивание value
// не долетает до состояния компонента.
const setValueFn = `(el, value) => {
	const proto = el.tagName === 'TEXTAREA' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
	const setter = Object.getOwnPropertyDescriptor(proto, 'value').set;
	setter.call(el, value);
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
}`

type evaluator interface {
	EvaluateHandle(expression string, arg ...interface{}) (playwright.JSHandle, error)
}

type disposer interface {
	Dispose() error
}

// handleSet - хендлы, выданные документом с последнего Release.
type handleSet struct {
	mu   sync.Mutex
	list []disposer
}

func (s *handleSet) track(d disposer) {
	if s == nil || d == nil {
		return
	}
	s.mu.Lock()
	s.list = append(s.list, d)
	s.mu.Unlock()
}

// release освобождает все хендлы; ошибки Dispose собираются, обход не прерывают.
func (s *handleSet) release() error {
	s.mu.Lock()
	list := s.list
	s.list = nil
	s.mu.Unlock()

	var errs []error
	for _, d := range list {
		if err := d.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type pageDocument struct {
	page    playwright.Page
	handles *handleSet
}

func newPageDocument(page playwright.Page) *pageDocument {
	return &pageDocument{page: page, handles: &handleSet{}}
}

// documentRoot адаптирует page к evaluator с document в роли корня.
type documentRoot struct {
	page playwright.Page
}

func (d documentRoot) EvaluateHandle(expression string, arg ...interface{}) (playwright.JSHandle, error) {
	var a interface{}
	if len(arg) > 0 {
		a = arg[0]
	}
	return d.page.EvaluateHandle(`sel => (`+expression+`)(document, sel)`, a)
}

func (d *pageDocument) QuerySelectorAll(selector string) ([]dom.Element, error) {
	return queryAll(documentRoot{page: d.page}, d.handles, selector)
}

// Release освобождает все элементы и shadow roots, выданные документом.
func (d *pageDocument) Release() error {
	return d.handles.release()
}

func (d *pageDocument) ShadowRoot() (dom.Node, error) { return nil, nil }

func (d *pageDocument) ElementFromPoint(x, y float64) (dom.Element, error) {
	h, err := d.page.EvaluateHandle(`([x, y]) => document.elementFromPoint(x, y)`, []float64{x, y})
	if err != nil {
		return nil, err
	}
	el := h.AsElement()
	if el == nil {
		_ = h.Dispose()
		return nil, nil
	}
	d.handles.track(el)
	return &element{h: el, handles: d.handles}, nil
}

func (d *pageDocument) Viewport() (float64, float64, error) {
	var size struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	res, err := d.page.Evaluate(`() => ({ width: window.innerWidth, height: window.innerHeight })`)
	if err != nil {
		return 0, 0, err
	}
	if err := remarshal(res, &size); err != nil {
		return 0, 0, err
	}
	return size.Width, size.Height, nil
}

func (d *pageDocument) BodyText() (string, error) {
	res, err := d.page.Evaluate(`() => document.body ? document.body.innerText : ''`)
	if err != nil {
		return "", err
	}
	s, _ := res.(string)
	return s, nil
}

type shadowRoot struct {
	h       playwright.JSHandle
	handles *handleSet
}

func (s *shadowRoot) QuerySelectorAll(selector string) ([]dom.Element, error) {
	return queryAll(s.h, s.handles, selector)
}

func (s *shadowRoot) ShadowRoot() (dom.Node, error) { return nil, nil }

type element struct {
	h       playwright.ElementHandle
	handles *handleSet
	info    *dom.Info
	// noShadow известен заранее для элементов из queryAll.
	noShadow bool
}

type queriedInfo struct {
	dom.Info
	Shadow bool `json:"shadow"`
}

func (e *element) QuerySelectorAll(selector string) ([]dom.Element, error) {
	return queryAll(e.h, e.handles, selector)
}

func (e *element) ShadowRoot() (dom.Node, error) {
	if e.noShadow {
		return nil, nil
	}
	h, err := e.h.EvaluateHandle(`el => el.shadowRoot`)
	if err != nil {
		return nil, err
	}
	v, err := h.JSONValue()
	if err == nil && v == nil {
		_ = h.Dispose()
		return nil, nil
	}
	e.handles.track(h)
	return &shadowRoot{h: h, handles: e.handles}, nil
}

func (e *element) Info() (dom.Info, error) {
	if e.info != nil {
		return *e.info, nil
	}
	res, err := e.h.Evaluate(describeFn)
	if err != nil {
		return dom.Info{}, err
	}
	var info dom.Info
	if err := remarshal(res, &info); err != nil {
		return dom.Info{}, err
	}
	e.info = &info
	return info, nil
}

func (e *element) Parent() (dom.Element, error) {
	h, err := e.h.EvaluateHandle(`el => el.parentElement || (el.parentNode && el.parentNode.host) || null`)
	if err != nil {
		return nil, err
	}
	parent := h.AsElement()
	if parent == nil {
		_ = h.Dispose()
		return nil, nil
	}
	e.handles.track(parent)
	return &element{h: parent, handles: e.handles}, nil
}

func (e *element) Attribute(name string) (string, error) {
	return e.h.GetAttribute(name)
}

func (e *element) InnerHTML() (string, error) {
	return e.h.InnerHTML()
}

func (e *element) DispatchMouseEvent(kind string, x, y float64) error {
	_, err := e.h.Evaluate(dispatchFn, map[string]interface{}{"kind": kind, "x": x, "y": y})
	return err
}

func (e *element) Click() error {
	_, err := e.h.Evaluate(`el => el.click()`)
	return err
}

func (e *element) Focus() error {
	return e.h.Focus()
}

func (e *element) SetInputFiles(files ...dom.File) error {
	in := make([]playwright.InputFile, 0, len(files))
	for _, f := range files {
		in = append(in, playwright.InputFile{Name: f.Name, MimeType: f.MimeType, Buffer: f.Data})
	}
	return e.h.SetInputFiles(in)
}

func (e *element) SetValue(value string) error {
	_, err := e.h.Evaluate(setValueFn, value)
	return err
}

func queryAll(root evaluator, handles *handleSet, selector string) ([]dom.Element, error) {
	res, err := root.EvaluateHandle(queryFn, selector)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Dispose() }()

	infosHandle, err := res.GetProperty("infos")
	if err != nil {
		return nil, err
	}
	raw, err := infosHandle.JSONValue()
	_ = infosHandle.Dispose()
	if err != nil {
		return nil, err
	}
	var infos []queriedInfo
	if err := remarshal(raw, &infos); err != nil {
		return nil, err
	}

	elsHandle, err := res.GetProperty("els")
	if err != nil {
		return nil, err
	}
	defer func() { _ = elsHandle.Dispose() }()
	props, err := elsHandle.GetProperties()
	if err != nil {
		return nil, err
	}

	type indexed struct {
		i  int
		el playwright.ElementHandle
	}
	ordered := make([]indexed, 0, len(props))
	for key, h := range props {
		i, err := strconv.Atoi(key)
		el := h.AsElement()
		if err != nil || el == nil {
			_ = h.Dispose()
			continue
		}
		ordered = append(ordered, indexed{i: i, el: el})
	}
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].i < ordered[b].i })

	out := make([]dom.Element, 0, len(ordered))
	for _, o := range ordered {
		handles.track(o.el)
		e := &element{h: o.el, handles: handles}
		if o.i < len(infos) {
			info := infos[o.i].Info
			e.info = &info
			e.noShadow = !infos[o.i].Shadow
		}
		out = append(out, e)
	}
	return out, nil
}

// remarshal раскладывает результат Evaluate (map/[]interface{}) в структуру.
func remarshal(src, dst interface{}) error {
	b, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("результат evaluate: %w", err)
	}
	return json.Unmarshal(b, dst)
}
