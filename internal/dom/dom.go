// Package dom описывает страницу студии как набор возможностей
// (querySelectorAll, shadowRoot, hit-test), а не как конкретный браузер.
// Движок автоматизации работает только через эти интерфейсы, поэтому его
// можно гонять на фейковом дереве из domtest без настоящего браузера.
package dom

// Rect - габариты элемента в CSS-пикселях относительно viewport.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Info - снимок свойств элемента, которые нужны локатору.
type Info struct {
	Tag       string `json:"tag"`
	Text      string `json:"text"`
	AriaLabel string `json:"ariaLabel"`
	Role      string `json:"role"`
	Type      string `json:"type"`
	TabIndex  bool   `json:"tabIndex"`
	Rect      Rect   `json:"rect"`
}

// File - синтезированный файл для input[type=file].
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Node - document или shadow root.
type Node interface {
	// QuerySelectorAll возвращает элементы light DOM этого узла, не заходя в shadow roots.
	QuerySelectorAll(selector string) ([]Element, error)
	// ShadowRoot возвращает открытый shadow root или nil.
	ShadowRoot() (Node, error)
}

type Element interface {
	Node
	Info() (Info, error)
	// Parent возвращает родителя; для верхнего узла shadow root - его host. nil у корня.
	Parent() (Element, error)
	Attribute(name string) (string, error)
	InnerHTML() (string, error)
	DispatchMouseEvent(kind string, x, y float64) error
	// Click вызывает нативный element.click().
	Click() error
	Focus() error
	// SetInputFiles подменяет FileList и отправляет события change и input.
	SetInputFiles(files ...File) error
	// SetValue выставляет value и отправляет событие input.
	SetValue(value string) error
}

type Document interface {
	Node
	ElementFromPoint(x, y float64) (Element, error)
	Viewport() (width, height float64, err error)
	// BodyText - видимый текст document.body.
	BodyText() (string, error)
}

// Releaser - документ, за каждым выданным элементом которого стоит ресурс
// браузера. После Release все ранее выданные элементы недействительны.
type Releaser interface {
	Release() error
}
