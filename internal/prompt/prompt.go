// Package prompt строит промпты обеих стадий из карточки товара.
package prompt

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

// Params - то, что приходит в TWO_STAGE_PIPELINE помимо картинок.
type Params struct {
	ProductName string `json:"productName"`
	Gender      string `json:"gender"`
	Emotion     string `json:"emotion"`
}

type Prompts struct {
	Image string
	Video string
}

// Kind - стадия, для которой уточняется промпт.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Refiner переписывает черновой промпт через внешнюю модель.
type Refiner interface {
	Refine(ctx context.Context, kind Kind, draft string) (string, error)
}

const imageTemplate = `Photorealistic advertising photo. {{.Subject}} from the character reference holds {{.Product}} from the product reference at chest height, label facing the camera. Expression: {{.Emotion}}. Soft daylight, clean background, sharp focus on the product, the face and the packaging must match the references exactly.`

const videoTemplate = `{{.Subject}} presents {{.Product}} to the camera with a {{.Emotion}} expression, turns the package slightly to show the label, then smiles. Slow push-in camera move, soft studio lighting, natural motion, no text overlays.`

type Builder struct {
	image   *template.Template
	video   *template.Template
	refiner Refiner
	log     *zap.Logger
}

type Option func(*Builder)

// WithRefiner включает уточнение промптов. Ошибка модели не фатальна:
// остается черновик из шаблона.
func WithRefiner(r Refiner) Option {
	return func(b *Builder) {
		b.refiner = r
	}
}

func NewBuilder(log *zap.Logger, opts ...Option) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Builder{
		image: template.Must(template.New("image").Parse(imageTemplate)),
		video: template.Must(template.New("video").Parse(videoTemplate)),
		log:   log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type templateData struct {
	Subject string
	Product string
	Emotion string
}

func (p Params) Validate() error {
	if strings.TrimSpace(p.ProductName) == "" {
		return fmt.Errorf("не указано название товара")
	}
	return nil
}

func (b *Builder) Build(ctx context.Context, p Params) (Prompts, error) {
	if err := p.Validate(); err != nil {
		return Prompts{}, err
	}
	data := templateData{
		Subject: subject(p.Gender),
		Product: strings.TrimSpace(p.ProductName),
		Emotion: emotion(p.Emotion),
	}

	image, err := render(b.image, data)
	if err != nil {
		return Prompts{}, err
	}
	video, err := render(b.video, data)
	if err != nil {
		return Prompts{}, err
	}

	return Prompts{
		Image: b.refine(ctx, KindImage, image),
		Video: b.refine(ctx, KindVideo, video),
	}, nil
}

func (b *Builder) refine(ctx context.Context, kind Kind, draft string) string {
	if b.refiner == nil {
		return draft
	}
	refined, err := b.refiner.Refine(ctx, kind, draft)
	if err != nil {
		b.log.Warn("Уточнение промпта не удалось, используем шаблон", zap.String("kind", string(kind)), zap.Error(err))
		return draft
	}
	if refined = strings.TrimSpace(refined); refined == "" {
		return draft
	}
	return refined
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("шаблон %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func subject(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "female", "woman", "f", "หญิง":
		return "A young woman"
	case "male", "man", "m", "ชาย":
		return "A young man"
	default:
		return "A person"
	}
}

func emotion(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e == "" {
		return "happy"
	}
	return e
}
