package automation

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"flowAgent/internal/dom"
	"flowAgent/internal/selectors"
)

const defaultImageMIME = "image/png"

// UploadPayload - декодированная картинка, готовая к вставке в input[type=file].
type UploadPayload struct {
	Data     []byte
	Filename string
	MimeType string
}

func (p UploadPayload) File() dom.File {
	return dom.File{Name: p.Filename, MimeType: p.MimeType, Data: p.Data}
}

// SlotFilename: слот 1 - персонаж, все остальные - товар.
func SlotFilename(slot int) string {
	if slot == 1 {
		return "character.png"
	}
	return "product.png"
}

// ParsePayload принимает как голый base64, так и data URI.
// MIME берется из data URI, иначе определяется по содержимому.
func ParsePayload(data string, slot int) (UploadPayload, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return UploadPayload{}, ErrEmptyPayload
	}

	declared := ""
	if strings.HasPrefix(data, "data:") {
		comma := strings.IndexByte(data, ',')
		if comma < 0 {
			return UploadPayload{}, fmt.Errorf("битый data URI")
		}
		meta := data[len("data:"):comma]
		data = data[comma+1:]
		if semi := strings.IndexByte(meta, ';'); semi >= 0 {
			meta = meta[:semi]
		}
		declared = strings.ToLower(strings.TrimSpace(meta))
	}

	raw, err := decodeBase64(data)
	if err != nil {
		return UploadPayload{}, fmt.Errorf("декодирование base64: %w", err)
	}
	if len(raw) == 0 {
		return UploadPayload{}, ErrEmptyPayload
	}

	mime := declared
	if mime == "" {
		mime = sniffImageMIME(raw)
	}

	return UploadPayload{
		Data:     raw,
		Filename: SlotFilename(slot),
		MimeType: mime,
	}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func sniffImageMIME(raw []byte) string {
	m := mimetype.Detect(raw)
	if strings.HasPrefix(m.String(), "image/") {
		return m.String()
	}
	return defaultImageMIME
}

// Uploader загружает картинки в скрытые input[type=file] студии.
type Uploader struct {
	doc     dom.Document
	locator *Locator
	clock   Clock
	tun     Tunables
	log     *zap.Logger
}

func NewUploader(doc dom.Document, locator *Locator, clock Clock, tun Tunables, log *zap.Logger) *Uploader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Uploader{doc: doc, locator: locator, clock: clock, tun: tun.withDefaults(), log: log}
}

// UploadImage вставляет картинку во все найденные file input. Если их нет,
// пробует нажать "Upload" и повторяет один раз. Затем закрывает диалог
// кадрирования, если он появился. Результат - только успех вставки файла.
func (u *Uploader) UploadImage(ctx context.Context, data string, slot int, sel selectors.Config) bool {
	ok, _ := u.upload(ctx, data, slot, sel)
	return ok
}

// upload дополнительно возвращает число повторных попыток для WorkflowState.
func (u *Uploader) upload(ctx context.Context, data string, slot int, sel selectors.Config) (bool, int) {
	payload, err := ParsePayload(data, slot)
	if err != nil {
		u.log.Warn("Некорректная картинка", zap.Int("slot", slot), zap.Error(err))
		return false, 0
	}

	retries := 0
	injected := u.inject(payload)
	if injected == 0 && len(sel.Upload.UploadButtonTriggers) > 0 {
		retries++
		u.log.Info("File input не найден, нажимаем кнопку загрузки", zap.Int("slot", slot))
		if !u.locator.LocateByText(sel.Upload.UploadButtonTriggers) {
			u.log.Debug("Кнопка загрузки не найдена, input может появиться сам", zap.Int("slot", slot))
		}
		if err := u.clock.Sleep(ctx, u.tun.RevealDelay); err != nil {
			return false, retries
		}
		injected = u.inject(payload)
	}
	if injected == 0 {
		return false, retries
	}

	u.log.Info("Файл загружен",
		zap.Int("slot", slot),
		zap.String("file", payload.Filename),
		zap.String("mime", payload.MimeType),
		zap.Int("inputs", injected),
	)

	retries += u.dismissCrop(ctx, sel)
	return true, retries
}

func (u *Uploader) inject(payload UploadPayload) int {
	described := dom.Snapshot(u.doc, u.log)
	injected := 0
	for _, d := range dom.ByTag(described, "input") {
		if !strings.EqualFold(d.Info.Type, "file") {
			continue
		}
		if err := d.Element.SetInputFiles(payload.File()); err != nil {
			u.log.Debug("Input отклонил файл", zap.Error(err))
			continue
		}
		injected++
	}
	return injected
}

// dismissCrop ждет диалог кадрирования. Его отсутствие - нормальный исход.
func (u *Uploader) dismissCrop(ctx context.Context, sel selectors.Config) int {
	if len(sel.Upload.CropSaveTriggers) == 0 {
		return 0
	}
	for attempt := 1; attempt <= CropAttempts; attempt++ {
		if err := u.clock.Sleep(ctx, CropInterval); err != nil {
			return attempt - 1
		}
		if u.locator.LocateByText(sel.Upload.CropSaveTriggers) {
			u.log.Info("Диалог кадрирования подтвержден", zap.Int("attempt", attempt))
			return attempt - 1
		}
	}
	u.log.Debug("Диалог кадрирования не появился")
	return CropAttempts - 1
}
