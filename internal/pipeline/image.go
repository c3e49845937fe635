package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"flowAgent/internal/automation"
)

// MaxImageSide - верхний предел стороны входной картинки.
const MaxImageSide = 8192

var ErrImageSize = errors.New("недопустимый размер картинки")

// ValidateImage проверяет, что base64/data URI декодируется в картинку
// известного формата, не загружая ее целиком в память.
func ValidateImage(data string) error {
	payload, err := automation.ParsePayload(data, 1)
	if err != nil {
		return err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(payload.Data))
	if err != nil {
		return fmt.Errorf("формат не распознан: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
		return fmt.Errorf("%w: %s %dx%d", ErrImageSize, format, cfg.Width, cfg.Height)
	}
	return nil
}
