package automation

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowAgent/internal/dom/domtest"
	"flowAgent/internal/selectors"
)

// 1x1 PNG.
const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func newUploader(doc *domtest.Document, clock *fakeClock) *Uploader {
	return NewUploader(doc, NewLocator(doc, nil), clock, fastTunables(), nil)
}

func TestUploadImageInjectsIntoEveryFileInput(t *testing.T) {
	first := domtest.El("input").WithType("file")
	second := domtest.El("input").WithType("file")
	text := domtest.El("input").WithType("text")
	doc := domtest.NewDocument(1280, 800).Add(first, domtest.El("div").WithChildren(second), text)
	clock := newFakeClock()

	ok := newUploader(doc, clock).UploadImage(context.Background(), pixelPNG, 1, selectors.Default())

	require.True(t, ok)
	for _, input := range []*domtest.Element{first, second} {
		require.Len(t, input.Files(), 1)
		assert.Equal(t, "character.png", input.Files()[0].Name)
		assert.Equal(t, "image/png", input.Files()[0].MimeType)
		assert.Equal(t, []string{"input", "change"}, input.Events())
	}
	assert.Empty(t, text.Files())
	// диалога кадрирования нет: все попытки израсходованы, это не ошибка
	assert.Equal(t, CropAttempts, clock.count(CropInterval))
}

func TestUploadImageClicksUploadButtonWhenNoInput(t *testing.T) {
	doc := domtest.NewDocument(1280, 800)
	revealed := false
	button := domtest.El("button").WithText("Upload").WithRect(10, 10, 90, 32).
		WithOnClick(func(*domtest.Element) {
			if !revealed {
				revealed = true
				doc.Add(domtest.El("input").WithType("file"))
			}
		})
	doc.Add(button)
	clock := newFakeClock()

	ok := newUploader(doc, clock).UploadImage(context.Background(), "data:image/jpeg;base64,"+pixelPNG, 2, selectors.Default())

	require.True(t, ok)
	require.True(t, revealed)
	assert.Equal(t, 1, clock.count(DefaultTunables().RevealDelay))
}

func TestUploadImageRetriesAfterRevealDelayWithoutButton(t *testing.T) {
	doc := domtest.NewDocument(1280, 800)
	input := domtest.El("input").WithType("file")
	clock := newFakeClock()
	clock.afterSleep = func(time.Duration) {
		if clock.afterSleep != nil {
			clock.afterSleep = nil
			doc.Add(input)
		}
	}

	ok, retries := newUploader(doc, clock).upload(context.Background(), pixelPNG, 1, selectors.Default())

	require.True(t, ok)
	// одна повторная инъекция плюс неудачные попытки найти диалог кадрирования
	assert.Equal(t, 1+CropAttempts-1, retries)
	require.Len(t, input.Files(), 1)
	assert.Equal(t, DefaultTunables().RevealDelay, clock.sleeps[0])
	assert.Empty(t, doc.Clicks())
}

func TestUploadImageFailsWithoutAnyInput(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(domtest.El("button").WithText("Settings").WithRect(0, 0, 80, 30))

	ok, retries := newUploader(doc, newFakeClock()).upload(context.Background(), pixelPNG, 1, selectors.Default())

	assert.False(t, ok)
	assert.Equal(t, 1, retries)
}

func TestUploadImageConfirmsCropDialog(t *testing.T) {
	crop := domtest.El("button").WithText("Crop and save").WithRect(500, 500, 120, 36)
	doc := domtest.NewDocument(1280, 800).Add(domtest.El("input").WithType("file"), crop)
	clock := newFakeClock()

	require.True(t, newUploader(doc, clock).UploadImage(context.Background(), pixelPNG, 1, selectors.Default()))
	assert.True(t, crop.Clicked())
	assert.Equal(t, 1, clock.count(CropInterval))
}

func TestUploadImageRejectsBrokenPayload(t *testing.T) {
	input := domtest.El("input").WithType("file")
	doc := domtest.NewDocument(1280, 800).Add(input)

	assert.False(t, newUploader(doc, newFakeClock()).UploadImage(context.Background(), "   ", 1, selectors.Default()))
	assert.False(t, newUploader(doc, newFakeClock()).UploadImage(context.Background(), "%%%not-base64%%%", 1, selectors.Default()))
	assert.Empty(t, input.Files())
}

func TestParsePayload(t *testing.T) {
	raw, err := base64.StdEncoding.DecodeString(pixelPNG)
	require.NoError(t, err)

	p, err := ParsePayload(pixelPNG, 1)
	require.NoError(t, err)
	assert.Equal(t, raw, p.Data)
	assert.Equal(t, "image/png", p.MimeType)
	assert.Equal(t, "character.png", p.Filename)

	p, err = ParsePayload("data:image/webp;base64,"+pixelPNG, 2)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", p.MimeType)
	assert.Equal(t, "product.png", p.Filename)

	p, err = ParsePayload(base64.StdEncoding.EncodeToString([]byte("plain text, not an image")), 3)
	require.NoError(t, err)
	assert.Equal(t, "image/png", p.MimeType)
	assert.Equal(t, "product.png", p.Filename)

	_, err = ParsePayload("", 1)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = ParsePayload("data:image/png;base64", 1)
	assert.Error(t, err)
}
