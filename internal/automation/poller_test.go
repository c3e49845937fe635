package automation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowAgent/internal/dom/domtest"
	"flowAgent/internal/selectors"
)

func TestWaitForImageReturnsImmediatelyWhenComplete(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(domtest.El("div").WithText("Generating 100%"))
	clock := newFakeClock()

	ok := NewPoller(doc, clock, fastTunables(), nil).WaitForImage(context.Background(), selectors.Default())

	assert.True(t, ok)
	assert.Empty(t, clock.sleeps)
}

func TestWaitForImageDetectsAddToPrompt(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(domtest.El("div").WithText("Generating 40%"))
	clock := newFakeClock()
	clock.afterSleep = func(elapsed time.Duration) {
		if elapsed == 9*time.Second {
			doc.Add(domtest.El("button").WithText("Add to prompt"))
		}
	}

	ok := NewPoller(doc, clock, fastTunables(), nil).WaitForImage(context.Background(), selectors.Default())

	assert.True(t, ok)
	assert.Equal(t, 9*time.Second, clock.elapsed())
	assert.Equal(t, 3, clock.count(3*time.Second))
}

func TestWaitForImageTimesOut(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(domtest.El("div").WithText("Generating 99%"))
	clock := newFakeClock()

	ok := NewPoller(doc, clock, fastTunables(), nil).WaitForImage(context.Background(), selectors.Default())

	assert.False(t, ok)
	assert.Equal(t, 180*time.Second, clock.elapsed())
}

func TestWaitForVideoFindsShortMediaURL(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(domtest.El("video").WithAttr("src", ""))
	clock := newFakeClock()
	clock.afterSleep = func(elapsed time.Duration) {
		if elapsed == 30*time.Second {
			doc.Add(domtest.El("video").WithAttr("src", "https://cdn.example/video123.mp4"))
		}
	}

	src, ok := NewPoller(doc, clock, fastTunables(), nil).WaitForVideo(context.Background())

	require.True(t, ok)
	assert.Equal(t, "https://cdn.example/video123.mp4", src)
	assert.Equal(t, 30*time.Second, clock.elapsed())
}

func TestWaitForVideoReturnsImmediatelyWhenPresent(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(domtest.El("video").WithAttr("src", "https://cdn.example/video123.mp4"))
	clock := newFakeClock()

	src, ok := NewPoller(doc, clock, fastTunables(), nil).WaitForVideo(context.Background())

	require.True(t, ok)
	assert.Equal(t, "https://cdn.example/video123.mp4", src)
	assert.Empty(t, clock.sleeps)
}

func TestWaitForVideoTimesOut(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(domtest.El("video").WithAttr("src", "blob:placeholder"))
	clock := newFakeClock()

	src, ok := NewPoller(doc, clock, fastTunables(), nil).WaitForVideo(context.Background())

	assert.False(t, ok)
	assert.Empty(t, src)
	assert.Equal(t, 300*time.Second, clock.elapsed())
	assert.Equal(t, 60, clock.count(5*time.Second))
}

func TestWaitForVideoFinalCheckAfterDeadline(t *testing.T) {
	doc := domtest.NewDocument(1280, 800)
	clock := newFakeClock()
	tun := fastTunables()
	tun.VideoTimeout = 12 * time.Second
	clock.afterSleep = func(elapsed time.Duration) {
		if elapsed == 12*time.Second {
			doc.Add(domtest.El("video").WithAttr("src", "https://storage.example/"+strings.Repeat("x", 60)))
		}
	}

	_, ok := NewPoller(doc, clock, tun, nil).WaitForVideo(context.Background())

	assert.True(t, ok)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 2 * time.Second}, clock.sleeps)
}

func TestWaitForVideoStopsOnCancel(t *testing.T) {
	doc := domtest.NewDocument(1280, 800)
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := NewPoller(doc, clock, fastTunables(), nil).WaitForVideo(ctx)

	assert.False(t, ok)
	assert.Empty(t, clock.sleeps)
}

func TestIsVideoSource(t *testing.T) {
	cases := map[string]bool{
		"":                                 false,
		"   ":                              false,
		"blob:placeholder":                 false,
		"/media/clip.mp4":                  false,
		"https://cdn.example/poster.jpg":   false,
		"https://cdn.example/video123.mp4": true,
		"https://cdn.example/live.M3U8?t=1": true,
		"blob:https://labs.google/" + strings.Repeat("a", 40): true,
	}
	for src, want := range cases {
		assert.Equal(t, want, IsVideoSource(src), src)
	}
}
