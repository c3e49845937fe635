package dom_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowAgent/internal/dom"
	"flowAgent/internal/dom/domtest"
)

func tags(t *testing.T, elements []dom.Element) []string {
	t.Helper()
	out := make([]string, 0, len(elements))
	for _, el := range elements {
		info, err := el.Info()
		require.NoError(t, err)
		out = append(out, info.Tag)
	}
	return out
}

func TestCollectRecursesIntoShadowRoots(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(
		domtest.El("div").WithChildren(domtest.El("span")),
		domtest.El("studio-app").WithShadow(
			domtest.El("section").WithChildren(
				domtest.El("prompt-box").WithShadow(domtest.El("textarea")),
			),
		),
	)

	got := tags(t, dom.Collect(doc, nil))

	assert.Equal(t, []string{"html", "body", "div", "span", "studio-app", "section", "prompt-box", "textarea"}, got)
}

func TestCollectKeepsPartialResultsOnTraversalError(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(
		domtest.El("header"),
		domtest.El("broken-widget").WithBrokenShadow(errors.New("detached node")),
		domtest.El("footer"),
	)

	got := tags(t, dom.Collect(doc, nil))

	assert.Equal(t, []string{"html", "body", "header", "broken-widget", "footer"}, got)
}

func TestCollectIsRepeatable(t *testing.T) {
	doc := domtest.NewDocument(800, 600).Add(domtest.El("button").WithText("Go"))

	first := dom.Collect(doc, nil)
	doc.Add(domtest.El("button").WithText("Later"))
	second := dom.Collect(doc, nil)

	assert.Len(t, first, 3)
	assert.Len(t, second, 4)
	assert.Equal(t, 2, doc.Queries())
}

func TestDescribeSkipsBrokenElements(t *testing.T) {
	doc := domtest.NewDocument(800, 600).Add(
		domtest.El("img").WithInfoError(errors.New("gone")),
		domtest.El("video"),
	)

	described := dom.Describe(dom.Collect(doc, nil), nil)
	videos := dom.ByTag(described, "VIDEO")

	assert.Len(t, described, 3)
	require.Len(t, videos, 1)
	assert.Equal(t, "video", videos[0].Info.Tag)
}

func TestRectHelpers(t *testing.T) {
	r := dom.Rect{X: 10, Y: 20, Width: 100, Height: 50}
	x, y := r.Center()

	assert.Equal(t, 5000.0, r.Area())
	assert.Equal(t, 60.0, x)
	assert.Equal(t, 45.0, y)
	assert.True(t, r.Contains(10, 70))
	assert.False(t, r.Contains(111, 30))
	assert.Zero(t, dom.Rect{Width: 10}.Area())
}

func TestSnapshotReleasesPreviousElements(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(domtest.El("button").WithText("Go").WithRect(0, 0, 40, 20))

	first := dom.Snapshot(doc, nil)
	second := dom.Snapshot(doc, nil)

	assert.Len(t, second, len(first))
	assert.Equal(t, 2, doc.Releases())
	assert.Equal(t, 2, doc.Queries())

	dom.Release(doc, nil)
	assert.Equal(t, 3, doc.Releases())
}
