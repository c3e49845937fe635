package automation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowAgent/internal/dom"
	"flowAgent/internal/dom/domtest"
)

func TestLocateByTextFindsElementInsideShadowRoot(t *testing.T) {
	target := domtest.El("span").WithText("New project").WithRect(40, 40, 120, 30)
	card := domtest.El("div").WithRect(20, 20, 300, 200).WithChildren(target)
	doc := domtest.NewDocument(1280, 800).Add(
		domtest.El("button").WithText("Create").WithRect(0, 0, 100, 40),
		domtest.El("studio-app").WithShadow(card),
	)

	ok := NewLocator(doc, nil).LocateByText([]string{"New project"})

	require.True(t, ok)
	require.NotEmpty(t, doc.Clicks())
	assert.Same(t, target, doc.Clicks()[0])
	assert.Equal(t, append(append([]string(nil), clickSequence...), "native-click"), target.Events()[:6])
	assert.Equal(t, 1, target.Focuses())
	assert.True(t, card.Clicked())
}

func TestLocateByTextNoMatch(t *testing.T) {
	doc := domtest.NewDocument(1280, 800).Add(
		domtest.El("button").WithText("Settings").WithRect(0, 0, 100, 40),
	)

	ok := NewLocator(doc, nil).LocateByText([]string{"Nonexistent Label"})

	assert.False(t, ok)
	assert.Empty(t, doc.Clicks())
}

func TestLocateByTextTriesPhrasesInOrder(t *testing.T) {
	video := domtest.El("button").WithText("วิดีโอ").WithRect(0, 0, 80, 30)
	doc := domtest.NewDocument(1280, 800).Add(video)

	ok := NewLocator(doc, nil).LocateByText([]string{"Videos", "Video", "วิดีโอ"})

	require.True(t, ok)
	assert.Same(t, video, doc.Clicks()[0])
}

func TestFindPrefersSmallerElement(t *testing.T) {
	banner := domtest.El("div").WithText("Upload").WithRect(0, 0, 1000, 500)
	button := domtest.El("button").WithText("Upload").WithRect(0, 600, 80, 30)
	doc := domtest.NewDocument(1280, 800).Add(banner, button)

	candidates := NewLocator(doc, nil).Find([]string{"upload"})

	require.GreaterOrEqual(t, len(candidates), 2)
	assert.Same(t, button, candidates[0].Element)
	assert.InDelta(t, ExactMatchScore+SpecificityBoost(80*30), candidates[0].Score, 0.001)
}

func TestFindSkipsHiddenAndScriptElements(t *testing.T) {
	doc := domtest.NewDocument(0, 0).Add(
		domtest.El("script").WithText("Add to prompt").WithRect(0, 0, 10, 10),
		domtest.El("button").WithText("Add to prompt"),
		domtest.El("button").WithAria("Add to prompt").WithRect(0, 0, 40, 40),
	)

	candidates := NewLocator(doc, nil).Find([]string{"Add to prompt"})

	require.Len(t, candidates, 1)
	assert.Equal(t, "button", candidates[0].Info.Tag)
	assert.Equal(t, "Add to prompt", candidates[0].Info.AriaLabel)
}

func TestLocateByTextClicksLimitedAncestors(t *testing.T) {
	button := domtest.El("button").WithAria("Go").WithRect(10, 10, 20, 20)
	outer := button
	for i := 0; i < 7; i++ {
		outer = domtest.El("div").WithRect(0, 0, 100, 100).WithChildren(outer)
	}

	doc := domtest.NewDocument(1280, 800).Add(outer)
	require.True(t, NewLocator(doc, nil).LocateByText([]string{"go"}))
	assert.Len(t, doc.Clicks(), 1+MaxAncestorClicks)

	doc2 := domtest.NewDocument(1280, 800)
	button2 := domtest.El("button").WithAria("Go").WithRect(10, 10, 20, 20)
	doc2.Add(domtest.El("div").WithRect(0, 0, 100, 100).WithChildren(button2))
	require.True(t, NewLocator(doc2, nil).LocateByText([]string{"go"}, WithoutAncestors()))
	assert.Len(t, doc2.Clicks(), 1)
}

func TestLocateByTextClicksOnlyBestCandidate(t *testing.T) {
	var buttons []*domtest.Element
	doc := domtest.NewDocument(0, 0)
	for i := 0; i < 5; i++ {
		b := domtest.El("button").WithText("Save").WithRect(0, float64(i*40), 60, 30)
		buttons = append(buttons, b)
		doc.Add(b)
	}

	require.True(t, NewLocator(doc, nil).LocateByText([]string{"Save"}, WithoutAncestors()))

	require.Len(t, doc.Clicks(), 1)
	assert.Same(t, buttons[0], doc.Clicks()[0])
}

func TestLocateByTextIgnoresLooserMatch(t *testing.T) {
	target := domtest.El("button").WithText("New project").WithRect(10, 10, 120, 30)
	template := domtest.El("button").WithText("New project from template").WithRect(10, 60, 200, 30)
	toolbar := domtest.El("div").WithRect(0, 0, 400, 100).WithChildren(target, template)
	doc := domtest.NewDocument(1280, 800).Add(toolbar)

	require.True(t, NewLocator(doc, nil).LocateByText([]string{"New project"}))

	assert.True(t, target.Clicked())
	assert.False(t, template.Clicked())
	assert.True(t, toolbar.Clicked())
}

func TestLocateByTextSkipsCandidateThatRejectsClick(t *testing.T) {
	stale := domtest.El("button").WithText("Upload").WithRect(0, 0, 40, 20).WithDetached(errors.New("detached"))
	live := domtest.El("button").WithText("Upload").WithRect(0, 100, 80, 30)
	doc := domtest.NewDocument(1280, 800).Add(stale, live)

	candidates := NewLocator(doc, nil).Find([]string{"Upload"})
	require.Len(t, candidates, 2)
	require.Same(t, stale, candidates[0].Element)

	require.True(t, NewLocator(doc, nil).LocateByText([]string{"Upload"}, WithoutAncestors()))

	require.Len(t, doc.Clicks(), 1)
	assert.Same(t, live, doc.Clicks()[0])
	assert.Empty(t, stale.Events())
}

func TestLocateByTextFallsThroughWhenNoCandidateAcceptsClick(t *testing.T) {
	stale := domtest.El("button").WithText("Create").WithRect(0, 0, 40, 20).WithDetached(errors.New("detached"))
	fallback := domtest.El("button").WithText("Новый проект").WithRect(0, 100, 80, 30)
	doc := domtest.NewDocument(0, 0).Add(stale, fallback)

	require.True(t, NewLocator(doc, nil).LocateByText([]string{"Create", "Новый проект"}, WithoutAncestors()))

	assert.True(t, fallback.Clicked())
}

func TestScoreElement(t *testing.T) {
	info := dom.Info{Text: "  New   Project ", AriaLabel: "Create a new project"}

	assert.Equal(t, float64(ExactMatchScore), ScoreElement(info, "new project"))
	assert.Equal(t, float64(SubstringMatchScore), ScoreElement(info, "create a"))
	assert.Zero(t, ScoreElement(info, "delete"))
	assert.Zero(t, ScoreElement(info, "   "))
}

func TestSpecificityBoost(t *testing.T) {
	assert.InDelta(t, 97.6, SpecificityBoost(2400), 0.0001)
	assert.Zero(t, SpecificityBoost(500_000))
}

func TestSimulateClickDispatchesAtCenter(t *testing.T) {
	el := domtest.El("div").WithRect(10, 20, 100, 40)

	require.True(t, SimulateClick(el, nil))

	assert.Equal(t, []string{"pointerdown", "mousedown", "pointerup", "mouseup", "click", "native-click"}, el.Events())
	assert.Equal(t, 1, el.NativeClicks())
	assert.Equal(t, 1, el.Focuses())

	assert.False(t, SimulateClick(domtest.El("div").WithDetached(errors.New("gone")), nil))
	assert.False(t, SimulateClick(nil, nil))
}

func TestClickAtCoordinates(t *testing.T) {
	target := domtest.El("div").WithRect(100, 100, 50, 50)
	doc := domtest.NewDocument(400, 300).Add(target)

	assert.True(t, ClickAtCoordinates(doc, 120, 120, nil))
	assert.True(t, target.Clicked())
	assert.False(t, ClickAtCoordinates(doc, 900, 900, nil))
}
