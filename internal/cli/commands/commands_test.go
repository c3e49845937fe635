package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"flowAgent/internal/automation"
	"flowAgent/internal/database"
	"flowAgent/internal/messaging"
	"flowAgent/internal/selectors"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type fakeExecutor struct {
	got messaging.InboundMessage
	res automation.PipelineResult
}

func (f *fakeExecutor) Execute(_ context.Context, msg messaging.InboundMessage) (string, automation.PipelineResult) {
	f.got = msg
	return "run-42", f.res
}

func TestSplitArgs(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a.png b.png Serum", []string{"a.png", "b.png", "Serum"}},
		{`a.png  b.png "Vitamin C serum" female`, []string{"a.png", "b.png", "Vitamin C serum", "female"}},
		{`"" x`, []string{"", "x"}},
		{"   ", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SplitArgs(tc.in), tc.in)
	}
}

func TestRunBuildsPipelineMessage(t *testing.T) {
	exec := &fakeExecutor{res: automation.PipelineResult{Success: true, VideoURL: "https://cdn.example/v.mp4"}}
	var out bytes.Buffer
	h := NewRunHandler(exec, &out)
	h.readFile = func(string) ([]byte, error) { return pngHeader, nil }

	h.Run(context.Background(), `char.png prod.png "Vitamin C serum" female calm and confident`)

	require.NotNil(t, exec.got.Payload)
	assert.Equal(t, messaging.TypeTwoStagePipeline, exec.got.Type)
	assert.Equal(t, "Vitamin C serum", exec.got.Payload.ProductName)
	assert.Equal(t, "female", exec.got.Payload.Gender)
	assert.Equal(t, "calm and confident", exec.got.Payload.Emotion)
	assert.Contains(t, exec.got.Payload.CharacterImage, "data:image/png;base64,")
	assert.Contains(t, out.String(), "run-42")
	assert.Contains(t, out.String(), "https://cdn.example/v.mp4")
}

func TestRunReportsFailure(t *testing.T) {
	exec := &fakeExecutor{res: automation.PipelineResult{Error: "image_tab_selected: image tab not found"}}
	var out bytes.Buffer
	h := NewRunHandler(exec, &out)
	h.readFile = func(string) ([]byte, error) { return pngHeader, nil }

	h.Run(context.Background(), "a.png b.png Serum")

	assert.Contains(t, out.String(), "image tab not found")
}

func TestRunUsageAndMissingFile(t *testing.T) {
	exec := &fakeExecutor{}
	var out bytes.Buffer
	h := NewRunHandler(exec, &out)
	h.readFile = func(string) ([]byte, error) { return nil, errors.New("no such file") }

	h.Run(context.Background(), "only-one")
	assert.Contains(t, out.String(), "Использование")

	h.Run(context.Background(), "a.png b.png Serum")
	assert.Contains(t, out.String(), "no such file")
	assert.Nil(t, exec.got.Payload)
}

type fakeRuns struct {
	run    *database.PipelineRun
	events []database.StageEvent
}

func (f *fakeRuns) GetRun(_ context.Context, id string) (*database.PipelineRun, error) {
	if f.run == nil || f.run.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.run, nil
}

func (f *fakeRuns) ListRuns(context.Context, int, int) ([]database.PipelineRun, error) {
	if f.run == nil {
		return nil, nil
	}
	return []database.PipelineRun{*f.run}, nil
}

func (f *fakeRuns) ListStageEvents(context.Context, string) ([]database.StageEvent, error) {
	return f.events, nil
}

func TestShowRun(t *testing.T) {
	runs := &fakeRuns{
		run: &database.PipelineRun{
			ID: "r1", ProductName: "Serum", Status: database.StatusFailed, Stage: "failed",
			Error: "generation timed out", CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		events: []database.StageEvent{{FromStage: "images_uploaded", Stage: "prompt_filled", ElapsedMs: 1200, Retries: 2}},
	}
	var out bytes.Buffer
	h := NewShowHandler(runs, zap.NewNop(), &out)

	h.Show(context.Background(), "r1")
	assert.Contains(t, out.String(), "Serum")
	assert.Contains(t, out.String(), "generation timed out")
	assert.Contains(t, out.String(), "prompt_filled")
	assert.Contains(t, out.String(), "повторов: 2")

	out.Reset()
	h.Show(context.Background(), "nope")
	assert.Contains(t, out.String(), "не найден")

	out.Reset()
	h.List(context.Background())
	assert.Contains(t, out.String(), "r1")
}

func TestShowWithoutDatabase(t *testing.T) {
	var out bytes.Buffer
	h := NewShowHandler(nil, zap.NewNop(), &out)

	h.List(context.Background())

	assert.Contains(t, out.String(), "БД не настроена")
}

func TestSelectorsPrintsYAML(t *testing.T) {
	var out bytes.Buffer
	NewSelectorsHandler(selectors.NewProvider(nil), &out).Show()

	assert.Contains(t, out.String(), "default")
	assert.Contains(t, out.String(), "newProjectTriggers:")
	assert.Contains(t, out.String(), "New project")
}

func TestBrowserHandlerWithoutBrowser(t *testing.T) {
	var out bytes.Buffer
	h := NewBrowserHandler(nil, selectors.NewProvider(nil), "https://studio.example", &out)

	h.Open(context.Background(), "")
	h.Check()

	assert.Contains(t, out.String(), "Браузер не инициализирован")
}
