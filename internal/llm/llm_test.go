package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowAgent/internal/prompt"
)

type fakeCompleter struct {
	reqs  []openai.ChatCompletionRequest
	reply string
	err   error
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.reply}}},
	}, nil
}

func TestOpenAIRefine(t *testing.T) {
	api := &fakeCompleter{reply: "```\n\"A woman smiles holding the serum\"\n```"}
	c := newOpenAIClient(api, "", 0, 10, nil)

	got, err := c.Refine(context.Background(), prompt.KindVideo, "draft for ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "A woman smiles holding the serum", got)

	require.Len(t, api.reqs, 1)
	req := api.reqs[0]
	assert.Equal(t, openai.GPT4oMini, req.Model)
	assert.Equal(t, 300, req.MaxTokens)
	assert.Contains(t, req.Messages[1].Content, "8 second video clip")
	assert.NotContains(t, req.Messages[1].Content, "ops@example.com")
}

func TestOpenAIRefineErrors(t *testing.T) {
	c := newOpenAIClient(&fakeCompleter{err: errors.New("429")}, "gpt-4o", 100, 10, nil)
	_, err := c.Refine(context.Background(), prompt.KindImage, "draft")
	assert.ErrorContains(t, err, "429")

	c = newOpenAIClient(&fakeCompleter{reply: "  "}, "gpt-4o", 100, 10, nil)
	_, err = c.Refine(context.Background(), prompt.KindImage, "draft")
	assert.Error(t, err)
}

func TestRateLimiterWaitsForRefill(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var slept []time.Duration

	rl := NewRateLimiter(2)
	rl.now = func() time.Time { return now }
	rl.lastCheck = now
	rl.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}

	require.NoError(t, rl.Wait(context.Background()))
	require.NoError(t, rl.Wait(context.Background()))
	assert.Equal(t, 0, rl.Available())
	require.NoError(t, rl.Wait(context.Background()))

	require.Len(t, slept, 1)
	assert.Equal(t, 30*time.Second, slept[0])
}

func TestRateLimiterRespectsContext(t *testing.T) {
	rl := NewRateLimiter(1)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type scriptedRefiner struct {
	errs  []error
	calls int
}

func (r *scriptedRefiner) Refine(_ context.Context, _ prompt.Kind, draft string) (string, error) {
	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return "refined: " + draft, nil
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	boom := errors.New("503")
	next := &scriptedRefiner{errs: []error{boom, boom, nil}}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(next, 2, time.Minute, nil)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := b.Refine(ctx, prompt.KindImage, "d")
	assert.ErrorIs(t, err, boom)
	_, err = b.Refine(ctx, prompt.KindImage, "d")
	assert.ErrorIs(t, err, boom)

	_, err = b.Refine(ctx, prompt.KindImage, "d")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, next.calls)

	now = now.Add(time.Minute)
	out, err := b.Refine(ctx, prompt.KindVideo, "d")
	require.NoError(t, err)
	assert.Equal(t, "refined: d", out)
	assert.Equal(t, stateClosed, b.state)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	boom := errors.New("timeout")
	next := &scriptedRefiner{errs: []error{boom, boom}}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(next, 1, time.Minute, nil)
	b.now = func() time.Time { return now }

	_, _ = b.Refine(context.Background(), prompt.KindImage, "d")
	now = now.Add(2 * time.Minute)
	_, err := b.Refine(context.Background(), prompt.KindImage, "d")
	assert.ErrorIs(t, err, boom)

	_, err = b.Refine(context.Background(), prompt.KindImage, "d")
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	next := &scriptedRefiner{errs: []error{context.Canceled, context.Canceled}}
	b := NewBreaker(next, 1, time.Minute, nil)

	_, _ = b.Refine(context.Background(), prompt.KindImage, "d")
	_, _ = b.Refine(context.Background(), prompt.KindImage, "d")
	out, err := b.Refine(context.Background(), prompt.KindImage, "d")

	require.NoError(t, err)
	assert.Equal(t, "refined: d", out)
}
