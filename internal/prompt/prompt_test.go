package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refinerFunc func(ctx context.Context, kind Kind, draft string) (string, error)

func (f refinerFunc) Refine(ctx context.Context, kind Kind, draft string) (string, error) {
	return f(ctx, kind, draft)
}

func TestBuildFromTemplates(t *testing.T) {
	p, err := NewBuilder(nil).Build(context.Background(), Params{ProductName: " Vitamin C serum ", Gender: "female", Emotion: "Excited"})
	require.NoError(t, err)

	assert.Contains(t, p.Image, "A young woman from the character reference holds Vitamin C serum")
	assert.Contains(t, p.Image, "Expression: excited.")
	assert.Contains(t, p.Video, "with a excited expression")
}

func TestBuildDefaults(t *testing.T) {
	p, err := NewBuilder(nil).Build(context.Background(), Params{ProductName: "Sunscreen"})
	require.NoError(t, err)

	assert.Contains(t, p.Image, "A person from the character reference")
	assert.Contains(t, p.Video, "happy expression")
}

func TestBuildRequiresProductName(t *testing.T) {
	_, err := NewBuilder(nil).Build(context.Background(), Params{Gender: "male"})
	assert.Error(t, err)
}

func TestBuildUsesRefiner(t *testing.T) {
	var kinds []Kind
	r := refinerFunc(func(_ context.Context, kind Kind, draft string) (string, error) {
		kinds = append(kinds, kind)
		if kind == KindVideo {
			return "", errors.New("quota exceeded")
		}
		return "  refined image prompt ", nil
	})

	p, err := NewBuilder(nil, WithRefiner(r)).Build(context.Background(), Params{ProductName: "Serum", Gender: "m"})
	require.NoError(t, err)

	assert.Equal(t, []Kind{KindImage, KindVideo}, kinds)
	assert.Equal(t, "refined image prompt", p.Image)
	assert.Contains(t, p.Video, "A young man presents Serum")
}
