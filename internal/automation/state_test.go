package automation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowStateAdvancesForwardOnly(t *testing.T) {
	clock := newFakeClock()
	var seen []Transition
	st := newWorkflowState(clock, func(tr Transition) { seen = append(seen, tr) })

	require.NoError(t, st.advance(StageNewProjectClicked))
	require.NoError(t, clock.Sleep(t.Context(), 3*time.Second))
	st.retry(2)
	require.NoError(t, st.advance(StageImagesUploaded))

	err := st.advance(StageImageTabSelected)
	assert.ErrorIs(t, err, ErrBackwardTransition)
	assert.ErrorIs(t, st.advance(StageImagesUploaded), ErrBackwardTransition)
	assert.Equal(t, StageImagesUploaded, st.Current())

	require.Len(t, seen, 2)
	assert.Equal(t, StageNewProjectClicked, seen[1].From)
	assert.Equal(t, 3*time.Second, seen[1].Elapsed)
	assert.Equal(t, 2, seen[1].Retries)
	assert.Equal(t, seen, st.History())
}

func TestWorkflowStateFailedIsTerminal(t *testing.T) {
	st := newWorkflowState(newFakeClock(), nil)
	require.NoError(t, st.advance(StagePromptFilled))
	require.NoError(t, st.advance(StageFailed))

	assert.True(t, st.Current().Terminal())
	assert.ErrorIs(t, st.advance(StageVideoReady), ErrBackwardTransition)
	assert.ErrorIs(t, st.advance(StageFailed), ErrBackwardTransition)
}

func TestWorkflowStateVideoReadyIsTerminal(t *testing.T) {
	st := newWorkflowState(newFakeClock(), nil)
	require.NoError(t, st.advance(StageVideoReady))
	assert.ErrorIs(t, st.advance(StageFailed), ErrBackwardTransition)
}

func TestStageNames(t *testing.T) {
	assert.Equal(t, "video_tab_selected", StageVideoTabSelected.String())
	assert.Equal(t, "failed", StageFailed.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
}

func TestKindOf(t *testing.T) {
	err := stageFailure(StageVideoReady, TimeoutExceeded, "generation timed out")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, TimeoutExceeded, kind)
	assert.Equal(t, "video_ready: generation timed out", err.Error())

	_, ok = KindOf(assert.AnError)
	assert.False(t, ok)
}
