package automation

import (
	"fmt"
	"time"
)

type Stage int

const (
	StageNotStarted Stage = iota
	StageInWorkspace
	StageNewProjectClicked
	StageImageTabSelected
	StageImagesUploaded
	StagePromptFilled
	StageImageGenerating
	StageImageGenerated
	StageResultSelected
	StageVideoTabSelected
	StageVideoGenerating
	StageVideoReady
	StageFailed
)

var stageNames = [...]string{
	StageNotStarted:        "not_started",
	StageInWorkspace:       "in_workspace",
	StageNewProjectClicked: "new_project_clicked",
	StageImageTabSelected:  "image_tab_selected",
	StageImagesUploaded:    "images_uploaded",
	StagePromptFilled:      "prompt_filled",
	StageImageGenerating:   "image_generating",
	StageImageGenerated:    "image_generated",
	StageResultSelected:    "result_selected",
	StageVideoTabSelected:  "video_tab_selected",
	StageVideoGenerating:   "video_generating",
	StageVideoReady:        "video_ready",
	StageFailed:            "failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Terminal - VideoReady или Failed.
func (s Stage) Terminal() bool {
	return s == StageVideoReady || s == StageFailed
}

// Transition - одна смена стадии.
type Transition struct {
	From    Stage
	To      Stage
	At      time.Time
	Elapsed time.Duration // сколько провели в From
	Retries int           // повторные попытки внутри From
}

// StageObserver получает каждую смену стадии. Вызывается синхронно.
type StageObserver func(Transition)

// WorkflowState принадлежит одному запуску и умирает вместе с ним.
// Стадии только растут; из любой нетерминальной можно уйти в Failed.
type WorkflowState struct {
	clock     Clock
	current   Stage
	enteredAt time.Time
	retries   map[Stage]int
	history   []Transition
	observer  StageObserver
}

func newWorkflowState(clock Clock, observer StageObserver) *WorkflowState {
	return &WorkflowState{
		clock:     clock,
		current:   StageNotStarted,
		enteredAt: clock.Now(),
		retries:   make(map[Stage]int),
		observer:  observer,
	}
}

func (s *WorkflowState) Current() Stage { return s.current }

func (s *WorkflowState) History() []Transition {
	return append([]Transition(nil), s.history...)
}

// retry отмечает дополнительную попытку внутри текущей стадии.
func (s *WorkflowState) retry(n int) {
	if n > 0 {
		s.retries[s.current] += n
	}
}

func (s *WorkflowState) advance(to Stage) error {
	if s.current.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrBackwardTransition, s.current, to)
	}
	if to != StageFailed && to <= s.current {
		return fmt.Errorf("%w: %s -> %s", ErrBackwardTransition, s.current, to)
	}

	now := s.clock.Now()
	tr := Transition{
		From:    s.current,
		To:      to,
		At:      now,
		Elapsed: now.Sub(s.enteredAt),
		Retries: s.retries[s.current],
	}
	s.current = to
	s.enteredAt = now
	s.history = append(s.history, tr)

	if s.observer != nil {
		s.observer(tr)
	}
	return nil
}
