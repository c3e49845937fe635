// Package pipeline связывает входящее сообщение TWO_STAGE_PIPELINE с workflow:
// проверка картинок, сборка промптов, запуск, история и исходящие сообщения.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flowAgent/internal/automation"
	"flowAgent/internal/database"
	"flowAgent/internal/dom"
	"flowAgent/internal/messaging"
	"flowAgent/internal/metrics"
	"flowAgent/internal/prompt"
	"flowAgent/internal/sanitizer"
	"flowAgent/internal/selectors"
)

// ErrBusy - страница уже занята другим запуском.
var ErrBusy = errors.New("busy")

// DocumentSource отдает документ текущей вкладки студии.
type DocumentSource interface {
	Document() (dom.Document, error)
}

// RunStore - история запусков. Ошибки хранилища не прерывают автоматизацию.
type RunStore interface {
	CreateRun(ctx context.Context, run *database.PipelineRun) error
	UpdateRunStage(ctx context.Context, id, stage string) error
	CompleteRun(ctx context.Context, id, videoURL, imageURL string) error
	FailRun(ctx context.Context, id, errMsg string) error
	AddStageEvent(ctx context.Context, ev *database.StageEvent) error
}

type Publisher interface {
	Send(ctx context.Context, msg messaging.OutboundMessage)
}

type Service struct {
	docs     DocumentSource
	provider *selectors.Provider
	prompts  *prompt.Builder
	store    RunStore
	relay    Publisher
	metrics  *metrics.Metrics
	san      *sanitizer.DataSanitizer
	log      *zap.Logger
	wfOpts   []automation.Option

	busy atomic.Bool
	wg   sync.WaitGroup
}

type Option func(*Service)

func WithStore(store RunStore) Option {
	return func(s *Service) { s.store = store }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.relay = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithWorkflowOptions передается в каждый automation.New.
func WithWorkflowOptions(opts ...automation.Option) Option {
	return func(s *Service) { s.wfOpts = append(s.wfOpts, opts...) }
}

func New(docs DocumentSource, provider *selectors.Provider, prompts *prompt.Builder, opts ...Option) *Service {
	s := &Service{
		docs:     docs,
		provider: provider,
		prompts:  prompts,
		san:      sanitizer.New(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prompts == nil {
		s.prompts = prompt.NewBuilder(s.log)
	}
	return s
}

// Busy - идет ли сейчас запуск.
func (s *Service) Busy() bool { return s.busy.Load() }

// Wait дожидается фоновых запусков, начатых через Start.
func (s *Service) Wait() { s.wg.Wait() }

// Start проверяет сообщение и запускает конвейер в фоне. Результат уходит
// через Publisher. ctx должен жить дольше HTTP-запроса.
func (s *Service) Start(ctx context.Context, msg messaging.InboundMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	runID := uuid.NewString()
	if !s.busy.CompareAndSwap(false, true) {
		s.publish(ctx, messaging.Failure(runID, ErrBusy.Error()))
		return runID, ErrBusy
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.execute(ctx, runID, *msg.Payload)
	}()
	return runID, nil
}

// Execute - синхронный вариант Start для консоли и тестов.
func (s *Service) Execute(ctx context.Context, msg messaging.InboundMessage) (string, automation.PipelineResult) {
	runID := uuid.NewString()
	if err := msg.Validate(); err != nil {
		res := automation.PipelineResult{Error: err.Error()}
		s.publish(ctx, messaging.Failure(runID, res.Error))
		return runID, res
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.publish(ctx, messaging.Failure(runID, ErrBusy.Error()))
		return runID, automation.PipelineResult{Error: ErrBusy.Error()}
	}
	defer s.busy.Store(false)
	return runID, s.execute(ctx, runID, *msg.Payload)
}

func (s *Service) execute(ctx context.Context, runID string, payload messaging.PipelinePayload) automation.PipelineResult {
	log := s.log.With(zap.String("run_id", runID))
	done := s.metrics.RunStarted()
	started := time.Now()

	created := false
	fail := func(stage, msg string) automation.PipelineResult {
		done("failed", stage)
		s.failRun(ctx, log, runID, msg, created)
		s.publish(ctx, messaging.Failure(runID, msg))
		return automation.PipelineResult{Error: msg}
	}

	if err := ValidateImage(payload.CharacterImage); err != nil {
		return fail("not_started", "invalid character image: "+err.Error())
	}
	if err := ValidateImage(payload.ProductImage); err != nil {
		return fail("not_started", "invalid product image: "+err.Error())
	}

	prompts, err := s.prompts.Build(ctx, payload.Params())
	if err != nil {
		return fail("not_started", err.Error())
	}

	created = s.createRun(ctx, log, &database.PipelineRun{
		ID:          runID,
		ProductName: payload.ProductName,
		Status:      database.StatusRunning,
		ImagePrompt: prompts.Image,
		VideoPrompt: prompts.Video,
	})
	log.Info("Запуск конвейера",
		zap.String("product", payload.ProductName),
		zap.String("image_prompt", s.san.SanitizePrompt(prompts.Image)),
	)

	doc, err := s.docs.Document()
	if err != nil {
		return fail("not_started", fmt.Sprintf("browser page unavailable: %v", err))
	}

	lastStage := automation.StageNotStarted
	observer := func(tr automation.Transition) {
		lastStage = tr.From
		s.metrics.ObserveStage(tr.From.String(), tr.Elapsed, tr.Retries)
		s.recordStage(ctx, log, runID, tr)
		if tr.To != automation.StageFailed {
			s.publish(ctx, messaging.Progress(runID, tr.To.String(), tr.Elapsed.Milliseconds()))
		}
	}

	opts := append([]automation.Option{automation.WithLogger(log)}, s.wfOpts...)
	wf := automation.New(doc, s.provider, opts...)
	res := wf.Run(ctx, automation.PipelineRequest{
		CharacterImage: payload.CharacterImage,
		ProductImage:   payload.ProductImage,
		ImagePrompt:    prompts.Image,
		VideoPrompt:    prompts.Video,
	}, observer)

	if !res.Success {
		return fail(lastStage.String(), res.Error)
	}

	done("completed", automation.StageVideoReady.String())
	if s.store != nil {
		if err := s.store.CompleteRun(ctx, runID, res.VideoURL, res.GeneratedImageURL); err != nil {
			log.Warn("Не удалось сохранить результат запуска", zap.Error(err))
		}
	}
	log.Info("Конвейер завершен",
		zap.String("video_url", s.san.Sanitize(res.VideoURL)),
		zap.Duration("took", time.Since(started)),
	)
	s.publish(ctx, messaging.Complete(runID, res.VideoURL, res.GeneratedImageURL))
	return res
}

func (s *Service) publish(ctx context.Context, msg messaging.OutboundMessage) {
	if s.relay == nil {
		return
	}
	s.relay.Send(ctx, msg)
}

// storeCtx не дает отмене запуска потерять запись об отказе.
func storeCtx(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (s *Service) createRun(ctx context.Context, log *zap.Logger, run *database.PipelineRun) bool {
	if s.store == nil {
		return false
	}
	if err := s.store.CreateRun(storeCtx(ctx), run); err != nil {
		log.Warn("Не удалось сохранить запуск", zap.Error(err))
		return false
	}
	return true
}

func (s *Service) recordStage(ctx context.Context, log *zap.Logger, runID string, tr automation.Transition) {
	if s.store == nil {
		return
	}
	ctx = storeCtx(ctx)
	if !tr.To.Terminal() {
		if err := s.store.UpdateRunStage(ctx, runID, tr.To.String()); err != nil {
			log.Warn("Не удалось обновить стадию", zap.String("stage", tr.To.String()), zap.Error(err))
		}
	}
	err := s.store.AddStageEvent(ctx, &database.StageEvent{
		RunID:     runID,
		FromStage: tr.From.String(),
		Stage:     tr.To.String(),
		ElapsedMs: tr.Elapsed.Milliseconds(),
		Retries:   tr.Retries,
	})
	if err != nil {
		log.Warn("Не удалось записать смену стадии", zap.Error(err))
	}
}

func (s *Service) failRun(ctx context.Context, log *zap.Logger, runID, msg string, created bool) {
	log.Error("Конвейер завершился ошибкой", zap.String("error", s.san.Sanitize(msg)))
	if !created {
		return
	}
	if err := s.store.FailRun(storeCtx(ctx), runID, msg); err != nil {
		log.Warn("Не удалось сохранить ошибку запуска", zap.Error(err))
	}
}
