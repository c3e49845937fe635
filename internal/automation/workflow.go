package automation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"flowAgent/internal/dom"
	"flowAgent/internal/selectors"
)

// PipelineRequest - вход двухэтапного конвейера: две картинки (base64 или
// data URI) и два готовых промпта.
type PipelineRequest struct {
	CharacterImage string `json:"characterImage"`
	ProductImage   string `json:"productImage"`
	ImagePrompt    string `json:"imagePrompt"`
	VideoPrompt    string `json:"videoPrompt"`
}

// PipelineResult: при Success заполнен VideoURL, иначе Error и Kind
// (имя ErrorKind отказа).
type PipelineResult struct {
	Success           bool   `json:"success"`
	GeneratedImageURL string `json:"generatedImageUrl,omitempty"`
	VideoURL          string `json:"videoUrl,omitempty"`
	Error             string `json:"error,omitempty"`
	Kind              string `json:"kind,omitempty"`
}

// validate отсекает запросы, с которыми автоматизацию нет смысла начинать.
func (r PipelineRequest) validate() error {
	switch {
	case strings.TrimSpace(r.CharacterImage) == "":
		return stageFailure(StageNotStarted, InvalidRequest, "character image is empty")
	case strings.TrimSpace(r.ProductImage) == "":
		return stageFailure(StageNotStarted, InvalidRequest, "product image is empty")
	case strings.TrimSpace(r.ImagePrompt) == "":
		return stageFailure(StageNotStarted, InvalidRequest, "image prompt is empty")
	case strings.TrimSpace(r.VideoPrompt) == "":
		return stageFailure(StageNotStarted, InvalidRequest, "video prompt is empty")
	}
	return nil
}

// Workflow ведет один документ студии от дашборда до готового видео.
// Один Workflow - одна вкладка; параллельные Run на нем не поддерживаются.
type Workflow struct {
	doc        dom.Document
	provider   *selectors.Provider
	locator    *Locator
	uploader   *Uploader
	poller     *Poller
	clock      Clock
	tun        Tunables
	log        *zap.Logger
	newProject []NewProjectStrategy
	wrap       func([]NewProjectStrategy) []NewProjectStrategy
}

type Option func(*Workflow)

func WithClock(c Clock) Option {
	return func(w *Workflow) {
		if c != nil {
			w.clock = c
		}
	}
}

func WithTunables(t Tunables) Option {
	return func(w *Workflow) {
		w.tun = t
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(w *Workflow) {
		if log != nil {
			w.log = log
		}
	}
}

// WithNewProjectStrategies подменяет цепочку открытия проекта. Получает
// стратегии по умолчанию и возвращает новую цепочку.
func WithNewProjectStrategies(wrap func(defaults []NewProjectStrategy) []NewProjectStrategy) Option {
	return func(w *Workflow) {
		w.wrap = wrap
	}
}

func New(doc dom.Document, provider *selectors.Provider, opts ...Option) *Workflow {
	w := &Workflow{
		doc:      doc,
		provider: provider,
		clock:    RealClock(),
		tun:      DefaultTunables(),
		log:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(w)
	}
	w.tun = w.tun.withDefaults()
	w.locator = NewLocator(doc, w.log)
	w.uploader = NewUploader(doc, w.locator, w.clock, w.tun, w.log)
	w.poller = NewPoller(doc, w.clock, w.tun, w.log)

	w.newProject = w.DefaultNewProjectStrategies()
	if w.wrap != nil {
		w.newProject = w.wrap(w.newProject)
	}
	return w
}

func (w *Workflow) describe() []dom.Described {
	return dom.Snapshot(w.doc, w.log)
}

// InWorkspace проверяет, открыта ли рабочая область проекта. Ничего не кликает.
func (w *Workflow) InWorkspace(sel selectors.Config) bool {
	text, err := w.doc.BodyText()
	if err != nil {
		w.log.Debug("Не удалось прочитать текст страницы", zap.Error(err))
		return false
	}
	if containsAny(text, sel.Dashboard.WorkspaceIndicators) {
		return true
	}
	if !containsAny(text, sel.Workspace.ImageTabTriggers) {
		return false
	}
	return len(dom.ByTag(w.describe(), "textarea")) > 0
}

// FillPrompt пишет текст в первую textarea страницы.
func (w *Workflow) FillPrompt(prompt string) bool {
	for _, d := range dom.ByTag(w.describe(), "textarea") {
		if err := d.Element.SetValue(prompt); err != nil {
			w.log.Debug("Textarea не приняла текст", zap.Error(err))
			continue
		}
		if err := d.Element.Focus(); err != nil {
			w.log.Debug("focus() не сработал", zap.Error(err))
		}
		return true
	}
	return false
}

// ClickGenerate ищет кнопку отправки с конца документа: маленькая кнопка
// с одной svg-иконкой внутри.
func (w *Workflow) ClickGenerate() bool {
	buttons := dom.ByTag(w.describe(), "button")
	for i := len(buttons) - 1; i >= 0; i-- {
		b := buttons[i]
		r := b.Info.Rect
		if r.Area() == 0 || r.Width >= IconButtonMaxWidth {
			continue
		}
		html, err := b.Element.InnerHTML()
		if err != nil || !strings.Contains(strings.ToLower(html), "<svg") {
			continue
		}
		SimulateClick(b.Element, w.log)
		return true
	}
	return false
}

// SelectResult кликает первую крупную картинку и ее родителя, возвращает src.
func (w *Workflow) SelectResult() (string, bool) {
	for _, d := range dom.ByTag(w.describe(), "img") {
		r := d.Info.Rect
		if r.Width <= ResultImageMinSize || r.Height <= ResultImageMinSize {
			continue
		}
		src, _ := d.Element.Attribute("src")
		SimulateClick(d.Element, w.log)
		if parent, err := d.Element.Parent(); err == nil && parent != nil {
			SimulateClick(parent, w.log)
		}
		return src, true
	}
	return "", false
}

// Run проводит запрос через все стадии. Любой отказ обязательного шага
// переводит запуск в Failed; частичных результатов нет.
func (w *Workflow) Run(ctx context.Context, req PipelineRequest, observer StageObserver) PipelineResult {
	state := newWorkflowState(w.clock, observer)
	sel := w.provider.Selectors()
	defer dom.Release(w.doc, w.log)

	imageURL, videoURL, err := w.run(ctx, state, req, sel)
	if err != nil {
		failedAt := state.Current()
		if aerr := state.advance(StageFailed); aerr != nil {
			w.log.Debug("Переход в failed отклонен", zap.Stringer("stage", failedAt), zap.Error(aerr))
		}
		res := PipelineResult{Success: false, Error: err.Error()}
		if kind, ok := KindOf(err); ok {
			res.Kind = kind.String()
		}
		w.log.Error("Конвейер остановлен", zap.Stringer("stage", failedAt), zap.String("kind", res.Kind), zap.Error(err))
		return res
	}

	w.log.Info("Видео готово", zap.String("video_url", videoURL))
	return PipelineResult{Success: true, GeneratedImageURL: imageURL, VideoURL: videoURL}
}

func (w *Workflow) run(ctx context.Context, st *WorkflowState, req PipelineRequest, sel selectors.Config) (string, string, error) {
	if err := req.validate(); err != nil {
		return "", "", err
	}
	if w.InWorkspace(sel) {
		if err := w.enter(ctx, st, StageInWorkspace); err != nil {
			return "", "", err
		}
	} else {
		ok, attempts := w.clickNewProject(ctx, sel)
		st.retry(attempts)
		if !ok {
			return "", "", w.failure(ctx, StageNewProjectClicked, LocatorMiss, "new project button not found")
		}
		if err := w.enter(ctx, st, StageNewProjectClicked); err != nil {
			return "", "", err
		}
	}

	if !w.locator.LocateByText(sel.Workspace.ImageTabTriggers) {
		return "", "", w.failure(ctx, StageImageTabSelected, LocatorMiss, "image tab not found")
	}
	if err := w.enter(ctx, st, StageImageTabSelected); err != nil {
		return "", "", err
	}

	slots := []struct {
		slot int
		data string
		name string
	}{
		{1, req.CharacterImage, "character"},
		{2, req.ProductImage, "product"},
	}
	for _, s := range slots {
		ok, retries := w.uploader.upload(ctx, s.data, s.slot, sel)
		st.retry(retries)
		if !ok {
			return "", "", w.failure(ctx, StageImagesUploaded, UploadInjectionFailure, s.name+" image upload failed")
		}
		if err := w.clock.Sleep(ctx, w.tun.StepDelay); err != nil {
			return "", "", canceled(StageImagesUploaded, err)
		}
	}
	if err := st.advance(StageImagesUploaded); err != nil {
		return "", "", err
	}

	if err := w.submitPrompt(ctx, st, req.ImagePrompt, StageImageGenerating); err != nil {
		return "", "", err
	}
	if !w.poller.WaitForImage(ctx, sel) {
		return "", "", w.failure(ctx, StageImageGenerated, TimeoutExceeded, "image generation timed out")
	}
	if err := w.enter(ctx, st, StageImageGenerated); err != nil {
		return "", "", err
	}

	imageURL, ok := w.SelectResult()
	if !ok {
		return "", "", w.failure(ctx, StageResultSelected, LocatorMiss, "generated image not found")
	}
	if err := w.clock.Sleep(ctx, w.tun.StepDelay); err != nil {
		return "", "", canceled(StageResultSelected, err)
	}
	if !w.locator.LocateByText(sel.Generation.AddToPromptTriggers) {
		return imageURL, "", w.failure(ctx, StageResultSelected, LocatorMiss, "add to prompt button not found")
	}
	if err := w.enter(ctx, st, StageResultSelected); err != nil {
		return imageURL, "", err
	}

	if !w.locator.LocateByText(sel.Generation.VideoTabTriggers) {
		return imageURL, "", w.failure(ctx, StageVideoTabSelected, LocatorMiss, "video tab not found")
	}
	if err := w.enter(ctx, st, StageVideoTabSelected); err != nil {
		return imageURL, "", err
	}

	if err := w.submitPrompt(ctx, st, req.VideoPrompt, StageVideoGenerating); err != nil {
		return imageURL, "", err
	}
	videoURL, ok := w.poller.WaitForVideo(ctx)
	if !ok {
		return imageURL, "", w.failure(ctx, StageVideoReady, TimeoutExceeded, "generation timed out")
	}
	if err := st.advance(StageVideoReady); err != nil {
		return imageURL, "", err
	}
	return imageURL, videoURL, nil
}

// submitPrompt: ввод промпта, пауза, кнопка отправки.
// Для картинки проходит PromptFilled, для видео сразу переходит в generating.
func (w *Workflow) submitPrompt(ctx context.Context, st *WorkflowState, prompt string, generating Stage) error {
	if !w.FillPrompt(prompt) {
		return w.failure(ctx, generating, LocatorMiss, "prompt textarea not found")
	}
	if generating == StageImageGenerating {
		if err := st.advance(StagePromptFilled); err != nil {
			return err
		}
	}
	if err := w.clock.Sleep(ctx, PromptSettleDelay); err != nil {
		return canceled(generating, err)
	}
	if !w.ClickGenerate() {
		return w.failure(ctx, generating, LocatorMiss, "generate button not found")
	}
	return w.enter(ctx, st, generating)
}

// enter фиксирует стадию и дает странице перерисоваться.
func (w *Workflow) enter(ctx context.Context, st *WorkflowState, to Stage) error {
	if err := st.advance(to); err != nil {
		return err
	}
	if err := w.clock.Sleep(ctx, w.tun.StepDelay); err != nil {
		return canceled(to, err)
	}
	return nil
}

// failure превращает отказ шага в отмену, если шаг сорвался из-за ctx.
func (w *Workflow) failure(ctx context.Context, stage Stage, kind ErrorKind, msg string) error {
	if err := ctx.Err(); err != nil {
		return canceled(stage, err)
	}
	return stageFailure(stage, kind, msg)
}

func canceled(stage Stage, err error) error {
	return &StageError{Stage: stage, Kind: Canceled, Message: "canceled", Err: err}
}
