package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"flowAgent/internal/automation"
	"flowAgent/internal/browser"
	"flowAgent/internal/cli/commands"
	"flowAgent/internal/config"
	"flowAgent/internal/database"
	"flowAgent/internal/llm"
	"flowAgent/internal/logger"
	"flowAgent/internal/messaging"
	"flowAgent/internal/metrics"
	"flowAgent/internal/migrations"
	"flowAgent/internal/pipeline"
	"flowAgent/internal/prompt"
	"flowAgent/internal/selectors"
	"flowAgent/internal/server"
)

type app struct {
	cfg      *config.Cfg
	log      *logger.Zap
	db       *database.Database
	repo     *database.RunRepository
	browser  *browser.PlaywrightBrowser
	provider *selectors.Provider
	hub      *messaging.Hub
	nats     *messaging.NATSSink
	pipeline *pipeline.Service
}

func newApp(ctx context.Context, cfg *config.Cfg, log *logger.Zap) (*app, error) {
	a := &app{cfg: cfg, log: log}

	if cfg.Database.Enabled() {
		if err := migrations.Run(cfg, log); err != nil {
			return nil, fmt.Errorf("миграции: %w", err)
		}
		db, err := database.New(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.repo = database.NewRunRepository(db.DB)
	} else {
		log.Warn("БД не настроена, история запусков не сохраняется")
	}

	a.provider = selectors.NewProvider(log.Logger)
	if err := a.provider.LoadFile(cfg.Selectors.File); err != nil {
		log.Warn("Локальный файл селекторов не применен", zap.Error(err))
	}
	a.provider.Init(ctx, cfg.Selectors.RemoteURL)

	a.browser = browser.New(browser.Config{
		Engine:          cfg.Browser.Engine,
		Headless:        cfg.Browser.Headless,
		UserDataDir:     cfg.Browser.UserDataDir,
		BrowsersPath:    cfg.Browser.BrowsersPath,
		Display:         cfg.Browser.Display,
		Timeout:         cfg.Browser.Timeout,
		NavigateTimeout: cfg.Browser.NavigateTimeout,
	}, log.Logger)

	a.hub = messaging.NewHub(log.Logger)
	relay := messaging.NewRelay(log.Logger, a.hub)
	if cfg.NATS.URL != "" {
		sink, err := messaging.NewNATSSink(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			log.Warn("NATS недоступен, события уходят только в websocket", zap.Error(err))
		} else {
			a.nats = sink
			relay.Add(sink)
		}
	}

	builder := prompt.NewBuilder(log.Logger, refinerOption(ctx, cfg, log)...)

	opts := []pipeline.Option{
		pipeline.WithLogger(log.Logger),
		pipeline.WithPublisher(relay),
		pipeline.WithMetrics(metrics.MustNewMetrics(prometheus.DefaultRegisterer)),
		pipeline.WithWorkflowOptions(automation.WithTunables(tunables(cfg.Automation))),
	}
	if a.repo != nil {
		opts = append(opts, pipeline.WithStore(a.repo))
	}
	a.pipeline = pipeline.New(a.browser, a.provider, builder, opts...)
	return a, nil
}

// refinerOption выбирает модель для уточнения промптов: OpenAI, затем Gemini.
func refinerOption(ctx context.Context, cfg *config.Cfg, log *logger.Zap) []prompt.Option {
	var refiner prompt.Refiner
	switch {
	case cfg.OpenAI.KeyAI != "":
		refiner = llm.NewOpenAIClient(
			cfg.OpenAI.KeyAI, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.RequestsPerMinute, log.Logger,
		)
	case cfg.Gemini.APIKey != "":
		client, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, log.Logger)
		if err != nil {
			log.Warn("Gemini недоступен, промпты берутся из шаблонов", zap.Error(err))
			return nil
		}
		refiner = client
	default:
		return nil
	}
	return []prompt.Option{prompt.WithRefiner(llm.NewBreaker(refiner, 3, time.Minute, log.Logger))}
}

func tunables(c config.Automation) automation.Tunables {
	t := automation.DefaultTunables()
	t.ImageTimeout = c.ImageTimeout
	t.VideoTimeout = c.VideoTimeout
	t.ImagePollInterval = c.ImagePollInterval
	t.VideoPollInterval = c.VideoPollInterval
	t.StepDelay = c.StepDelay
	t.VerifyFallbackClick = c.VerifyFallback
	return t
}

// openStudio запускает браузер и открывает студию. Ошибка не фатальна:
// запуски будут падать с "browser page unavailable", пока вкладки нет.
func (a *app) openStudio(ctx context.Context) {
	if err := a.browser.Launch(ctx); err != nil {
		a.log.Warn("Браузер не запущен", zap.Error(err))
		return
	}
	if err := a.browser.Navigate(ctx, a.cfg.Browser.StudioURL); err != nil {
		a.log.Warn("Студия не открылась", zap.String("url", a.cfg.Browser.StudioURL), zap.Error(err))
	}
}

// runReader и consoleRuns не дают nil *RunRepository превратиться
// в ненулевой интерфейс.
func (a *app) runReader() server.RunReader {
	if a.repo == nil {
		return nil
	}
	return a.repo
}

func (a *app) consoleRuns() commands.RunReader {
	if a.repo == nil {
		return nil
	}
	return a.repo
}

func (a *app) Close() {
	if a.hub != nil {
		a.hub.Close()
	}
	if a.nats != nil {
		if err := a.nats.Close(); err != nil {
			a.log.Warn("Ошибка закрытия NATS", zap.Error(err))
		}
	}
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.log.Warn("Ошибка закрытия браузера", zap.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close(a.log)
	}
}
