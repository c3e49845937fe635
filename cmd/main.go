package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flowAgent/internal/cli"
	"flowAgent/internal/config"
	"flowAgent/internal/logger"
	"flowAgent/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flow-agent",
		Short:         "Автоматизация видеостудии: картинка персонажа с товаром, затем видео",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newConsoleCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var noBrowser bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "HTTP API, websocket и метрики",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if !noBrowser {
					a.openStudio(ctx)
				}
				srv := server.New(a.cfg, a.log, server.Deps{
					Runner:   a.pipeline,
					Runs:     a.runReader(),
					Provider: a.provider,
					Hub:      a.hub,
				})
				err := srv.Run(ctx)
				a.pipeline.Wait()
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "не открывать студию при старте")
	return cmd
}

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Интерактивная консоль",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				console := cli.New(a.log, cli.Deps{
					Browser:   a.browser,
					Provider:  a.provider,
					Executor:  a.pipeline,
					Runs:      a.consoleRuns(),
					StudioURL: a.cfg.Browser.StudioURL,
				})
				console.Run(ctx)
				return nil
			})
		},
	}
}

// withApp поднимает окружение, выполняет fn и освобождает ресурсы.
func withApp(parent context.Context, fn func(ctx context.Context, a *app) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger.Env, cfg.Logger.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Ошибка инициализации", zap.Error(err))
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
