package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"flowAgent/internal/cli/ui"
	"flowAgent/internal/database"
)

const listLimit = 20

type RunReader interface {
	GetRun(ctx context.Context, id string) (*database.PipelineRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]database.PipelineRun, error)
	ListStageEvents(ctx context.Context, runID string) ([]database.StageEvent, error)
}

// ShowHandler обрабатывает команды просмотра истории
type ShowHandler struct {
	runs RunReader
	log  *zap.Logger
	out  io.Writer
}

func NewShowHandler(runs RunReader, log *zap.Logger, out io.Writer) *ShowHandler {
	return &ShowHandler{
		runs: runs,
		log:  log,
		out:  out,
	}
}

func (h *ShowHandler) available() bool {
	if h.runs == nil {
		fmt.Fprintln(h.out, ui.ColorGray+"История недоступна: БД не настроена"+ui.ColorReset)
		return false
	}
	return true
}

// List выводит последние запуски
func (h *ShowHandler) List(ctx context.Context) {
	if !h.available() {
		return
	}
	runs, err := h.runs.ListRuns(ctx, listLimit, 0)
	if err != nil {
		h.log.Error("Ошибка получения запусков", zap.Error(err))
		fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Ошибка получения запусков"+ui.ColorReset)
		return
	}
	if len(runs) == 0 {
		fmt.Fprintln(h.out, ui.ColorGray+"Запусков пока нет"+ui.ColorReset)
		return
	}

	fmt.Fprintln(h.out, ui.ColorYellow+ui.IconList+" Последние запуски:"+ui.ColorReset)
	for _, r := range runs {
		icon, color, text := ui.FormatStatus(r.Status)
		fmt.Fprintf(h.out, "  %s%s %s%s  %s  %s  %s\n",
			color, icon, text, ui.ColorReset,
			r.ID, r.ProductName,
			ui.ColorGray+r.CreatedAt.Format("2006-01-02 15:04")+ui.ColorReset,
		)
	}
	fmt.Fprintln(h.out)
}

// Show выводит детали запуска со всеми сменами стадий
func (h *ShowHandler) Show(ctx context.Context, id string) {
	if !h.available() {
		return
	}
	id = strings.TrimSpace(id)
	run, err := h.runs.GetRun(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Запуск не найден"+ui.ColorReset)
		return
	}
	if err != nil {
		h.log.Error("Ошибка получения запуска", zap.Error(err))
		fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Ошибка получения запуска"+ui.ColorReset)
		return
	}

	_, _, statusText := ui.FormatStatus(run.Status)

	fmt.Fprintf(h.out, "\n"+ui.ColorBold+"=== Запуск %s ==="+ui.ColorReset+"\n", run.ID)
	fmt.Fprintf(h.out, ui.ColorCyan+ui.IconDocument+" Товар:"+ui.ColorReset+" %s\n", run.ProductName)
	fmt.Fprintf(h.out, ui.ColorCyan+ui.IconChart+" Статус:"+ui.ColorReset+" %s (%s)\n", statusText, run.Stage)
	fmt.Fprintf(h.out, ui.ColorCyan+ui.IconTime+" Создан:"+ui.ColorReset+" %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	if run.VideoURL != "" {
		fmt.Fprintf(h.out, ui.ColorCyan+ui.IconPlay+" Видео:"+ui.ColorReset+" %s\n", run.VideoURL)
	}
	if run.Error != "" {
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %s\n", run.Error)
	}

	events, err := h.runs.ListStageEvents(ctx, run.ID)
	if err != nil {
		h.log.Error("Ошибка получения стадий", zap.Error(err))
		return
	}
	if len(events) == 0 {
		fmt.Fprintln(h.out, "\n"+ui.ColorGray+"Стадии не записаны"+ui.ColorReset)
		return
	}

	fmt.Fprintf(h.out, "\n"+ui.ColorYellow+ui.IconLoop+" Стадии (%d):"+ui.ColorReset+"\n", len(events))
	for _, ev := range events {
		fmt.Fprintf(h.out, "  %s -> %s%s%s  %dms",
			ev.FromStage, ui.ColorCyan, ev.Stage, ui.ColorReset, ev.ElapsedMs)
		if ev.Retries > 0 {
			fmt.Fprintf(h.out, "  "+ui.ColorYellow+"повторов: %d"+ui.ColorReset, ev.Retries)
		}
		fmt.Fprintln(h.out)
	}
	fmt.Fprintln(h.out)
}
