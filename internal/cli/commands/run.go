package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"flowAgent/internal/automation"
	"flowAgent/internal/cli/ui"
	"flowAgent/internal/messaging"
)

type Executor interface {
	Execute(ctx context.Context, msg messaging.InboundMessage) (string, automation.PipelineResult)
}

// RunHandler запускает конвейер из консоли и ждет результата.
type RunHandler struct {
	exec     Executor
	out      io.Writer
	readFile func(string) ([]byte, error)
}

func NewRunHandler(exec Executor, out io.Writer) *RunHandler {
	return &RunHandler{exec: exec, out: out, readFile: os.ReadFile}
}

// Run: run <персонаж> <товар> <название> [пол] [эмоция].
// Значения с пробелами берутся в двойные кавычки.
func (h *RunHandler) Run(ctx context.Context, args string) {
	fields := SplitArgs(args)
	if len(fields) < 3 {
		fmt.Fprintln(h.out, ui.ColorRed+ui.IconCross+" Использование: run <персонаж> <товар> <название> [пол] [эмоция]"+ui.ColorReset)
		return
	}

	character, err := h.dataURI(fields[0])
	if err != nil {
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Картинка персонажа:"+ui.ColorReset+" %v\n", err)
		return
	}
	product, err := h.dataURI(fields[1])
	if err != nil {
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Картинка товара:"+ui.ColorReset+" %v\n", err)
		return
	}

	payload := &messaging.PipelinePayload{
		CharacterImage: character,
		ProductImage:   product,
		ProductName:    fields[2],
	}
	if len(fields) > 3 {
		payload.Gender = fields[3]
	}
	if len(fields) > 4 {
		payload.Emotion = strings.Join(fields[4:], " ")
	}

	fmt.Fprintln(h.out, ui.ColorCyan+ui.IconPlay+" Конвейер запущен, это займет несколько минут..."+ui.ColorReset)
	runID, res := h.exec.Execute(ctx, messaging.InboundMessage{Type: messaging.TypeTwoStagePipeline, Payload: payload})
	if !res.Success {
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Запуск %s:"+ui.ColorReset+" %s\n", runID, res.Error)
		return
	}
	fmt.Fprintf(h.out, ui.ColorGreen+ui.IconCheckmark+" Запуск %s завершен"+ui.ColorReset+"\n", runID)
	fmt.Fprintf(h.out, "  "+ui.ColorGray+"Картинка:"+ui.ColorReset+" %s\n", res.GeneratedImageURL)
	fmt.Fprintf(h.out, "  "+ui.ColorGray+"Видео:"+ui.ColorReset+" %s\n", res.VideoURL)
}

func (h *RunHandler) dataURI(path string) (string, error) {
	raw, err := h.readFile(path)
	if err != nil {
		return "", err
	}
	mime := mimetype.Detect(raw).String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// SplitArgs делит строку по пробелам, сохраняя "значения в кавычках" целиком.
func SplitArgs(s string) []string {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
		has    bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			has = true
		case (r == ' ' || r == '\t') && !quoted:
			if has {
				out = append(out, cur.String())
				cur.Reset()
				has = false
			}
		default:
			cur.WriteRune(r)
			has = true
		}
	}
	if has {
		out = append(out, cur.String())
	}
	return out
}
