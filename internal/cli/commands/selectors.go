package commands

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"flowAgent/internal/cli/ui"
	"flowAgent/internal/selectors"
)

// SelectorsHandler печатает активную таблицу в том же YAML, что принимает SELECTORS_FILE.
type SelectorsHandler struct {
	provider *selectors.Provider
	out      io.Writer
}

func NewSelectorsHandler(provider *selectors.Provider, out io.Writer) *SelectorsHandler {
	return &SelectorsHandler{provider: provider, out: out}
}

func (h *SelectorsHandler) Show() {
	data, err := yaml.Marshal(h.provider.Selectors())
	if err != nil {
		fmt.Fprintf(h.out, ui.ColorRed+ui.IconCross+" Ошибка сериализации:"+ui.ColorReset+" %v\n", err)
		return
	}
	fmt.Fprintf(h.out, ui.ColorCyan+ui.IconCog+" Источник:"+ui.ColorReset+" %s\n", h.provider.Source())
	fmt.Fprintln(h.out, string(data))
}
