package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"flowAgent/internal/browser"
	"flowAgent/internal/cli/commands"
	"flowAgent/internal/cli/ui"
	"flowAgent/internal/logger"
	"flowAgent/internal/selectors"
)

// Deps - все, что нужно консоли. Runs может быть nil без БД.
type Deps struct {
	Browser   browser.Browser
	Provider  *selectors.Provider
	Executor  commands.Executor
	Runs      commands.RunReader
	StudioURL string
}

type CLI struct {
	log              *logger.Zap
	rl               *readline.Instance
	stdin            *bufio.Reader
	out              io.Writer
	browserHandler   *commands.BrowserHandler
	runHandler       *commands.RunHandler
	showHandler      *commands.ShowHandler
	selectorsHandler *commands.SelectorsHandler
}

func New(log *logger.Zap, deps Deps) *CLI {
	out := io.Writer(os.Stdout)
	cli := &CLI{
		log: log,
		out: out,
	}

	// Инициализация handlers
	cli.browserHandler = commands.NewBrowserHandler(deps.Browser, deps.Provider, deps.StudioURL, out)
	cli.runHandler = commands.NewRunHandler(deps.Executor, out)
	cli.showHandler = commands.NewShowHandler(deps.Runs, log.Logger, out)
	cli.selectorsHandler = commands.NewSelectorsHandler(deps.Provider, out)

	// Инициализация readline
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     ".flow-agent-history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("open"),
			readline.PcItem("run"),
			readline.PcItem("runs"),
			readline.PcItem("show"),
			readline.PcItem("selectors"),
			readline.PcItem("check"),
			readline.PcItem("clear"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		log.Warn("Не удалось инициализировать readline, будет использован fallback режим")
		cli.stdin = bufio.NewReader(os.Stdin)
	} else {
		cli.rl = rl
	}

	return cli
}

func (c *CLI) readLine() (string, error) {
	if c.rl != nil {
		return c.rl.Readline()
	}
	// Fallback для работы без readline
	fmt.Fprint(c.out, ui.ColorCyan+"> "+ui.ColorReset)
	line, err := c.stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *CLI) closeReadline() {
	if c.rl != nil {
		c.rl.Close()
	}
}

// Run читает команды, пока не придет exit, EOF или отмена ctx.
func (c *CLI) Run(ctx context.Context) {
	ui.PrintWelcome(c.out)
	defer c.closeReadline()

	for {
		// Проверка отмены контекста
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out, "\n"+ui.ColorCyan+ui.IconWave+" Получен сигнал завершения..."+ui.ColorReset)
			return
		default:
		}

		line, err := c.readLine()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return
			}
			continue
		} else if errors.Is(err, io.EOF) {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !c.handleCommand(ctx, line) {
			return
		}
	}
}

// handleCommand возвращает false на exit.
func (c *CLI) handleCommand(ctx context.Context, line string) bool {
	cmd, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "exit":
		fmt.Fprintln(c.out, ui.ColorCyan+ui.IconWave+" До свидания!"+ui.ColorReset)
		return false

	case "clear":
		ui.ClearScreen(c.out)

	case "open":
		c.browserHandler.Open(ctx, args)

	case "check":
		c.browserHandler.Check()

	case "run":
		c.runHandler.Run(ctx, args)

	case "runs":
		c.showHandler.List(ctx)

	case "show":
		if args == "" {
			ui.PrintHelp(c.out)
			return true
		}
		c.showHandler.Show(ctx, args)

	case "selectors":
		c.selectorsHandler.Show()

	default:
		ui.PrintHelp(c.out)
	}
	return true
}
