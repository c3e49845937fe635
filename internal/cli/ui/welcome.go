package ui

import (
	"fmt"
	"io"
	"os"
)

// PrintWelcome выводит приветствие и лого
func PrintWelcome(w io.Writer) {
	logoBytes, err := os.ReadFile("logo.txt")
	if err == nil {
		fmt.Fprintln(w, ColorCyan+string(logoBytes)+ColorReset)
	}
	fmt.Fprintln(w, ColorBold+IconRobot+" Flow Agent v0.2.0"+ColorReset)
	fmt.Fprintln(w, ColorGray+"Автоматизация видеостудии: картинка персонажа с товаром, затем видео"+ColorReset)
	fmt.Fprintln(w)
	PrintHelp(w)
	fmt.Fprintln(w, ColorCyan+IconBulb+" Совет:"+ColorReset+" Выполните "+ColorYellow+"open"+ColorReset+", войдите в аккаунт студии, затем "+ColorYellow+"run"+ColorReset)
	fmt.Fprintln(w)
	fmt.Fprintln(w, ColorGray+"⬆️ ⬇️"+ColorReset+" Используйте стрелки для навигации по истории команд")
	fmt.Fprintln(w)
}

// PrintHelp выводит список доступных команд
func PrintHelp(w io.Writer) {
	fmt.Fprintln(w, ColorYellow+IconList+" Доступные команды:"+ColorReset)
	fmt.Fprintln(w, "  "+ColorGreen+"open"+ColorReset+" [url]                         - Открыть студию в браузере")
	fmt.Fprintln(w, "  "+ColorGreen+"check"+ColorReset+"                              - Открыта ли рабочая область проекта")
	fmt.Fprintln(w, "  "+ColorGreen+"run"+ColorReset+" <перс.> <товар> <имя> [пол] [эмоция] - Запустить конвейер")
	fmt.Fprintln(w, "  "+ColorGreen+"runs"+ColorReset+"                               - Последние запуски")
	fmt.Fprintln(w, "  "+ColorGreen+"show"+ColorReset+" <id>                          - Детали запуска")
	fmt.Fprintln(w, "  "+ColorGreen+"selectors"+ColorReset+"                          - Активная таблица селекторов")
	fmt.Fprintln(w, "  "+ColorGreen+"clear"+ColorReset+"                              - Очистить экран")
	fmt.Fprintln(w, "  "+ColorGreen+"exit"+ColorReset+"                               - Выход")
	fmt.Fprintln(w)
}
