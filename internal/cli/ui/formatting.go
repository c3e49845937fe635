package ui

import (
	"fmt"
	"io"
)

// FormatStatus возвращает иконку, цвет и текст для статуса запуска
func FormatStatus(status string) (icon, color, text string) {
	switch status {
	case "completed":
		return IconCheckmark, ColorGreen, "завершен"
	case "failed":
		return IconCross, ColorRed, "ошибка"
	case "running":
		return IconPlay, ColorCyan, "выполняется"
	case "pending":
		return IconClock, ColorYellow, "ожидает"
	default:
		return IconClock, ColorYellow, status
	}
}

// ClearScreen очищает терминал
func ClearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[H\033[2J")
}
