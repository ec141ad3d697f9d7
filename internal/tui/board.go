// Package tui provides the Bubble Tea gameplay interface.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// cellInnerWidth is the content width of a board cell. Item glyphs are
// mostly double-width emoji.
const cellInnerWidth = 4

type boardCell struct {
	content string
	style   lipgloss.Style
}

// renderBoard lays cells out as a cols-wide grid of bordered boxes.
func renderBoard(cells []boardCell, cols int) string {
	if len(cells) == 0 || cols <= 0 {
		return ""
	}
	var rows []string
	for start := 0; start < len(cells); start += cols {
		end := start + cols
		if end > len(cells) {
			end = len(cells)
		}
		rendered := make([]string, 0, end-start)
		for _, cell := range cells[start:end] {
			rendered = append(rendered, cell.style.Render(padGlyph(cell.content)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// padGlyph centers a glyph within the cell content width, accounting for
// wide runes.
func padGlyph(s string) string {
	width := runewidth.StringWidth(s)
	if width >= cellInnerWidth {
		return s
	}
	left := (cellInnerWidth - width) / 2
	right := cellInnerWidth - width - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
