package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// Renderer draws boards and status lines for one output.
type Renderer struct {
	board   lipgloss.Style
	x       lipgloss.Style
	o       lipgloss.Style
	empty   lipgloss.Style
	win     lipgloss.Style
	header  lipgloss.Style
	footer  lipgloss.Style
	warning lipgloss.Style
}

// NewRenderer - colors are used only when out is a terminal.
func NewRenderer(out io.Writer) *Renderer {
	r := lipgloss.NewRenderer(out)

	return &Renderer{
		board:   r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6272A4")),
		x:       r.NewStyle().Foreground(lipgloss.Color("#8BE9FD")),
		o:       r.NewStyle().Foreground(lipgloss.Color("#FF79C6")),
		empty:   r.NewStyle().Foreground(lipgloss.Color("#44475A")),
		win:     r.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Bold(true),
		header:  r.NewStyle().Foreground(lipgloss.Color("#F1FA8C")).Bold(true),
		footer:  r.NewStyle().Foreground(lipgloss.Color("#6272A4")),
		warning: r.NewStyle().Foreground(lipgloss.Color("#FF5555")),
	}
}

// Board - empty cells show their index so they can be typed as moves.
func (that *Renderer) Board(board entity.Board, line []int) string {
	highlighted := make(map[int]bool, len(line))
	for _, index := range line {
		highlighted[index] = true
	}

	rows := make([]string, board.Size)
	for r := range rows {
		cells := make([]string, board.Size)
		for c := range cells {
			index := r*board.Size + c
			cells[c] = that.cell(index, board.Cell(index), highlighted[index])
		}
		rows[r] = strings.Join(cells, "│")
	}

	return that.board.Render(strings.Join(rows, "\n"))
}

func (that *Renderer) cell(index int, symbol entity.Symbol, highlighted bool) string {
	text := string(symbol)
	if symbol == entity.SymbolNone {
		text = strconv.Itoa(index)
	}
	padded := fmt.Sprintf(" %2s ", text)

	switch {
	case highlighted:
		return that.win.Render(padded)
	case symbol == entity.SymbolX:
		return that.x.Render(padded)
	case symbol == entity.SymbolO:
		return that.o.Render(padded)
	default:
		return that.empty.Render(padded)
	}
}

func (that *Renderer) Header(text string) string {
	return that.header.Render(text)
}

func (that *Renderer) Footer(text string) string {
	return that.footer.Render(text)
}

func (that *Renderer) Warning(text string) string {
	return that.warning.Render(text)
}

func (that *Renderer) Symbol(symbol entity.Symbol) string {
	switch symbol {
	case entity.SymbolX:
		return that.x.Render(string(symbol))
	case entity.SymbolO:
		return that.o.Render(string(symbol))
	default:
		return string(symbol)
	}
}
