package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
)

const (
	MinBoardSize = 3
	MaxBoardSize = 7
)

type Symbol string

const (
	SymbolNone Symbol = ""
	SymbolX    Symbol = "X"
	SymbolO    Symbol = "O"
)

func (s Symbol) IsPlayer() bool {
	return s == SymbolX || s == SymbolO
}

// Opponent - returns the other player's symbol, SymbolNone for SymbolNone.
func (s Symbol) Opponent() Symbol {
	switch s {
	case SymbolX:
		return SymbolO
	case SymbolO:
		return SymbolX
	default:
		return SymbolNone
	}
}

// ParseSymbol - accepts "X", "O" and the empty cell; anything else is malformed.
func ParseSymbol(raw string) (Symbol, error) {
	switch s := Symbol(raw); s {
	case SymbolNone, SymbolX, SymbolO:
		return s, nil
	default:
		return SymbolNone, fmt.Errorf("%w: unknown symbol %q", apperror.ErrMalformedResponse, raw)
	}
}

func ValidBoardSize(size int) bool {
	return size >= MinBoardSize && size <= MaxBoardSize
}

// Board is a square grid stored row by row. Index i is row i/Size, column i%Size.
type Board struct {
	Size  int      `json:"size"`
	Cells []Symbol `json:"cells"`
}

func NewBoard(size int) (Board, error) {
	if !ValidBoardSize(size) {
		return Board{}, fmt.Errorf("%w: %d", apperror.ErrInvalidBoardSize, size)
	}

	return Board{Size: size, Cells: make([]Symbol, size*size)}, nil
}

// BoardFromRows - builds a board from the service's 2D representation, "" being an empty cell.
func BoardFromRows(rows [][]string) (Board, error) {
	size := len(rows)

	board, err := NewBoard(size)
	if err != nil {
		return Board{}, fmt.Errorf("%w: %w", apperror.ErrMalformedResponse, err)
	}

	for r, row := range rows {
		if len(row) != size {
			return Board{}, fmt.Errorf("%w: row %d has %d cells, want %d", apperror.ErrMalformedResponse, r, len(row), size)
		}

		for c, raw := range row {
			symbol, err := ParseSymbol(raw)
			if err != nil {
				return Board{}, err
			}
			board.Cells[r*size+c] = symbol
		}
	}

	return board, nil
}

func (that Board) Rows() [][]string {
	rows := make([][]string, that.Size)
	for r := range rows {
		rows[r] = make([]string, that.Size)
		for c := range rows[r] {
			rows[r][c] = string(that.Cells[r*that.Size+c])
		}
	}

	return rows
}

func (that Board) Clone() Board {
	cells := make([]Symbol, len(that.Cells))
	copy(cells, that.Cells)

	return Board{Size: that.Size, Cells: cells}
}

func (that Board) InBounds(index int) bool {
	return index >= 0 && index < len(that.Cells)
}

// Cell - returns SymbolNone for out of range indices.
func (that Board) Cell(index int) Symbol {
	if !that.InBounds(index) {
		return SymbolNone
	}

	return that.Cells[index]
}

func (that Board) Coords(index int) (int, int) {
	return index / that.Size, index % that.Size
}

func (that Board) Filled() int {
	filled := 0
	for _, cell := range that.Cells {
		if cell != SymbolNone {
			filled++
		}
	}

	return filled
}

func (that Board) IsEmpty() bool {
	return that.Filled() == 0
}

func (that Board) IsFull() bool {
	return len(that.Cells) > 0 && that.Filled() == len(that.Cells)
}

// With - returns a copy of the board with the cell set; the receiver is left untouched.
func (that Board) With(index int, symbol Symbol) Board {
	next := that.Clone()
	next.Cells[index] = symbol

	return next
}
