package tictactoe

import (
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// lineTables holds the candidate lines of every supported board size, computed once.
var lineTables = buildLineTables()

// Result of Detect. Line is nil when there is no winner.
type Result struct {
	Winner entity.Symbol
	Line   []int
}

func (that Result) HasWinner() bool {
	return that.Winner != entity.SymbolNone
}

// Contains - reports whether the cell belongs to the winning line.
func (that Result) Contains(index int) bool {
	for _, cell := range that.Line {
		if cell == index {
			return true
		}
	}

	return false
}

// RunLength - number of aligned symbols needed to win: 3 below 5x5, 4 otherwise.
func RunLength(size int) int {
	if size < 5 {
		return 3
	}

	return 4
}

// CandidateLines - every window of RunLength(size) cells in scan order: horizontals row by row,
// verticals column by column, descending diagonals, ascending diagonals.
// The returned slices must not be modified.
func CandidateLines(size int) [][]int {
	if lines, ok := lineTables[size]; ok {
		return lines
	}

	return generateLines(size)
}

// Detect - returns the first winning line in CandidateLines order, or an empty Result.
func Detect(board entity.Board) Result {
	if board.Size <= 0 || len(board.Cells) != board.Size*board.Size {
		return Result{}
	}

	// fewer marks than a run can never win
	if board.Filled() < RunLength(board.Size) {
		return Result{}
	}

	for _, line := range CandidateLines(board.Size) {
		if symbol, ok := lineOwner(board, line); ok {
			winning := make([]int, len(line))
			copy(winning, line)

			return Result{Winner: symbol, Line: winning}
		}
	}

	return Result{}
}

func lineOwner(board entity.Board, line []int) (entity.Symbol, bool) {
	first := board.Cells[line[0]]
	if first == entity.SymbolNone {
		return entity.SymbolNone, false
	}

	for _, index := range line[1:] {
		if board.Cells[index] != first {
			return entity.SymbolNone, false
		}
	}

	return first, true
}

func buildLineTables() map[int][][]int {
	tables := make(map[int][][]int, entity.MaxBoardSize-entity.MinBoardSize+1)
	for size := entity.MinBoardSize; size <= entity.MaxBoardSize; size++ {
		tables[size] = generateLines(size)
	}

	return tables
}

func generateLines(size int) [][]int {
	need := RunLength(size)
	if size < need {
		return nil
	}

	var lines [][]int

	window := func(row, col, dRow, dCol int) []int {
		line := make([]int, need)
		for k := range line {
			line[k] = (row+k*dRow)*size + col + k*dCol
		}

		return line
	}

	// horizontal
	for r := 0; r < size; r++ {
		for c := 0; c <= size-need; c++ {
			lines = append(lines, window(r, c, 0, 1))
		}
	}

	// vertical
	for c := 0; c < size; c++ {
		for r := 0; r <= size-need; r++ {
			lines = append(lines, window(r, c, 1, 0))
		}
	}

	// descending diagonal
	for r := 0; r <= size-need; r++ {
		for c := 0; c <= size-need; c++ {
			lines = append(lines, window(r, c, 1, 1))
		}
	}

	// ascending diagonal, listed from its top-right cell
	for r := 0; r <= size-need; r++ {
		for c := need - 1; c < size; c++ {
			lines = append(lines, window(r, c, 1, -1))
		}
	}

	return lines
}
