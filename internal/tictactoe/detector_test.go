package tictactoe

import (
	"testing"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boardWith(t *testing.T, size int, marks map[int]entity.Symbol) entity.Board {
	t.Helper()

	board, err := entity.NewBoard(size)
	require.NoError(t, err)

	for index, symbol := range marks {
		board.Cells[index] = symbol
	}

	return board
}

func TestRunLength(t *testing.T) {
	assert.Equal(t, 3, RunLength(3))
	assert.Equal(t, 3, RunLength(4))
	assert.Equal(t, 4, RunLength(5))
	assert.Equal(t, 4, RunLength(7))
}

func TestCandidateLines(t *testing.T) {
	expected := map[int]int{3: 8, 4: 24, 5: 28, 6: 54, 7: 88}

	for size, count := range expected {
		lines := CandidateLines(size)

		assert.Len(t, lines, count, "size %d", size)
		for _, line := range lines {
			assert.Len(t, line, RunLength(size))
		}
	}
}

func TestDetect(t *testing.T) {
	t.Run("Empty and sparse boards have no winner", func(t *testing.T) {
		for size := entity.MinBoardSize; size <= entity.MaxBoardSize; size++ {
			// Given: an empty board
			board := boardWith(t, size, nil)

			// Then: nobody wins
			result := Detect(board)
			assert.False(t, result.HasWinner())
			assert.Nil(t, result.Line)
		}
	})

	t.Run("Finds a single run on every board size", func(t *testing.T) {
		for size := entity.MinBoardSize; size <= entity.MaxBoardSize; size++ {
			for _, line := range CandidateLines(size) {
				// Given: a board whose only marks form one candidate line
				marks := make(map[int]entity.Symbol, len(line))
				for _, index := range line {
					marks[index] = entity.SymbolO
				}
				board := boardWith(t, size, marks)

				// When: detecting
				result := Detect(board)

				// Then: O wins along exactly that line
				require.Equal(t, entity.SymbolO, result.Winner, "size %d line %v", size, line)
				assert.Equal(t, line, result.Line)
			}
		}
	})

	t.Run("Short runs do not win on large boards", func(t *testing.T) {
		// Given: three X in a row on a 5x5 board
		board := boardWith(t, 5, map[int]entity.Symbol{0: entity.SymbolX, 1: entity.SymbolX, 2: entity.SymbolX})

		// Then: four are required
		assert.False(t, Detect(board).HasWinner())

		// When: the fourth one is added
		board.Cells[3] = entity.SymbolX

		// Then: X wins
		result := Detect(board)
		assert.Equal(t, entity.SymbolX, result.Winner)
		assert.Equal(t, []int{0, 1, 2, 3}, result.Line)
	})

	t.Run("Mixed lines do not win", func(t *testing.T) {
		board := boardWith(t, 3, map[int]entity.Symbol{
			0: entity.SymbolX, 1: entity.SymbolO, 2: entity.SymbolX,
			3: entity.SymbolX, 4: entity.SymbolO, 5: entity.SymbolO,
			6: entity.SymbolO, 7: entity.SymbolX, 8: entity.SymbolX,
		})

		assert.False(t, Detect(board).HasWinner())
		assert.True(t, board.IsFull())
	})

	t.Run("Main diagonal after X0 O1 X4 O2 X8", func(t *testing.T) {
		// Given: the move sequence played on a 3x3 board
		board := boardWith(t, 3, nil)
		for i, index := range []int{0, 1, 4, 2, 8} {
			symbol := entity.SymbolX
			if i%2 == 1 {
				symbol = entity.SymbolO
			}
			board = board.With(index, symbol)
		}

		// When: detecting
		result := Detect(board)

		// Then: X wins on the main diagonal
		assert.Equal(t, entity.SymbolX, result.Winner)
		assert.Equal(t, []int{0, 4, 8}, result.Line)
		assert.True(t, result.Contains(4))
		assert.False(t, result.Contains(1))
	})

	t.Run("Anti-diagonal is reported from its top-right cell", func(t *testing.T) {
		board := boardWith(t, 3, map[int]entity.Symbol{2: entity.SymbolO, 4: entity.SymbolO, 6: entity.SymbolO})

		assert.Equal(t, []int{2, 4, 6}, Detect(board).Line)
	})

	t.Run("Horizontal lines take precedence over vertical ones", func(t *testing.T) {
		// Given: X owns both row 0 and column 0
		board := boardWith(t, 3, map[int]entity.Symbol{
			0: entity.SymbolX, 1: entity.SymbolX, 2: entity.SymbolX,
			3: entity.SymbolX, 6: entity.SymbolX,
		})

		// Then: the row is reported
		assert.Equal(t, []int{0, 1, 2}, Detect(board).Line)
	})

	t.Run("Detect is idempotent and does not alias its table", func(t *testing.T) {
		board := boardWith(t, 4, map[int]entity.Symbol{5: entity.SymbolX, 6: entity.SymbolX, 7: entity.SymbolX})

		first := Detect(board)
		first.Line[0] = 99
		second := Detect(board)

		assert.Equal(t, []int{5, 6, 7}, second.Line)
		assert.Equal(t, []int{5, 6, 7}, CandidateLines(4)[3])
	})

	t.Run("Malformed boards never win", func(t *testing.T) {
		assert.False(t, Detect(entity.Board{}).HasWinner())
		assert.False(t, Detect(entity.Board{Size: 3, Cells: []entity.Symbol{"X", "X", "X"}}).HasWinner())
	})
}
