package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

const noCredit = -1

// Score counts finished local games.
type Score struct {
	XWins int
	OWins int
	Ties  int
}

// LocalGame is a two-players-one-device game: a list of board snapshots and a cursor into it.
// Playing from a cursor that is not at the end drops every later snapshot.
type LocalGame struct {
	snapshots []entity.Board
	cursor    int

	score Score
	// move index whose terminal board was already credited to the score
	creditedMove int
}

func NewLocalGame(size int) (*LocalGame, error) {
	game := &LocalGame{}
	if err := game.Restart(size); err != nil {
		return nil, err
	}

	return game, nil
}

func (that *LocalGame) Size() int {
	return that.snapshots[that.cursor].Size
}

// Current - returns a copy of the board at the cursor.
func (that *LocalGame) Current() entity.Board {
	return that.snapshots[that.cursor].Clone()
}

func (that *LocalGame) Cursor() int {
	return that.cursor
}

// Moves - number of moves recorded, including the ones after the cursor.
func (that *LocalGame) Moves() int {
	return len(that.snapshots) - 1
}

// Next - symbol to move at the cursor; X plays on even move counts.
func (that *LocalGame) Next() entity.Symbol {
	if that.cursor%2 == 0 {
		return entity.SymbolX
	}

	return entity.SymbolO
}

func (that *LocalGame) Result() Result {
	return Detect(that.snapshots[that.cursor])
}

func (that *LocalGame) IsTie() bool {
	return that.snapshots[that.cursor].IsFull() && !that.Result().HasWinner()
}

// InProgress - at least one mark, no winner and free cells left.
func (that *LocalGame) InProgress() bool {
	board := that.snapshots[that.cursor]

	return !board.IsEmpty() && !board.IsFull() && !that.Result().HasWinner()
}

// Play - puts the next symbol on the cell. It is a no-op returning false when the cell is out of range
// or taken, or when the game already has a winner.
func (that *LocalGame) Play(index int) bool {
	board := that.snapshots[that.cursor]

	if !board.InBounds(index) || board.Cells[index] != entity.SymbolNone {
		return false
	}

	if that.Result().HasWinner() {
		return false
	}

	next := board.With(index, that.Next())

	// truncate the branch after the cursor
	if that.creditedMove > that.cursor {
		that.creditedMove = noCredit
	}
	that.snapshots = append(that.snapshots[:that.cursor+1:that.cursor+1], next)
	that.cursor++

	that.creditOnce()

	return true
}

// JumpTo - moves the cursor onto a recorded move; the next Play truncates from there.
func (that *LocalGame) JumpTo(move int) bool {
	if move < 0 || move >= len(that.snapshots) {
		return false
	}

	that.cursor = move

	return true
}

// Restart - drops the history and starts an empty board of the given size.
func (that *LocalGame) Restart(size int) error {
	board, err := entity.NewBoard(size)
	if err != nil {
		return fmt.Errorf("failed to restart local game: %w", err)
	}

	that.snapshots = []entity.Board{board}
	that.cursor = 0
	that.creditedMove = noCredit

	return nil
}

// Resign - the side to move gives up: while in progress its opponent is credited a win.
// The board restarts at the same size either way; the return value tells whether a win was credited.
func (that *LocalGame) Resign() bool {
	credited := that.InProgress()
	if credited {
		that.addWin(that.Next().Opponent())
	}

	that.snapshots = []entity.Board{emptyLike(that.Size())}
	that.cursor = 0
	that.creditedMove = noCredit

	return credited
}

func (that *LocalGame) Score() Score {
	return that.score
}

func (that *LocalGame) ResetScore() {
	that.score = Score{}
}

func (that *LocalGame) creditOnce() {
	if that.creditedMove == that.cursor {
		return
	}

	if result := that.Result(); result.HasWinner() {
		that.addWin(result.Winner)
		that.creditedMove = that.cursor

		return
	}

	if that.snapshots[that.cursor].IsFull() {
		that.score.Ties++
		that.creditedMove = that.cursor
	}
}

func (that *LocalGame) addWin(symbol entity.Symbol) {
	switch symbol {
	case entity.SymbolX:
		that.score.XWins++
	case entity.SymbolO:
		that.score.OWins++
	}
}

func emptyLike(size int) entity.Board {
	return entity.Board{Size: size, Cells: make([]entity.Symbol, size*size)}
}
