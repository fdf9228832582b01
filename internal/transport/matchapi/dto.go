package matchapi

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

type registerRequest struct {
	Alias string `json:"alias,omitempty"`
}

type registerResponse struct {
	DeviceID string `json:"device_id"`
}

type devicesResponse struct {
	ConnectedDevices []string `json:"connected_devices"`
}

type deviceRequest struct {
	DeviceID string `json:"device_id"`
}

type createMatchRequest struct {
	Size     int    `json:"size"`
	DeviceID string `json:"device_id"`
}

type moveRequest struct {
	DeviceID string `json:"device_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type matchResponse struct {
	MatchID   string            `json:"match_id"`
	Players   map[string]string `json:"players"`
	BoardSize int               `json:"board_size"`
}

// stateResponse - null turn and winner decode to nil, null cells decode to "".
type stateResponse struct {
	Board        [][]string        `json:"board"`
	Turn         *string           `json:"turn"`
	Winner       *string           `json:"winner"`
	Size         int               `json:"size"`
	Players      map[string]string `json:"players"`
	OpponentLeft bool              `json:"opponent_left,omitempty"`
}

type moveResponse struct {
	Board    [][]string `json:"board"`
	NextTurn *string    `json:"next_turn"`
	Winner   *string    `json:"winner"`
}

func (that matchResponse) toEntity() (*entity.Match, error) {
	if that.MatchID == "" {
		return nil, fmt.Errorf("%w: match without id", apperror.ErrMalformedResponse)
	}

	players, err := toPlayers(that.Players)
	if err != nil {
		return nil, err
	}

	return &entity.Match{ID: that.MatchID, Players: players, Size: that.BoardSize}, nil
}

func (that stateResponse) toEntity(matchID string) (*entity.MatchState, error) {
	board, err := entity.BoardFromRows(that.Board)
	if err != nil {
		return nil, err
	}

	winner, err := optionalSymbol(that.Winner)
	if err != nil {
		return nil, err
	}

	players, err := toPlayers(that.Players)
	if err != nil {
		return nil, err
	}

	return &entity.MatchState{
		MatchID:      matchID,
		Board:        board,
		Turn:         deref(that.Turn),
		Winner:       winner,
		Players:      players,
		OpponentLeft: that.OpponentLeft,
	}, nil
}

func (that moveResponse) toEntity() (*entity.MoveResult, error) {
	board, err := entity.BoardFromRows(that.Board)
	if err != nil {
		return nil, err
	}

	winner, err := optionalSymbol(that.Winner)
	if err != nil {
		return nil, err
	}

	return &entity.MoveResult{Board: board, NextTurn: deref(that.NextTurn), Winner: winner}, nil
}

func toPlayers(raw map[string]string) (map[string]entity.Symbol, error) {
	players := make(map[string]entity.Symbol, len(raw))
	for id, value := range raw {
		symbol, err := entity.ParseSymbol(value)
		if err != nil || !symbol.IsPlayer() {
			return nil, fmt.Errorf("%w: player %s has symbol %q", apperror.ErrMalformedResponse, id, value)
		}
		players[id] = symbol
	}

	return players, nil
}

func optionalSymbol(raw *string) (entity.Symbol, error) {
	if raw == nil {
		return entity.SymbolNone, nil
	}

	return entity.ParseSymbol(*raw)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
