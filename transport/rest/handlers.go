package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/repository"
	"github.com/rocketscienceinc/tictactoe-client/internal/usecase"
)

type sessionView interface {
	Snapshot() usecase.Snapshot
	CachedMatch(ctx context.Context) (*entity.MatchState, error)
}

type Handlers interface {
	Session(ctx echo.Context) error
	Match(ctx echo.Context) error
}

type handlers struct {
	logger  *slog.Logger
	session sessionView
}

func NewHandlers(logger *slog.Logger, session sessionView) Handlers {
	return &handlers{
		logger:  logger.With("component", "rest_handlers"),
		session: session,
	}
}

type sessionResponse struct {
	State       string     `json:"state"`
	DeviceID    string     `json:"device_id,omitempty"`
	MatchID     string     `json:"match_id,omitempty"`
	Symbol      string     `json:"symbol,omitempty"`
	Opponent    string     `json:"opponent,omitempty"`
	Board       [][]string `json:"board,omitempty"`
	Turn        string     `json:"turn,omitempty"`
	MyTurn      bool       `json:"my_turn"`
	Winner      string     `json:"winner,omitempty"`
	WinningLine []int      `json:"winning_line,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Message     string     `json:"message,omitempty"`
}

type matchResponse struct {
	MatchID      string            `json:"match_id"`
	Board        [][]string        `json:"board"`
	Turn         *string           `json:"turn"`
	Winner       *string           `json:"winner"`
	Players      map[string]string `json:"players"`
	OpponentLeft bool              `json:"opponent_left"`
}

// Session - GET /session, the snapshot the presentation layer renders.
func (that *handlers) Session(ctx echo.Context) error {
	snap := that.session.Snapshot()

	resp := sessionResponse{
		State:       snap.State.String(),
		DeviceID:    snap.DeviceID,
		MatchID:     snap.MatchID,
		Symbol:      string(snap.Symbol),
		Opponent:    snap.Opponent,
		Turn:        snap.Turn,
		MyTurn:      snap.MyTurn(),
		Winner:      string(snap.Winner),
		WinningLine: snap.WinningLine,
		Reason:      string(snap.Reason),
		Message:     snap.Message,
	}
	if snap.Board.Size > 0 {
		resp.Board = snap.Board.Rows()
	}

	return ctx.JSON(http.StatusOK, resp)
}

// Match - GET /match, the cached state of the current match in the service's own shape.
func (that *handlers) Match(ctx echo.Context) error {
	log := that.logger.With("method", "Match")

	state, err := that.session.CachedMatch(ctx.Request().Context())
	switch {
	case errors.Is(err, apperror.ErrNotPlaying), errors.Is(err, repository.ErrMatchNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{"message": "no current match"})
	case err != nil:
		log.Error("failed to read cached match", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	players := make(map[string]string, len(state.Players))
	for id, symbol := range state.Players {
		players[id] = string(symbol)
	}

	return ctx.JSON(http.StatusOK, matchResponse{
		MatchID:      state.MatchID,
		Board:        state.Board.Rows(),
		Turn:         nullable(state.Turn),
		Winner:       nullable(string(state.Winner)),
		Players:      players,
		OpponentLeft: state.OpponentLeft,
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
