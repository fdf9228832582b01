package apperror

import "errors"

var (
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell index")
	ErrInvalidBoardSize = errors.New("invalid board size")
	ErrGameFinished     = errors.New("game is already finished")

	ErrNoDevice          = errors.New("device is not registered")
	ErrNotIdle           = errors.New("session is not idle")
	ErrNotPlaying        = errors.New("session is not playing")
	ErrUnknownPlayer     = errors.New("device is not a player of the match")
	ErrSearchTimeout     = errors.New("no opponent found in time")
	ErrSearchSuperseded  = errors.New("search superseded by a newer one")
	ErrMalformedResponse = errors.New("malformed service response")
)

// Remote fault classes. StatusError unwraps to one of these.
var (
	ErrWaitingForOpponent = errors.New("waiting for an opponent in the lobby")
	ErrNotFound           = errors.New("resource not found")
	ErrServiceUnavailable = errors.New("match service unavailable")
	ErrRequestRejected    = errors.New("request rejected by match service")
	ErrTransport          = errors.New("match service unreachable")
)
