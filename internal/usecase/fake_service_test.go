package usecase

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/tictactoe"
)

type fakeMatch struct {
	players      map[string]entity.Symbol
	board        entity.Board
	turn         string
	winner       entity.Symbol
	opponentLeft bool
}

// fakeService is an in-memory match service with the lobby rules of the real one:
// the first device of a size waits (202), the next one of the same size is paired with it.
type fakeService struct {
	mu sync.Mutex

	devices map[string]*entity.DeviceInfo
	lobby   map[string]int
	matches map[string]*fakeMatch

	moves      int
	surrenders int
	leaves     int
	// stateErr, when set, replaces every MatchState answer
	stateErr error
}

func newFakeService() *fakeService {
	return &fakeService{
		devices: map[string]*entity.DeviceInfo{},
		lobby:   map[string]int{},
		matches: map[string]*fakeMatch{},
	}
}

func statusErr(code int, body string) error {
	return &apperror.StatusError{Code: code, Body: body}
}

func (that *fakeService) RegisterDevice(_ context.Context, _ string) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	id := uuid.NewString()
	that.devices[id] = &entity.DeviceInfo{Connected: true}

	return id, nil
}

func (that *fakeService) ConnectedDevices(_ context.Context) ([]string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	ids := make([]string, 0, len(that.devices))
	for id := range that.devices {
		ids = append(ids, id)
	}

	return ids, nil
}

func (that *fakeService) DeviceInfo(_ context.Context, deviceID string) (*entity.DeviceInfo, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	info, ok := that.devices[deviceID]
	if !ok {
		return nil, statusErr(http.StatusNotFound, "device not found")
	}
	copied := *info

	return &copied, nil
}

func (that *fakeService) ResetDeviceStats(_ context.Context, deviceID string) (*entity.StatsReset, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	info, ok := that.devices[deviceID]
	if !ok {
		return nil, statusErr(http.StatusNotFound, "device not found")
	}
	info.Wins, info.Losses, info.Ratio = 0, 0, 0

	return &entity.StatsReset{Message: "stats reset"}, nil
}

func (that *fakeService) activeMatchLocked(deviceID string) (string, *fakeMatch) {
	for id, match := range that.matches {
		if _, ok := match.players[deviceID]; ok && match.winner == entity.SymbolNone {
			return id, match
		}
	}

	return "", nil
}

func (that *fakeService) FindMatchForDevice(_ context.Context, deviceID string) (*entity.Match, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	id, match := that.activeMatchLocked(deviceID)
	if match == nil {
		return nil, statusErr(http.StatusNotFound, "no active match")
	}

	return that.toMatch(id, match), nil
}

func (that *fakeService) CreateMatch(_ context.Context, deviceID string, size int) (*entity.Match, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.devices[deviceID]; !ok {
		return nil, statusErr(http.StatusNotFound, "device not found")
	}

	if id, match := that.activeMatchLocked(deviceID); match != nil {
		return that.toMatch(id, match), nil
	}

	for waiting, waitingSize := range that.lobby {
		if waiting == deviceID || waitingSize != size {
			continue
		}

		delete(that.lobby, waiting)
		delete(that.lobby, deviceID)

		board, _ := entity.NewBoard(size)
		id := uuid.NewString()
		that.matches[id] = &fakeMatch{
			players: map[string]entity.Symbol{waiting: entity.SymbolX, deviceID: entity.SymbolO},
			board:   board,
			turn:    waiting,
		}

		return that.toMatch(id, that.matches[id]), nil
	}

	that.lobby[deviceID] = size

	return nil, statusErr(http.StatusAccepted, fmt.Sprintf("waiting for opponent for %dx%d", size, size))
}

func (that *fakeService) MatchState(_ context.Context, matchID string) (*entity.MatchState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.stateErr != nil {
		return nil, that.stateErr
	}

	match, ok := that.matches[matchID]
	if !ok {
		return nil, statusErr(http.StatusNotFound, "match not found")
	}

	players := make(map[string]entity.Symbol, len(match.players))
	for id, symbol := range match.players {
		players[id] = symbol
	}

	return &entity.MatchState{
		MatchID:      matchID,
		Board:        match.board.Clone(),
		Turn:         match.turn,
		Winner:       match.winner,
		Players:      players,
		OpponentLeft: match.opponentLeft,
	}, nil
}

func (that *fakeService) MakeMove(_ context.Context, matchID, deviceID string, row, col int) (*entity.MoveResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.moves++

	match, ok := that.matches[matchID]
	if !ok {
		return nil, statusErr(http.StatusNotFound, "match not found")
	}

	if match.winner != entity.SymbolNone {
		return nil, statusErr(http.StatusBadRequest, "match finished")
	}

	if match.turn != deviceID {
		return nil, statusErr(http.StatusForbidden, "not your turn")
	}

	index := row*match.board.Size + col
	if !match.board.InBounds(index) || match.board.Cells[index] != entity.SymbolNone {
		return nil, statusErr(http.StatusBadRequest, "cell occupied")
	}

	match.board = match.board.With(index, match.players[deviceID])

	if result := tictactoe.Detect(match.board); result.HasWinner() {
		match.winner = result.Winner
		match.turn = ""
		that.creditLocked(match, deviceID)

		return &entity.MoveResult{Board: match.board.Clone(), Winner: match.winner}, nil
	}

	match.turn = that.otherLocked(match, deviceID)

	return &entity.MoveResult{Board: match.board.Clone(), NextTurn: match.turn}, nil
}

func (that *fakeService) Surrender(_ context.Context, matchID, deviceID string) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.surrenders++

	return that.abandonLocked(matchID, deviceID, false)
}

func (that *fakeService) Leave(_ context.Context, matchID, deviceID string) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.leaves++

	return that.abandonLocked(matchID, deviceID, true)
}

// deleteMatch - drops the match as if the service had expired it.
func (that *fakeService) deleteMatch(matchID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.matches, matchID)
}

func (that *fakeService) setStateErr(err error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.stateErr = err
}

func (that *fakeService) counters() (moves, surrenders, leaves int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.moves, that.surrenders, that.leaves
}

func (that *fakeService) abandonLocked(matchID, deviceID string, left bool) (string, error) {
	match, ok := that.matches[matchID]
	if !ok {
		return "", statusErr(http.StatusNotFound, "match not found")
	}

	if match.winner != entity.SymbolNone {
		return "", statusErr(http.StatusBadRequest, "match finished")
	}

	opponent := that.otherLocked(match, deviceID)
	match.winner = match.players[opponent]
	match.turn = ""
	match.opponentLeft = left
	that.creditLocked(match, opponent)

	return "ok", nil
}

func (that *fakeService) creditLocked(match *fakeMatch, winnerID string) {
	for id := range match.players {
		info, ok := that.devices[id]
		if !ok {
			continue
		}
		if id == winnerID {
			info.Wins++
		} else {
			info.Losses++
		}
	}
}

func (that *fakeService) otherLocked(match *fakeMatch, deviceID string) string {
	for id := range match.players {
		if id != deviceID {
			return id
		}
	}

	return ""
}

func (that *fakeService) toMatch(id string, match *fakeMatch) *entity.Match {
	players := make(map[string]entity.Symbol, len(match.players))
	for deviceID, symbol := range match.players {
		players[deviceID] = symbol
	}

	return &entity.Match{ID: id, Players: players, Size: match.board.Size}
}

// heldStateService answers MatchState from the fake, but the next held calls wait for release
// after reading the state.
type heldStateService struct {
	*fakeService

	mu      sync.Mutex
	pending int
	fetched chan struct{}
	release chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newHeldStateService(service *fakeService) *heldStateService {
	return &heldStateService{
		fakeService: service,
		fetched:     make(chan struct{}),
		release:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (that *heldStateService) hold(calls int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.pending = calls
}

func (that *heldStateService) releaseAll() {
	that.once.Do(func() { close(that.done) })
}

func (that *heldStateService) MatchState(ctx context.Context, matchID string) (*entity.MatchState, error) {
	that.mu.Lock()
	held := that.pending > 0
	if held {
		that.pending--
	}
	that.mu.Unlock()

	state, err := that.fakeService.MatchState(ctx, matchID)
	if !held {
		return state, err
	}

	select {
	case that.fetched <- struct{}{}:
	case <-that.done:
		return state, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case <-that.release:
	case <-that.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return state, err
}
