package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/pkg/periodic"
)

type stateFetcher interface {
	MatchState(ctx context.Context, matchID string) (*entity.MatchState, error)
}

type TerminalReason string

const (
	ReasonWinner       TerminalReason = "winner"
	ReasonOpponentLeft TerminalReason = "opponent left"
)

// Update is a fetched state together with the moment its request was issued.
type Update struct {
	State    *entity.MatchState
	IssuedAt time.Time
}

// Terminal ends a match. State is nil when the match disappeared from the service.
type Terminal struct {
	Reason TerminalReason
	Winner entity.Symbol
	State  *entity.MatchState
}

type SyncHandlers struct {
	OnUpdate   func(Update)
	OnTerminal func(Terminal)
}

// SyncPoller fetches the state of one match on a fixed interval and raises exactly one terminal event.
type SyncPoller struct {
	logger   *slog.Logger
	service  stateFetcher
	recorder Recorder
	interval time.Duration

	mu         sync.Mutex
	generation uint64
	terminated bool
	task       *periodic.Handle
}

func NewSyncPoller(logger *slog.Logger, service stateFetcher, recorder Recorder, interval time.Duration) *SyncPoller {
	return &SyncPoller{
		logger:   logger.With("component", "sync_poller"),
		service:  service,
		recorder: orNoop(recorder),
		interval: interval,
	}
}

// Start - polls matchID on behalf of the local symbol, replacing any previous poll loop.
func (that *SyncPoller) Start(ctx context.Context, matchID string, local entity.Symbol, handlers SyncHandlers) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.task.Stop()
	that.generation++
	that.terminated = false

	loop := &syncLoop{
		poller:     that,
		generation: that.generation,
		matchID:    matchID,
		local:      local,
		handlers:   handlers,
		log:        that.logger.With("match_id", matchID),
	}
	that.task = periodic.Start(ctx, that.interval, loop.tick, periodic.Immediately())

	loop.log.Info("sync started", "symbol", local)
}

// Stop - idempotent; late responses of the stopped loop are dropped.
func (that *SyncPoller) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.task.Stop()
	that.task = nil
	that.generation++
}

// deliverable - false once the loop was replaced, stopped or has already terminated.
func (that *SyncPoller) deliverable(generation uint64) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return generation == that.generation && !that.terminated
}

// terminate - claims the single terminal event of the loop.
func (that *SyncPoller) terminate(generation uint64) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if generation != that.generation || that.terminated {
		return false
	}

	that.terminated = true
	that.task.Stop()
	that.task = nil

	return true
}

type syncLoop struct {
	poller     *SyncPoller
	generation uint64
	matchID    string
	local      entity.Symbol
	handlers   SyncHandlers
	log        *slog.Logger
}

func (that *syncLoop) tick(ctx context.Context) bool {
	issuedAt := time.Now()

	state, err := that.poller.service.MatchState(context.WithoutCancel(ctx), that.matchID)
	if err != nil {
		if apperror.Classify(err) == apperror.FaultNotFound {
			that.poller.recorder.SyncTick("not_found")
			that.log.Info("match is gone, opponent left")

			return that.terminal(Terminal{Reason: ReasonOpponentLeft, Winner: that.local})
		}

		that.poller.recorder.SyncTick("error")
		that.log.Warn("failed to sync match state", "error", err, "fault", apperror.Classify(err).String())

		return that.poller.deliverable(that.generation)
	}

	switch {
	case state.OpponentLeft:
		that.poller.recorder.SyncTick("opponent_left")

		return that.terminal(Terminal{Reason: ReasonOpponentLeft, Winner: that.local, State: state})
	case state.IsFinished():
		that.poller.recorder.SyncTick("winner")

		return that.terminal(Terminal{Reason: ReasonWinner, Winner: state.Winner, State: state})
	}

	if !that.poller.deliverable(that.generation) {
		return false
	}

	that.poller.recorder.SyncTick("ok")
	if that.handlers.OnUpdate != nil {
		that.handlers.OnUpdate(Update{State: state, IssuedAt: issuedAt})
	}

	return true
}

func (that *syncLoop) terminal(event Terminal) bool {
	if !that.poller.terminate(that.generation) {
		return false
	}

	that.log.Info("match finished", "reason", event.Reason, "winner", event.Winner)
	if that.handlers.OnTerminal != nil {
		that.handlers.OnTerminal(event)
	}

	return false
}
