package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/pkg/periodic"
)

type matchFinder interface {
	FindMatchForDevice(ctx context.Context, deviceID string) (*entity.Match, error)
	CreateMatch(ctx context.Context, deviceID string, size int) (*entity.Match, error)
}

type SearchStatus int

const (
	SearchIdle SearchStatus = iota
	SearchSearching
	SearchMatched
	SearchFailed
)

func (s SearchStatus) String() string {
	switch s {
	case SearchSearching:
		return "searching"
	case SearchMatched:
		return "matched"
	case SearchFailed:
		return "failed"
	default:
		return "idle"
	}
}

// SearchOutcome is delivered once per search that was neither cancelled nor superseded.
type SearchOutcome struct {
	Match  *entity.Match
	Symbol entity.Symbol
	Err    error
}

// Matchmaker keeps asking the service for a match until it pairs the device, fails or is cancelled.
// At most one search loop runs per Matchmaker.
type Matchmaker struct {
	logger   *slog.Logger
	service  matchFinder
	recorder Recorder

	interval    time.Duration
	maxDuration time.Duration

	mu         sync.Mutex
	status     SearchStatus
	generation uint64
	task       *periodic.Handle
}

// NewMatchmaker - maxDuration of 0 retries until cancelled.
func NewMatchmaker(logger *slog.Logger, service matchFinder, recorder Recorder, interval, maxDuration time.Duration) *Matchmaker {
	return &Matchmaker{
		logger:      logger.With("component", "matchmaker"),
		service:     service,
		recorder:    orNoop(recorder),
		interval:    interval,
		maxDuration: maxDuration,
	}
}

// Search - starts a search loop, stopping the previous one first. The first attempt runs at once and
// looks for an existing match of the device before asking for a new one.
func (that *Matchmaker) Search(ctx context.Context, deviceID string, size int, onResult func(SearchOutcome)) error {
	log := that.logger.With("method", "Search", "device_id", deviceID, "size", size)

	if deviceID == "" {
		return apperror.ErrNoDevice
	}

	if !entity.ValidBoardSize(size) {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidBoardSize, size)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.status == SearchSearching {
		log.Debug("superseding running search")
	}
	that.stopLocked()

	that.generation++
	that.status = SearchSearching

	attempt := &searchAttempt{
		matchmaker: that,
		generation: that.generation,
		deviceID:   deviceID,
		size:       size,
		started:    time.Now(),
		onResult:   onResult,
		log:        log,
		firstTick:  true,
	}
	that.task = periodic.Start(ctx, that.interval, attempt.tick, periodic.Immediately())

	log.Info("search started")

	return nil
}

// Cancel - stops the running search, if any, and returns to idle. Results still in flight are discarded.
func (that *Matchmaker) Cancel() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	wasSearching := that.status == SearchSearching
	that.stopLocked()
	that.generation++
	that.status = SearchIdle

	if wasSearching {
		that.logger.Info("search cancelled")
	}

	return wasSearching
}

func (that *Matchmaker) Status() SearchStatus {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.status
}

func (that *Matchmaker) stopLocked() {
	that.task.Stop()
	that.task = nil
}

// finish - records the outcome when the attempt still owns the matchmaker.
func (that *Matchmaker) finish(generation uint64, status SearchStatus) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if generation != that.generation {
		return false
	}

	that.status = status
	that.stopLocked()

	return true
}

func (that *Matchmaker) isCurrent(generation uint64) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return generation == that.generation
}

type searchAttempt struct {
	matchmaker *Matchmaker
	generation uint64
	deviceID   string
	size       int
	started    time.Time
	onResult   func(SearchOutcome)
	log        *slog.Logger
	firstTick  bool
}

func (that *searchAttempt) tick(ctx context.Context) bool {
	// an in-flight request completes even if the search is cancelled meanwhile
	reqCtx := context.WithoutCancel(ctx)
	service := that.matchmaker.service

	if that.firstTick {
		that.firstTick = false

		// failures here only mean there is nothing to resume
		match, err := service.FindMatchForDevice(reqCtx, that.deviceID)
		if err == nil && match.SymbolOf(that.deviceID).IsPlayer() {
			that.log.Info("resuming existing match", "match_id", match.ID)
			return that.matched(match)
		}
	}

	if !that.matchmaker.isCurrent(that.generation) {
		return false
	}

	match, err := service.CreateMatch(reqCtx, that.deviceID, that.size)
	if err == nil {
		return that.matched(match)
	}

	switch apperror.Classify(err) {
	case apperror.FaultWaiting, apperror.FaultTransient:
		result := "waiting"
		if apperror.Classify(err) == apperror.FaultTransient {
			result = "retry"
			that.log.Warn("search attempt failed, retrying", "error", err)
		}
		that.matchmaker.recorder.SearchAttempt(result)

		if that.matchmaker.maxDuration > 0 && time.Since(that.started) >= that.matchmaker.maxDuration {
			return that.failed(fmt.Errorf("%w after %s", apperror.ErrSearchTimeout, that.matchmaker.maxDuration))
		}

		return that.matchmaker.isCurrent(that.generation)
	default:
		return that.failed(err)
	}
}

func (that *searchAttempt) matched(match *entity.Match) bool {
	symbol := match.SymbolOf(that.deviceID)
	if !symbol.IsPlayer() {
		return that.failed(fmt.Errorf("%w: match %s", apperror.ErrUnknownPlayer, match.ID))
	}

	if !that.matchmaker.finish(that.generation, SearchMatched) {
		return false
	}

	that.matchmaker.recorder.SearchAttempt("matched")
	that.log.Info("matched", "match_id", match.ID, "symbol", symbol)
	that.deliver(SearchOutcome{Match: match, Symbol: symbol})

	return false
}

func (that *searchAttempt) failed(err error) bool {
	if !that.matchmaker.finish(that.generation, SearchFailed) {
		return false
	}

	that.matchmaker.recorder.SearchAttempt("failed")
	that.log.Error("search failed", "error", err)
	that.deliver(SearchOutcome{Err: fmt.Errorf("failed to find a match: %w", err)})

	return false
}

func (that *searchAttempt) deliver(outcome SearchOutcome) {
	if that.onResult != nil {
		that.onResult(outcome)
	}
}
