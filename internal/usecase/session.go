package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/tictactoe"
)

const (
	MsgSearching    = "Searching for an opponent..."
	MsgNotYourTurn  = "Not your turn"
	MsgCellOccupied = "Cell occupied"
	MsgOpponentLeft = "Your opponent left the match. You win!"
	MsgYouWin       = "You win!"
	MsgYouLose      = "You lose!"

	cacheTimeout = time.Second
)

type matchService interface {
	matchFinder
	stateFetcher

	RegisterDevice(ctx context.Context, alias string) (string, error)
	ConnectedDevices(ctx context.Context) ([]string, error)
	DeviceInfo(ctx context.Context, deviceID string) (*entity.DeviceInfo, error)
	ResetDeviceStats(ctx context.Context, deviceID string) (*entity.StatsReset, error)
	MakeMove(ctx context.Context, matchID, deviceID string, row, col int) (*entity.MoveResult, error)
	Surrender(ctx context.Context, matchID, deviceID string) (string, error)
	Leave(ctx context.Context, matchID, deviceID string) (string, error)
}

type matchRepo interface {
	CreateOrUpdate(ctx context.Context, state *entity.MatchState) error
	GetByID(ctx context.Context, id string) (*entity.MatchState, error)
	DeleteByID(ctx context.Context, id string) error
}

type deviceRepo interface {
	CreateOrUpdate(ctx context.Context, device *entity.Device) error
	GetByAlias(ctx context.Context, alias string) (*entity.Device, error)
	DeleteByAlias(ctx context.Context, alias string) error
}

type State int

const (
	StateIdle State = iota
	StateSearching
	StatePlaying
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	default:
		return "idle"
	}
}

// Snapshot is a copy of the session as the presentation layer sees it.
type Snapshot struct {
	State    State
	DeviceID string
	Size     int

	MatchID  string
	Symbol   entity.Symbol
	Opponent string
	Board    entity.Board
	Turn     string
	Winner   entity.Symbol
	// WinningLine is computed locally for highlighting; the winner itself comes from the service.
	WinningLine []int
	Reason      TerminalReason

	Message string
	Stats   *entity.DeviceInfo
}

func (that Snapshot) MyTurn() bool {
	return that.State == StatePlaying && that.DeviceID != "" && that.Turn == that.DeviceID
}

func (that Snapshot) Won() bool {
	return that.State == StateFinished && that.Winner != entity.SymbolNone && that.Winner == that.Symbol
}

type SessionConfig struct {
	SearchInterval    time.Duration
	MaxSearchDuration time.Duration
	SyncInterval      time.Duration
}

// Session owns the device, the current match and both background loops of one player.
type Session struct {
	logger   *slog.Logger
	service  matchService
	repo     matchRepo
	devices  deviceRepo
	recorder Recorder

	matchmaker *Matchmaker
	poller     *SyncPoller

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	snap Snapshot
	// epoch changes whenever the current match attempt is abandoned
	epoch uint64
	// polls issued before this moment may predate the last applied move
	lastMoveAt time.Time
	// cacheSeq orders cache writes prepared under mu
	cacheSeq uint64

	// cacheMu guards cacheWritten and serializes repository I/O outside mu
	cacheMu      sync.Mutex
	cacheWritten uint64

	subscribers map[int]chan Snapshot
	nextSubID   int
	closed      bool
}

func NewSession(
	logger *slog.Logger,
	service matchService,
	repo matchRepo,
	devices deviceRepo,
	recorder Recorder,
	conf SessionConfig,
) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	recorder = orNoop(recorder)

	return &Session{
		logger:   logger.With("component", "session"),
		service:  service,
		repo:     repo,
		devices:  devices,
		recorder: recorder,

		matchmaker: NewMatchmaker(logger, service, recorder, conf.SearchInterval, conf.MaxSearchDuration),
		poller:     NewSyncPoller(logger, service, recorder, conf.SyncInterval),

		ctx:    ctx,
		cancel: cancel,

		subscribers: make(map[int]chan Snapshot),
	}
}

// Connect - registers the device with the service, reusing the id last registered under the same alias
// while the service still knows it. Allowed only while idle.
func (that *Session) Connect(ctx context.Context, alias string) (string, error) {
	log := that.logger.With("method", "Connect")

	that.mu.Lock()
	if that.snap.State != StateIdle {
		that.mu.Unlock()
		return "", apperror.ErrNotIdle
	}
	that.mu.Unlock()

	deviceID, resumed, err := that.resolveDevice(ctx, alias)
	if err != nil {
		return "", fmt.Errorf("failed to connect: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.snap.DeviceID = deviceID
	that.snap.Message = ""
	that.notifyLocked()

	log.Info("device connected", "device_id", deviceID, "resumed", resumed)

	return deviceID, nil
}

func (that *Session) resolveDevice(ctx context.Context, alias string) (string, bool, error) {
	log := that.logger.With("method", "resolveDevice")

	if alias == "" {
		deviceID, err := that.service.RegisterDevice(ctx, alias)
		return deviceID, false, err
	}

	if known, err := that.devices.GetByAlias(ctx, alias); err == nil {
		_, infoErr := that.service.DeviceInfo(ctx, known.ID)
		if infoErr == nil {
			return known.ID, true, nil
		}
		if !errors.Is(infoErr, apperror.ErrNotFound) {
			return "", false, infoErr
		}

		log.Info("remembered device is gone from the service", "device_id", known.ID)
	} else {
		log.Debug("no remembered device", "alias", alias, "error", err)
	}

	deviceID, err := that.service.RegisterDevice(ctx, alias)
	if err != nil {
		return "", false, err
	}

	device := &entity.Device{ID: deviceID, Alias: alias, RegisteredAt: time.Now().UTC()}
	if err = that.devices.CreateOrUpdate(ctx, device); err != nil {
		log.Warn("could not remember device", "error", err)
	}

	return deviceID, false, nil
}

// Search - starts matchmaking for a board of the given size.
func (that *Session) Search(size int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.snap.DeviceID == "" {
		return apperror.ErrNoDevice
	}

	if that.snap.State != StateIdle {
		return apperror.ErrNotIdle
	}

	that.epoch++
	epoch := that.epoch
	deviceID := that.snap.DeviceID

	err := that.matchmaker.Search(that.ctx, deviceID, size, func(outcome SearchOutcome) {
		that.onSearchOutcome(epoch, size, outcome)
	})
	if err != nil {
		return fmt.Errorf("failed to start search: %w", err)
	}

	that.snap.State = StateSearching
	that.snap.Size = size
	that.snap.Message = MsgSearching
	that.notifyLocked()

	return nil
}

// CancelSearch - goes back to idle when searching, no-op otherwise.
func (that *Session) CancelSearch() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.snap.State != StateSearching {
		return
	}

	that.matchmaker.Cancel()
	that.epoch++
	that.snap.State = StateIdle
	that.snap.Message = ""
	that.notifyLocked()
}

func (that *Session) onSearchOutcome(epoch uint64, size int, outcome SearchOutcome) {
	var write cacheWrite
	defer func() { that.writeCache(write) }()

	that.mu.Lock()
	defer that.mu.Unlock()

	if epoch != that.epoch || that.snap.State != StateSearching {
		return
	}

	if outcome.Err != nil {
		that.snap.State = StateIdle
		that.snap.Message = outcome.Err.Error()
		that.notifyLocked()

		return
	}

	match := outcome.Match
	if entity.ValidBoardSize(match.Size) {
		size = match.Size
	}
	board, _ := entity.NewBoard(size)

	that.snap.State = StatePlaying
	that.snap.Size = size
	that.snap.MatchID = match.ID
	that.snap.Symbol = outcome.Symbol
	that.snap.Opponent = match.OpponentOf(that.snap.DeviceID)
	that.snap.Board = board
	that.snap.Turn = ""
	that.snap.Winner = entity.SymbolNone
	that.snap.WinningLine = nil
	that.snap.Reason = ""
	that.snap.Message = ""
	that.lastMoveAt = time.Time{}

	that.poller.Start(that.ctx, match.ID, outcome.Symbol, SyncHandlers{
		OnUpdate:   func(update Update) { that.onSyncUpdate(epoch, update) },
		OnTerminal: func(event Terminal) { that.onSyncTerminal(epoch, event) },
	})

	write = that.cacheLocked()
	that.notifyLocked()
}

func (that *Session) onSyncUpdate(epoch uint64, update Update) {
	var write cacheWrite
	defer func() { that.writeCache(write) }()

	that.mu.Lock()
	defer that.mu.Unlock()

	if epoch != that.epoch || that.snap.State != StatePlaying {
		return
	}

	// a move response received after this poll was issued is newer
	if update.IssuedAt.Before(that.lastMoveAt) {
		return
	}

	that.applyLocked(update.State.Board, update.State.Turn, update.State.Winner)
	write = that.cacheLocked()
	that.notifyLocked()
}

func (that *Session) onSyncTerminal(epoch uint64, event Terminal) {
	var write cacheWrite
	defer func() { that.writeCache(write) }()

	that.mu.Lock()
	defer that.mu.Unlock()

	if epoch != that.epoch || that.snap.State != StatePlaying {
		return
	}

	if event.State != nil {
		that.applyLocked(event.State.Board, event.State.Turn, event.State.Winner)
	}
	write = that.finishLocked(event.Reason, event.Winner)
}

// MakeMove - plays the cell in the current match. Guard failures return without contacting the service.
func (that *Session) MakeMove(ctx context.Context, index int) error {
	that.mu.Lock()

	if that.snap.State != StatePlaying {
		that.mu.Unlock()
		return apperror.ErrNotPlaying
	}

	if !that.snap.Board.InBounds(index) {
		that.mu.Unlock()
		return fmt.Errorf("%w: %d", apperror.ErrInvalidCell, index)
	}

	if that.snap.Turn != that.snap.DeviceID {
		that.snap.Message = MsgNotYourTurn
		that.notifyLocked()
		that.mu.Unlock()
		return apperror.ErrNotYourTurn
	}

	if that.snap.Board.Cell(index) != entity.SymbolNone {
		that.snap.Message = MsgCellOccupied
		that.notifyLocked()
		that.mu.Unlock()
		return apperror.ErrCellOccupied
	}

	epoch := that.epoch
	matchID, deviceID := that.snap.MatchID, that.snap.DeviceID
	row, col := that.snap.Board.Coords(index)
	that.mu.Unlock()

	result, err := that.service.MakeMove(ctx, matchID, deviceID, row, col)

	var write cacheWrite
	defer func() { that.writeCache(write) }()

	that.mu.Lock()
	defer that.mu.Unlock()

	if epoch != that.epoch || that.snap.State != StatePlaying {
		return nil
	}

	if err != nil {
		that.snap.Message = err.Error()
		that.notifyLocked()

		return fmt.Errorf("failed to make move: %w", err)
	}

	that.lastMoveAt = time.Now()
	that.snap.Message = ""
	that.applyLocked(result.Board, result.NextTurn, result.Winner)

	if result.Winner != entity.SymbolNone {
		write = that.finishLocked(ReasonWinner, result.Winner)
		return nil
	}

	write = that.cacheLocked()
	that.notifyLocked()

	return nil
}

// Surrender - tells the service the local device gives up, then resets locally whatever the answer.
func (that *Session) Surrender(ctx context.Context) error {
	log := that.logger.With("method", "Surrender")

	that.mu.Lock()
	if that.snap.State != StatePlaying {
		that.mu.Unlock()
		return apperror.ErrNotPlaying
	}
	matchID, deviceID := that.snap.MatchID, that.snap.DeviceID
	that.teardownLocked()
	drop := that.dropLocked(matchID)
	that.mu.Unlock()

	if _, err := that.service.Surrender(ctx, matchID, deviceID); err != nil {
		log.Warn("failed to notify surrender", "match_id", matchID, "error", err)
	}

	that.writeCache(drop)

	return nil
}

// Reset - stops every loop and returns to idle. A match still being played is left on the service.
func (that *Session) Reset(ctx context.Context) {
	log := that.logger.With("method", "Reset")

	that.mu.Lock()
	wasPlaying := that.snap.State == StatePlaying
	matchID, deviceID := that.snap.MatchID, that.snap.DeviceID
	that.teardownLocked()
	drop := that.dropLocked(matchID)
	that.mu.Unlock()

	if wasPlaying {
		if _, err := that.service.Leave(ctx, matchID, deviceID); err != nil {
			log.Warn("failed to leave match", "match_id", matchID, "error", err)
		}
	}

	that.writeCache(drop)
}

// Close - resets the session and releases subscribers. The session is unusable afterwards.
func (that *Session) Close(ctx context.Context) {
	that.Reset(ctx)

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}
	that.closed = true
	that.cancel()

	for id, ch := range that.subscribers {
		close(ch)
		delete(that.subscribers, id)
	}
}

func (that *Session) Snapshot() Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.copyLocked()
}

// Subscribe - every change is offered to the channel; a slow reader only sees the latest snapshot.
func (that *Session) Subscribe() (<-chan Snapshot, func()) {
	that.mu.Lock()
	defer that.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if that.closed {
		close(ch)
		return ch, func() {}
	}

	id := that.nextSubID
	that.nextSubID++
	that.subscribers[id] = ch
	ch <- that.copyLocked()

	return ch, func() {
		that.mu.Lock()
		defer that.mu.Unlock()

		if sub, ok := that.subscribers[id]; ok {
			close(sub)
			delete(that.subscribers, id)
		}
	}
}

// CachedMatch - last state of the current match as written to the cache.
func (that *Session) CachedMatch(ctx context.Context) (*entity.MatchState, error) {
	that.mu.Lock()
	matchID := that.snap.MatchID
	that.mu.Unlock()

	if matchID == "" {
		return nil, apperror.ErrNotPlaying
	}

	state, err := that.repo.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cached match: %w", err)
	}

	return state, nil
}

func (that *Session) Stats(ctx context.Context) (*entity.DeviceInfo, error) {
	deviceID, err := that.deviceID()
	if err != nil {
		return nil, err
	}

	info, err := that.service.DeviceInfo(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	that.mu.Lock()
	that.snap.Stats = info
	that.notifyLocked()
	that.mu.Unlock()

	return info, nil
}

func (that *Session) ResetStats(ctx context.Context) (*entity.StatsReset, error) {
	deviceID, err := that.deviceID()
	if err != nil {
		return nil, err
	}

	reset, err := that.service.ResetDeviceStats(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to reset stats: %w", err)
	}

	return reset, nil
}

func (that *Session) ConnectedDevices(ctx context.Context) ([]string, error) {
	devices, err := that.service.ConnectedDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	return devices, nil
}

func (that *Session) deviceID() (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.snap.DeviceID == "" {
		return "", apperror.ErrNoDevice
	}

	return that.snap.DeviceID, nil
}

func (that *Session) applyLocked(board entity.Board, turn string, winner entity.Symbol) {
	if board.Size > 0 {
		that.snap.Board = board.Clone()
		that.snap.Size = board.Size
	}
	that.snap.Turn = turn
	that.snap.Winner = winner
	that.snap.WinningLine = tictactoe.Detect(that.snap.Board).Line
}

func (that *Session) finishLocked(reason TerminalReason, winner entity.Symbol) cacheWrite {
	that.poller.Stop()

	that.snap.State = StateFinished
	that.snap.Reason = reason
	that.snap.Winner = winner
	that.snap.Turn = ""

	outcome := "loss"
	switch {
	case reason == ReasonOpponentLeft:
		outcome = "win"
		that.snap.Message = MsgOpponentLeft
	case winner == that.snap.Symbol:
		outcome = "win"
		that.snap.Message = MsgYouWin
	default:
		that.snap.Message = MsgYouLose
	}
	that.recorder.MatchFinished(outcome)

	that.logger.Info("match finished", "match_id", that.snap.MatchID, "reason", reason, "outcome", outcome)

	write := that.cacheLocked()
	that.notifyLocked()

	go that.refreshStats(that.epoch)

	return write
}

func (that *Session) refreshStats(epoch uint64) {
	ctx, cancel := context.WithTimeout(that.ctx, 5*time.Second)
	defer cancel()

	deviceID, err := that.deviceID()
	if err != nil {
		return
	}

	info, err := that.service.DeviceInfo(ctx, deviceID)
	if err != nil {
		that.logger.Debug("failed to refresh stats", "error", err)
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if epoch == that.epoch && !that.closed {
		that.snap.Stats = info
		that.notifyLocked()
	}
}

// teardownLocked - stops both loops and clears the match, keeping the device.
func (that *Session) teardownLocked() {
	that.matchmaker.Cancel()
	that.poller.Stop()
	that.epoch++

	that.snap = Snapshot{DeviceID: that.snap.DeviceID, Size: that.snap.Size, Stats: that.snap.Stats}
	that.lastMoveAt = time.Time{}
	that.notifyLocked()
}

// cacheWrite is a repository change prepared under mu and applied after it is released.
// A nil state with a match id deletes the entry.
type cacheWrite struct {
	seq     uint64
	matchID string
	state   *entity.MatchState
}

func (that *Session) cacheLocked() cacheWrite {
	if that.snap.MatchID == "" {
		return cacheWrite{}
	}

	state := &entity.MatchState{
		MatchID: that.snap.MatchID,
		Board:   that.snap.Board.Clone(),
		Turn:    that.snap.Turn,
		Winner:  that.snap.Winner,
		Players: map[string]entity.Symbol{that.snap.DeviceID: that.snap.Symbol},
		// set when the match ended by departure
		OpponentLeft: that.snap.Reason == ReasonOpponentLeft,
	}
	if that.snap.Opponent != "" {
		state.Players[that.snap.Opponent] = that.snap.Symbol.Opponent()
	}

	that.cacheSeq++

	return cacheWrite{seq: that.cacheSeq, matchID: state.MatchID, state: state}
}

func (that *Session) dropLocked(matchID string) cacheWrite {
	if matchID == "" {
		return cacheWrite{}
	}

	that.cacheSeq++

	return cacheWrite{seq: that.cacheSeq, matchID: matchID}
}

// writeCache - applies the change unless a later one was already written.
func (that *Session) writeCache(write cacheWrite) {
	if write.matchID == "" {
		return
	}

	that.cacheMu.Lock()
	defer that.cacheMu.Unlock()

	if write.seq <= that.cacheWritten {
		return
	}
	that.cacheWritten = write.seq

	ctx, cancel := context.WithTimeout(context.WithoutCancel(that.ctx), cacheTimeout)
	defer cancel()

	if write.state == nil {
		if err := that.repo.DeleteByID(ctx, write.matchID); err != nil {
			that.logger.Warn("failed to drop cached match", "match_id", write.matchID, "error", err)
		}

		return
	}

	if err := that.repo.CreateOrUpdate(ctx, write.state); err != nil {
		that.logger.Warn("failed to cache match state", "match_id", write.matchID, "error", err)
	}
}

func (that *Session) copyLocked() Snapshot {
	snap := that.snap
	snap.Board = that.snap.Board.Clone()
	if that.snap.WinningLine != nil {
		snap.WinningLine = append([]int(nil), that.snap.WinningLine...)
	}
	if that.snap.Stats != nil {
		stats := *that.snap.Stats
		snap.Stats = &stats
	}

	return snap
}

func (that *Session) notifyLocked() {
	if that.closed {
		return
	}

	snap := that.copyLocked()
	for _, ch := range that.subscribers {
		// replace an unread snapshot with the newer one
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
