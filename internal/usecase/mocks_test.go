package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type mockMatchFinder struct {
	mock.Mock
}

func (that *mockMatchFinder) FindMatchForDevice(ctx context.Context, deviceID string) (*entity.Match, error) {
	args := that.Called(ctx, deviceID)
	match, _ := args.Get(0).(*entity.Match)

	return match, args.Error(1)
}

func (that *mockMatchFinder) CreateMatch(ctx context.Context, deviceID string, size int) (*entity.Match, error) {
	args := that.Called(ctx, deviceID, size)
	match, _ := args.Get(0).(*entity.Match)

	return match, args.Error(1)
}

type mockStateFetcher struct {
	mock.Mock
}

func (that *mockStateFetcher) MatchState(ctx context.Context, matchID string) (*entity.MatchState, error) {
	args := that.Called(ctx, matchID)
	state, _ := args.Get(0).(*entity.MatchState)

	return state, args.Error(1)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (that *countingRecorder) add(key string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.counts == nil {
		that.counts = map[string]int{}
	}
	that.counts[key]++
}

func (that *countingRecorder) get(key string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.counts[key]
}

func (that *countingRecorder) SearchAttempt(result string) { that.add("search:" + result) }
func (that *countingRecorder) SyncTick(result string)      { that.add("sync:" + result) }
func (that *countingRecorder) MatchFinished(outcome string) { that.add("finished:" + outcome) }

// outcomes collects search results delivered on background goroutines.
type outcomes struct {
	mu   sync.Mutex
	list []SearchOutcome
}

func (that *outcomes) add(outcome SearchOutcome) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.list = append(that.list, outcome)
}

func (that *outcomes) all() []SearchOutcome {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]SearchOutcome(nil), that.list...)
}
