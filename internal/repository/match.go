package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

var ErrMatchNotFound = errors.New("match state not cached")

const matchKeyPrefix = "match:"

// MatchRepository caches the last applied state of online matches.
type MatchRepository interface {
	CreateOrUpdate(ctx context.Context, state *entity.MatchState) error
	GetByID(ctx context.Context, id string) (*entity.MatchState, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbMatch struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMatchRepository - ttl of 0 keeps entries until deleted.
func NewMatchRepository(client *redis.Client, ttl time.Duration) MatchRepository {
	return &dbMatch{
		client: client,
		ttl:    ttl,
	}
}

func (that *dbMatch) CreateOrUpdate(ctx context.Context, state *entity.MatchState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not marshal match state: %w", err)
	}

	err = that.client.Set(ctx, matchKeyPrefix+state.MatchID, stateJSON, that.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set match state: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByID(ctx context.Context, id string) (*entity.MatchState, error) {
	response, err := that.client.Get(ctx, matchKeyPrefix+id).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get match state by id: %w", err)
	}

	var state entity.MatchState
	if err = json.Unmarshal([]byte(response), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match state: %w", err)
	}

	return &state, nil
}

func (that *dbMatch) DeleteByID(ctx context.Context, id string) error {
	err := that.client.Del(ctx, matchKeyPrefix+id).Err()
	if err != nil {
		return fmt.Errorf("failed to delete match state by id: %w", err)
	}

	return nil
}

type memoryMatch struct {
	mu     sync.RWMutex
	states map[string]*entity.MatchState
}

// NewMemoryMatchRepository - process-local store used when no redis is configured.
func NewMemoryMatchRepository() MatchRepository {
	return &memoryMatch{states: make(map[string]*entity.MatchState)}
}

func (that *memoryMatch) CreateOrUpdate(_ context.Context, state *entity.MatchState) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.states[state.MatchID] = cloneState(state)

	return nil
}

func (that *memoryMatch) GetByID(_ context.Context, id string) (*entity.MatchState, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	state, ok := that.states[id]
	if !ok {
		return nil, ErrMatchNotFound
	}

	return cloneState(state), nil
}

func (that *memoryMatch) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.states, id)

	return nil
}

func cloneState(state *entity.MatchState) *entity.MatchState {
	clone := *state
	clone.Board = state.Board.Clone()

	if state.Players != nil {
		clone.Players = make(map[string]entity.Symbol, len(state.Players))
		for id, symbol := range state.Players {
			clone.Players[id] = symbol
		}
	}

	return &clone
}
