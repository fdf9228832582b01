package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

var ErrDeviceNotFound = errors.New("device not registered")

const deviceKeyPrefix = "device:"

// DeviceRepository remembers device registrations by alias.
type DeviceRepository interface {
	CreateOrUpdate(ctx context.Context, device *entity.Device) error
	GetByAlias(ctx context.Context, alias string) (*entity.Device, error)
	DeleteByAlias(ctx context.Context, alias string) error
}

type dbDevice struct {
	client *redis.Client
}

func NewDeviceRepository(client *redis.Client) DeviceRepository {
	return &dbDevice{
		client: client,
	}
}

func (that *dbDevice) CreateOrUpdate(ctx context.Context, device *entity.Device) error {
	deviceJSON, err := json.Marshal(device)
	if err != nil {
		return fmt.Errorf("failed to marshal device: %w", err)
	}

	err = that.client.Set(ctx, deviceKeyPrefix+device.Alias, deviceJSON, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set device: %w", err)
	}

	return nil
}

func (that *dbDevice) GetByAlias(ctx context.Context, alias string) (*entity.Device, error) {
	response, err := that.client.Get(ctx, deviceKeyPrefix+alias).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrDeviceNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get device by alias: %w", err)
	}

	var device entity.Device
	if err = json.Unmarshal([]byte(response), &device); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device: %w", err)
	}

	return &device, nil
}

func (that *dbDevice) DeleteByAlias(ctx context.Context, alias string) error {
	if err := that.client.Del(ctx, deviceKeyPrefix+alias).Err(); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	return nil
}

type memoryDevice struct {
	mu      sync.RWMutex
	devices map[string]entity.Device
}

func NewMemoryDeviceRepository() DeviceRepository {
	return &memoryDevice{devices: make(map[string]entity.Device)}
}

func (that *memoryDevice) CreateOrUpdate(_ context.Context, device *entity.Device) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.devices[device.Alias] = *device

	return nil
}

func (that *memoryDevice) GetByAlias(_ context.Context, alias string) (*entity.Device, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	device, ok := that.devices[alias]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	return &device, nil
}

func (that *memoryDevice) DeleteByAlias(_ context.Context, alias string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.devices, alias)

	return nil
}
