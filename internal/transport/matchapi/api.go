package matchapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/valyala/fasthttp"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// Route labels reported to the Observer.
const (
	RouteDevices     = "/devices"
	RouteDeviceInfo  = "/devices/{id}/info"
	RouteStatsReset  = "/devices/{id}/stats/reset"
	RouteDeviceMatch = "/devices/{id}/match"
	RouteMatches     = "/matches"
	RouteMatch       = "/matches/{id}"
	RouteMoves       = "/matches/{id}/moves"
	RouteSurrender   = "/matches/{id}/surrender"
	RouteLeave       = "/matches/{id}/leave"
)

// RegisterDevice - announces this client and returns the device id assigned by the service.
func (c *Client) RegisterDevice(ctx context.Context, alias string) (string, error) {
	var resp registerResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, RouteDevices, "/devices", registerRequest{Alias: alias}, &resp); err != nil {
		return "", fmt.Errorf("failed to register device: %w", err)
	}

	if resp.DeviceID == "" {
		return "", fmt.Errorf("failed to register device: %w: empty device_id", apperror.ErrMalformedResponse)
	}

	return resp.DeviceID, nil
}

func (c *Client) ConnectedDevices(ctx context.Context) ([]string, error) {
	var resp devicesResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, RouteDevices, "/devices", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	return resp.ConnectedDevices, nil
}

func (c *Client) DeviceInfo(ctx context.Context, deviceID string) (*entity.DeviceInfo, error) {
	var info entity.DeviceInfo
	if err := c.doJSON(ctx, fasthttp.MethodGet, RouteDeviceInfo, devicePath(deviceID, "/info"), nil, &info); err != nil {
		return nil, fmt.Errorf("failed to get device info: %w", err)
	}

	return &info, nil
}

func (c *Client) ResetDeviceStats(ctx context.Context, deviceID string) (*entity.StatsReset, error) {
	var reset entity.StatsReset
	if err := c.doJSON(ctx, fasthttp.MethodPost, RouteStatsReset, devicePath(deviceID, "/stats/reset"), nil, &reset); err != nil {
		return nil, fmt.Errorf("failed to reset device stats: %w", err)
	}

	return &reset, nil
}

// FindMatchForDevice - returns the match the device is already paired in; not-found class error otherwise.
func (c *Client) FindMatchForDevice(ctx context.Context, deviceID string) (*entity.Match, error) {
	var resp matchResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, RouteDeviceMatch, devicePath(deviceID, "/match"), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to find match for device: %w", err)
	}

	return resp.toEntity()
}

// CreateMatch - joins or opens a lobby. While nobody else is in it the error unwraps to apperror.ErrWaitingForOpponent.
func (c *Client) CreateMatch(ctx context.Context, deviceID string, size int) (*entity.Match, error) {
	var resp matchResponse
	req := createMatchRequest{Size: size, DeviceID: deviceID}
	if err := c.doJSON(ctx, fasthttp.MethodPost, RouteMatches, "/matches", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	return resp.toEntity()
}

func (c *Client) MatchState(ctx context.Context, matchID string) (*entity.MatchState, error) {
	var resp stateResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, RouteMatch, matchPath(matchID, ""), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get match state: %w", err)
	}

	state, err := resp.toEntity(matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match state: %w", err)
	}

	return state, nil
}

// MakeMove - row and col become the service's x and y.
func (c *Client) MakeMove(ctx context.Context, matchID, deviceID string, row, col int) (*entity.MoveResult, error) {
	var resp moveResponse
	req := moveRequest{DeviceID: deviceID, X: row, Y: col}
	if err := c.doJSON(ctx, fasthttp.MethodPost, RouteMoves, matchPath(matchID, "/moves"), req, &resp); err != nil {
		return nil, fmt.Errorf("failed to make move: %w", err)
	}

	result, err := resp.toEntity()
	if err != nil {
		return nil, fmt.Errorf("failed to make move: %w", err)
	}

	return result, nil
}

func (c *Client) Surrender(ctx context.Context, matchID, deviceID string) (string, error) {
	var resp messageResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, RouteSurrender, matchPath(matchID, "/surrender"), deviceRequest{DeviceID: deviceID}, &resp); err != nil {
		return "", fmt.Errorf("failed to surrender: %w", err)
	}

	return resp.Message, nil
}

func (c *Client) Leave(ctx context.Context, matchID, deviceID string) (string, error) {
	var resp messageResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, RouteLeave, matchPath(matchID, "/leave"), deviceRequest{DeviceID: deviceID}, &resp); err != nil {
		return "", fmt.Errorf("failed to leave match: %w", err)
	}

	return resp.Message, nil
}

func devicePath(deviceID, suffix string) string {
	return "/devices/" + url.PathEscape(deviceID) + suffix
}

func matchPath(matchID, suffix string) string {
	return "/matches/" + url.PathEscape(matchID) + suffix
}
