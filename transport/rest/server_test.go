package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/usecase"
)

type stubSession struct {
	snap   usecase.Snapshot
	cached *entity.MatchState
	err    error
}

func (that *stubSession) Snapshot() usecase.Snapshot {
	return that.snap
}

func (that *stubSession) CachedMatch(context.Context) (*entity.MatchState, error) {
	return that.cached, that.err
}

func serve(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestServer_Ping(t *testing.T) {
	server := New(testLogger(), &stubSession{}, nil)

	rec := serve(t, server, "/ping")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestServer_Session(t *testing.T) {
	// Given: a session playing its turn
	board, err := entity.NewBoard(3)
	require.NoError(t, err)

	session := &stubSession{snap: usecase.Snapshot{
		State:    usecase.StatePlaying,
		DeviceID: "dev-a",
		MatchID:  "m1",
		Symbol:   entity.SymbolX,
		Board:    board.With(4, entity.SymbolO),
		Turn:     "dev-a",
	}}
	server := New(testLogger(), session, nil)

	// When: reading it
	rec := serve(t, server, "/session")

	// Then: the snapshot is rendered as JSON
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "playing", resp.State)
	assert.True(t, resp.MyTurn)
	assert.Equal(t, "O", resp.Board[1][1])
}

func TestServer_Match(t *testing.T) {
	t.Run("Cached state in the service shape", func(t *testing.T) {
		board, err := entity.NewBoard(3)
		require.NoError(t, err)

		session := &stubSession{cached: &entity.MatchState{
			MatchID: "m1",
			Board:   board.With(0, entity.SymbolX),
			Turn:    "dev-b",
			Players: map[string]entity.Symbol{"dev-a": entity.SymbolX, "dev-b": entity.SymbolO},
		}}
		server := New(testLogger(), session, nil)

		rec := serve(t, server, "/match")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"match_id":"m1",
			"board":[["X","",""],["","",""],["","",""]],
			"turn":"dev-b","winner":null,
			"players":{"dev-a":"X","dev-b":"O"},
			"opponent_left":false}`, rec.Body.String())
	})

	t.Run("No match is not found", func(t *testing.T) {
		server := New(testLogger(), &stubSession{err: apperror.ErrNotPlaying}, nil)

		rec := serve(t, server, "/match")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	server := New(testLogger(), &stubSession{}, metrics)

	rec := serve(t, server, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}
