package storage

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStorage(t *testing.T) {
	t.Run("Connects to a running server", func(t *testing.T) {
		server := miniredis.RunT(t)
		port, err := strconv.Atoi(server.Port())
		require.NoError(t, err)

		st, err := NewRedisStorage(context.Background(), server.Host(), port)

		require.NoError(t, err)
		assert.NoError(t, st.Close())
	})

	t.Run("Fails when nothing listens", func(t *testing.T) {
		server := miniredis.RunT(t)
		host := server.Host()
		port, err := strconv.Atoi(server.Port())
		require.NoError(t, err)
		server.Close()

		_, err = NewRedisStorage(context.Background(), host, port)

		assert.Error(t, err)
	})
}
