package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusError_Unwrap(t *testing.T) {
	cases := []struct {
		code     int
		sentinel error
	}{
		{http.StatusAccepted, ErrWaitingForOpponent},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrServiceUnavailable},
		{http.StatusBadGateway, ErrServiceUnavailable},
		{http.StatusForbidden, ErrRequestRejected},
		{http.StatusBadRequest, ErrRequestRejected},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			// Given: a wrapped status error
			err := fmt.Errorf("failed to call: %w", &StatusError{Code: tc.code, Body: "body"})

			// Then: it matches its class sentinel
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("Lobby status is not an error class", func(t *testing.T) {
		err := &StatusError{Code: http.StatusAccepted}

		assert.Equal(t, FaultWaiting, Classify(err))
	})

	t.Run("Server errors and transport failures are transient", func(t *testing.T) {
		assert.Equal(t, FaultTransient, Classify(&StatusError{Code: http.StatusServiceUnavailable}))
		assert.Equal(t, FaultTransient, Classify(fmt.Errorf("%w: %w", ErrTransport, errors.New("dial tcp: refused"))))
		assert.Equal(t, FaultTransient, Classify(context.DeadlineExceeded))
	})

	t.Run("Not found is its own class", func(t *testing.T) {
		assert.Equal(t, FaultNotFound, Classify(&StatusError{Code: http.StatusNotFound, Body: "match not found"}))
	})

	t.Run("Local guards", func(t *testing.T) {
		assert.Equal(t, FaultLocal, Classify(ErrNotYourTurn))
		assert.Equal(t, FaultLocal, Classify(fmt.Errorf("move rejected: %w", ErrCellOccupied)))
	})

	t.Run("Everything else is fatal", func(t *testing.T) {
		assert.Equal(t, FaultFatal, Classify(&StatusError{Code: http.StatusBadRequest}))
		assert.Equal(t, FaultFatal, Classify(errors.New("boom")))
		assert.Equal(t, FaultNone, Classify(nil))
	})
}
