package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx (or 202 lobby) answer of the match service.
type StatusError struct {
	Code int
	Body string
}

func (that *StatusError) Error() string {
	if that.Body == "" {
		return fmt.Sprintf("match service status %d", that.Code)
	}

	return fmt.Sprintf("match service status %d: %s", that.Code, that.Body)
}

// Unwrap maps the status code onto its fault class sentinel.
func (that *StatusError) Unwrap() error {
	switch {
	case that.Code == http.StatusAccepted:
		return ErrWaitingForOpponent
	case that.Code == http.StatusNotFound:
		return ErrNotFound
	case that.Code == http.StatusRequestTimeout,
		that.Code == http.StatusTooManyRequests,
		that.Code >= http.StatusInternalServerError:
		return ErrServiceUnavailable
	default:
		return ErrRequestRejected
	}
}

// Fault is the client-side class of an error, see Classify.
type Fault int

const (
	FaultNone Fault = iota
	// FaultTransient - network or service hiccup, retried on the next tick.
	FaultTransient
	// FaultWaiting - lobby status, keep searching.
	FaultWaiting
	// FaultNotFound - the match or device is gone.
	FaultNotFound
	// FaultLocal - rejected by a local guard without contacting the service.
	FaultLocal
	// FaultFatal - anything else.
	FaultFatal
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultTransient:
		return "transient"
	case FaultWaiting:
		return "waiting"
	case FaultNotFound:
		return "not_found"
	case FaultLocal:
		return "local"
	default:
		return "fatal"
	}
}

// Classify - converts any error produced by the client into a Fault.
func Classify(err error) Fault {
	switch {
	case err == nil:
		return FaultNone
	case errors.Is(err, ErrWaitingForOpponent):
		return FaultWaiting
	case errors.Is(err, ErrNotFound):
		return FaultNotFound
	case errors.Is(err, ErrTransport),
		errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return FaultTransient
	case errors.Is(err, ErrNotYourTurn),
		errors.Is(err, ErrCellOccupied),
		errors.Is(err, ErrInvalidCell),
		errors.Is(err, ErrNotPlaying),
		errors.Is(err, ErrNoDevice),
		errors.Is(err, ErrNotIdle),
		errors.Is(err, ErrGameFinished):
		return FaultLocal
	default:
		return FaultFatal
	}
}
