// Package outcome turns errors from producers, consumers and the store into
// the small set of results callers act on: done, rejected (fix the input),
// unavailable (retry later) or failed.
package outcome

import (
	"context"
	"errors"
	"net/http"

	kafkax "github.com/ariefcatur/go-food-court/internal/kafka"
	"github.com/ariefcatur/go-food-court/internal/orders"
	"github.com/ariefcatur/go-food-court/internal/producer"
	"github.com/ariefcatur/go-food-court/internal/store"
)

type Kind string

const (
	OK          Kind = "ok"
	Rejected    Kind = "rejected"
	Unavailable Kind = "unavailable"
	Failed      Kind = "failed"
)

type Outcome struct {
	Kind   Kind   `json:"outcome"`
	Reason string `json:"reason,omitempty"`
	// Code is the HTTP status that represents the outcome.
	Code int `json:"-"`
}

func (o Outcome) Retryable() bool { return o.Kind == Unavailable }

func Classify(err error) Outcome {
	if err == nil {
		return Outcome{Kind: OK, Code: http.StatusOK}
	}

	var (
		verr  *orders.ValidationError
		aerr  *store.AuthError
		terr  *kafkax.TransportError
		trans *store.TransitionError
	)
	switch {
	case errors.As(err, &verr), errors.Is(err, producer.ErrOrderRejected):
		return rejected(err, http.StatusBadRequest)
	case errors.Is(err, store.ErrOrderNotFound):
		return rejected(err, http.StatusNotFound)
	case errors.As(err, &trans), errors.Is(err, store.ErrInvalidTransition):
		return rejected(err, http.StatusConflict)
	case errors.As(err, &aerr):
		switch {
		case errors.Is(err, store.ErrInvalidCredentials):
			return rejected(err, http.StatusUnauthorized)
		case errors.Is(err, store.ErrEmailTaken):
			return rejected(err, http.StatusConflict)
		}
		return rejected(err, http.StatusBadRequest)
	case errors.Is(err, store.ErrBusy), errors.Is(err, store.ErrClosed):
		return unavailable(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return unavailable(err)
	case errors.As(err, &terr):
		if terr.Recoverable {
			return unavailable(err)
		}
		return Outcome{Kind: Failed, Reason: err.Error(), Code: http.StatusInternalServerError}
	case errors.Is(err, kafkax.ErrClientClosed):
		return unavailable(err)
	}
	return Outcome{Kind: Failed, Reason: err.Error(), Code: http.StatusInternalServerError}
}

func rejected(err error, code int) Outcome {
	return Outcome{Kind: Rejected, Reason: err.Error(), Code: code}
}

func unavailable(err error) Outcome {
	return Outcome{Kind: Unavailable, Reason: err.Error(), Code: http.StatusServiceUnavailable}
}
