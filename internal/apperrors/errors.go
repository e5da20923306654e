package apperrors

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrEmptyMessage       = errors.New("empty message")
	ErrInvalidMessageID   = errors.New("invalid message id")
	ErrInvalidBody        = errors.New("invalid request body")
	ErrPersistence        = errors.New("persistence failure")
)

// Machine-stable reasons reported to clients alongside the error text.
const (
	ReasonInvalidParticipant = "invalid_participant"
	ReasonEmptyMessage       = "empty_message"
	ReasonInvalidMessageID   = "invalid_message_id"
	ReasonInvalidBody        = "invalid_body"
	ReasonPersistence        = "persistence_failure"
	ReasonInternal           = "internal_error"
)

var reasons = []struct {
	err    error
	reason string
	status int
}{
	{ErrInvalidParticipant, ReasonInvalidParticipant, http.StatusBadRequest},
	{ErrEmptyMessage, ReasonEmptyMessage, http.StatusBadRequest},
	{ErrInvalidMessageID, ReasonInvalidMessageID, http.StatusBadRequest},
	{ErrInvalidBody, ReasonInvalidBody, http.StatusBadRequest},
	{ErrPersistence, ReasonPersistence, http.StatusInternalServerError},
}

// Reason returns the machine-stable reason for err, looking through wrapped errors.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}

// HTTPStatus returns the status code a handler should answer with for err.
func HTTPStatus(err error) int {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.status
		}
	}
	return http.StatusInternalServerError
}
