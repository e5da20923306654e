package apperrors

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestReasonLooksThroughWrapping(t *testing.T) {
	err := errors.Wrap(ErrInvalidParticipant, "device \"bob\"")
	assert.Equal(t, ReasonInvalidParticipant, Reason(err))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestReasonPersistence(t *testing.T) {
	err := errors.Wrap(ErrPersistence, "write state.json")
	assert.Equal(t, ReasonPersistence, Reason(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestReasonUnknown(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, ReasonInternal, Reason(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}
