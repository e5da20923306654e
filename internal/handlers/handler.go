package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/buzon/internal/apperrors"
	"github.com/eldtechnologies/buzon/internal/models"
	"github.com/eldtechnologies/buzon/internal/presence"
)

// Mailbox is the mailbox store as seen by the HTTP layer.
type Mailbox interface {
	Send(ctx context.Context, from, text string) (models.Message, error)
	Latest() (*models.Message, bool)
	Pair() models.Pair
}

// Tracker is the presence & read tracker as seen by the HTTP layer.
type Tracker interface {
	Poll(device string) (presence.Status, error)
	Acknowledge(device string, messageID int64) (int64, error)
}

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	mailbox  Mailbox
	tracker  Tracker
	checks   map[string]Pinger
	logger   zerolog.Logger
	instance string
}

// NewHandler creates a new Handler. checks names the backends probed by /health.
func NewHandler(mb Mailbox, tracker Tracker, checks map[string]Pinger, logger zerolog.Logger, instance string) *Handler {
	return &Handler{
		mailbox:  mb,
		tracker:  tracker,
		checks:   checks,
		logger:   logger,
		instance: instance,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, ErrorResponse{Error: message, Reason: apperrors.ReasonInternal})
}

// Fail reports err with its reason and status code. POST endpoints also carry
// "status": "error" in the body.
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}

	resp := ErrorResponse{Error: message, Reason: apperrors.Reason(err)}
	if r.Method == http.MethodPost {
		resp.Status = "error"
	}
	h.JSON(w, status, resp)
}
