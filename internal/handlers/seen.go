package handlers

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/eldtechnologies/buzon/internal/apperrors"
	"github.com/eldtechnologies/buzon/internal/models"
)

// MarkSeenRequest represents the mark seen request body. MessageID is kept raw
// because devices send it either as a number or as a numeric string.
type MarkSeenRequest struct {
	Device    string          `json:"device"`
	MessageID json.RawMessage `json:"message_id"`
}

// MarkSeenResponse represents the mark seen response.
type MarkSeenResponse struct {
	Status            string             `json:"status"`
	Device            models.Participant `json:"device"`
	LastSeenMessageID int64              `json:"last_seen_message_id"`
}

// MarkSeen handles POST /mensaje_visto, sent by a device once it has shown a message.
func (h *Handler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	var req MarkSeenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.Fail(w, r, errors.Wrap(apperrors.ErrInvalidBody, err.Error()), "cuerpo inválido")
		return
	}

	device, err := h.mailbox.Pair().Parse(req.Device)
	if err != nil {
		h.Fail(w, r, err, "device inválido")
		return
	}

	id, err := parseMessageID(req.MessageID)
	if err != nil {
		h.Fail(w, r, err, "message_id inválido")
		return
	}

	watermark, err := h.tracker.Acknowledge(string(device), id)
	if err != nil {
		h.Fail(w, r, err, "message_id inválido")
		return
	}

	h.JSON(w, http.StatusOK, MarkSeenResponse{
		Status:            "ok",
		Device:            device,
		LastSeenMessageID: watermark,
	})
}

// parseMessageID accepts 3, 3.0 and "3". Anything else, including a missing value,
// is ErrInvalidMessageID.
func parseMessageID(raw json.RawMessage) (int64, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, errors.Wrap(apperrors.ErrInvalidMessageID, "missing")
	}

	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errors.Wrap(apperrors.ErrInvalidMessageID, err.Error())
		}
		text = strings.TrimSpace(s)
	}

	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		return id, nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
		return int64(f), nil
	}
	return 0, errors.Wrapf(apperrors.ErrInvalidMessageID, "%s is not an integer", text)
}
