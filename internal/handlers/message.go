package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/eldtechnologies/buzon/internal/apperrors"
	"github.com/eldtechnologies/buzon/internal/models"
)

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
}

// SendMessageResponse represents the send message response.
type SendMessageResponse struct {
	Status  string             `json:"status"`
	To      models.Participant `json:"to"`
	Message models.Message     `json:"message"`
}

// SendMessage handles POST /mensaje. The body may be JSON or a submitted form.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSendRequest(r)
	if err != nil {
		h.Fail(w, r, err, "cuerpo inválido")
		return
	}

	// The web form of the first release never sent "from"; those senders are A.
	if strings.TrimSpace(req.From) == "" {
		req.From = string(h.mailbox.Pair().A)
	}

	msg, err := h.mailbox.Send(r.Context(), req.From, req.Text)
	if err != nil {
		h.Fail(w, r, err, sendErrorMessage(err))
		return
	}

	h.logger.Info().
		Int64("message_id", msg.ID).
		Str("from", string(msg.From)).
		Str("to", string(msg.To)).
		Msg("message sent")

	h.JSON(w, http.StatusOK, SendMessageResponse{
		Status:  "ok",
		To:      msg.To,
		Message: msg,
	})
}

func decodeSendRequest(r *http.Request) (SendMessageRequest, error) {
	var req SendMessageRequest

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(8 << 10); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return req, errors.Wrap(apperrors.ErrInvalidBody, err.Error())
		}
		req.Text = r.PostFormValue("text")
		req.From = r.PostFormValue("from")
		return req, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, errors.Wrap(apperrors.ErrInvalidBody, err.Error())
	}
	return req, nil
}

func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrEmptyMessage):
		return "Texto vacío"
	case errors.Is(err, apperrors.ErrInvalidParticipant):
		return "Campo 'from' inválido"
	case errors.Is(err, apperrors.ErrPersistence):
		return "no se pudo guardar el mensaje"
	}
	return "error interno"
}

// Latest handles GET /ultimo_mensaje: the newest message in either slot, or null.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	msg, _ := h.mailbox.Latest()
	h.JSON(w, http.StatusOK, msg)
}
