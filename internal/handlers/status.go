package handlers

import (
	"net/http"

	"github.com/eldtechnologies/buzon/internal/models"
)

// StatusResponse represents the device status response.
type StatusResponse struct {
	Device      models.Participant `json:"device"`
	OtherDevice models.Participant `json:"other_device"`
	OtherOnline bool               `json:"other_online"`
	HasUnread   bool               `json:"has_unread"`
	Message     *models.Message    `json:"message"` // null until someone writes to this device
}

// Status handles GET /estado?device=<id>, the endpoint each device polls.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.tracker.Poll(r.URL.Query().Get("device"))
	if err != nil {
		h.Fail(w, r, err, "device inválido")
		return
	}

	h.JSON(w, http.StatusOK, StatusResponse{
		Device:      st.Device,
		OtherDevice: st.OtherDevice,
		OtherOnline: st.OtherOnline,
		HasUnread:   st.HasUnread,
		Message:     st.Message,
	})
}
