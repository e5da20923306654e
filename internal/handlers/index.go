package handlers

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// Index renders the send form. Message contents are never shown on the page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	pair := h.mailbox.Pair()
	data := struct {
		Participants []string
	}{
		Participants: []string{string(pair.A), string(pair.B)},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		h.logger.Error().Err(err).Msg("failed to render index page")
	}
}
