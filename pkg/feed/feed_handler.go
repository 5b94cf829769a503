package feed

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

type Handler struct {
	exporter *Exporter
}

func NewHandler(exporter *Exporter) *Handler {
	return &Handler{exporter: exporter}
}

// Calendar serves the full event feed as an .ics document.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="guildbot.ics"`)

	if err := h.exporter.WriteCalendar(r.Context(), w); err != nil {
		log.WithError(err).Error("Failed to export calendar feed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
