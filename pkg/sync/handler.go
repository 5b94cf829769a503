package sync

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/guildbot/guildbot/internal/rest"
	"github.com/guildbot/guildbot/pkg/user"
)

type Handler struct {
	engine Engine
}

func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

// ShareCalendar provisions the current user's calendar and grants their
// linked external account access to it.
func (h *Handler) ShareCalendar(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	userId, err := user.CurrentId(r.Context())
	if err != nil {
		http.Error(w, "user not identified", http.StatusForbidden)
		return
	}

	calendarId, err := h.engine.ShareCalendar(r.Context(), userId)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		log.WithError(err).WithField("userId", userId).Warn("Calendar sharing failed")
		w.WriteHeader(http.StatusBadGateway)
		if encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error:   "Calendar sharing failed",
			Details: err.Error(),
		}); encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	if err := json.NewEncoder(w).Encode(struct {
		CalendarId string `json:"calendarId"`
	}{CalendarId: calendarId}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// UnshareCalendar revokes the current user's access grant.
func (h *Handler) UnshareCalendar(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		http.Error(w, "user not identified", http.StatusForbidden)
		return
	}

	if err := h.engine.UnshareCalendar(r.Context(), userId); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		log.WithError(err).WithField("userId", userId).Warn("Calendar unsharing failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResyncEvent pushes one event to all calendars again, on demand.
func (h *Handler) ResyncEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	eventId, err := strconv.ParseInt(vars["eventId"], 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	if err := h.engine.SyncEventForAll(r.Context(), eventId); err != nil {
		log.WithError(err).WithField("eventId", eventId).Warn("Manual event sync failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cleanup retries remote deletes still owed by records whose event is gone.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RetryPendingDeletes(r.Context()); err != nil {
		log.WithError(err).Warn("Pending delete retry failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
