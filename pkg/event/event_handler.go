package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/guildbot/guildbot/internal/rest"
)

type EventDTO struct {
	Id          int64  `json:"id,string"`
	ChannelId   int64  `json:"channelId,string"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	BeginDate   string `json:"beginDate"`
	BeginTime   string `json:"beginTime,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	CreatedAt   string `json:"createdAt"`
	ModifiedAt  string `json:"modifiedAt"`
}

type eventRequest struct {
	ChannelId   int64  `json:"channelId,string"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BeginDate   string `json:"beginDate"`
	BeginTime   string `json:"beginTime"`
	EndDate     string `json:"endDate"`
	EndTime     string `json:"endTime"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) DeclareEvent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Declaring event")

	e, ok := h.decodeEvent(w, r)
	if !ok {
		return
	}

	stored, err := h.service.DeclareEvent(r.Context(), e)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(eventToDTO(stored)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	eventId, ok := h.pathEventId(w, r)
	if !ok {
		return
	}
	e, ok := h.decodeEvent(w, r)
	if !ok {
		return
	}
	e.Id = eventId

	updated, err := h.service.UpdateEvent(r.Context(), e)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(eventToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventId, ok := h.pathEventId(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEvent(r.Context(), eventId); err != nil {
		if errors.Is(err, ErrEventNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	eventId, ok := h.pathEventId(w, r)
	if !ok {
		return
	}
	e, err := h.service.GetEvent(r.Context(), eventId)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(eventToDTO(e)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	events, err := h.service.ListEvents(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) pathEventId(w http.ResponseWriter, r *http.Request) (int64, bool) {
	eventId, err := strconv.ParseInt(mux.Vars(r)["eventId"], 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		if encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Invalid event id",
		}); encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return 0, false
	}
	return eventId, true
}

func (h *Handler) decodeEvent(w http.ResponseWriter, r *http.Request) (Event, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		if encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Invalid request body format",
		}); encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return Event{}, false
	}

	e := Event{
		ChannelId:   req.ChannelId,
		Name:        req.Name,
		Description: req.Description,
		BeginTime:   normalizeClock(req.BeginTime),
		EndTime:     normalizeClock(req.EndTime),
	}

	var err error
	if e.BeginDate, err = time.Parse(time.DateOnly, req.BeginDate); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		if encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error:   "Invalid beginDate format",
			Details: "Dates must be in YYYY-MM-DD format",
		}); encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return Event{}, false
	}
	if req.EndDate != "" {
		if e.EndDate, err = time.Parse(time.DateOnly, req.EndDate); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			if encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
				Error:   "Invalid endDate format",
				Details: "Dates must be in YYYY-MM-DD format",
			}); encodeErr != nil {
				http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
			}
			return Event{}, false
		}
	}
	return e, true
}

// normalizeClock accepts "15:04" or "15:04:05" and stores the long form.
func normalizeClock(clock string) string {
	if clock == "" {
		return ""
	}
	if t, err := time.Parse("15:04", clock); err == nil {
		return t.Format("15:04:05")
	}
	return clock
}

func eventToDTO(e Event) EventDTO {
	dto := EventDTO{
		Id:          e.Id,
		ChannelId:   e.ChannelId,
		Name:        e.Name,
		Description: e.Description,
		BeginDate:   e.BeginDate.Format(time.DateOnly),
		BeginTime:   e.BeginTime,
		EndTime:     e.EndTime,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		ModifiedAt:  e.ModifiedAt.Format(time.RFC3339),
	}
	if !e.EndDate.IsZero() {
		dto.EndDate = e.EndDate.Format(time.DateOnly)
	}
	return dto
}
