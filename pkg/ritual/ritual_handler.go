package ritual

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/guildbot/guildbot/internal/rest"
	"github.com/guildbot/guildbot/pkg/user"
)

type StatsDTO struct {
	UserId        int64  `json:"userId,string"`
	DisplayName   string `json:"displayName"`
	Count         int64  `json:"count"`
	CurrentStreak int64  `json:"currentStreak"`
	LongestStreak int64  `json:"longestStreak"`
	LastDate      string `json:"lastDate,omitempty"`
}

type YearCountDTO struct {
	Year  int   `json:"year"`
	Count int64 `json:"count"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Record counts a ritual message for the current user.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	userId, err := user.CurrentId(r.Context())
	if err != nil {
		http.Error(w, "user not identified", http.StatusForbidden)
		return
	}

	var recordRequest struct {
		MessageId int64 `json:"messageId,string"`
	}
	if err := json.NewDecoder(r.Body).Decode(&recordRequest); err != nil || recordRequest.MessageId == 0 {
		w.WriteHeader(http.StatusBadRequest)
		if encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Invalid request body format",
		}); encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	recorded, err := h.service.Record(r.Context(), userId, recordRequest.MessageId)
	if err != nil {
		log.WithError(err).WithField("userId", userId).Error("Failed to record ritual")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(struct {
		Recorded bool `json:"recorded"`
	}{Recorded: recorded}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Stats returns the current user's ritual standing.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	userId, err := user.CurrentId(r.Context())
	if err != nil {
		http.Error(w, "user not identified", http.StatusForbidden)
		return
	}

	stats, err := h.service.Stats(r.Context(), userId)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(statsToDTO(stats)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Yearly returns the current user's counted days per calendar year.
func (h *Handler) Yearly(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	userId, err := user.CurrentId(r.Context())
	if err != nil {
		http.Error(w, "user not identified", http.StatusForbidden)
		return
	}

	counts, err := h.service.Yearly(r.Context(), userId)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]YearCountDTO, 0, len(counts))
	for _, yc := range counts {
		dtos = append(dtos, YearCountDTO{Year: yc.Year, Count: yc.Count})
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Leaderboard returns the top ritual keepers.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	entries, err := h.service.Leaderboard(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dtos := make([]StatsDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, statsToDTO(entry))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func statsToDTO(s Stats) StatsDTO {
	dto := StatsDTO{
		UserId:        s.UserId,
		DisplayName:   s.DisplayName,
		Count:         s.Count,
		CurrentStreak: s.CurrentStreak,
		LongestStreak: s.LongestStreak,
	}
	if !s.LastDate.IsZero() {
		dto.LastDate = s.LastDate.Format(time.DateOnly)
	}
	return dto
}
