package user

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/guildbot/guildbot/internal/rest"
)

type UserDTO struct {
	Id            int64  `json:"id,string"`
	DisplayName   string `json:"displayName"`
	ExternalEmail string `json:"externalEmail,omitempty"`
	CalendarId    string `json:"calendarId,omitempty"`
	Shared        bool   `json:"shared"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Registering user")

	var registerRequest struct {
		Id            int64  `json:"id,string"`
		DisplayName   string `json:"displayName"`
		ExternalEmail string `json:"externalEmail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		if encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Invalid request body format",
		}); encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	created, err := h.service.RegisterUser(r.Context(), User{
		Id:            registerRequest.Id,
		DisplayName:   registerRequest.DisplayName,
		ExternalEmail: registerRequest.ExternalEmail,
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			w.WriteHeader(http.StatusConflict)
			if encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
				Error: "User already registered",
			}); encodeErr != nil {
				http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
			}
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(userToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	u, err := CurrentUser(r.Context())
	if err != nil {
		http.Error(w, "user not identified", http.StatusForbidden)
		return
	}
	if err := json.NewEncoder(w).Encode(userToDTO(u)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) LinkExternalAccount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	userId, err := CurrentId(r.Context())
	if err != nil {
		http.Error(w, "user not identified", http.StatusForbidden)
		return
	}

	var linkRequest struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&linkRequest); err != nil || linkRequest.Email == "" {
		w.WriteHeader(http.StatusBadRequest)
		if encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Invalid request body format",
		}); encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	if err := h.service.LinkExternalAccount(r.Context(), userId, linkRequest.Email); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userToDTO(u User) UserDTO {
	return UserDTO{
		Id:            u.Id,
		DisplayName:   u.DisplayName,
		ExternalEmail: u.ExternalEmail,
		CalendarId:    u.CalendarId,
		Shared:        u.AclId != "",
	}
}
