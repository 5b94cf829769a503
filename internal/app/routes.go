package app

import (
	"github.com/gorilla/mux"

	"github.com/guildbot/guildbot/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// User management
	r.HandleFunc("/api/user", deps.UserHandler.RegisterUser).Methods("POST")
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current/external-account", deps.UserHandler.LinkExternalAccount).Methods("PUT")

	// Events
	r.HandleFunc("/api/event", deps.EventHandler.ListEvents).Methods("GET")
	r.HandleFunc("/api/event", deps.EventHandler.DeclareEvent).Methods("POST")
	r.HandleFunc("/api/event/{eventId}", deps.EventHandler.GetEvent).Methods("GET")
	r.HandleFunc("/api/event/{eventId}", deps.EventHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/event/{eventId}", deps.EventHandler.DeleteEvent).Methods("DELETE")

	// Calendar synchronization
	r.HandleFunc("/api/user/current/sharing", deps.SyncHandler.ShareCalendar).Methods("PUT")
	r.HandleFunc("/api/user/current/sharing", deps.SyncHandler.UnshareCalendar).Methods("DELETE")
	r.HandleFunc("/api/sync/event/{eventId}", deps.SyncHandler.ResyncEvent).Methods("POST")
	r.HandleFunc("/api/sync/cleanup", deps.SyncHandler.Cleanup).Methods("POST")

	// Ritual
	r.HandleFunc("/api/ritual", deps.RitualHandler.Record).Methods("POST")
	r.HandleFunc("/api/ritual/stats", deps.RitualHandler.Stats).Methods("GET")
	r.HandleFunc("/api/ritual/stats/yearly", deps.RitualHandler.Yearly).Methods("GET")
	r.HandleFunc("/api/ritual/leaderboard", deps.RitualHandler.Leaderboard).Methods("GET")

	// Calendar feed
	r.HandleFunc("/api/feed/calendar.ics", deps.FeedHandler.Calendar).Methods("GET")
}
