package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildbot/guildbot/internal/config"
	"github.com/guildbot/guildbot/internal/event_bus"
	"github.com/guildbot/guildbot/internal/utils"
	"github.com/guildbot/guildbot/pkg/credential"
	"github.com/guildbot/guildbot/pkg/event"
	"github.com/guildbot/guildbot/pkg/feed"
	"github.com/guildbot/guildbot/pkg/google"
	"github.com/guildbot/guildbot/pkg/ritual"
	"github.com/guildbot/guildbot/pkg/sync"
	"github.com/guildbot/guildbot/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus

	UserRepo    user.Repo
	UserService user.Service
	UserHandler *user.Handler

	EventRepo    event.Repository
	EventService event.Service
	EventHandler *event.Handler

	CredentialIssuer *credential.Issuer
	Gateway          google.Gateway

	SyncRecordRepo sync.RecordRepository
	SyncEngine     sync.Engine
	SyncHandler    *sync.Handler

	RitualRepo    ritual.Repo
	RitualService ritual.Service
	RitualHandler *ritual.Handler

	FeedExporter *feed.Exporter
	FeedHandler  *feed.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()

	deps.UserRepo = user.NewUserRepo(db)
	deps.UserService = user.NewUserService(deps.UserRepo)
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.EventRepo = event.NewEventRepo(db)
	deps.EventService = event.NewEventService(deps.EventRepo, deps.EventBus)
	deps.EventHandler = event.NewHandler(deps.EventService)

	issuer, err := credential.NewIssuerFromConfig(cfg.Google, deps.Clock)
	if err != nil {
		return nil, err
	}
	deps.CredentialIssuer = issuer
	deps.Gateway = google.NewGateway(issuer, cfg.Google.RequestTimeout)

	deps.SyncRecordRepo = sync.NewRecordRepository(db)
	deps.SyncEngine = sync.NewEngine(deps.UserRepo, deps.EventRepo, deps.SyncRecordRepo, deps.Gateway, deps.Clock)
	deps.SyncHandler = sync.NewHandler(deps.SyncEngine)
	sync.RegisterSubscriptions(deps.EventBus, deps.SyncEngine)

	deps.RitualRepo = ritual.NewRepo(db)
	deps.RitualService = ritual.NewService(deps.RitualRepo, deps.UserService, deps.Clock)
	deps.RitualHandler = ritual.NewHandler(deps.RitualService)

	deps.FeedExporter = feed.NewExporter(deps.EventService)
	deps.FeedHandler = feed.NewHandler(deps.FeedExporter)

	return deps, nil
}
