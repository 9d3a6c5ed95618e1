package app

import (
	"context"

	"github.com/matheus3301/resq/internal/archive"
	"github.com/matheus3301/resq/internal/auth"
	"github.com/matheus3301/resq/internal/bus"
	"github.com/matheus3301/resq/internal/history"
	"github.com/matheus3301/resq/internal/lock"
	"github.com/matheus3301/resq/internal/logging"
	"github.com/matheus3301/resq/internal/profile"
	"github.com/matheus3301/resq/internal/relay"
	"github.com/matheus3301/resq/internal/rest"
	"github.com/matheus3301/resq/internal/room"
	"github.com/matheus3301/resq/internal/status"
	"github.com/matheus3301/resq/internal/store"
	"github.com/matheus3301/resq/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	APIURL      string
	RelayURL    string
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("client",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideIdentity,
			provideRestClient,
			provideRegistry,
			provideRouter,
			provideRelayClient,
			provideSyncer,
			provideArchiveEngine,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.ArchiveDBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("archive store initialized", zap.String("path", dbPath))
	return db, nil
}

// provideIdentity derives the session identity from the persisted login
// token. A missing token yields a zero identity: the app still starts, but
// the relay connection is never established.
func provideIdentity(p Params, logger *zap.Logger) (auth.Identity, error) {
	token, err := auth.LoadToken(profile.TokenPath(p.ProfileName))
	if err != nil {
		return auth.Identity{}, err
	}
	if token == "" {
		logger.Info("no login token, starting logged out")
		return auth.Identity{}, nil
	}
	id, err := auth.ParseIdentity(token)
	if err != nil {
		return auth.Identity{}, err
	}
	logger.Info("session identity loaded", zap.String("user_id", id.ID), zap.String("role", string(id.Role)))
	return *id, nil
}

func provideRestClient(p Params) (*rest.Client, error) {
	token, err := auth.LoadToken(profile.TokenPath(p.ProfileName))
	if err != nil {
		return nil, err
	}
	return rest.NewClient(p.APIURL, token), nil
}

func provideRegistry(b *bus.Bus, logger *zap.Logger) *room.Registry {
	return room.NewRegistry(b, logger)
}

func provideRouter(registry *room.Registry, identity auth.Identity, b *bus.Bus, logger *zap.Logger) *relay.Router {
	return relay.NewRouter(registry, identity, b, logger)
}

func provideRelayClient(p Params, identity auth.Identity, router *relay.Router, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *relay.Client {
	return relay.NewClient(p.RelayURL, identity, router, machine, b, logger)
}

func provideSyncer(restClient *rest.Client, registry *room.Registry, logger *zap.Logger) *history.Syncer {
	return history.NewSyncer(restClient, registry, logger)
}

func provideArchiveEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *archive.Engine {
	return archive.NewEngine(db, b, logger)
}

func provideTUI(p Params, registry *room.Registry, b *bus.Bus, identity auth.Identity) *tui.App {
	return tui.NewApp(registry, b, identity, p.ProfileName)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, registry *room.Registry, client *relay.Client, syncer *history.Syncer, engine *archive.Engine, restClient *rest.Client, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Break the registry/client construction cycle.
			registry.SetSender(client)
			registry.SetSyncer(syncer)

			// Archive engine first so it sees every room event.
			engine.Start(context.Background())

			client.Establish(context.Background())

			// The general room is always joined; order rooms come from the
			// actor's current reservations.
			registry.Join(context.Background(), room.GeneralOrderID)
			go joinReservationRooms(registry, restClient, logger)

			return nil
		},
		OnStop: func(_ context.Context) error {
			client.Close()
			engine.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing archive store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}

// joinReservationRooms joins the room of every non-cancelled reservation so
// their messages flow in before the user opens them.
func joinReservationRooms(registry *room.Registry, restClient *rest.Client, logger *zap.Logger) {
	rs, err := restClient.ListReservations(context.Background())
	if err != nil {
		logger.Warn("could not list reservations", zap.Error(err))
		return
	}
	for _, r := range rs {
		if r.Status == "cancelled" || r.OrderID == "" {
			continue
		}
		registry.Join(context.Background(), r.OrderID)
	}
	logger.Info("reservation rooms joined", zap.Int("count", len(rs)))
}
