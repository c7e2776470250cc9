// Package app composes the daemon: store, effects, API client, and
// streaming engine wired together with fx lifecycle hooks.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dmelo/ragchat/internal/auth"
	"github.com/dmelo/ragchat/internal/bus"
	"github.com/dmelo/ragchat/internal/chat"
	"github.com/dmelo/ragchat/internal/client"
	"github.com/dmelo/ragchat/internal/effects"
	"github.com/dmelo/ragchat/internal/lock"
	"github.com/dmelo/ragchat/internal/logging"
	"github.com/dmelo/ragchat/internal/session"
	"github.com/dmelo/ragchat/internal/state"
	"github.com/dmelo/ragchat/internal/store"
	"github.com/dmelo/ragchat/internal/stream"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	APIURL      string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideStateStore,
			provideAuth,
			provideClient,
			provideStreamEngine,
			provideChatEffects,
			provideDocumentEffects,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
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
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideStateStore(b *bus.Bus, logger *zap.Logger) *state.Store {
	return state.New(b, logger)
}

func provideAuth(db *store.DB, p Params, logger *zap.Logger) *auth.Manager {
	return auth.NewManager(db, p.APIURL, logger)
}

func provideClient(p Params, tokens *auth.Manager, logger *zap.Logger) *client.Client {
	return client.New(p.APIURL, tokens, logger)
}

func provideStreamEngine(st *state.Store, c *client.Client, logger *zap.Logger) *stream.Engine {
	return stream.NewEngine(st, c, logger)
}

func provideChatEffects(st *state.Store, db *store.DB, c *client.Client, b *bus.Bus, logger *zap.Logger) *effects.Chat {
	return effects.NewChat(st, db, c, b, logger)
}

func provideDocumentEffects(st *state.Store, db *store.DB, c *client.Client, b *bus.Bus, logger *zap.Logger) *effects.Document {
	return effects.NewDocument(st, db, c, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, st *state.Store, engine *stream.Engine, chatFx *effects.Chat, docFx *effects.Document, b *bus.Bus, logger *zap.Logger) {
	sessionCtx, cancelWatch := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			st.Start(context.Background())
			chatFx.Start(context.Background())
			docFx.Start(context.Background())

			// Surface forced logouts (refresh token rejected).
			go watchSession(sessionCtx, b, logger)

			// Hydrate state from the local database.
			st.Dispatch(chat.LoadThreads{})

			logger.Info("daemon started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			engine.CancelAll()
			chatFx.Stop()
			docFx.Stop()
			st.Stop()
			cancelWatch()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

// watchSession logs forced logouts. The auth manager has already
// cleared the stored token pair by the time this fires.
func watchSession(ctx context.Context, b *bus.Bus, logger *zap.Logger) {
	ch, unsub := b.Subscribe(bus.NamespaceSession, 16)
	defer unsub()
	for {
		select {
		case evt := <-ch:
			if evt.Kind == bus.KindSessionLoggedOut {
				logger.Warn("session expired, re-authentication required")
			}
		case <-ctx.Done():
			return
		}
	}
}
