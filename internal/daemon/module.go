// Package daemon composes the client: session lock, encrypted credential
// store, entity cache, REST client, gateway connection and the sync
// engine, wired through fx with a connect-on-start lifecycle.
package daemon

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nerimity/nerimity-go/internal/bus"
	"github.com/nerimity/nerimity-go/internal/config"
	"github.com/nerimity/nerimity-go/internal/gateway"
	"github.com/nerimity/nerimity-go/internal/lock"
	"github.com/nerimity/nerimity-go/internal/logging"
	"github.com/nerimity/nerimity-go/internal/rest"
	"github.com/nerimity/nerimity-go/internal/session"
	"github.com/nerimity/nerimity-go/internal/status"
	"github.com/nerimity/nerimity-go/internal/store"
	intsync "github.com/nerimity/nerimity-go/internal/sync"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideStateMachine,
			provideLock,
			provideCredentials,
			provideRESTClient,
			provideGateway,
			provideStore,
			provideSyncEngine,
			NewClient,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideConfig() (*config.Config, error) {
	cfg, err := config.Load(session.ConfigPath())
	if os.IsNotExist(err) {
		return config.Default(), nil
	}
	return cfg, err
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
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

func provideCredentials(p Params, logger *zap.Logger) (*session.Credentials, error) {
	creds, err := session.OpenCredentials(
		session.CredentialsDBPath(p.SessionName),
		session.KeyPath(p.SessionName),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("credential store opened")
	return creds, nil
}

func provideRESTClient(cfg *config.Config, creds *session.Credentials) *rest.Client {
	return rest.New(cfg.ServerURL, tokenSource(creds))
}

func provideGateway(cfg *config.Config, creds *session.Credentials, b *bus.Bus, machine *status.Machine, logger *zap.Logger) *gateway.Gateway {
	return gateway.New(cfg.ServerURL, tokenSource(creds), b, machine, logger)
}

func provideStore(b *bus.Bus, client *rest.Client, gw *gateway.Gateway) *store.Store {
	return store.New(b, store.Options{
		Messages: client,
		DMs:      client,
		SocketID: gw.SocketID,
	})
}

func provideSyncEngine(st *store.Store, b *bus.Bus, gw *gateway.Gateway, creds *session.Credentials, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(st, b, gw.SocketID, creds.SetUserID, logger)
}

// tokenSource adapts the credential store into the token callback the
// transports expect. A read failure reads as logged-out.
func tokenSource(creds *session.Credentials) func() string {
	return func() string {
		token, err := creds.Token()
		if err != nil {
			return ""
		}
		return token
	}
}

func registerLifecycle(lc fx.Lifecycle, client *Client, lk *lock.Lock, engine *intsync.Engine, creds *session.Credentials, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			engine.Start(context.Background())

			token, err := creds.Token()
			if err != nil || token == "" {
				logger.Info("no credentials found, login required")
				return nil
			}
			go func() {
				if err := client.Connect(context.Background()); err != nil {
					logger.Error("auto-connect failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			client.Disconnect()
			engine.Stop()
			if err := creds.Close(); err != nil {
				logger.Warn("error closing credential store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
