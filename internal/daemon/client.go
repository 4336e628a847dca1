package daemon

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nerimity/nerimity-go/internal/gateway"
	"github.com/nerimity/nerimity-go/internal/session"
	"github.com/nerimity/nerimity-go/internal/store"
)

// Client is the daemon's top-level facade over the gateway connection,
// the entity cache and the credential store.
type Client struct {
	gateway *gateway.Gateway
	store   *store.Store
	creds   *session.Credentials
	logger  *zap.Logger
}

// NewClient creates the facade.
func NewClient(gw *gateway.Gateway, st *store.Store, creds *session.Credentials, logger *zap.Logger) *Client {
	return &Client{
		gateway: gw,
		store:   st,
		creds:   creds,
		logger:  logger,
	}
}

// Store exposes the entity cache for read access.
func (c *Client) Store() *store.Store {
	return c.store
}

// Connect opens the realtime connection. No-op while connected; a full
// state resync follows authentication.
func (c *Client) Connect(ctx context.Context) error {
	return c.gateway.Connect(ctx)
}

// Disconnect drops the realtime connection, keeping credentials and cache.
func (c *Client) Disconnect() {
	c.gateway.Disconnect()
}

// Logout disconnects, wipes the stored credentials and clears the cache.
func (c *Client) Logout() error {
	c.logger.Info("logging out")
	c.gateway.Disconnect()
	if err := c.creds.Wipe(); err != nil {
		return fmt.Errorf("wipe credentials: %w", err)
	}
	c.store.Reset()
	return nil
}

// DismissNotification marks a channel read locally and tells the server,
// so other devices clear their indicators too.
func (c *Client) DismissNotification(channelID string) error {
	tx := c.store.Begin()
	tx.DismissNotification(channelID)
	tx.Publish("store.notification_dismissed", channelID)
	tx.Commit()
	return c.gateway.DismissNotification(channelID)
}
