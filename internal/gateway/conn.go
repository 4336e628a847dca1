// Package gateway owns the realtime websocket connection. Inbound frames
// are decoded into typed payloads and republished on the event bus under
// the "gateway." namespace; the sync engine is the consumer. Outbound
// traffic is limited to the authenticate handshake and notification
// dismissal.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nerimity/nerimity-go/internal/bus"
	"github.com/nerimity/nerimity-go/internal/status"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 25 * time.Second
)

// Gateway is the websocket transport adapter. Connect is idempotent; the
// socket session id is available once the hello frame arrives.
type Gateway struct {
	url     string
	token   func() string
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger

	mu         sync.RWMutex
	conn       *websocket.Conn
	connecting bool
	sid        string
	stop       chan struct{}
	wg         sync.WaitGroup
}

// New creates a gateway for the given server URL. tokenFn supplies the
// bearer token for the authenticate handshake.
func New(serverURL string, tokenFn func() string, b *bus.Bus, machine *status.Machine, logger *zap.Logger) *Gateway {
	return &Gateway{
		url:     websocketURL(serverURL),
		token:   tokenFn,
		bus:     b,
		machine: machine,
		logger:  logger,
	}
}

// websocketURL converts the configured HTTP base URL into the socket
// endpoint.
func websocketURL(serverURL string) string {
	u := strings.TrimSuffix(serverURL, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/socket"
}

// SocketID returns the current socket session id, or "" while
// disconnected.
func (g *Gateway) SocketID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sid
}

// Connect dials the gateway, waits for the hello frame and emits the
// authenticate request. No-op when already connected or while another
// Connect is mid-handshake.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	if g.conn != nil || g.connecting {
		g.mu.Unlock()
		return nil
	}
	g.connecting = true
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.connecting = false
		g.mu.Unlock()
	}()

	if err := g.machine.Transition(status.Connecting); err != nil {
		return err
	}
	g.logger.Info("connecting to gateway", zap.String("url", g.url))

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, g.url, nil)
	if err != nil {
		_ = g.machine.Transition(status.Disconnected)
		if resp != nil {
			return fmt.Errorf("gateway dial (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("gateway dial: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	hello, err := readHello(conn)
	if err != nil {
		_ = conn.Close()
		_ = g.machine.Transition(status.Disconnected)
		return err
	}

	g.mu.Lock()
	g.conn = conn
	g.sid = hello.SID
	g.stop = make(chan struct{})
	g.mu.Unlock()

	g.logger.Info("gateway connected", zap.String("sid", hello.SID))

	if err := g.authenticate(); err != nil {
		g.teardown()
		return err
	}
	if err := g.machine.Transition(status.Authenticating); err != nil {
		g.teardown()
		return err
	}

	g.wg.Add(2)
	go g.readLoop()
	go g.pingLoop()
	return nil
}

// Disconnect closes the connection and waits for the loops to exit.
// Safe to call while already disconnected.
func (g *Gateway) Disconnect() {
	g.mu.RLock()
	connected := g.conn != nil
	g.mu.RUnlock()
	if !connected {
		return
	}
	g.logger.Info("disconnecting from gateway")
	g.teardown()
	g.wg.Wait()
}

// DismissNotification tells the server the channel has been read, so
// other devices drop their indicators too.
func (g *Gateway) DismissNotification(channelID string) error {
	return g.emit(EventNotificationDismiss, NotificationDismissedPayload{ChannelID: channelID})
}

// authenticate emits the token handshake.
func (g *Gateway) authenticate() error {
	token := g.token()
	if token == "" {
		return fmt.Errorf("authenticate: no token")
	}
	return g.emit(EventAuthenticate, authenticatePayload{Token: token})
}

// emit writes one frame. Returns an error while disconnected.
func (g *Gateway) emit(event string, payload any) error {
	g.mu.RLock()
	conn := g.conn
	g.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("emit %s: not connected", event)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(frame{T: event, D: data}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// readHello blocks until the server's opening frame delivers the socket
// session id.
func readHello(conn *websocket.Conn) (*helloPayload, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if f.T != EventHello {
		return nil, fmt.Errorf("read hello: unexpected frame %q", f.T)
	}
	var hello helloPayload
	if err := json.Unmarshal(f.D, &hello); err != nil {
		return nil, fmt.Errorf("decode hello: %w", err)
	}
	if hello.SID == "" {
		return nil, fmt.Errorf("decode hello: empty session id")
	}
	return &hello, nil
}

// readLoop decodes inbound frames until the connection drops.
func (g *Gateway) readLoop() {
	defer g.wg.Done()

	g.mu.RLock()
	conn := g.conn
	stop := g.stop
	g.mu.RUnlock()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			select {
			case <-stop:
			default:
				g.logger.Warn("gateway read failed", zap.Error(err))
			}
			g.teardown()
			return
		}
		if err := g.dispatch(f); err != nil {
			g.logger.Warn("gateway frame dropped",
				zap.String("event", f.T),
				zap.Error(err))
		}
	}
}

// dispatch decodes one frame and republishes it on the bus.
func (g *Gateway) dispatch(f frame) error {
	switch f.T {
	case EventAuthenticated:
		var payload AuthenticatedPayload
		if err := json.Unmarshal(f.D, &payload); err != nil {
			return err
		}
		if err := g.machine.Transition(status.Authenticated); err != nil {
			return err
		}
		g.publish("gateway.authenticated", payload)
	case EventMessageCreated:
		var payload MessageCreatedPayload
		if err := json.Unmarshal(f.D, &payload); err != nil {
			return err
		}
		g.publish("gateway.message_created", payload)
	case EventMessageUpdated:
		var payload MessageUpdatedPayload
		if err := json.Unmarshal(f.D, &payload); err != nil {
			return err
		}
		g.publish("gateway.message_updated", payload)
	case EventMessageDeleted:
		var payload MessageDeletedPayload
		if err := json.Unmarshal(f.D, &payload); err != nil {
			return err
		}
		g.publish("gateway.message_deleted", payload)
	case EventNotificationDismissed:
		var payload NotificationDismissedPayload
		if err := json.Unmarshal(f.D, &payload); err != nil {
			return err
		}
		g.publish("gateway.notification_dismissed", payload)
	case EventInboxOpened:
		var payload InboxOpenedPayload
		if err := json.Unmarshal(f.D, &payload); err != nil {
			return err
		}
		g.publish("gateway.inbox_opened", payload)
	case EventPresenceUpdate:
		var payload PresenceUpdatePayload
		if err := json.Unmarshal(f.D, &payload); err != nil {
			return err
		}
		g.publish("gateway.presence_update", payload)
	default:
		g.logger.Debug("unhandled gateway event", zap.String("event", f.T))
	}
	return nil
}

func (g *Gateway) publish(kind string, payload any) {
	g.bus.Publish(bus.Event{Kind: kind, Payload: payload})
}

// pingLoop keeps the connection alive with protocol-level pings.
func (g *Gateway) pingLoop() {
	defer g.wg.Done()

	g.mu.RLock()
	conn := g.conn
	stop := g.stop
	g.mu.RUnlock()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				g.teardown()
				return
			}
		}
	}
}

// teardown closes the connection once and resets session state. The
// disconnect is announced on the bus so the engine can react.
func (g *Gateway) teardown() {
	g.mu.Lock()
	conn := g.conn
	if conn == nil {
		g.mu.Unlock()
		return
	}
	g.conn = nil
	g.sid = ""
	close(g.stop)
	g.mu.Unlock()

	_ = conn.Close()
	if g.machine.Current() != status.Disconnected {
		_ = g.machine.Transition(status.Disconnected)
	}
	g.publish("gateway.disconnected", nil)
}
