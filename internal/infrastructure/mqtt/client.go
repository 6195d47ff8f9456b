package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
)

// Logger is the subset of logging.Logger the client writes to.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler receives one broker message. paho runs handlers on its own
// goroutines. A returned error is logged and the message still counts as
// delivered.
type MessageHandler func(topic string, payload []byte) error

// route is a subscription replayed after every reconnect.
type route struct {
	qos     byte
	handler MessageHandler
}

// Client is the runtime's broker session. It publishes retained entity
// state and presence, routes invoke messages to handlers, and restores its
// subscriptions whenever paho reconnects.
//
// All methods are safe for concurrent use. The zero Client reports itself
// disconnected.
type Client struct {
	paho     pahomqtt.Client
	clientID string
	qos      byte
	online   atomic.Bool

	routesMu sync.RWMutex
	routes   map[string]route

	mu           sync.RWMutex
	logger       Logger
	onConnect    func()
	onDisconnect func(err error)
}

// Connect opens the broker session described by cfg.
//
// With mqtt.enabled false it returns ErrDisabled and no client, so the
// runtime can carry on without a broker. Otherwise it waits up to ten
// seconds for the first CONNACK. Later drops are retried by paho with
// backoff between reconnect.initial_delay and reconnect.max_delay.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	c := &Client{
		clientID: cfg.Broker.ClientID,
		qos:      byte(cfg.QoS), //nolint:gosec // config validation bounds qos to 0..2
		routes:   make(map[string]route),
		logger:   noopLogger{},
	}

	opts := newClientOptions(cfg).
		SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionDown(err) }).
		SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
			c.log().Info("reconnecting to broker", "client_id", c.clientID)
		})

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// Stop the retry loop ConnectRetry started in the background.
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: %s did not answer within %v", ErrConnectionFailed, brokerURL(cfg.Broker), connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs on its own goroutine and may lag behind.
	c.online.Store(true)
	return c, nil
}

// sessionUp runs after every successful connect, the first one included.
func (c *Client) sessionUp() {
	c.online.Store(true)
	c.replay()

	payload := presencePayload(c.clientID, presenceOnline, "", time.Now())
	if err := await(c.paho.Publish(presenceTopic, c.qos, true, payload), ErrPublishFailed); err != nil {
		c.log().Warn("publishing online presence failed", "error", err)
	}

	c.mu.RLock()
	hook := c.onConnect
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) sessionDown(err error) {
	c.online.Store(false)
	c.log().Warn("broker connection lost", "client_id", c.clientID, "error", err)

	c.mu.RLock()
	hook := c.onDisconnect
	c.mu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// Close publishes the graceful offline presence, lets in-flight messages
// drain for a second and disconnects. Closing a zero Client is a no-op.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		payload := presencePayload(c.clientID, presenceOffline, reasonShutdown, time.Now())
		if err := await(c.paho.Publish(presenceTopic, c.qos, true, payload), ErrPublishFailed); err != nil {
			c.log().Warn("publishing offline presence failed", "error", err)
		}
	}
	c.paho.Disconnect(disconnectQuiesce)
	c.online.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the session is up as far as both the client
// and paho know.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.online.Load() && c.paho.IsConnected()
}

// SetOnConnect sets a hook run after every connect, reconnects included.
func (c *Client) SetOnConnect(hook func()) {
	c.mu.Lock()
	c.onConnect = hook
	c.mu.Unlock()
}

// SetOnDisconnect sets a hook run when the session drops unexpectedly.
func (c *Client) SetOnDisconnect(hook func(err error)) {
	c.mu.Lock()
	c.onDisconnect = hook
	c.mu.Unlock()
}

// SetLogger sets the logger. A nil logger discards output.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}

// dispatch adapts handler to paho, containing panics so one bad handler
// cannot take down paho's router goroutine.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("message handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log().Warn("message handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}
