package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/zigbridge/zigbridge-core/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang with Zigbridge-specific functionality.
//
// It provides connection management, immediate and queued publishing,
// subscription handling, automatic reconnection and a periodic heartbeat
// publication to clients/<clientID>/heartbeat.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are automatically restored on reconnection.
type Client struct {
	client   pahomqtt.Client
	options  *pahomqtt.ClientOptions
	cfg      config.MQTTConfig
	clientID string

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// queue drains deferred publishes one message per tick.
	queue *publishQueue

	// heartbeat coordination. The ticker goroutine starts on the first
	// connect and stops when done is closed.
	heartbeatOnce sync.Once
	done          chan struct{}
	closeOnce     sync.Once
	wg            sync.WaitGroup

	// Callbacks for connection events (optional, set via SetOnConnect/SetOnDisconnect).
	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	// logger for warning/error logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// subscription holds subscription details for re-subscription on reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked by the paho library in topic order. They should not
// block for extended periods.
type MessageHandler func(topic string, payload []byte) error

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Resolves the scheme-prefixed host into a broker URL
//  2. Builds connection options (auth, TLS, protocol level, clean session)
//  3. Sets up auto-reconnect on a fixed 5 s period
//  4. Attempts initial connection with a 60 s timeout
//  5. Starts the keepalive heartbeat
//
// Scheme warnings (plaintext host with TLS material, missing CA, MQTT 5
// fallback) are logged through the supplied logger and never fatal.
func Connect(cfg config.MQTTConfig, logger Logger) (*Client, error) {
	opts, clientID, warnings, err := buildClientOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		cfg:           cfg,
		options:       opts,
		clientID:      clientID,
		subscriptions: make(map[string]subscription),
		done:          make(chan struct{}),
		logger:        logger,
	}
	c.queue = newPublishQueue(c.publishQueued, logger)

	for _, w := range warnings {
		c.logWarn(w)
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// Set connected state immediately after successful connection.
	// The OnConnectHandler callback runs asynchronously and may not have
	// executed yet, so we set it here to ensure IsConnected() returns true.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return c, nil
}

// ClientID returns the effective client ID (configured or generated).
func (c *Client) ClientID() string {
	return c.clientID
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.restoreSubscriptions()
	c.startHeartbeat()

	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		// Re-subscribe (ignore errors during reconnection)
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// startHeartbeat launches the keepalive publisher on the first connect.
//
// The literal payload "alive" goes to clients/<clientID>/heartbeat every
// keepalive interval. Publish errors are logged but never tear down the
// connection, and the ticker stops on Close.
func (c *Client) startHeartbeat() {
	c.heartbeatOnce.Do(func() {
		c.wg.Add(1)
		go c.heartbeatLoop()
	})
}

// heartbeatLoop publishes the periodic keepalive until shutdown.
func (c *Client) heartbeatLoop() {
	defer c.wg.Done()

	topic := HeartbeatTopic(c.clientID)
	ticker := time.NewTicker(defaultKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if !c.IsConnected() {
				continue
			}
			token := c.client.Publish(topic, DefaultQoS, false, "alive")
			if token.WaitTimeout(defaultPublishTimeout) && token.Error() != nil {
				c.logWarn("heartbeat publish failed", "error", token.Error())
			}
		}
	}
}

// Close gracefully disconnects from the MQTT broker.
//
// It stops the heartbeat and publish-queue timers, disconnects with a
// quiesce period, and is safe to call repeatedly or on a client that
// never connected.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		close(c.done)
		c.queue.stop()
		c.wg.Wait()

		if c.client != nil {
			c.client.Disconnect(defaultDisconnectQuiesce)
		}

		c.connMu.Lock()
		c.connected = false
		c.connMu.Unlock()
	})

	return nil
}

// HealthCheck verifies the MQTT connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// SetOnConnect sets a callback to be invoked when connection is established.
// This is called on initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
// The error parameter describes why the connection was lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for warning and error logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// logWarn logs a warning if a logger is set.
func (c *Client) logWarn(msg string, args ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Warn(msg, args...)
	}
}

// logError logs an error if a logger is set.
func (c *Client) logError(msg string, args ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Error(msg, args...)
	}
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logError("MQTT handler panic recovered",
					"topic", msg.Topic(),
					"panic", r,
				)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logWarn("MQTT handler returned error",
				"topic", msg.Topic(),
				"error", err,
			)
		}
	}
}
