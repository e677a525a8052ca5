// Package bus publishes to an MQTT v5 broker.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

var (
	// ErrCircuitOpen is returned while the breaker rejects publishes.
	ErrCircuitOpen = errors.New("bus: circuit breaker open")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("bus: client closed")
)

// Config describes how to reach the broker.
type Config struct {
	Host     string
	Port     int
	ClientID string
	Username string
	Password string

	KeepAlive      uint16
	ConnectTimeout time.Duration
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Client is a publish-only MQTT client. It connects lazily and reconnects on
// the next Publish after the connection drops; failed publishes are never
// retried.
type Client struct {
	cfg     Config
	log     *slog.Logger
	breaker *gobreaker.CircuitBreaker

	mu     sync.Mutex
	conn   *paho.Client
	closed bool
}

// New creates a Client. Nothing is dialled until Connect or Publish.
func New(cfg Config, log *slog.Logger) *Client {
	if cfg.ClientID == "" {
		cfg.ClientID = "weather-bridge-" + uuid.NewString()
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	log = log.With("component", "bus", "broker", cfg.addr())
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mqtt",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Client{cfg: cfg, log: log, breaker: cb}
}

// Connect dials the broker now instead of on first publish.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.ensure(ctx)
	return err
}

// Publish sends payload with QoS 0.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		conn, err := c.ensure(ctx)
		if err != nil {
			return nil, err
		}

		_, err = conn.Publish(ctx, &paho.Publish{
			Topic:   topic,
			QoS:     0,
			Retain:  retain,
			Payload: payload,
		})
		if err != nil {
			c.drop(conn, err)
			return nil, fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}

// Close disconnects from the broker. Later calls to Publish fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil

	c.log.Info("disconnecting")
	return conn.Disconnect(&paho.Disconnect{ReasonCode: 0})
}

// Connected reports whether a broker session is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) ensure(ctx context.Context) (*paho.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.conn != nil {
		return c.conn, nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) dial(ctx context.Context) (*paho.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", c.cfg.addr())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.addr(), err)
	}

	var pc *paho.Client
	pc = paho.NewClient(paho.ClientConfig{
		Conn: nc,
		OnClientError: func(err error) {
			c.drop(pc, err)
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			c.drop(pc, fmt.Errorf("server disconnect, reason code %d", d.ReasonCode))
		},
	})

	cp := &paho.Connect{
		ClientID:   c.cfg.ClientID,
		KeepAlive:  c.cfg.KeepAlive,
		CleanStart: true,
	}
	if c.cfg.Username != "" {
		cp.Username = c.cfg.Username
		cp.UsernameFlag = true
		cp.Password = []byte(c.cfg.Password)
		cp.PasswordFlag = true
	}

	ack, err := pc.Connect(ctx, cp)
	if err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("connect %s: %w", c.cfg.addr(), err)
	}
	if ack.ReasonCode != 0 {
		_ = nc.Close()
		return nil, fmt.Errorf("connect %s: refused with reason code %d", c.cfg.addr(), ack.ReasonCode)
	}

	c.log.Info("connected", "client_id", c.cfg.ClientID)
	return pc, nil
}

// drop forgets conn if it is still the active session so the next publish redials.
func (c *Client) drop(conn *paho.Client, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn == nil || c.conn != conn {
		return
	}
	c.conn = nil
	c.log.Warn("connection lost", "error", cause)
	go conn.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
