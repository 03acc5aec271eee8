// Package hec mirrors rendered notifications to Splunk HTTP Event Collector
// endpoints, so that every mail sent is also searchable in Splunk.
package hec

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mosajjal/Go-Splunk-HTTP/splunk/v2"
)

// Config holds HEC client configuration
type Config struct {
	Endpoints       []string
	TLSSkipVerify   bool
	Proxy           string
	Token           string
	ChannelID       string
	Index           string
	Source          string
	SourceType      string
	Host            string
	Timeout         time.Duration
	BalanceStrategy string // first_available, sticky, random, roundrobin
}

const (
	FirstAvailable = 1
	Sticky         = 2
	Random         = 3
	RoundRobin     = 4
)

const healthInterval = 10 * time.Second

// eventLogger is the part of the splunk client the mirror uses
type eventLogger interface {
	LogEvents(events []*splunk.Event) error
	CheckHealth() error
}

// Client manages HEC connections and notification delivery
type Client struct {
	config          Config
	connections     []*connection
	balanceStrategy uint8
	count           atomic.Uint64
	sticky          atomic.Int64
	done            chan struct{}
	closeOnce       sync.Once
}

type connection struct {
	endpoint  string
	client    eventLogger
	isHealthy atomic.Bool
}

// NewClient creates a new HEC client and starts health checking its
// endpoints
func NewClient(cfg Config) (*Client, error) {
	client := &Client{
		config:          cfg,
		connections:     make([]*connection, 0),
		balanceStrategy: ParseBalanceStrategy(cfg.BalanceStrategy),
		done:            make(chan struct{}),
	}

	// Create connections for each endpoint
	for _, endpoint := range cfg.Endpoints {
		if strings.TrimSpace(endpoint) == "" {
			continue
		}
		conn, err := newConnection(endpoint, cfg)
		if err != nil {
			slog.Warn("hec: failed to create connection", "endpoint", endpoint, "err", err)
			continue
		}
		client.connections = append(client.connections, conn)
		go conn.healthCheck(client.done)
	}

	if len(client.connections) == 0 {
		return nil, fmt.Errorf("no valid HEC endpoints configured")
	}

	return client, nil
}

// ParseBalanceStrategy maps a strategy name to its constant. Unknown names
// fall back to first_available.
func ParseBalanceStrategy(name string) uint8 {
	switch name {
	case "first_available":
		return FirstAvailable
	case "sticky":
		return Sticky
	case "random":
		return Random
	case "roundrobin":
		return RoundRobin
	default:
		slog.Warn("hec: unknown load balance strategy, using first_available", "strategy", name)
		return FirstAvailable
	}
}

func newConnection(endpoint string, cfg Config) (*connection, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify}
	transport := &http.Transport{TLSClientConfig: tlsConfig}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}

	if !strings.HasSuffix(endpoint, "/services/collector") {
		endpoint = fmt.Sprintf("%s/services/collector", strings.TrimRight(endpoint, "/"))
	}

	channelID := cfg.ChannelID
	if _, err := uuid.Parse(channelID); err != nil {
		channelID = uuid.New().String()
	}

	splunkClient := splunk.NewClient(
		httpClient,
		endpoint,
		cfg.Token,
		channelID,
		cfg.Source,
		cfg.SourceType,
		cfg.Index,
	)

	conn := &connection{
		endpoint: endpoint,
		client:   splunkClient,
	}
	conn.updateHealth()

	return conn, nil
}

func (c *connection) updateHealth() {
	c.isHealthy.Store(c.client.CheckHealth() == nil)
}

func (c *connection) healthCheck(done <-chan struct{}) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.updateHealth()
		}
	}
}

// Send mirrors one notification as a HEC event
func (c *Client) Send(ctx context.Context, subject, text, html string) error {
	conn := c.getConnection()
	if conn == nil {
		return fmt.Errorf("no healthy HEC connection available")
	}

	event := &splunk.Event{
		Time:       splunk.EventTime{Time: time.Now()},
		Host:       c.config.Host,
		Source:     c.config.Source,
		SourceType: c.config.SourceType,
		Index:      c.config.Index,
		Event: map[string]string{
			"subject": subject,
			"text":    text,
		},
	}
	if err := conn.client.LogEvents([]*splunk.Event{event}); err != nil {
		conn.isHealthy.Store(false)
		return fmt.Errorf("hec: failed to send to %s: %w", conn.endpoint, err)
	}
	return nil
}

func (c *Client) getConnection() *connection {
	switch c.balanceStrategy {
	case Sticky:
		return c.getSticky()
	case Random:
		return c.getRandom()
	case RoundRobin:
		return c.getRoundRobin()
	default:
		return c.getFirstAvailable()
	}
}

func (c *Client) getFirstAvailable() *connection {
	for _, conn := range c.connections {
		if conn.isHealthy.Load() {
			return conn
		}
	}
	return nil
}

// getSticky keeps using the same endpoint until it turns unhealthy, then
// moves to the next healthy one
func (c *Client) getSticky() *connection {
	n := len(c.connections)
	start := int(c.sticky.Load())
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if c.connections[idx].isHealthy.Load() {
			c.sticky.Store(int64(idx))
			return c.connections[idx]
		}
	}
	return nil
}

func (c *Client) getRandom() *connection {
	healthy := make([]*connection, 0, len(c.connections))
	for _, conn := range c.connections {
		if conn.isHealthy.Load() {
			healthy = append(healthy, conn)
		}
	}
	if len(healthy) == 0 {
		return nil
	}
	return healthy[rand.IntN(len(healthy))]
}

func (c *Client) getRoundRobin() *connection {
	n := uint64(len(c.connections))
	start := c.count.Add(1) - 1
	for i := uint64(0); i < n; i++ {
		conn := c.connections[(start+i)%n]
		if conn.isHealthy.Load() {
			return conn
		}
	}
	return nil
}

// Close stops the health checks
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
