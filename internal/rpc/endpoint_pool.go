// Package rpc manages the ordered pool of RPC endpoints and the per-call
// failover loop that every chain read goes through.
package rpc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
)

// Endpoint is an immutable RPC endpoint handle
type Endpoint struct {
	URL     string
	Ordinal int
}

// EndpointPool holds the ordered endpoint list and the mutable "current" cursor.
// The cursor is an optimization hint, not a lock: concurrent callers may race on
// it and at worst start from a slightly stale index.
type EndpointPool struct {
	endpoints []Endpoint
	clients   []*ethclient.Client
	current   int
	mu        sync.RWMutex
}

// NewEndpointPool creates a pool from an ordered URL list. Construction fails
// if the list is empty; the process cannot start without at least one endpoint.
func NewEndpointPool(urls []string) (*EndpointPool, error) {
	var cleaned []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u != "" {
			cleaned = append(cleaned, u)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.NewConfigError("at least one RPC endpoint is required")
	}

	pool := &EndpointPool{
		endpoints: make([]Endpoint, len(cleaned)),
		clients:   make([]*ethclient.Client, len(cleaned)),
	}
	for i, u := range cleaned {
		pool.endpoints[i] = Endpoint{URL: u, Ordinal: i}
	}
	return pool, nil
}

// NewEndpointPoolFromURLs creates a pool from comma-separated URLs
func NewEndpointPoolFromURLs(urls string) (*EndpointPool, error) {
	return NewEndpointPool(strings.Split(urls, ","))
}

// Endpoints returns the ordered endpoint sequence
func (p *EndpointPool) Endpoints() []Endpoint {
	return p.endpoints
}

// Size returns the number of endpoints in the pool
func (p *EndpointPool) Size() int {
	return len(p.endpoints)
}

// WebsocketOrdinal returns the first endpoint with a ws or wss scheme.
// Log subscriptions need one; HTTP endpoints cannot push notifications.
func (p *EndpointPool) WebsocketOrdinal() (int, bool) {
	for _, ep := range p.endpoints {
		if strings.HasPrefix(ep.URL, "ws://") || strings.HasPrefix(ep.URL, "wss://") {
			return ep.Ordinal, true
		}
	}
	return 0, false
}

// Current returns the endpoint the next call should start from
func (p *EndpointPool) Current() Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.endpoints[p.current]
}

// CurrentIndex returns the current cursor position
func (p *EndpointPool) CurrentIndex() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Advance moves the cursor to the next endpoint, wrapping around
func (p *EndpointPool) Advance() {
	p.mu.Lock()
	p.current = (p.current + 1) % len(p.endpoints)
	p.mu.Unlock()
}

// SetCurrent moves the cursor to a specific ordinal. Used by the failover
// executor to stick to the last endpoint that worked.
func (p *EndpointPool) SetCurrent(ordinal int) {
	if ordinal < 0 || ordinal >= len(p.endpoints) {
		return
	}
	p.mu.Lock()
	p.current = ordinal
	p.mu.Unlock()
}

// Client returns a connected client for an endpoint, dialing lazily on first use
func (p *EndpointPool) Client(ctx context.Context, ordinal int) (*ethclient.Client, error) {
	if ordinal < 0 || ordinal >= len(p.endpoints) {
		return nil, fmt.Errorf("endpoint ordinal %d out of range", ordinal)
	}

	p.mu.RLock()
	client := p.clients[ordinal]
	p.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clients[ordinal] != nil {
		return p.clients[ordinal], nil
	}

	client, err := ethclient.DialContext(ctx, p.endpoints[ordinal].URL)
	if err != nil {
		return nil, errors.NewTransportError("dial", err)
	}
	p.clients[ordinal] = client
	return client, nil
}

// Close closes all dialed clients
func (p *EndpointPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, client := range p.clients {
		if client != nil {
			client.Close()
			p.clients[i] = nil
		}
	}
}

// PoolStatus is a point-in-time view of the pool for the ops API
type PoolStatus struct {
	TotalEndpoints int              `json:"totalEndpoints"`
	CurrentIndex   int              `json:"currentIndex"`
	Endpoints      []EndpointStatus `json:"endpoints"`
}

// EndpointStatus describes a single endpoint
type EndpointStatus struct {
	Ordinal   int    `json:"ordinal"`
	URL       string `json:"url"`
	Connected bool   `json:"connected"`
	IsCurrent bool   `json:"isCurrent"`
}

// Status returns the current status of the pool
func (p *EndpointPool) Status() *PoolStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := &PoolStatus{
		TotalEndpoints: len(p.endpoints),
		CurrentIndex:   p.current,
		Endpoints:      make([]EndpointStatus, len(p.endpoints)),
	}
	for i, ep := range p.endpoints {
		status.Endpoints[i] = EndpointStatus{
			Ordinal:   i,
			URL:       ep.URL,
			Connected: p.clients[i] != nil,
			IsCurrent: i == p.current,
		}
	}
	return status
}
