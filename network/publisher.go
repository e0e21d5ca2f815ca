// Package network broadcasts pipeline step events over ZeroMQ.
// This package implements:
// - PUB publisher for completed-step notifications
// - SUB subscriber helper for downstream listeners
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
)

var (
	ErrPublisherNotRunning = errors.New("publisher is not running")
	ErrPublishFailed       = errors.New("failed to publish event")
)

// Event types carried in StepEvent.Type.
const (
	EventStepCompleted = "step_completed"
	EventStepFailed    = "step_failed"
)

// StepEvent is the JSON envelope broadcast for every finished step.
type StepEvent struct {
	Type       string  `json:"type"`
	StepID     string  `json:"step_id"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"duration_ms"`
	WorkerID   int     `json:"worker_id"`

	Timestamp time.Time `json:"timestamp"`
}

// Publisher broadcasts step events on a PUB socket.
type Publisher struct {
	endpoint string

	ctx    context.Context
	cancel context.CancelFunc

	socket zmq4.Socket

	running bool
	mu      sync.RWMutex
}

// NewPublisher creates a publisher bound to the given endpoint
// (e.g. "tcp://127.0.0.1:5556").
func NewPublisher(endpoint string) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Publisher{
		endpoint: endpoint,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start binds the PUB socket.
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("publisher already running")
	}

	p.socket = zmq4.NewPub(p.ctx)
	if err := p.socket.Listen(p.endpoint); err != nil {
		return fmt.Errorf("failed to bind publisher: %w", err)
	}

	p.running = true
	return nil
}

// Stop closes the socket. Safe to call more than once.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false

	p.cancel()

	if p.socket != nil {
		if err := p.socket.Close(); err != nil {
			_ = err // shutdown errors are expected
		}
	}
}

// Publish broadcasts a step event to all subscribers.
func (p *Publisher) Publish(event *StepEvent) error {
	p.mu.RLock()
	if !p.running {
		p.mu.RUnlock()
		return ErrPublisherNotRunning
	}
	socket := p.socket
	p.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := socket.Send(zmq4.NewMsg(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	return nil
}

// Addr returns the bound socket address, or "" before Start.
func (p *Publisher) Addr() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running || p.socket == nil {
		return ""
	}
	if addr := p.socket.Addr(); addr != nil {
		return addr.String()
	}
	return ""
}

// IsRunning returns whether the publisher is accepting events.
func (p *Publisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
