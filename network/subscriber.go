package network

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"
)

// Subscriber receives step events from a publisher endpoint.
type Subscriber struct {
	ctx    context.Context
	cancel context.CancelFunc

	socket zmq4.Socket

	events chan *StepEvent

	closed bool
	mu     sync.Mutex
	wg     sync.WaitGroup
}

// NewSubscriber connects to the publisher at endpoint and subscribes to
// all step events. Events arrive on the Events channel until Close.
func NewSubscriber(endpoint string) (*Subscriber, error) {
	ctx, cancel := context.WithCancel(context.Background())

	socket := zmq4.NewSub(ctx)
	if err := socket.Dial(endpoint); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	if err := socket.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		cancel()
		if cerr := socket.Close(); cerr != nil {
			_ = cerr
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	s := &Subscriber{
		ctx:    ctx,
		cancel: cancel,
		socket: socket,
		events: make(chan *StepEvent, 100),
	}

	s.wg.Add(1)
	go s.receiveLoop()

	return s, nil
}

// Events returns the channel of received step events.
func (s *Subscriber) Events() <-chan *StepEvent {
	return s.events
}

// Close stops receiving and closes the Events channel.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	if err := s.socket.Close(); err != nil {
		_ = err // shutdown errors are expected
	}

	s.wg.Wait()
	close(s.events)
}

func (s *Subscriber) receiveLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
			msg, err := s.socket.Recv()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
					continue
				}
			}

			var event StepEvent
			if err := json.Unmarshal(msg.Bytes(), &event); err != nil {
				continue
			}

			// Non-blocking; drop when the consumer lags.
			select {
			case s.events <- &event:
			default:
			}
		}
	}
}
