// Package pipeline executes graphs of workflow modules: steps are
// scheduled through a priority queue, run on a worker pool, and their
// outputs are bound to downstream step inputs.
package pipeline

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/voxmath/VoxMath-Engine/modules"
)

// Common errors for step scheduling
var (
	ErrQueueFull         = errors.New("step queue is full")
	ErrStepAlreadyQueued = errors.New("step already queued")
	ErrInvalidStep       = errors.New("invalid step")
)

// Binding routes one output of an upstream step onto an input port of
// this step.
type Binding struct {
	FromStep   string `json:"from_step"`
	OutputPort string `json:"output_port"`
	InputPort  string `json:"input_port"`
}

// Step is one module invocation in a pipeline. Inputs holds the
// directly supplied port values; Bindings adds values produced by
// upstream steps.
type Step struct {
	ID       string
	Module   modules.Module
	Inputs   map[string]interface{}
	Bindings []Binding
	Priority int
	Enqueued time.Time

	seq uint64
}

// Validate checks that the step can be scheduled.
func (s *Step) Validate() error {
	if s.ID == "" {
		return errors.New("step ID is required")
	}
	if s.Module == nil {
		return errors.New("step module is required")
	}
	return nil
}

// stepHeap implements heap.Interface: higher priority first, then
// insertion order.
type stepHeap []*Step

func (h stepHeap) Len() int { return len(h) }

func (h stepHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h stepHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *stepHeap) Push(x interface{}) {
	*h = append(*h, x.(*Step))
}

func (h *stepHeap) Pop() interface{} {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil // avoid memory leak
	*h = old[0 : n-1]
	return s
}

// StepQueue holds steps waiting for a worker, ordered by priority and
// then arrival. All operations are safe for concurrent use.
type StepQueue struct {
	pending map[string]*Step
	queue   stepHeap
	maxSize int
	nextSeq uint64
	mu      sync.RWMutex
}

// NewStepQueue creates a StepQueue with the specified maximum size.
func NewStepQueue(maxSize int) *StepQueue {
	q := &StepQueue{
		pending: make(map[string]*Step),
		queue:   make(stepHeap, 0),
		maxSize: maxSize,
	}
	heap.Init(&q.queue)
	return q
}

// Add enqueues a step. Duplicate IDs and a full queue are rejected.
func (q *StepQueue) Add(s *Step) error {
	if s == nil {
		return ErrInvalidStep
	}
	if err := s.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.pending[s.ID]; exists {
		return ErrStepAlreadyQueued
	}
	if len(q.pending) >= q.maxSize {
		return ErrQueueFull
	}

	if s.Enqueued.IsZero() {
		s.Enqueued = time.Now()
	}
	s.seq = q.nextSeq
	q.nextSeq++

	q.pending[s.ID] = s
	heap.Push(&q.queue, s)
	return nil
}

// Pop removes and returns the highest-priority step, or nil when the
// queue is empty.
func (q *StepQueue) Pop() *Step {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return nil
	}
	s := heap.Pop(&q.queue).(*Step)
	delete(q.pending, s.ID)
	return s
}

// PopBatch removes and returns up to n highest-priority steps.
func (q *StepQueue) PopBatch(n int) []*Step {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || len(q.queue) == 0 {
		return nil
	}
	if n > len(q.queue) {
		n = len(q.queue)
	}

	batch := make([]*Step, 0, n)
	for i := 0; i < n; i++ {
		s := heap.Pop(&q.queue).(*Step)
		delete(q.pending, s.ID)
		batch = append(batch, s)
	}
	return batch
}

// Peek returns up to n highest-priority steps without removing them.
func (q *StepQueue) Peek(n int) []*Step {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if n <= 0 || len(q.queue) == 0 {
		return nil
	}
	if n > len(q.queue) {
		n = len(q.queue)
	}

	sorted := make(stepHeap, len(q.queue))
	copy(sorted, q.queue)
	heap.Init(&sorted)

	batch := make([]*Step, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, heap.Pop(&sorted).(*Step))
	}
	return batch
}

// Remove removes a step by ID. Returns true if it was queued.
func (q *StepQueue) Remove(stepID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.pending[stepID]; !exists {
		return false
	}
	delete(q.pending, stepID)

	newQueue := make(stepHeap, 0, len(q.queue)-1)
	for _, s := range q.queue {
		if s.ID != stepID {
			newQueue = append(newQueue, s)
		}
	}
	q.queue = newQueue
	heap.Init(&q.queue)
	return true
}

// Contains checks if a step is queued.
func (q *StepQueue) Contains(stepID string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, exists := q.pending[stepID]
	return exists
}

// Size returns the number of queued steps.
func (q *StepQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.pending)
}

// IsFull returns true if the queue has reached its maximum size.
func (q *StepQueue) IsFull() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.pending) >= q.maxSize
}

// Clear removes all queued steps.
func (q *StepQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = make(map[string]*Step)
	q.queue = make(stepHeap, 0)
	heap.Init(&q.queue)
}

// QueueStats describes queue occupancy.
type QueueStats struct {
	Size      int `json:"size"`
	MaxSize   int `json:"max_size"`
	Available int `json:"available"`
}

func (q *StepQueue) Stats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return QueueStats{
		Size:      len(q.pending),
		MaxSize:   q.maxSize,
		Available: q.maxSize - len(q.pending),
	}
}
