package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// StepResult is the outcome of running one step on the pool.
type StepResult struct {
	StepID   string
	Success  bool
	Outputs  map[string]interface{}
	Err      error
	Duration time.Duration
	WorkerID int
}

// PoolStats contains worker pool statistics.
type PoolStats struct {
	Name        string  `json:"name"`
	Workers     int     `json:"workers"`
	Active      int64   `json:"active"`
	Completed   int64   `json:"completed"`
	Failed      int64   `json:"failed"`
	Pending     int     `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
}

// GaugeObserver receives pool occupancy updates as work moves through
// the pool.
type GaugeObserver interface {
	UpdateQueueDepth(depth int)
	UpdateWorkerPool(active, pending int)
}

// Pool runs pipeline steps on a fixed set of goroutine workers. Each
// step's module Compute runs with panic recovery so one bad step
// cannot take the pool down.
type Pool struct {
	name       string
	workers    int
	stepChan   chan *Step
	resultChan chan *StepResult
	wg         sync.WaitGroup
	observer   GaugeObserver

	// Atomic counters for thread-safe statistics
	active    int64
	completed int64
	failed    int64

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
}

// NewPool creates a pool with the specified number of workers and a
// default step backlog.
func NewPool(name string, workers int) *Pool {
	return NewSizedPool(name, workers, 0)
}

// NewSizedPool creates a pool with an explicit step backlog capacity.
// A non-positive queueSize falls back to workers*100.
func NewSizedPool(name string, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		name:       name,
		workers:    workers,
		stepChan:   make(chan *Step, queueSize),
		resultChan: make(chan *StepResult, queueSize),
		ctx:        ctx,
		cancel:     cancel,
		running:    true,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// SetObserver registers a gauge observer. Must be called before any
// step is submitted.
func (p *Pool) SetObserver(obs GaugeObserver) {
	p.observer = obs
}

func (p *Pool) reportGauges() {
	if p.observer == nil {
		return
	}
	pending := len(p.stepChan)
	p.observer.UpdateQueueDepth(pending)
	p.observer.UpdateWorkerPool(int(atomic.LoadInt64(&p.active)), pending)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case step, ok := <-p.stepChan:
			if !ok {
				return
			}
			p.runStep(id, step)
		}
	}
}

// runStep executes one step and sends its result.
func (p *Pool) runStep(workerID int, step *Step) {
	atomic.AddInt64(&p.active, 1)
	p.reportGauges()
	defer func() {
		atomic.AddInt64(&p.active, -1)
		p.reportGauges()
	}()

	start := time.Now()

	result := &StepResult{
		StepID:   step.ID,
		WorkerID: workerID,
	}

	// Panic recovery keeps one step from crashing the pool.
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Err = errors.New("panic in step: " + panicToString(r))
			result.Duration = time.Since(start)
			atomic.AddInt64(&p.failed, 1)
			p.sendResult(result)
		}
	}()

	outputs, err := step.Module.Compute(step.Inputs)
	result.Outputs = outputs
	result.Err = err
	result.Success = err == nil
	result.Duration = time.Since(start)

	if result.Success {
		atomic.AddInt64(&p.completed, 1)
	} else {
		atomic.AddInt64(&p.failed, 1)
	}

	p.sendResult(result)
}

func panicToString(r interface{}) string {
	switch v := r.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return "unknown panic"
	}
}

// sendResult sends a result without blocking; the caller is expected
// to consume Results.
func (p *Pool) sendResult(result *StepResult) {
	select {
	case p.resultChan <- result:
	default:
	}
}

// Submit hands a step to the pool for execution.
func (p *Pool) Submit(step *Step) error {
	if err := step.Validate(); err != nil {
		return err
	}

	// The lock is held across the send so Shutdown cannot close the
	// channel mid-submit. The send never blocks, so Shutdown is never
	// held up waiting for it.
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return errors.New("pool is shut down")
	}

	select {
	case p.stepChan <- step:
		p.reportGauges()
		return nil
	default:
		return ErrQueueFull
	}
}

// Results returns the channel step results are delivered on.
func (p *Pool) Results() <-chan *StepResult {
	return p.resultChan
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	completed := atomic.LoadInt64(&p.completed)
	failed := atomic.LoadInt64(&p.failed)
	total := completed + failed

	var successRate float64
	if total > 0 {
		successRate = float64(completed) / float64(total) * 100
	}

	return PoolStats{
		Name:        p.name,
		Workers:     p.workers,
		Active:      atomic.LoadInt64(&p.active),
		Completed:   completed,
		Failed:      failed,
		Pending:     len(p.stepChan),
		SuccessRate: successRate,
	}
}

// Shutdown stops the workers after draining submitted steps.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	close(p.stepChan)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.resultChan)

	if p.observer != nil {
		p.observer.UpdateQueueDepth(0)
		p.observer.UpdateWorkerPool(0, 0)
	}
}

// ShutdownWithTimeout shuts down, giving workers at most timeout to
// finish.
func (p *Pool) ShutdownWithTimeout(timeout time.Duration) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.cancel()
	close(p.stepChan)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(p.resultChan)
		return nil
	case <-time.After(timeout):
		return errors.New("shutdown timeout")
	}
}

// IsRunning returns true if the pool is still accepting steps.
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
