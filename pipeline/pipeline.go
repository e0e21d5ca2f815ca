package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Common errors for pipeline assembly and execution
var (
	ErrDuplicateStep = errors.New("step ID already in pipeline")
	ErrUnknownStep   = errors.New("binding references unknown step")
	ErrUnknownOutput = errors.New("binding references unknown output port")
	ErrCycle         = errors.New("pipeline contains a cycle")
	ErrStepFailed    = errors.New("step failed")
)

// Pipeline is a DAG of steps. Bindings on each step name the upstream
// steps whose outputs feed it; Run executes the steps in dependency
// order on a worker pool.
type Pipeline struct {
	steps  map[string]*Step
	order  []string
	notify func(*StepResult)
}

// New creates an empty Pipeline.
func New() *Pipeline {
	return &Pipeline{steps: make(map[string]*Step)}
}

// SetNotifier registers a callback invoked once per finished step,
// before Run reacts to the result. Must be set before Run.
func (p *Pipeline) SetNotifier(fn func(*StepResult)) {
	p.notify = fn
}

// AddStep adds a step to the pipeline.
func (p *Pipeline) AddStep(s *Step) error {
	if s == nil {
		return ErrInvalidStep
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := p.steps[s.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStep, s.ID)
	}
	p.steps[s.ID] = s
	p.order = append(p.order, s.ID)
	return nil
}

// Len returns the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// upstreams returns the distinct upstream step IDs a step binds from.
func (s *Step) upstreams() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, b := range s.Bindings {
		if !seen[b.FromStep] {
			seen[b.FromStep] = true
			ids = append(ids, b.FromStep)
		}
	}
	return ids
}

// check validates the binding graph and reports a cycle or a dangling
// reference.
func (p *Pipeline) check() error {
	for _, id := range p.order {
		for _, b := range p.steps[id].Bindings {
			if _, ok := p.steps[b.FromStep]; !ok {
				return fmt.Errorf("%w: step %q binds from %q", ErrUnknownStep, id, b.FromStep)
			}
		}
	}

	// Kahn's algorithm over the binding edges.
	remaining := make(map[string]int, len(p.steps))
	dependents := make(map[string][]string)
	for _, id := range p.order {
		ups := p.steps[id].upstreams()
		remaining[id] = len(ups)
		for _, up := range ups {
			dependents[up] = append(dependents[up], id)
		}
	}

	var ready []string
	for _, id := range p.order {
		if remaining[id] == 0 {
			ready = append(ready, id)
		}
	}

	visited := 0
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		visited++
		for _, dep := range dependents[id] {
			remaining[dep]--
			if remaining[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	if visited != len(p.steps) {
		return ErrCycle
	}
	return nil
}

// Run executes the pipeline on the pool and returns each step's
// outputs keyed by step ID. The pool must be dedicated to this run;
// Run consumes its result channel. Execution stops at the first
// failed step.
func (p *Pipeline) Run(ctx context.Context, pool *Pool) (map[string]map[string]interface{}, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	if len(p.steps) == 0 {
		return map[string]map[string]interface{}{}, nil
	}

	remaining := make(map[string]int, len(p.steps))
	dependents := make(map[string][]*Step)
	for _, id := range p.order {
		s := p.steps[id]
		ups := s.upstreams()
		remaining[id] = len(ups)
		for _, up := range ups {
			dependents[up] = append(dependents[up], s)
		}
	}

	queue := NewStepQueue(len(p.steps))
	for _, id := range p.order {
		if remaining[id] == 0 {
			if err := queue.Add(p.steps[id]); err != nil {
				return nil, err
			}
		}
	}

	outputs := make(map[string]map[string]interface{}, len(p.steps))

	submitReady := func() error {
		for {
			s := queue.Pop()
			if s == nil {
				return nil
			}
			if err := pool.Submit(s); err != nil {
				return fmt.Errorf("submit step %q: %w", s.ID, err)
			}
		}
	}

	if err := submitReady(); err != nil {
		return nil, err
	}

	for len(outputs) < len(p.steps) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case result := <-pool.Results():
			if p.notify != nil {
				p.notify(result)
			}
			if !result.Success {
				return nil, fmt.Errorf("%w: %q: %v", ErrStepFailed, result.StepID, result.Err)
			}
			outputs[result.StepID] = result.Outputs

			for _, dep := range dependents[result.StepID] {
				if err := bindOutputs(dep, result.StepID, result.Outputs); err != nil {
					return nil, err
				}
				remaining[dep.ID]--
				if remaining[dep.ID] == 0 {
					if err := queue.Add(dep); err != nil {
						return nil, err
					}
				}
			}
			if err := submitReady(); err != nil {
				return nil, err
			}
		}
	}

	return outputs, nil
}

// bindOutputs copies the bound outputs of a finished upstream step
// onto a dependent step's inputs.
func bindOutputs(dep *Step, fromStep string, out map[string]interface{}) error {
	for _, b := range dep.Bindings {
		if b.FromStep != fromStep {
			continue
		}
		v, ok := out[b.OutputPort]
		if !ok {
			return fmt.Errorf("%w: step %q wants %s.%s", ErrUnknownOutput,
				dep.ID, fromStep, b.OutputPort)
		}
		if dep.Inputs == nil {
			dep.Inputs = make(map[string]interface{})
		}
		dep.Inputs[b.InputPort] = v
	}
	return nil
}
