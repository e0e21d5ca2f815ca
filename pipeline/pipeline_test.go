package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/voxmath/VoxMath-Engine/dataset"
	"github.com/voxmath/VoxMath-Engine/modules"
)

func arithmeticStep(t *testing.T, reg *modules.Registry, id string) *Step {
	t.Helper()
	m, err := reg.Get("imgproc", "arithmetic")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return &Step{ID: id, Module: m}
}

func TestPipelineAddStep(t *testing.T) {
	p := New()

	if err := p.AddStep(&Step{ID: "a", Module: noopModule{}}); err != nil {
		t.Fatalf("AddStep: %v", err)
	}
	if err := p.AddStep(&Step{ID: "a", Module: noopModule{}}); !errors.Is(err, ErrDuplicateStep) {
		t.Errorf("duplicate step: err = %v, want ErrDuplicateStep", err)
	}
	if err := p.AddStep(nil); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("nil step: err = %v, want ErrInvalidStep", err)
	}
	if p.Len() != 1 {
		t.Errorf("Len = %d, want 1", p.Len())
	}
}

func TestPipelineRunChain(t *testing.T) {
	reg, err := modules.NewDefaultRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}

	// sum = x1 + x2, then scaled = sum * 3
	p := New()

	sum := arithmeticStep(t, reg, "sum")
	sum.Inputs = map[string]interface{}{
		"operation": "addition",
		"x1":        int64(2),
		"x2":        int64(5),
	}
	if err := p.AddStep(sum); err != nil {
		t.Fatal(err)
	}

	scaled := arithmeticStep(t, reg, "scaled")
	scaled.Inputs = map[string]interface{}{
		"operation": "multiplication",
		"x2":        int64(3),
	}
	scaled.Bindings = []Binding{{FromStep: "sum", OutputPort: "output", InputPort: "x1"}}
	if err := p.AddStep(scaled); err != nil {
		t.Fatal(err)
	}

	pool := NewPool("test", 2)
	defer pool.Shutdown()

	outputs, err := p.Run(context.Background(), pool)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	result := outputs["scaled"]["output"].(dataset.Value)
	if got := result.IntAt(0); got != 21 {
		t.Errorf("scaled output = %d, want 21", got)
	}
}

func TestPipelineNotifier(t *testing.T) {
	reg, err := modules.NewDefaultRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}

	p := New()
	step := arithmeticStep(t, reg, "only")
	step.Inputs = map[string]interface{}{
		"operation": "addition",
		"x1":        int64(1),
		"x2":        int64(2),
	}
	if err := p.AddStep(step); err != nil {
		t.Fatal(err)
	}

	var seen []*StepResult
	p.SetNotifier(func(res *StepResult) {
		seen = append(seen, res)
	})

	pool := NewPool("test", 1)
	defer pool.Shutdown()

	if _, err := p.Run(context.Background(), pool); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(seen) != 1 {
		t.Fatalf("notifier called %d times, want 1", len(seen))
	}
	if seen[0].StepID != "only" || !seen[0].Success {
		t.Errorf("unexpected notification: %+v", seen[0])
	}
}

func TestPipelineRunDiamond(t *testing.T) {
	reg, err := modules.NewDefaultRegistry(nil)
	if err != nil {
		t.Fatal(err)
	}

	// src feeds two branches which feed a final sum:
	//   src = 1 + 2 = 3
	//   left = src * 10 = 30, right = src + 4 = 7
	//   final = left + right = 37
	p := New()

	src := arithmeticStep(t, reg, "src")
	src.Inputs = map[string]interface{}{"operation": "addition", "x1": int64(1), "x2": int64(2)}
	left := arithmeticStep(t, reg, "left")
	left.Inputs = map[string]interface{}{"operation": "multiplication", "x2": int64(10)}
	left.Bindings = []Binding{{FromStep: "src", OutputPort: "output", InputPort: "x1"}}
	right := arithmeticStep(t, reg, "right")
	right.Inputs = map[string]interface{}{"operation": "addition", "x2": int64(4)}
	right.Bindings = []Binding{{FromStep: "src", OutputPort: "output", InputPort: "x1"}}
	final := arithmeticStep(t, reg, "final")
	final.Inputs = map[string]interface{}{"operation": "addition"}
	final.Bindings = []Binding{
		{FromStep: "left", OutputPort: "output", InputPort: "x1"},
		{FromStep: "right", OutputPort: "output", InputPort: "x2"},
	}

	for _, s := range []*Step{src, left, right, final} {
		if err := p.AddStep(s); err != nil {
			t.Fatal(err)
		}
	}

	pool := NewPool("test", 4)
	defer pool.Shutdown()

	outputs, err := p.Run(context.Background(), pool)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result := outputs["final"]["output"].(dataset.Value)
	if got := result.IntAt(0); got != 37 {
		t.Errorf("final output = %d, want 37", got)
	}
}

func TestPipelineCycleDetection(t *testing.T) {
	p := New()

	a := &Step{ID: "a", Module: noopModule{},
		Bindings: []Binding{{FromStep: "b", OutputPort: "out", InputPort: "in"}}}
	b := &Step{ID: "b", Module: noopModule{},
		Bindings: []Binding{{FromStep: "a", OutputPort: "out", InputPort: "in"}}}
	_ = p.AddStep(a)
	_ = p.AddStep(b)

	pool := NewPool("test", 1)
	defer pool.Shutdown()

	if _, err := p.Run(context.Background(), pool); !errors.Is(err, ErrCycle) {
		t.Errorf("err = %v, want ErrCycle", err)
	}
}

func TestPipelineUnknownStepBinding(t *testing.T) {
	p := New()

	s := &Step{ID: "a", Module: noopModule{},
		Bindings: []Binding{{FromStep: "ghost", OutputPort: "out", InputPort: "in"}}}
	_ = p.AddStep(s)

	pool := NewPool("test", 1)
	defer pool.Shutdown()

	if _, err := p.Run(context.Background(), pool); !errors.Is(err, ErrUnknownStep) {
		t.Errorf("err = %v, want ErrUnknownStep", err)
	}
}

func TestPipelineUnknownOutputBinding(t *testing.T) {
	p := New()

	_ = p.AddStep(&Step{ID: "src", Module: noopModule{}})
	_ = p.AddStep(&Step{ID: "dst", Module: noopModule{},
		Bindings: []Binding{{FromStep: "src", OutputPort: "missing", InputPort: "in"}}})

	pool := NewPool("test", 1)
	defer pool.Shutdown()

	if _, err := p.Run(context.Background(), pool); !errors.Is(err, ErrUnknownOutput) {
		t.Errorf("err = %v, want ErrUnknownOutput", err)
	}
}

func TestPipelineStepFailureStopsRun(t *testing.T) {
	p := New()

	fail := &Step{ID: "fail", Module: funcModule{name: "fail",
		compute: func(map[string]interface{}) (map[string]interface{}, error) {
			return nil, errors.New("bad input")
		}}}
	dep := &Step{ID: "dep", Module: noopModule{},
		Bindings: []Binding{{FromStep: "fail", OutputPort: "out", InputPort: "in"}}}
	_ = p.AddStep(fail)
	_ = p.AddStep(dep)

	pool := NewPool("test", 2)
	defer pool.Shutdown()

	if _, err := p.Run(context.Background(), pool); !errors.Is(err, ErrStepFailed) {
		t.Errorf("err = %v, want ErrStepFailed", err)
	}
}

func TestPipelineRunEmpty(t *testing.T) {
	p := New()

	pool := NewPool("test", 1)
	defer pool.Shutdown()

	outputs, err := p.Run(context.Background(), pool)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outputs) != 0 {
		t.Errorf("outputs = %v, want empty", outputs)
	}
}

func TestPipelineRunCancelled(t *testing.T) {
	p := New()

	block := make(chan struct{})
	s := &Step{ID: "slow", Module: funcModule{name: "slow",
		compute: func(map[string]interface{}) (map[string]interface{}, error) {
			<-block
			return map[string]interface{}{}, nil
		}}}
	_ = p.AddStep(s)

	pool := NewPool("test", 1)
	defer func() {
		close(block)
		pool.Shutdown()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Run(ctx, pool); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
