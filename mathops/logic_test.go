package mathops

import (
	"errors"
	"testing"

	"github.com/voxmath/VoxMath-Engine/dataset"
)

func trueCount(t *testing.T, v dataset.Value) int {
	t.Helper()
	ds := v.Dataset()
	if ds == nil {
		t.Fatal("expected a dataset result")
	}
	count := 0
	for i := 0; i < ds.Len(); i++ {
		if ds.TruthAt(i) {
			count++
		}
	}
	return count
}

func TestLogicAnd(t *testing.T) {
	// Two overlapping blocks in a 10x10x10 volume
	a := intCube(t, 10, 1, 0, 5)
	b := intCube(t, 10, 2, 3, 8)

	got, err := Logic(And, dataset.FromDataset(a), dataset.FromDataset(b))
	if err != nil {
		t.Fatalf("And failed: %v", err)
	}
	// Overlap is the region [3,5) in each dimension
	if n := trueCount(t, got); n != 2*2*2 {
		t.Errorf("And overlap count = %d, want 8", n)
	}

	// Self-intersection reproduces the mask
	got, _ = Logic(And, dataset.FromDataset(a), dataset.FromDataset(a))
	if n := trueCount(t, got); n != 5*5*5 {
		t.Errorf("And self count = %d, want 125", n)
	}

	// Disjoint blocks share nothing
	c := intCube(t, 10, 3, 6, 10)
	got, _ = Logic(And, dataset.FromDataset(a), dataset.FromDataset(c))
	if n := trueCount(t, got); n != 0 {
		t.Errorf("And disjoint count = %d, want 0", n)
	}
}

func TestLogicOr(t *testing.T) {
	a := intCube(t, 10, 1, 0, 5)
	b := intCube(t, 10, 2, 3, 8)

	got, err := Logic(Or, dataset.FromDataset(a), dataset.FromDataset(b))
	if err != nil {
		t.Fatalf("Or failed: %v", err)
	}
	want := 5*5*5 + 5*5*5 - 2*2*2
	if n := trueCount(t, got); n != want {
		t.Errorf("Or count = %d, want %d", n, want)
	}
}

func TestLogicNot(t *testing.T) {
	a := intCube(t, 10, 1, 0, 5)

	got, err := Logic(Not, dataset.FromDataset(a))
	if err != nil {
		t.Fatalf("Not failed: %v", err)
	}
	if n := trueCount(t, got); n != 1000-125 {
		t.Errorf("Not count = %d, want 875", n)
	}

	// Not is unary
	_, err = Logic(Not, dataset.FromDataset(a), dataset.FromDataset(a))
	if !errors.Is(err, ErrArity) {
		t.Errorf("Expected ErrArity, got %v", err)
	}
}

func TestLogicXor(t *testing.T) {
	a := intCube(t, 10, 1, 0, 5)
	b := intCube(t, 10, 2, 3, 8)

	got, err := Logic(Xor, dataset.FromDataset(a), dataset.FromDataset(a))
	if err != nil {
		t.Fatalf("Xor failed: %v", err)
	}
	if n := trueCount(t, got); n != 0 {
		t.Errorf("Xor self count = %d, want 0", n)
	}

	got, _ = Logic(Xor, dataset.FromDataset(a), dataset.FromDataset(b))
	want := 125 + 125 - 2*8
	if n := trueCount(t, got); n != want {
		t.Errorf("Xor count = %d, want %d", n, want)
	}
}

func TestLogicNandNor(t *testing.T) {
	a := intCube(t, 10, 1, 0, 5)
	b := intCube(t, 10, 2, 3, 8)

	got, err := Logic(Nand, dataset.FromDataset(a), dataset.FromDataset(a))
	if err != nil {
		t.Fatalf("Nand failed: %v", err)
	}
	if n := trueCount(t, got); n != 1000-125 {
		t.Errorf("Nand self count = %d, want 875", n)
	}

	got, err = Logic(Nor, dataset.FromDataset(a), dataset.FromDataset(b))
	if err != nil {
		t.Fatalf("Nor failed: %v", err)
	}
	wantOr := 125 + 125 - 8
	if n := trueCount(t, got); n != 1000-wantOr {
		t.Errorf("Nor count = %d, want %d", n, 1000-wantOr)
	}
}

func TestLogicSubtract(t *testing.T) {
	a := intCube(t, 10, 1, 0, 5)
	b := intCube(t, 10, 2, 3, 8)

	// a - a removes everything
	got, err := Logic(LogicalSub, dataset.FromDataset(a), dataset.FromDataset(a))
	if err != nil {
		t.Fatalf("LogicalSub failed: %v", err)
	}
	if n := trueCount(t, got); n != 0 {
		t.Errorf("Sub self count = %d, want 0", n)
	}

	// a - b keeps the part of a outside the overlap
	got, _ = Logic(LogicalSub, dataset.FromDataset(a), dataset.FromDataset(b))
	if n := trueCount(t, got); n != 125-8 {
		t.Errorf("Sub count = %d, want %d", n, 125-8)
	}

	// Subtracting a disjoint mask leaves a untouched
	c := intCube(t, 10, 3, 6, 10)
	got, _ = Logic(LogicalSub, dataset.FromDataset(a), dataset.FromDataset(c))
	if n := trueCount(t, got); n != 125 {
		t.Errorf("Sub disjoint count = %d, want 125", n)
	}
}

func TestLogicScalars(t *testing.T) {
	got, err := Logic(And, dataset.Int(1), dataset.Int(0))
	if err != nil {
		t.Fatalf("And failed: %v", err)
	}
	if !got.IsScalar() || got.TruthAt(0) {
		t.Error("1 and 0 should be scalar false")
	}
}

func TestLogicByName(t *testing.T) {
	a := intCube(t, 4, 1, 0, 2)

	for _, name := range []string{"and", "or", "xor", "nand", "nor", "sub", "subtract"} {
		if _, err := LogicByName(name, dataset.FromDataset(a), dataset.FromDataset(a)); err != nil {
			t.Errorf("%s failed: %v", name, err)
		}
	}
	if _, err := LogicByName("not", dataset.FromDataset(a)); err != nil {
		t.Errorf("not failed: %v", err)
	}
	if _, err := LogicByName("implies", dataset.FromDataset(a), dataset.FromDataset(a)); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("Expected ErrUnknownOp, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	data, _ := dataset.NewFloat64([]int{4}, []float64{5, 7, 9, 11})
	white, _ := dataset.NewFloat64([]int{4}, []float64{10, 10, 10, 10})
	dark, _ := dataset.NewFloat64([]int{4}, []float64{1, 1, 1, 1})

	got, err := Normalize(dataset.FromDataset(data), dataset.FromDataset(white), dataset.FromDataset(dark))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	out := got.Dataset()
	want := []float64{4.0 / 9.0, 6.0 / 9.0, 8.0 / 9.0, 10.0 / 9.0}
	for i, w := range want {
		if diff := out.FloatAt(i) - w; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("element %d: got %f, want %f", i, out.FloatAt(i), w)
		}
	}

	// Saturated white equal to dark must be rejected
	_, err = Normalize(dataset.FromDataset(data), dataset.FromDataset(dark), dataset.FromDataset(dark))
	if !errors.Is(err, ErrDivideByZero) {
		t.Errorf("Expected ErrDivideByZero, got %v", err)
	}
}

func TestAggregate(t *testing.T) {
	a, _ := dataset.NewInt64([]int{3}, []int64{1, 2, 3})
	b, _ := dataset.NewInt64([]int{3}, []int64{10, 20, 30})
	c, _ := dataset.NewInt64([]int{3}, []int64{100, 200, 300})

	got, err := Aggregate(dataset.FromDataset(a), dataset.FromDataset(b), dataset.FromDataset(c))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	want := []int64{111, 222, 333}
	for i, w := range want {
		if got.Dataset().IntAt(i) != w {
			t.Errorf("element %d: got %d, want %d", i, got.Dataset().IntAt(i), w)
		}
	}

	// Single input passes through
	got, err = Aggregate(dataset.FromDataset(a))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if !dataset.Equal(got.Dataset(), a) {
		t.Error("single-input aggregate should return the input")
	}

	if _, err := Aggregate(); !errors.Is(err, ErrNoInputs) {
		t.Errorf("Expected ErrNoInputs, got %v", err)
	}
}
