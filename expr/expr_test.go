package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/voxmath/VoxMath-Engine/dataset"
	"github.com/voxmath/VoxMath-Engine/mathops"
)

func scalarInt(t *testing.T, expression string) int64 {
	t.Helper()
	got, err := Evaluate(expression, nil)
	if err != nil {
		t.Fatalf("Evaluate(%q) failed: %v", expression, err)
	}
	if !got.IsScalar() {
		t.Fatalf("Evaluate(%q) did not produce a scalar", expression)
	}
	return got.IntAt(0)
}

func scalarFloat(t *testing.T, expression string) float64 {
	t.Helper()
	got, err := Evaluate(expression, nil)
	if err != nil {
		t.Fatalf("Evaluate(%q) failed: %v", expression, err)
	}
	return got.FloatAt(0)
}

func TestPrecedence(t *testing.T) {
	cases := []struct {
		expression string
		want       int64
	}{
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"2*3+4", 10},
		{"10-4-3", 3},    // left associative
		{"2**3**2", 512}, // right associative
		{"-2**2", -4},    // unary binds looser than **
		{"7//2", 3},
		{"-7//2", -4}, // floor, not truncation
		{"7%3", 1},
		{"-7%3", 2}, // sign of the divisor
		{"6&3", 2},
		{"6|3", 7},
		{"6^3", 5},
		{"~0", -1},
		{"6|3&2", 6 | (3 & 2)},
		{"+5", 5},
	}
	for _, tc := range cases {
		if got := scalarInt(t, tc.expression); got != tc.want {
			t.Errorf("%q = %d, want %d", tc.expression, got, tc.want)
		}
	}
}

func TestFloatArithmetic(t *testing.T) {
	if got := scalarFloat(t, "9.0/2.0"); got != 4.5 {
		t.Errorf("9.0/2.0 = %f, want 4.5", got)
	}
	if got := scalarFloat(t, "9.0//2.0"); got != 4.0 {
		t.Errorf("9.0//2.0 = %f, want 4.0", got)
	}
	if got := scalarFloat(t, "3/2"); got != 1.5 {
		t.Errorf("3/2 = %f, want 1.5 (true division)", got)
	}
	if got := scalarFloat(t, "9**0.5"); got != 3.0 {
		t.Errorf("9**0.5 = %f, want 3.0", got)
	}
	if got := scalarFloat(t, "1e2+1"); got != 101 {
		t.Errorf("1e2+1 = %f, want 101", got)
	}
}

func TestComparisons(t *testing.T) {
	cases := []struct {
		expression string
		want       bool
	}{
		{"1<2", true},
		{"2<=2", true},
		{"3>4", false},
		{"4>=4", true},
		{"5==5", true},
		{"5!=5", false},
		{"2+2==4", true}, // comparison binds loosest
	}
	for _, tc := range cases {
		got, err := Evaluate(tc.expression, nil)
		if err != nil {
			t.Fatalf("Evaluate(%q) failed: %v", tc.expression, err)
		}
		if got.TruthAt(0) != tc.want {
			t.Errorf("%q = %v, want %v", tc.expression, got.TruthAt(0), tc.want)
		}
	}
}

func TestExpressionOverDatasets(t *testing.T) {
	// (A+C)/(B+D) with two arrays and two constants
	a, _ := dataset.NewInt64([]int{3, 3}, []int64{0, 1, 0, 1, 1, 1, 0, 1, 0})
	b, _ := dataset.NewInt64([]int{3, 3}, []int64{2, 0, 2, 0, 2, 0, 2, 0, 2})

	vars, err := Bind(dataset.FromDataset(a), dataset.FromDataset(b),
		dataset.Int(4), dataset.Float(1.3))
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	got, err := Evaluate("(A+C)/(B+D)", vars)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	out := got.Dataset()
	if out == nil || out.DType() != dataset.Float64 {
		t.Fatal("expected a float64 dataset result")
	}
	for i := 0; i < out.Len(); i++ {
		want := (float64(a.IntAt(i)) + 4) / (float64(b.IntAt(i)) + 1.3)
		if math.Abs(out.FloatAt(i)-want) > 1e-12 {
			t.Errorf("element %d: got %f, want %f", i, out.FloatAt(i), want)
		}
	}
}

func TestExpressionEightInputs(t *testing.T) {
	values := make([]dataset.Value, 8)
	var want int64
	for i := range values {
		ds, _ := dataset.NewInt64([]int{2, 2}, []int64{int64(i + 1), 0, 0, int64(i + 1)})
		values[i] = dataset.FromDataset(ds)
		want += int64(i + 1)
	}

	vars, err := Bind(values...)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	got, err := Evaluate("A+B+C+D+E+F+G+H", vars)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got.Dataset().IntAt(0) != want {
		t.Errorf("corner sum = %d, want %d", got.Dataset().IntAt(0), want)
	}
	if got.Dataset().IntAt(1) != 0 {
		t.Errorf("off-diagonal sum = %d, want 0", got.Dataset().IntAt(1))
	}
}

func TestExpressionMixedTypes(t *testing.T) {
	// (A+B)+(C/D)-E promotes to float when any operand is float
	a, _ := dataset.NewInt64([]int{2}, []int64{1, 2})
	c, _ := dataset.NewFloat64([]int{2}, []float64{3, 4})
	e, _ := dataset.NewFloat64([]int{2}, []float64{1, 1})

	vars, _ := Bind(dataset.FromDataset(a), dataset.Float(3.5),
		dataset.FromDataset(c), dataset.Int(2), dataset.FromDataset(e))

	got, err := Evaluate("(A+B)+(C/D)-E", vars)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got.Dataset().DType() != dataset.Float64 {
		t.Error("mixed-type expression should produce float64")
	}
	want0 := (1 + 3.5) + (3.0 / 2.0) - 1
	if math.Abs(got.Dataset().FloatAt(0)-want0) > 1e-12 {
		t.Errorf("element 0: got %f, want %f", got.Dataset().FloatAt(0), want0)
	}
}

func TestBindTooMany(t *testing.T) {
	values := make([]dataset.Value, 9)
	for i := range values {
		values[i] = dataset.Int(1)
	}
	if _, err := Bind(values...); !errors.Is(err, ErrTooManyInputs) {
		t.Errorf("Expected ErrTooManyInputs, got %v", err)
	}
}

func TestUnboundVariable(t *testing.T) {
	vars, _ := Bind(dataset.Int(1), dataset.Int(2))
	_, err := Evaluate("A+B+C", vars)
	if !errors.Is(err, ErrUnboundVar) {
		t.Errorf("Expected ErrUnboundVar, got %v", err)
	}
}

func TestDivisionByZero(t *testing.T) {
	b, _ := dataset.NewInt64([]int{3}, []int64{1, 0, 2})
	vars, _ := Bind(dataset.Int(1), dataset.FromDataset(b))

	_, err := Evaluate("A/B", vars)
	if !errors.Is(err, mathops.ErrDivideByZero) {
		t.Errorf("Expected ErrDivideByZero, got %v", err)
	}
	_, err = Evaluate("A%B", vars)
	if !errors.Is(err, mathops.ErrDivideByZero) {
		t.Errorf("Expected ErrDivideByZero, got %v", err)
	}
}

func TestBitwiseOnFloats(t *testing.T) {
	vars, _ := Bind(dataset.Float(1.5), dataset.Int(3))
	_, err := Evaluate("A&B", vars)
	if !errors.Is(err, mathops.ErrBitwiseFloat) {
		t.Errorf("Expected ErrBitwiseFloat, got %v", err)
	}
	_, err = Evaluate("~A", vars)
	if !errors.Is(err, mathops.ErrBitwiseFloat) {
		t.Errorf("Expected ErrBitwiseFloat, got %v", err)
	}
}

func TestSyntaxErrors(t *testing.T) {
	bad := []string{
		"",
		"   ",
		"1+",
		"(1+2",
		"1+2)",
		"*3",
		"1 $ 2",
		"=1",
		"!2",
		"1..2",
		"A B",
	}
	for _, expression := range bad {
		if _, err := Parse(expression); !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q): expected ErrSyntax, got %v", expression, err)
		}
	}
}

func TestVars(t *testing.T) {
	parsed, err := Parse("(A+C)/(B+C)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	vars := parsed.Vars()
	if len(vars) != 3 {
		t.Fatalf("Expected 3 distinct vars, got %v", vars)
	}
	if vars[0] != "A" || vars[1] != "C" || vars[2] != "B" {
		t.Errorf("Vars in first-use order wrong: %v", vars)
	}
}

func TestParseOnceEvaluateMany(t *testing.T) {
	parsed, err := Parse("A*2+B")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for i := int64(0); i < 5; i++ {
		vars, _ := Bind(dataset.Int(i), dataset.Int(1))
		got, err := parsed.Evaluate(vars)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if got.IntAt(0) != i*2+1 {
			t.Errorf("A=%d: got %d, want %d", i, got.IntAt(0), i*2+1)
		}
	}
}

// FuzzParse ensures arbitrary expression strings never panic the
// parser or evaluator.
// Run with: go test -fuzz=FuzzParse -fuzztime=30s ./expr/
func FuzzParse(f *testing.F) {
	f.Add("(A+C)/(B+D)")
	f.Add("A+B+C+D+E+F+G+H")
	f.Add("-2**2")
	f.Add("~A|B&C^D")
	f.Add("1.5e10 // 3 % 2")
	f.Add("((((")
	f.Add("A>=B!=C")
	f.Add("")

	f.Fuzz(func(t *testing.T, expression string) {
		parsed, err := Parse(expression)
		if err != nil {
			return
		}
		vars, _ := Bind(dataset.Int(3), dataset.Int(5), dataset.Float(2.5),
			dataset.Int(7), dataset.Int(11), dataset.Int(13),
			dataset.Float(0.5), dataset.Int(17))
		_, _ = parsed.Evaluate(vars)
	})
}
