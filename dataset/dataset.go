// Package dataset provides the dense numeric array type carried through
// the engine, plus its Apache Arrow schema, converter and IPC codec.
package dataset

import (
	"errors"
	"fmt"
)

// Common errors for dataset operations
var (
	ErrShapeMismatch = errors.New("dataset shapes do not match")
	ErrBadShape      = errors.New("shape does not match data length")
	ErrEmptyDataset  = errors.New("dataset is empty")
)

// DType identifies the element type of a Dataset.
type DType int

const (
	Int64 DType = iota
	Float64
	Bool
)

func (d DType) String() string {
	switch d {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseDType parses a dtype name produced by DType.String.
func ParseDType(s string) (DType, error) {
	switch s {
	case "int64":
		return Int64, nil
	case "float64":
		return Float64, nil
	case "bool":
		return Bool, nil
	default:
		return 0, fmt.Errorf("unknown dtype %q", s)
	}
}

// Dataset is a dense 1D/2D/3D numeric array (an image or volume).
// Data is stored flat in row-major order.
type Dataset struct {
	shape  []int
	dtype  DType
	ints   []int64
	floats []float64
	bools  []bool
}

// NewInt64 creates an int64 Dataset from flat row-major data.
func NewInt64(shape []int, data []int64) (*Dataset, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dataset{shape: cloneShape(shape), dtype: Int64, ints: data}, nil
}

// NewFloat64 creates a float64 Dataset from flat row-major data.
func NewFloat64(shape []int, data []float64) (*Dataset, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dataset{shape: cloneShape(shape), dtype: Float64, floats: data}, nil
}

// NewBool creates a bool Dataset from flat row-major data.
func NewBool(shape []int, data []bool) (*Dataset, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Dataset{shape: cloneShape(shape), dtype: Bool, bools: data}, nil
}

// Zeros creates a Dataset of the given dtype filled with zero values.
func Zeros(shape []int, dtype DType) (*Dataset, error) {
	n := 1
	for _, dim := range shape {
		if dim <= 0 {
			return nil, fmt.Errorf("%w: dimension %d", ErrBadShape, dim)
		}
		n *= dim
	}
	d := &Dataset{shape: cloneShape(shape), dtype: dtype}
	switch dtype {
	case Int64:
		d.ints = make([]int64, n)
	case Float64:
		d.floats = make([]float64, n)
	case Bool:
		d.bools = make([]bool, n)
	}
	return d, nil
}

func checkShape(shape []int, n int) error {
	if n == 0 {
		return ErrEmptyDataset
	}
	want := 1
	for _, dim := range shape {
		if dim <= 0 {
			return fmt.Errorf("%w: dimension %d", ErrBadShape, dim)
		}
		want *= dim
	}
	if want != n {
		return fmt.Errorf("%w: shape %v holds %d elements, data has %d",
			ErrBadShape, shape, want, n)
	}
	return nil
}

func cloneShape(shape []int) []int {
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}

// Shape returns a copy of the dataset shape.
func (d *Dataset) Shape() []int {
	return cloneShape(d.shape)
}

// DType returns the element type.
func (d *Dataset) DType() DType {
	return d.dtype
}

// Len returns the total number of elements.
func (d *Dataset) Len() int {
	switch d.dtype {
	case Int64:
		return len(d.ints)
	case Float64:
		return len(d.floats)
	default:
		return len(d.bools)
	}
}

// IntAt returns element i as int64. Float values are truncated,
// bools map to 0/1.
func (d *Dataset) IntAt(i int) int64 {
	switch d.dtype {
	case Int64:
		return d.ints[i]
	case Float64:
		return int64(d.floats[i])
	default:
		if d.bools[i] {
			return 1
		}
		return 0
	}
}

// FloatAt returns element i as float64.
func (d *Dataset) FloatAt(i int) float64 {
	switch d.dtype {
	case Int64:
		return float64(d.ints[i])
	case Float64:
		return d.floats[i]
	default:
		if d.bools[i] {
			return 1
		}
		return 0
	}
}

// TruthAt returns the truthiness of element i (nonzero is true).
func (d *Dataset) TruthAt(i int) bool {
	switch d.dtype {
	case Int64:
		return d.ints[i] != 0
	case Float64:
		return d.floats[i] != 0
	default:
		return d.bools[i]
	}
}

// Ints returns the backing int64 slice. Valid only for Int64 datasets.
func (d *Dataset) Ints() []int64 { return d.ints }

// Floats returns the backing float64 slice. Valid only for Float64 datasets.
func (d *Dataset) Floats() []float64 { return d.floats }

// Bools returns the backing bool slice. Valid only for Bool datasets.
func (d *Dataset) Bools() []bool { return d.bools }

// SameShape reports whether two datasets have identical shapes.
func SameShape(a, b *Dataset) bool {
	if len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two datasets have the same shape, dtype and elements.
func Equal(a, b *Dataset) bool {
	if a.dtype != b.dtype || !SameShape(a, b) {
		return false
	}
	n := a.Len()
	for i := 0; i < n; i++ {
		switch a.dtype {
		case Int64:
			if a.ints[i] != b.ints[i] {
				return false
			}
		case Float64:
			if a.floats[i] != b.floats[i] {
				return false
			}
		default:
			if a.bools[i] != b.bools[i] {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{shape: cloneShape(d.shape), dtype: d.dtype}
	switch d.dtype {
	case Int64:
		out.ints = append([]int64(nil), d.ints...)
	case Float64:
		out.floats = append([]float64(nil), d.floats...)
	default:
		out.bools = append([]bool(nil), d.bools...)
	}
	return out
}

// AsFloat64 returns the dataset converted to float64, or the dataset
// itself if it already is float64.
func (d *Dataset) AsFloat64() *Dataset {
	if d.dtype == Float64 {
		return d
	}
	out := make([]float64, d.Len())
	for i := range out {
		out[i] = d.FloatAt(i)
	}
	return &Dataset{shape: cloneShape(d.shape), dtype: Float64, floats: out}
}
