package dataset

import "fmt"

// Value is a single operand: either a Dataset or a scalar constant.
// Every arithmetic and logical operation accepts two data set arrays,
// two constants, or an array and a constant.
type Value struct {
	ds *Dataset

	// scalar payload, valid when ds == nil
	kind DType
	i    int64
	f    float64
	b    bool
}

// FromDataset wraps a Dataset as a Value.
func FromDataset(d *Dataset) Value {
	return Value{ds: d}
}

// Int wraps an integer constant as a Value.
func Int(v int64) Value {
	return Value{kind: Int64, i: v}
}

// Float wraps a float constant as a Value.
func Float(v float64) Value {
	return Value{kind: Float64, f: v}
}

// BoolScalar wraps a boolean constant as a Value.
func BoolScalar(v bool) Value {
	return Value{kind: Bool, b: v}
}

// IsScalar reports whether the value is a scalar constant.
func (v Value) IsScalar() bool { return v.ds == nil }

// Dataset returns the wrapped dataset, or nil for scalars.
func (v Value) Dataset() *Dataset { return v.ds }

// DType returns the element type of the operand.
func (v Value) DType() DType {
	if v.ds != nil {
		return v.ds.dtype
	}
	return v.kind
}

// IntAt returns element i as int64; scalars ignore i.
func (v Value) IntAt(i int) int64 {
	if v.ds != nil {
		return v.ds.IntAt(i)
	}
	switch v.kind {
	case Int64:
		return v.i
	case Float64:
		return int64(v.f)
	default:
		if v.b {
			return 1
		}
		return 0
	}
}

// FloatAt returns element i as float64; scalars ignore i.
func (v Value) FloatAt(i int) float64 {
	if v.ds != nil {
		return v.ds.FloatAt(i)
	}
	switch v.kind {
	case Int64:
		return float64(v.i)
	case Float64:
		return v.f
	default:
		if v.b {
			return 1
		}
		return 0
	}
}

// TruthAt returns the truthiness of element i; scalars ignore i.
func (v Value) TruthAt(i int) bool {
	if v.ds != nil {
		return v.ds.TruthAt(i)
	}
	switch v.kind {
	case Int64:
		return v.i != 0
	case Float64:
		return v.f != 0
	default:
		return v.b
	}
}

// HasZero reports whether any element of the operand is zero.
func (v Value) HasZero() bool {
	if v.ds == nil {
		return !v.TruthAt(0)
	}
	n := v.ds.Len()
	for i := 0; i < n; i++ {
		if !v.ds.TruthAt(i) {
			return true
		}
	}
	return false
}

// Broadcast resolves the element count and result shape of an
// elementwise operation over two operands. Scalars broadcast against
// arrays; two arrays must have identical shapes.
func Broadcast(a, b Value) (n int, shape []int, err error) {
	switch {
	case a.ds != nil && b.ds != nil:
		if !SameShape(a.ds, b.ds) {
			return 0, nil, fmt.Errorf("%w: %v vs %v",
				ErrShapeMismatch, a.ds.shape, b.ds.shape)
		}
		return a.ds.Len(), a.ds.Shape(), nil
	case a.ds != nil:
		return a.ds.Len(), a.ds.Shape(), nil
	case b.ds != nil:
		return b.ds.Len(), b.ds.Shape(), nil
	default:
		return 1, nil, nil
	}
}

// PromoteDType resolves the result element type of an arithmetic
// operation: float64 wins over int64, bool behaves as int64.
func PromoteDType(a, b Value) DType {
	if a.DType() == Float64 || b.DType() == Float64 {
		return Float64
	}
	return Int64
}
