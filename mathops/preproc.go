package mathops

import (
	"errors"

	"github.com/voxmath/VoxMath-Engine/dataset"
)

// ErrNoInputs is returned by Aggregate when no operands are provided.
var ErrNoInputs = errors.New("no inputs to aggregate")

// Normalize applies flat- and dark-field correction to raw detector
// data: (data - dark) / (white - dark). The correction is rejected if
// white - dark is zero anywhere.
func Normalize(data, white, dark dataset.Value) (dataset.Value, error) {
	span, err := Arithmetic(Subtract, white, dark)
	if err != nil {
		return dataset.Value{}, err
	}
	numer, err := Arithmetic(Subtract, data, dark)
	if err != nil {
		return dataset.Value{}, err
	}
	return Arithmetic(Divide, numer, span)
}

// Aggregate combines one or more models or datasets into a single
// aggregate by elementwise summation.
func Aggregate(inputs ...dataset.Value) (dataset.Value, error) {
	if len(inputs) == 0 {
		return dataset.Value{}, ErrNoInputs
	}
	acc := inputs[0]
	for _, v := range inputs[1:] {
		var err error
		acc, err = Arithmetic(Add, acc, v)
		if err != nil {
			return dataset.Value{}, err
		}
	}
	return acc, nil
}
