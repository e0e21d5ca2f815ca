package dataset

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Named pairs an operand name with its value for transport.
type Named struct {
	Name  string
	Value Value
}

// Converter handles Dataset to Arrow RecordBatch conversion.
type Converter struct {
	allocator memory.Allocator
}

// NewConverter creates a new Converter with the default memory allocator.
func NewConverter() *Converter {
	return &Converter{allocator: memory.DefaultAllocator}
}

// ToRecord converts named operands to an Arrow RecordBatch. Scalar
// operands are encoded as single-element rows with an empty shape.
// Metadata keys/values are attached to the record schema.
func (c *Converter) ToRecord(operands []Named, metaKeys, metaValues []string) (arrow.Record, error) {
	if len(operands) == 0 {
		return nil, errors.New("no operands to convert")
	}

	schema := Schema()
	if len(metaKeys) > 0 {
		schema = SchemaWithMetadata(metaKeys, metaValues)
	}

	builder := array.NewRecordBuilder(c.allocator, schema)
	defer builder.Release()

	nameBuilder := builder.Field(0).(*array.StringBuilder)
	dtypeBuilder := builder.Field(1).(*array.StringBuilder)
	shapeBuilder := builder.Field(2).(*array.ListBuilder)
	intsBuilder := builder.Field(3).(*array.ListBuilder)
	floatsBuilder := builder.Field(4).(*array.ListBuilder)
	boolsBuilder := builder.Field(5).(*array.ListBuilder)

	shapeValues := shapeBuilder.ValueBuilder().(*array.Int64Builder)
	intValues := intsBuilder.ValueBuilder().(*array.Int64Builder)
	floatValues := floatsBuilder.ValueBuilder().(*array.Float64Builder)
	boolValues := boolsBuilder.ValueBuilder().(*array.BooleanBuilder)

	for _, op := range operands {
		nameBuilder.Append(op.Name)
		dtypeBuilder.Append(op.Value.DType().String())

		shapeBuilder.Append(true)
		n := 1
		if ds := op.Value.Dataset(); ds != nil {
			for _, dim := range ds.Shape() {
				shapeValues.Append(int64(dim))
			}
			n = ds.Len()
		}

		switch op.Value.DType() {
		case Int64:
			intsBuilder.Append(true)
			for i := 0; i < n; i++ {
				intValues.Append(op.Value.IntAt(i))
			}
			floatsBuilder.AppendNull()
			boolsBuilder.AppendNull()
		case Float64:
			intsBuilder.AppendNull()
			floatsBuilder.Append(true)
			for i := 0; i < n; i++ {
				floatValues.Append(op.Value.FloatAt(i))
			}
			boolsBuilder.AppendNull()
		default:
			intsBuilder.AppendNull()
			floatsBuilder.AppendNull()
			boolsBuilder.Append(true)
			for i := 0; i < n; i++ {
				boolValues.Append(op.Value.TruthAt(i))
			}
		}
	}

	return builder.NewRecord(), nil
}

// FromRecord converts an Arrow RecordBatch back to named operands.
func (c *Converter) FromRecord(record arrow.Record) ([]Named, error) {
	if record == nil || record.NumRows() == 0 {
		return nil, errors.New("empty record")
	}
	if record.NumCols() < 6 {
		return nil, fmt.Errorf("invalid record: expected 6 columns, got %d", record.NumCols())
	}

	nameCol, ok := record.Column(0).(*array.String)
	if !ok {
		return nil, errors.New("column 0 is not a string array")
	}
	dtypeCol, ok := record.Column(1).(*array.String)
	if !ok {
		return nil, errors.New("column 1 is not a string array")
	}
	shapeCol, ok := record.Column(2).(*array.List)
	if !ok {
		return nil, errors.New("column 2 is not a list array")
	}
	intsCol, ok := record.Column(3).(*array.List)
	if !ok {
		return nil, errors.New("column 3 is not a list array")
	}
	floatsCol, ok := record.Column(4).(*array.List)
	if !ok {
		return nil, errors.New("column 4 is not a list array")
	}
	boolsCol, ok := record.Column(5).(*array.List)
	if !ok {
		return nil, errors.New("column 5 is not a list array")
	}

	shapeValues, ok := shapeCol.ListValues().(*array.Int64)
	if !ok {
		return nil, errors.New("shape values are not int64")
	}
	intValues, ok := intsCol.ListValues().(*array.Int64)
	if !ok {
		return nil, errors.New("ints values are not int64")
	}
	floatValues, ok := floatsCol.ListValues().(*array.Float64)
	if !ok {
		return nil, errors.New("floats values are not float64")
	}
	boolValues, ok := boolsCol.ListValues().(*array.Boolean)
	if !ok {
		return nil, errors.New("bools values are not boolean")
	}

	operands := make([]Named, 0, record.NumRows())
	for row := 0; row < int(record.NumRows()); row++ {
		dtype, err := ParseDType(dtypeCol.Value(row))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		start, end := shapeCol.ValueOffsets(row)
		shape := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			shape = append(shape, int(shapeValues.Value(int(i))))
		}

		value, err := decodeValue(row, dtype, shape, intsCol, floatsCol, boolsCol,
			intValues, floatValues, boolValues)
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", row, nameCol.Value(row), err)
		}
		operands = append(operands, Named{Name: nameCol.Value(row), Value: value})
	}

	return operands, nil
}

func decodeValue(row int, dtype DType, shape []int,
	intsCol, floatsCol, boolsCol *array.List,
	intValues *array.Int64, floatValues *array.Float64, boolValues *array.Boolean) (Value, error) {

	scalar := len(shape) == 0

	switch dtype {
	case Int64:
		if intsCol.IsNull(row) {
			return Value{}, errors.New("int64 row has null ints column")
		}
		start, end := intsCol.ValueOffsets(row)
		data := make([]int64, 0, end-start)
		for i := start; i < end; i++ {
			data = append(data, intValues.Value(int(i)))
		}
		if scalar {
			if len(data) != 1 {
				return Value{}, fmt.Errorf("scalar row has %d elements", len(data))
			}
			return Int(data[0]), nil
		}
		ds, err := NewInt64(shape, data)
		if err != nil {
			return Value{}, err
		}
		return FromDataset(ds), nil

	case Float64:
		if floatsCol.IsNull(row) {
			return Value{}, errors.New("float64 row has null floats column")
		}
		start, end := floatsCol.ValueOffsets(row)
		data := make([]float64, 0, end-start)
		for i := start; i < end; i++ {
			data = append(data, floatValues.Value(int(i)))
		}
		if scalar {
			if len(data) != 1 {
				return Value{}, fmt.Errorf("scalar row has %d elements", len(data))
			}
			return Float(data[0]), nil
		}
		ds, err := NewFloat64(shape, data)
		if err != nil {
			return Value{}, err
		}
		return FromDataset(ds), nil

	default:
		if boolsCol.IsNull(row) {
			return Value{}, errors.New("bool row has null bools column")
		}
		start, end := boolsCol.ValueOffsets(row)
		data := make([]bool, 0, end-start)
		for i := start; i < end; i++ {
			data = append(data, boolValues.Value(int(i)))
		}
		if scalar {
			if len(data) != 1 {
				return Value{}, fmt.Errorf("scalar row has %d elements", len(data))
			}
			return BoolScalar(data[0]), nil
		}
		ds, err := NewBool(shape, data)
		if err != nil {
			return Value{}, err
		}
		return FromDataset(ds), nil
	}
}
