package dataset

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Schema returns the Arrow schema used to carry datasets between
// engine components. Each row is one named dataset; exactly one of
// the three data columns is populated, selected by dtype.
//
// Fields:
//   - name: string - Operand or result name (e.g. "A", "x1", "result")
//   - dtype: string - Element type, one of "int64", "float64", "bool"
//   - shape: list<int64> - Row-major dimensions; empty for scalars
//   - ints: list<int64> (nullable) - Flat data for int64 datasets
//   - floats: list<float64> (nullable) - Flat data for float64 datasets
//   - bools: list<bool> (nullable) - Flat data for bool datasets
func Schema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "name", Type: arrow.BinaryTypes.String},
			{Name: "dtype", Type: arrow.BinaryTypes.String},
			{Name: "shape", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
			{Name: "ints", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64), Nullable: true},
			{Name: "floats", Type: arrow.ListOf(arrow.PrimitiveTypes.Float64), Nullable: true},
			{Name: "bools", Type: arrow.ListOf(arrow.FixedWidthTypes.Boolean), Nullable: true},
		},
		nil,
	)
}

// SchemaWithMetadata returns Schema with the given key/value metadata
// attached. The compute service uses metadata to carry the requested
// operation alongside the operand rows.
func SchemaWithMetadata(keys, values []string) *arrow.Schema {
	md := arrow.NewMetadata(keys, values)
	return arrow.NewSchema(Schema().Fields(), &md)
}
