package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/voxmath/VoxMath-Engine/dataset"
	"github.com/voxmath/VoxMath-Engine/expr"
	"github.com/voxmath/VoxMath-Engine/mathops"
)

// Request metadata keys. A request batch carries its operands as
// columns and names the operation in the schema metadata.
const (
	MetaOpKind     = "op_kind"
	MetaOp         = "op"
	MetaExpression = "expression"
	MetaStatus     = "status"
	MetaError      = "error"
)

// Operation kinds accepted in MetaOpKind.
const (
	KindArithmetic = "arithmetic"
	KindLogic      = "logic"
	KindExpression = "expression"
)

// Handler errors
var (
	ErrEmptyRequest   = errors.New("received empty request")
	ErrNoOpKind       = errors.New("request metadata names no operation kind")
	ErrUnknownKind    = errors.New("unknown operation kind")
	ErrMissingOperand = errors.New("request is missing an operand")
)

// Handler decodes request batches, runs the named operation and
// encodes the result batch.
type Handler struct {
	conv    *dataset.Converter
	codec   *dataset.IPCCodec
	metrics *Metrics

	// OnBatch, when set, is called after every processed batch.
	OnBatch func(success bool, errText string, duration time.Duration)
}

// NewHandler creates a Handler. metrics may be nil.
func NewHandler(metrics *Metrics) *Handler {
	return &Handler{
		conv:    dataset.NewConverter(),
		codec:   dataset.NewIPCCodec(),
		metrics: metrics,
	}
}

// ProcessBatch handles one request frame. Compute and decode failures
// are reported to the client as an error batch; only reply encoding
// failures surface as errors.
func (h *Handler) ProcessBatch(data []byte) ([]byte, error) {
	start := time.Now()

	result, err := h.process(data)
	elapsed := time.Since(start)
	if h.metrics != nil {
		h.metrics.RecordOperation(err == nil, elapsed)
	}
	if h.OnBatch != nil {
		errText := ""
		if err != nil {
			errText = err.Error()
		}
		h.OnBatch(err == nil, errText, elapsed)
	}
	if err != nil {
		return h.errorResponse(err)
	}
	return h.successResponse(result)
}

func (h *Handler) process(data []byte) (dataset.Value, error) {
	if len(data) == 0 {
		return dataset.Value{}, ErrEmptyRequest
	}

	rec, err := h.codec.Deserialize(data)
	if err != nil {
		return dataset.Value{}, fmt.Errorf("decode request: %w", err)
	}
	defer rec.Release()

	operands, err := h.conv.FromRecord(rec)
	if err != nil {
		return dataset.Value{}, fmt.Errorf("decode operands: %w", err)
	}
	byName := make(map[string]dataset.Value, len(operands))
	for _, op := range operands {
		byName[op.Name] = op.Value
	}

	md := rec.Schema().Metadata()
	kind := metaValue(md.Keys(), md.Values(), MetaOpKind)
	if kind == "" {
		return dataset.Value{}, ErrNoOpKind
	}

	if h.metrics != nil {
		h.metrics.RecordBatch(int(rec.NumRows()), kind)
	}

	switch kind {
	case KindArithmetic:
		x1, x2, err := twoOperands(byName)
		if err != nil {
			return dataset.Value{}, err
		}
		return mathops.ArithmeticByName(metaValue(md.Keys(), md.Values(), MetaOp), x1, x2)

	case KindLogic:
		op, err := mathops.ParseLogicOp(metaValue(md.Keys(), md.Values(), MetaOp))
		if err != nil {
			return dataset.Value{}, err
		}
		x1, ok := byName["x1"]
		if !ok {
			return dataset.Value{}, fmt.Errorf("%w: x1", ErrMissingOperand)
		}
		if op.Arity() == 1 {
			return mathops.Logic(op, x1)
		}
		x2, ok := byName["x2"]
		if !ok {
			return dataset.Value{}, fmt.Errorf("%w: x2", ErrMissingOperand)
		}
		return mathops.Logic(op, x1, x2)

	case KindExpression:
		expression := metaValue(md.Keys(), md.Values(), MetaExpression)
		return expr.Evaluate(expression, byName)

	default:
		return dataset.Value{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func twoOperands(byName map[string]dataset.Value) (dataset.Value, dataset.Value, error) {
	x1, ok := byName["x1"]
	if !ok {
		return dataset.Value{}, dataset.Value{}, fmt.Errorf("%w: x1", ErrMissingOperand)
	}
	x2, ok := byName["x2"]
	if !ok {
		return dataset.Value{}, dataset.Value{}, fmt.Errorf("%w: x2", ErrMissingOperand)
	}
	return x1, x2, nil
}

func metaValue(keys, values []string, key string) string {
	for i, k := range keys {
		if k == key {
			return values[i]
		}
	}
	return ""
}

func (h *Handler) successResponse(result dataset.Value) ([]byte, error) {
	rec, err := h.conv.ToRecord(
		[]dataset.Named{{Name: "output", Value: result}},
		[]string{MetaStatus}, []string{"ok"})
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	defer rec.Release()
	return h.codec.Serialize(rec)
}

// errorResponse encodes a failure batch: the cause travels in the
// schema metadata, the single operand row is a placeholder.
func (h *Handler) errorResponse(cause error) ([]byte, error) {
	rec, err := h.conv.ToRecord(
		[]dataset.Named{{Name: "error", Value: dataset.BoolScalar(false)}},
		[]string{MetaStatus, MetaError}, []string{"error", cause.Error()})
	if err != nil {
		return nil, fmt.Errorf("encode error response: %w", err)
	}
	defer rec.Release()
	return h.codec.Serialize(rec)
}
