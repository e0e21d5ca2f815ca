package dataset

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// IPCCodec serializes Arrow RecordBatches to and from IPC stream bytes.
type IPCCodec struct {
	allocator memory.Allocator
}

// NewIPCCodec creates a new IPCCodec.
func NewIPCCodec() *IPCCodec {
	return &IPCCodec{allocator: memory.DefaultAllocator}
}

// Serialize serializes an Arrow Record to IPC bytes.
func (c *IPCCodec) Serialize(record arrow.Record) ([]byte, error) {
	var buf bytes.Buffer

	writer := ipc.NewWriter(&buf, ipc.WithSchema(record.Schema()), ipc.WithAllocator(c.allocator))
	defer writer.Close()

	if err := writer.Write(record); err != nil {
		return nil, fmt.Errorf("failed to write record: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Deserialize deserializes IPC bytes to the first Arrow Record.
// The caller owns the returned record and must Release it.
func (c *IPCCodec) Deserialize(data []byte) (arrow.Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(c.allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	if !reader.Next() {
		if reader.Err() != nil {
			return nil, reader.Err()
		}
		return nil, fmt.Errorf("no records in IPC data")
	}

	record := reader.Record()
	record.Retain() // keep the record alive past reader.Release

	return record, nil
}
