// Package decode bridges the byte-level Avro engine and the streaming
// pipeline: it turns each decode result into zero, one, or two emitted
// tuples depending on envelope shape, enforces the insert-only policy, and
// keeps the per-batch success/error counts.
package decode

import (
	"context"

	"avroflow/internal/avro"
	"avroflow/internal/stream"
)

// Engine is the decode capability the adapter delegates to. The real
// implementation is *avro.Decoder; tests use fakes.
type Engine interface {
	Decode(ctx context.Context, data []byte, coord *int64) (avro.DiffPair, error)
}

// Session is the append-only sink for emitted tuples. Ordering of tuples
// given within a single adapter call is preserved.
type Session interface {
	Give(t stream.Tuple)
}
