// Package stream defines the types that travel between source, pipeline, and
// sinks: raw source records with their commit checkpoints, and the decoded
// tuples the pipeline emits.
package stream

import (
	"time"

	"avroflow/internal/row"
)

// Checkpoint identifies a source position that can be committed once the
// record derived from it has been fully processed.
type Checkpoint struct {
	Topic     string
	Partition int32
	Offset    int64
}

// Record is one raw message as read from the source, before decoding.
type Record struct {
	Key        []byte
	Value      []byte
	Headers    map[string][]byte
	Ts         time.Time
	Checkpoint Checkpoint
}

// Ack notifies the source driver that a checkpoint is safe to commit.
type Ack struct {
	Checkpoint Checkpoint
}

// Timestamp is the logical time attached to every emitted tuple. The decoder
// adapter carries it through without interpreting it.
type Timestamp uint64

// Kind discriminates the two tuple shapes the decoder emits.
type Kind int

const (
	// KindUpsert pairs an already-decoded key with an optional value; a nil
	// Value is an explicit delete marker for that key.
	KindUpsert Kind = iota
	// KindDelta is a standalone row with a signed multiplicity.
	KindDelta
)

// Tuple is the tagged variant for everything the decoder adapter emits.
// Upsert tuples use Key/Value, delta tuples use Row/Diff.
type Tuple struct {
	Kind  Kind
	Key   *row.Row
	Value *row.Row
	Row   *row.Row
	Time  Timestamp
	Diff  int64

	Checkpoint Checkpoint
}
