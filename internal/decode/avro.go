package decode

import (
	"context"
	"errors"
	"fmt"

	"avroflow/internal/avro"
	"avroflow/internal/logging"
	"avroflow/internal/row"
	"avroflow/internal/stream"
	"avroflow/internal/telemetry"
)

// ErrNoKey is returned by DecodeKey when a payload decodes successfully but
// carries no key row (e.g. a null key).
var ErrNoKey = errors.New("no avro key found for record")

// AvroState owns one decode engine plus the running outcome counts for the
// current batch. One instance per decoding context; single writer, no
// internal locking.
type AvroState struct {
	decoder          Engine
	eventsSuccess    int64
	eventsError      int64
	rejectNonInserts bool
	debugName        string
	counters         telemetry.EventCounters
}

// NewAvroState builds the underlying engine from the schema/registry/envelope
// configuration. Fails if the engine cannot be constructed.
func NewAvroState(readerSchema string, registry *avro.RegistryConfig, envelope avro.EnvelopeType, rejectNonInserts bool, debugName string) (*AvroState, error) {
	decoder, err := avro.NewDecoder(readerSchema, registry, envelope, debugName)
	if err != nil {
		return nil, err
	}
	return &AvroState{
		decoder:          decoder,
		rejectNonInserts: rejectNonInserts,
		debugName:        debugName,
		counters:         telemetry.DecodeEvents("avro"),
	}, nil
}

// ResetEventCount zeroes both counters. Called once per batch boundary,
// before any decode calls for that batch.
func (s *AvroState) ResetEventCount() {
	s.eventsSuccess = 0
	s.eventsError = 0
}

// DecodeKey decodes a key-only payload and returns its row. A decode that
// yields no row is an error: the caller needs the key to proceed.
func (s *AvroState) DecodeKey(ctx context.Context, data []byte) (*row.Row, error) {
	pair, err := s.decoder.Decode(ctx, data, nil)
	if err != nil {
		s.eventsError++
		return nil, fmt.Errorf("avro deserialization error: %w", err)
	}
	if pair.After == nil {
		s.eventsError++
		return nil, ErrNoKey
	}
	s.eventsSuccess++
	return pair.After, nil
}

// GiveKeyValue decodes a value paired with an already-decoded key and emits
// exactly one upsert tuple on success. A nil value row is an explicit delete
// marker for the key. Decode failures are counted and logged, never surfaced:
// one bad record must not abort the batch.
func (s *AvroState) GiveKeyValue(ctx context.Context, key row.Row, data []byte, coord *int64, session Session, time stream.Timestamp) {
	pair, err := s.decoder.Decode(ctx, data, coord)
	if err != nil {
		s.eventsError++
		logging.L().Error("avro deserialization error", "source", s.debugName, "err", err)
		return
	}
	s.eventsSuccess++
	session.Give(stream.Tuple{
		Kind:  stream.KindUpsert,
		Key:   &key,
		Value: pair.After,
		Time:  time,
	})
}

// GiveValue decodes a standalone value payload and emits its before and/or
// after rows as +1 deltas. A before row's content already encodes its own
// retraction; the numeric -1 is synthesized later by the explode stage.
//
// A before row on an insert-only source returns InvariantViolationError
// without emitting anything; the host decides to treat that as process-fatal.
func (s *AvroState) GiveValue(ctx context.Context, data []byte, coord *int64, session Session, time stream.Timestamp) error {
	pair, err := s.decoder.Decode(ctx, data, coord)
	if err != nil {
		s.eventsError++
		logging.L().Error("avro deserialization error", "source", s.debugName, "err", err)
		return nil
	}
	s.eventsSuccess++
	if pair.Before != nil {
		if s.rejectNonInserts {
			return &InvariantViolationError{DebugName: s.debugName, Pair: pair}
		}
		session.Give(stream.Tuple{Kind: stream.KindDelta, Row: pair.Before, Time: time, Diff: 1})
	}
	if pair.After != nil {
		session.Give(stream.Tuple{Kind: stream.KindDelta, Row: pair.After, Time: time, Diff: 1})
	}
	return nil
}

// LogErrorCount publishes the counts accumulated since the last reset to the
// process-wide counters. It does not reset them; calling it twice without an
// intervening reset re-publishes the same counts.
func (s *AvroState) LogErrorCount() {
	if s.eventsSuccess > 0 {
		s.counters.Success.Add(float64(s.eventsSuccess))
	}
	if s.eventsError > 0 {
		s.counters.Error.Add(float64(s.eventsError))
	}
}
