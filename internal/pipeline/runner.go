package pipeline

import (
	"context"
	"errors"
	"sync"

	"avroflow/internal/avro"
	"avroflow/internal/decode"
	"avroflow/internal/logging"
	"avroflow/internal/stream"
	"avroflow/sink"
	"avroflow/source/kafka"
)

const defaultBatchSize = 1024

// Runner is the pipeline driver: it pulls raw records from the source,
// routes them through the decoder adapter by envelope, pushes the emitted
// tuples to every sink in order, and acks each record's checkpoint back to
// the source. Records are processed strictly one at a time, which is what
// the decoder adapter's single-writer contract requires.
type Runner struct {
	source    kafka.Adapter
	sinks     []sink.Adapter
	dec       *decode.AvroState
	envelope  avro.EnvelopeType
	batchSize int

	mu   sync.Mutex
	subs []func(stream.Ack)

	inBatch int
	fatal   chan error
	done    chan struct{}
}

func NewRunner() *Runner {
	return &Runner{batchSize: defaultBatchSize, fatal: make(chan error, 1)}
}

func (r *Runner) SetSource(s kafka.Adapter) { r.source = s }
func (r *Runner) AddSink(s sink.Adapter)    { r.sinks = append(r.sinks, s) }

// SetDecoder installs the decoder adapter and its dispatch envelope.
func (r *Runner) SetDecoder(dec *decode.AvroState, envelope avro.EnvelopeType, batchSize int) {
	r.dec = dec
	r.envelope = envelope
	if batchSize > 0 {
		r.batchSize = batchSize
	}
}

func (r *Runner) SubscribeAck(fn func(stream.Ack)) {
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

// Ack fans a committed checkpoint out to every subscriber (source drivers).
func (r *Runner) Ack(cp stream.Checkpoint) {
	ack := stream.Ack{Checkpoint: cp}

	r.mu.Lock()
	handlers := append([]func(stream.Ack){}, r.subs...)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(ack)
	}
}

// pushRecord decodes one record and forwards its tuples. The returned error
// is reserved for conditions that must stop the pipeline; per-record decode
// failures are absorbed by the adapter.
func (r *Runner) pushRecord(rec *stream.Record) error {
	if r.inBatch == 0 {
		r.dec.ResetEventCount()
	}

	ctx := context.Background()
	ts := stream.Timestamp(rec.Ts.UnixMilli())
	coord := rec.Checkpoint.Offset
	sess := newRecordSession(rec.Checkpoint)

	switch r.envelope {
	case avro.EnvelopeUpsert:
		key, err := r.dec.DecodeKey(ctx, rec.Key)
		if err != nil {
			// The record is unusable without its key; drop it but keep the
			// batch going.
			logging.L().Error("dropping record with undecodable key",
				"topic", rec.Checkpoint.Topic, "offset", coord, "err", err)
		} else {
			r.dec.GiveKeyValue(ctx, *key, rec.Value, &coord, sess, ts)
		}
	default:
		// The only error GiveValue surfaces is the insert-only invariant
		// violation, which must stop the pipeline.
		if err := r.dec.GiveValue(ctx, rec.Value, &coord, sess, ts); err != nil {
			return err
		}
	}

	for i := range sess.tuples {
		t := explode(sess.tuples[i])
		for _, s := range r.sinks {
			if err := s.Push(&t); err != nil {
				return err
			}
		}
	}

	// Ack even when nothing was emitted so source offsets keep advancing.
	r.Ack(rec.Checkpoint)

	r.inBatch++
	if r.inBatch >= r.batchSize {
		r.dec.LogErrorCount()
		r.inBatch = 0
	}
	return nil
}

func (r *Runner) Start(ctx context.Context) error {
	if r.source == nil {
		return errors.New("runner: no source configured")
	}
	if r.dec == nil {
		return errors.New("runner: no decoder configured")
	}
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		err := r.source.Run(ctx, r.pushRecord)
		if err != nil && !errors.Is(err, context.Canceled) {
			select {
			case r.fatal <- err:
			default:
			}
		}
	}()
	return nil
}

// Fatal reports a pipeline-stopping error, e.g. an insert-only invariant
// violation.
func (r *Runner) Fatal() <-chan error { return r.fatal }

// Close stops the source and waits for the consume goroutine to exit before
// flushing the tail batch: the decoder's counters are single-writer, so the
// final LogErrorCount must not overlap an in-flight pushRecord.
func (r *Runner) Close() error {
	var errs []error
	if r.source != nil {
		errs = append(errs, r.source.Close())
	}
	if r.done != nil {
		<-r.done
	}
	if r.dec != nil && r.inBatch > 0 {
		r.dec.LogErrorCount()
		r.inBatch = 0
	}
	for _, s := range r.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
