package decode

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"avroflow/internal/avro"
	"avroflow/internal/row"
	"avroflow/internal/stream"
	"avroflow/internal/telemetry"
)

type fakeEngine struct {
	pair      avro.DiffPair
	err       error
	calls     int
	lastCoord *int64
}

func (f *fakeEngine) Decode(_ context.Context, _ []byte, coord *int64) (avro.DiffPair, error) {
	f.calls++
	f.lastCoord = coord
	return f.pair, f.err
}

type captureSession struct {
	tuples []stream.Tuple
}

func (c *captureSession) Give(t stream.Tuple) { c.tuples = append(c.tuples, t) }

func newTestState(engine Engine, rejectNonInserts bool) *AvroState {
	return &AvroState{
		decoder:          engine,
		rejectNonInserts: rejectNonInserts,
		debugName:        "test-source",
		counters: telemetry.EventCounters{
			Success: prometheus.NewCounter(prometheus.CounterOpts{Name: "test_success"}),
			Error:   prometheus.NewCounter(prometheus.CounterOpts{Name: "test_error"}),
		},
	}
}

func rowOf(fields map[string]any) *row.Row {
	r := row.New(fields)
	return &r
}

func TestGiveValue_InsertEmitsOneTuple(t *testing.T) {
	after := rowOf(map[string]any{"id": int64(1)})
	eng := &fakeEngine{pair: avro.DiffPair{After: after}}
	s := newTestState(eng, false)
	sess := &captureSession{}

	if err := s.GiveValue(context.Background(), []byte("x"), nil, sess, 7); err != nil {
		t.Fatalf("GiveValue: %v", err)
	}
	if len(sess.tuples) != 1 {
		t.Fatalf("want 1 tuple, got %d", len(sess.tuples))
	}
	tp := sess.tuples[0]
	if tp.Kind != stream.KindDelta || tp.Row != after || tp.Diff != 1 || tp.Time != 7 {
		t.Fatalf("unexpected tuple: %+v", tp)
	}
	if s.eventsSuccess != 1 || s.eventsError != 0 {
		t.Fatalf("counters: success=%d error=%d", s.eventsSuccess, s.eventsError)
	}
}

func TestGiveValue_DecodeErrorEmitsNothing(t *testing.T) {
	eng := &fakeEngine{err: errors.New("bad bytes")}
	s := newTestState(eng, false)
	sess := &captureSession{}

	if err := s.GiveValue(context.Background(), []byte("x"), nil, sess, 1); err != nil {
		t.Fatalf("decode failures must not surface: %v", err)
	}
	if len(sess.tuples) != 0 {
		t.Fatalf("want no tuples, got %d", len(sess.tuples))
	}
	if s.eventsSuccess != 0 || s.eventsError != 1 {
		t.Fatalf("counters: success=%d error=%d", s.eventsSuccess, s.eventsError)
	}
}

func TestGiveValue_UpdateEmitsBeforeThenAfter(t *testing.T) {
	b := row.NewWeighted(map[string]any{"id": int64(1), "v": "old"}, -1)
	a := row.New(map[string]any{"id": int64(1), "v": "new"})
	eng := &fakeEngine{pair: avro.DiffPair{Before: &b, After: &a}}
	s := newTestState(eng, false)
	sess := &captureSession{}

	if err := s.GiveValue(context.Background(), []byte("x"), nil, sess, 3); err != nil {
		t.Fatalf("GiveValue: %v", err)
	}
	if len(sess.tuples) != 2 {
		t.Fatalf("want 2 tuples, got %d", len(sess.tuples))
	}
	if sess.tuples[0].Row != &b || sess.tuples[1].Row != &a {
		t.Fatal("tuples out of order: before must precede after")
	}
	for i, tp := range sess.tuples {
		if tp.Diff != 1 {
			t.Fatalf("tuple %d: diff must stay +1, got %d", i, tp.Diff)
		}
	}
	// one decode attempt, one counter increment
	if s.eventsSuccess != 1 {
		t.Fatalf("success=%d, want 1", s.eventsSuccess)
	}
}

func TestGiveValue_RejectNonInserts(t *testing.T) {
	b := row.NewWeighted(map[string]any{"id": int64(1)}, -1)
	eng := &fakeEngine{pair: avro.DiffPair{Before: &b}}
	s := newTestState(eng, true)
	sess := &captureSession{}

	err := s.GiveValue(context.Background(), []byte("x"), nil, sess, 1)
	var viol *InvariantViolationError
	if !errors.As(err, &viol) {
		t.Fatalf("want InvariantViolationError, got %v", err)
	}
	if len(sess.tuples) != 0 {
		t.Fatal("no tuple may be emitted before the violation is reported")
	}
	if viol.DebugName != "test-source" {
		t.Fatalf("violation must name the source, got %q", viol.DebugName)
	}
}

func TestDecodeKey(t *testing.T) {
	key := rowOf(map[string]any{"id": int64(9)})

	t.Run("ok", func(t *testing.T) {
		eng := &fakeEngine{pair: avro.DiffPair{After: key}}
		s := newTestState(eng, false)
		got, err := s.DecodeKey(context.Background(), []byte("k"))
		if err != nil || got != key {
			t.Fatalf("got %v, %v", got, err)
		}
		if eng.lastCoord != nil {
			t.Fatal("key decode must not pass a coordinate")
		}
		if s.eventsSuccess != 1 {
			t.Fatalf("success=%d", s.eventsSuccess)
		}
	})

	t.Run("no key row", func(t *testing.T) {
		eng := &fakeEngine{}
		s := newTestState(eng, false)
		if _, err := s.DecodeKey(context.Background(), []byte("k")); !errors.Is(err, ErrNoKey) {
			t.Fatalf("want ErrNoKey, got %v", err)
		}
		if s.eventsError != 1 {
			t.Fatalf("error=%d", s.eventsError)
		}
	})

	t.Run("engine error", func(t *testing.T) {
		eng := &fakeEngine{err: errors.New("boom")}
		s := newTestState(eng, false)
		_, err := s.DecodeKey(context.Background(), []byte("k"))
		if err == nil || !strings.Contains(err.Error(), "avro deserialization error") {
			t.Fatalf("want wrapped decode error, got %v", err)
		}
		if s.eventsError != 1 {
			t.Fatalf("error=%d", s.eventsError)
		}
	})
}

func TestGiveKeyValue_EmitsUpsert(t *testing.T) {
	key := row.New(map[string]any{"id": int64(5)})
	val := rowOf(map[string]any{"id": int64(5), "v": "x"})
	eng := &fakeEngine{pair: avro.DiffPair{After: val}}
	s := newTestState(eng, false)
	sess := &captureSession{}

	coord := int64(42)
	s.GiveKeyValue(context.Background(), key, []byte("v"), &coord, sess, 11)

	if len(sess.tuples) != 1 {
		t.Fatalf("want 1 tuple, got %d", len(sess.tuples))
	}
	tp := sess.tuples[0]
	if tp.Kind != stream.KindUpsert || tp.Value != val || tp.Time != 11 {
		t.Fatalf("unexpected tuple: %+v", tp)
	}
	if eng.lastCoord == nil || *eng.lastCoord != 42 {
		t.Fatal("coordinate must reach the engine")
	}
}

func TestGiveKeyValue_AbsentValueIsDeleteMarker(t *testing.T) {
	key := row.New(map[string]any{"id": int64(5)})
	eng := &fakeEngine{} // decode succeeds, no after
	s := newTestState(eng, false)
	sess := &captureSession{}

	s.GiveKeyValue(context.Background(), key, nil, nil, sess, 2)

	// downstream must see an explicit delete, not a dropped tuple
	if len(sess.tuples) != 1 {
		t.Fatalf("want 1 tuple, got %d", len(sess.tuples))
	}
	if sess.tuples[0].Value != nil {
		t.Fatal("value must be nil for a delete")
	}
	if s.eventsSuccess != 1 {
		t.Fatalf("success=%d", s.eventsSuccess)
	}
}

func TestGiveKeyValue_DecodeErrorIsSwallowed(t *testing.T) {
	key := row.New(map[string]any{"id": int64(5)})
	eng := &fakeEngine{err: errors.New("bad bytes")}
	s := newTestState(eng, false)
	sess := &captureSession{}

	s.GiveKeyValue(context.Background(), key, []byte("v"), nil, sess, 2)

	if len(sess.tuples) != 0 {
		t.Fatal("want no tuples")
	}
	if s.eventsError != 1 {
		t.Fatalf("error=%d", s.eventsError)
	}
}

func TestCounterLifecycle(t *testing.T) {
	after := rowOf(map[string]any{"id": int64(1)})
	eng := &fakeEngine{pair: avro.DiffPair{After: after}}
	s := newTestState(eng, false)
	sess := &captureSession{}
	ctx := context.Background()

	s.ResetEventCount()
	_ = s.GiveValue(ctx, []byte("a"), nil, sess, 1)
	_ = s.GiveValue(ctx, []byte("b"), nil, sess, 1)
	eng.err = errors.New("bad")
	_ = s.GiveValue(ctx, []byte("c"), nil, sess, 1)

	s.LogErrorCount()
	if got := testutil.ToFloat64(s.counters.Success); got != 2 {
		t.Fatalf("published success=%v, want 2", got)
	}
	if got := testutil.ToFloat64(s.counters.Error); got != 1 {
		t.Fatalf("published error=%v, want 1", got)
	}

	// LogErrorCount does not reset: a second call re-publishes the same
	// local counts, so the global totals double.
	s.LogErrorCount()
	if got := testutil.ToFloat64(s.counters.Success); got != 4 {
		t.Fatalf("published success=%v after re-publish, want 4", got)
	}

	s.ResetEventCount()
	if s.eventsSuccess != 0 || s.eventsError != 0 {
		t.Fatal("reset must zero both counters")
	}
	// zero counts publish nothing
	s.LogErrorCount()
	if got := testutil.ToFloat64(s.counters.Success); got != 4 {
		t.Fatalf("published success=%v after zero-count log, want 4", got)
	}
}
