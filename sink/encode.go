package sink

import (
	jsoniter "github.com/json-iterator/go"

	"avroflow/internal/stream"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tupleView is the JSON shape sinks publish for a decoded tuple.
type tupleView struct {
	Kind   string         `json:"kind"`
	Key    map[string]any `json:"key,omitempty"`
	Value  map[string]any `json:"value,omitempty"`
	Delete bool           `json:"delete,omitempty"`
	Row    map[string]any `json:"row,omitempty"`
	Diff   int64          `json:"diff,omitempty"`
	Time   uint64         `json:"time"`
}

// EncodeTuple renders a tuple as JSON. Upsert tuples with no value are
// marked as explicit deletes rather than omitted.
func EncodeTuple(t *stream.Tuple) ([]byte, error) {
	v := tupleView{Time: uint64(t.Time)}
	switch t.Kind {
	case stream.KindUpsert:
		v.Kind = "upsert"
		if t.Key != nil {
			v.Key = t.Key.Fields()
		}
		if t.Value != nil {
			v.Value = t.Value.Fields()
		} else {
			v.Delete = true
		}
	case stream.KindDelta:
		v.Kind = "delta"
		if t.Row != nil {
			v.Row = t.Row.Fields()
		}
		v.Diff = t.Diff
	}
	return json.Marshal(v)
}

// EncodeKey renders the identity part of a tuple: the key row for upserts,
// the row itself for deltas. Returns nil when there is none.
func EncodeKey(t *stream.Tuple) ([]byte, error) {
	var r map[string]any
	switch {
	case t.Kind == stream.KindUpsert && t.Key != nil:
		r = t.Key.Fields()
	case t.Kind == stream.KindDelta && t.Row != nil:
		r = t.Row.Fields()
	default:
		return nil, nil
	}
	return json.Marshal(r)
}
