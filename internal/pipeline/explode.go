package pipeline

import "avroflow/internal/stream"

// explode resolves self-negating rows: the decoder emits every delta with
// diff +1, and a row whose content carries weight w != 1 becomes an actual
// w-weighted tuple here. Upsert tuples pass through untouched.
func explode(t stream.Tuple) stream.Tuple {
	if t.Kind != stream.KindDelta || t.Row == nil {
		return t
	}
	if w := t.Row.Weight(); w != 1 {
		r := t.Row.Unweighted()
		t.Row = &r
		t.Diff *= w
	}
	return t
}
