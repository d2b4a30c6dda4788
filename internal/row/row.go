// Package row holds the opaque structured value produced by the decode
// engine. The rest of the pipeline treats a Row as an immutable unit: the
// decoder adapter only checks presence, sinks only read fields for encoding.
package row

import (
	"fmt"
	"sort"
	"strings"
)

// Row is a decoded record plus a content-level weight. A weight of -1 marks a
// self-negating row (the old value of an update/delete); the explode stage
// turns the weight into a real retraction multiplicity downstream.
type Row struct {
	fields map[string]any
	weight int64
}

// New wraps a decoded field set with weight +1.
func New(fields map[string]any) Row {
	return Row{fields: fields, weight: 1}
}

// NewWeighted wraps a decoded field set with an explicit weight.
func NewWeighted(fields map[string]any, weight int64) Row {
	return Row{fields: fields, weight: weight}
}

// Fields exposes the decoded values for encoding. Callers must not mutate the
// returned map.
func (r Row) Fields() map[string]any { return r.fields }

func (r Row) Weight() int64 { return r.weight }

// Unweighted returns the same content with weight reset to +1.
func (r Row) Unweighted() Row { return Row{fields: r.fields, weight: 1} }

// String renders fields in stable (sorted) order for logs and diagnostics.
func (r Row) String() string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, r.fields[k])
	}
	b.WriteByte('}')
	if r.weight != 1 {
		fmt.Fprintf(&b, "×%d", r.weight)
	}
	return b.String()
}
