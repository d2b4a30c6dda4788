package avro

import "fmt"

// EnvelopeType names the source-level convention for how inserts, updates,
// and deletes are encoded in a record.
type EnvelopeType int

const (
	// EnvelopeNone: every record is a plain insert of the decoded value.
	EnvelopeNone EnvelopeType = iota
	// EnvelopeDebezium: the record wraps before/after images of the change.
	EnvelopeDebezium
	// EnvelopeUpsert: the key carries identity; an absent decoded value is a
	// delete of that key.
	EnvelopeUpsert
)

func (e EnvelopeType) String() string {
	switch e {
	case EnvelopeNone:
		return "none"
	case EnvelopeDebezium:
		return "debezium"
	case EnvelopeUpsert:
		return "upsert"
	default:
		return fmt.Sprintf("envelope(%d)", int(e))
	}
}

// ParseEnvelope maps a config string to its EnvelopeType. The empty string
// defaults to none.
func ParseEnvelope(s string) (EnvelopeType, error) {
	switch s {
	case "", "none":
		return EnvelopeNone, nil
	case "debezium":
		return EnvelopeDebezium, nil
	case "upsert":
		return EnvelopeUpsert, nil
	default:
		return EnvelopeNone, fmt.Errorf("avro: unknown envelope %q", s)
	}
}
