// Package avro is the byte-level decode engine: it turns raw payloads
// (Confluent wire format or plain Avro binary) into before/after row pairs
// according to the configured envelope.
package avro

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/linkedin/goavro/v2"

	"avroflow/internal/row"
)

const (
	wireMagic     = 0x0
	wireHeaderLen = 5 // magic byte + big-endian schema ID
)

// DiffPair is the decode result for one payload: the value before the change
// and the value after it, either of which may be absent.
type DiffPair struct {
	Before *row.Row
	After  *row.Row
}

// Decoder decodes one source's payloads. Not safe for concurrent use; each
// decoding context owns its own Decoder.
type Decoder struct {
	reader    *goavro.Codec
	registry  *codecCache
	envelope  EnvelopeType
	debugName string
}

// NewDecoder parses the reader schema and, when registry config is given,
// prepares a schema-registry-backed writer codec cache. An invalid reader
// schema fails construction.
func NewDecoder(readerSchema string, registry *RegistryConfig, envelope EnvelopeType, debugName string) (*Decoder, error) {
	codec, err := goavro.NewCodec(readerSchema)
	if err != nil {
		return nil, fmt.Errorf("avro: reader schema for %s: %w", debugName, err)
	}
	d := &Decoder{reader: codec, envelope: envelope, debugName: debugName}
	if registry != nil {
		d.registry = newCodecCache(*registry)
	}
	return d, nil
}

// Decode decodes one payload into a DiffPair. An empty payload is a tombstone
// and yields an empty pair. coord is the source position of the record; it is
// attached to error context only.
func (d *Decoder) Decode(ctx context.Context, data []byte, coord *int64) (DiffPair, error) {
	if len(data) == 0 {
		return DiffPair{}, nil
	}

	native, err := d.decodeNative(ctx, data)
	if err != nil {
		if coord != nil {
			return DiffPair{}, fmt.Errorf("at offset %d: %w", *coord, err)
		}
		return DiffPair{}, err
	}

	fields, ok := native.(map[string]any)
	if !ok {
		return DiffPair{}, fmt.Errorf("avro: top-level value must be a record, got %T", native)
	}

	switch d.envelope {
	case EnvelopeDebezium:
		return d.debeziumPair(fields)
	default:
		r := row.New(fields)
		return DiffPair{After: &r}, nil
	}
}

func (d *Decoder) decodeNative(_ context.Context, data []byte) (any, error) {
	codec := d.reader
	body := data
	if d.registry != nil {
		if len(data) < wireHeaderLen || data[0] != wireMagic {
			return nil, fmt.Errorf("avro: payload is not in Confluent wire format")
		}
		id := int(binary.BigEndian.Uint32(data[1:wireHeaderLen]))
		var err error
		if codec, err = d.registry.codecFor(id); err != nil {
			return nil, err
		}
		body = data[wireHeaderLen:]
	}

	native, rest, err := codec.NativeFromBinary(body)
	if err != nil {
		return nil, fmt.Errorf("avro: decode: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("avro: %d trailing bytes after record", len(rest))
	}
	return native, nil
}

// debeziumPair shapes a change-event record into its before/after images.
// The before image is weighted -1: its content carries its own eventual
// retraction, resolved by the downstream explode stage.
func (d *Decoder) debeziumPair(fields map[string]any) (DiffPair, error) {
	var pair DiffPair

	before, ok, err := unionRecord(fields["before"])
	if err != nil {
		return DiffPair{}, fmt.Errorf("avro: before image: %w", err)
	}
	if ok {
		r := row.NewWeighted(before, -1)
		pair.Before = &r
	}

	after, ok, err := unionRecord(fields["after"])
	if err != nil {
		return DiffPair{}, fmt.Errorf("avro: after image: %w", err)
	}
	if ok {
		r := row.New(after)
		pair.After = &r
	}
	return pair, nil
}

// unionRecord unwraps a nullable-union field as goavro decodes it: nil for
// the null branch, a single-entry map keyed by type name for the record
// branch. The before/after fields of a change event are always such unions.
func unionRecord(v any) (map[string]any, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("expected record union, got %T", v)
	}
	if len(m) == 1 {
		for _, inner := range m {
			if fields, ok := inner.(map[string]any); ok {
				return fields, true, nil
			}
		}
	}
	return m, true, nil
}
