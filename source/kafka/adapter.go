package kafka

import (
	"context"

	"avroflow/internal/stream"
)

// EmitFunc receives each raw record in consumption order. A non-nil error
// aborts the driver's run loop.
type EmitFunc func(*stream.Record) error

type Adapter interface {
	Configure(Config) error
	Run(context.Context, EmitFunc) error
	Close() error
}
