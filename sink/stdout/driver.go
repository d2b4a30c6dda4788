// Package stdout prints decoded tuples as JSON lines; mainly for debugging a
// pipeline before pointing it at a real sink.
package stdout

import (
	"fmt"
	"sync/atomic"
	"time"

	"avroflow/internal/stream"
	"avroflow/sink"
)

type Config struct {
	DelayMS       int  `yaml:"delay_ms"`        // artificial per-tuple delay
	PrintCounter  bool `yaml:"print_counter"`   // prepend seq#
	ValueMaxBytes int  `yaml:"value_max_bytes"` // truncate long lines (0 = off)
}

type driver struct {
	cfg Config
}

var seq uint64

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(t *stream.Tuple) error {
	if d.cfg.DelayMS > 0 {
		time.Sleep(time.Duration(d.cfg.DelayMS) * time.Millisecond)
	}

	line, err := sink.EncodeTuple(t)
	if err != nil {
		return err
	}
	if max := d.cfg.ValueMaxBytes; max > 0 && len(line) > max {
		line = append(line[:max:max], "..."...)
	}

	if d.cfg.PrintCounter {
		fmt.Printf("[sink %06d] %s\n", atomic.AddUint64(&seq, 1), line)
	} else {
		fmt.Printf("[sink] %s\n", line)
	}
	return nil
}

func (d *driver) Close() error { return nil }

func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
