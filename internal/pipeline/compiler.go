package pipeline

import (
	"fmt"

	"avroflow/internal/avro"
	"avroflow/internal/config"
	"avroflow/internal/decode"
	"avroflow/internal/stream"
	"avroflow/sink"
	skafka "avroflow/sink/kafka"
	"avroflow/sink/stdout"
	"avroflow/source/kafka"
)

// Compile builds a Runner from a pipeline YAML file.
func Compile(path string) (*Runner, error) {
	r := NewRunner()
	if err := LoadYAML(path, r); err != nil {
		return nil, err
	}
	return r, nil
}

func LoadYAML(path string, r *Runner) error {
	cfg, confPath, err := config.LoadPipelineSpec(path)
	if err != nil {
		return err
	}

	/*──────── source (Kafka only for v1) ───────*/
	if cfg.Source.Kind != "kafka" {
		return fmt.Errorf("unsupported source %q", cfg.Source.Kind)
	}
	kc, err := config.LoadKafkaConfig(confPath)
	if err != nil {
		return err
	}

	src, err := kafka.NewAdapter(cfg.Source.Driver)
	if err != nil {
		return err
	}
	if err = src.Configure(kc); err != nil {
		return err
	}
	r.SetSource(src)

	// driver may want checkpoint acks back
	if aw, ok := src.(interface{ OnAck(stream.Ack) }); ok {
		r.SubscribeAck(aw.OnAck)
	}

	/*──────── decoder ───────*/
	if cfg.Decoder.Format != "" && cfg.Decoder.Format != "avro" {
		return fmt.Errorf("unsupported decoder format %q", cfg.Decoder.Format)
	}
	envelope, err := avro.ParseEnvelope(cfg.Decoder.Envelope)
	if err != nil {
		return err
	}
	schema, err := config.ReaderSchema(cfg.Decoder, path)
	if err != nil {
		return err
	}
	debugName := cfg.Decoder.DebugName
	if debugName == "" {
		debugName = cfg.Source.Kind + "/" + cfg.Source.Driver
	}
	dec, err := decode.NewAvroState(schema, cfg.Decoder.Registry, envelope, cfg.Decoder.RejectNonInserts, debugName)
	if err != nil {
		return fmt.Errorf("decoder %s: %w", debugName, err)
	}
	r.SetDecoder(dec, envelope, cfg.Decoder.BatchSize)

	/*──────── sinks ───────*/
	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}

		switch name {
		case "stdout":
			err = sDrv.Configure(stdout.Config{
				DelayMS:       cfg.Debug.PerTupleDelayMS,
				PrintCounter:  cfg.Debug.PrintCounter,
				ValueMaxBytes: cfg.Debug.ValueMaxBytes,
			})
		case "kafka":
			err = sDrv.Configure(skafka.Config{
				Brokers: cfg.SinkConfigs.Kafka.Brokers,
				Topic:   cfg.SinkConfigs.Kafka.Topic,
				Acks:    cfg.SinkConfigs.Kafka.Acks,
			})
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return err
		}
		r.AddSink(sDrv)
	}
	return nil
}
