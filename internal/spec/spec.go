// Package spec declares the pipeline YAML file shape.
package spec

import "avroflow/internal/avro"

// DecoderSpec configures the decoder stage between source and sinks.
type DecoderSpec struct {
	Format           string               `yaml:"format"`   // only "avro" in v1
	Envelope         string               `yaml:"envelope"` // none|debezium|upsert
	ReaderSchema     string               `yaml:"reader_schema"`
	ReaderSchemaFile string               `yaml:"reader_schema_file"`
	Registry         *avro.RegistryConfig `yaml:"registry"`
	RejectNonInserts bool                 `yaml:"reject_non_inserts"`
	BatchSize        int                  `yaml:"batch_size"`
	DebugName        string               `yaml:"debug_name"`
}

type KafkaSinkSpec struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
}

type SinkConfigs struct {
	Kafka KafkaSinkSpec `yaml:"kafka"`
}

type DebugSection struct {
	PerTupleDelayMS int  `yaml:"per_tuple_delay_ms"`
	PrintCounter    bool `yaml:"print_counter"`
	ValueMaxBytes   int  `yaml:"value_max_bytes"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Kind   string `yaml:"kind"`
		Driver string `yaml:"driver"`
		Config string `yaml:"config"`
	} `yaml:"source"`

	Decoder DecoderSpec `yaml:"decoder"`

	Sinks       []string     `yaml:"sinks"`
	SinkConfigs SinkConfigs  `yaml:"sink_configs"`
	Debug       DebugSection `yaml:"debug"`
}
