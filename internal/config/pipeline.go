package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"avroflow/internal/spec"
)

const SupportedSchema = "v1"

// LoadPipelineSpec parses a pipeline YAML, validates schema_version, and
// returns the parsed spec and an absolute path to the source config (if set).
func LoadPipelineSpec(path string) (spec.File, string, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, "", err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, "", err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, "", fmt.Errorf("pipeline schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	confPath := cfg.Source.Config
	if confPath != "" && !filepath.IsAbs(confPath) {
		confPath = filepath.Join(filepath.Dir(path), confPath)
	}
	return cfg, confPath, nil
}

// ReaderSchema resolves the decoder's reader schema: inline text wins,
// otherwise the schema file is read relative to the pipeline file.
func ReaderSchema(d spec.DecoderSpec, pipelinePath string) (string, error) {
	if d.ReaderSchema != "" {
		return d.ReaderSchema, nil
	}
	if d.ReaderSchemaFile == "" {
		return "", fmt.Errorf("decoder: reader_schema or reader_schema_file is required")
	}
	p := d.ReaderSchemaFile
	if !filepath.IsAbs(p) {
		p = filepath.Join(filepath.Dir(pipelinePath), p)
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("decoder: read schema: %w", err)
	}
	return string(raw), nil
}
