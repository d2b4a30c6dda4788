package engine

import (
	"context"
	"fmt"

	"avroflow/internal/pipeline"
	"avroflow/internal/telemetry"
)

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	runner, err := pipeline.Compile(cfg.PipelineYml)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := runner.Start(ctx); err != nil {
		return nil, err
	}

	telemetry.Expose(cfg.MetricsPort)

	return &Engine{runner: runner}, nil
}
