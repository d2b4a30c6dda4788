package engine

import (
	"context"

	"avroflow/internal/logging"
	"avroflow/internal/pipeline"
)

type Engine struct {
	runner *pipeline.Runner
}

// Run blocks until the context is cancelled or the pipeline hits a fatal
// error (e.g. an insert-only invariant violation).
func (e *Engine) Run(ctx context.Context) error {
	defer func() {
		if err := e.runner.Close(); err != nil {
			logging.L().Error("pipeline shutdown", "err", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-e.runner.Fatal():
		return err
	}
}
