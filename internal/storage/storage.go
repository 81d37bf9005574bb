package storage

import (
	"context"

	"swapEngine/internal/model"
)

// ResultSink persists execution results produced by the engine.
type ResultSink interface {
	PutResults(ctx context.Context, results []model.ExecutionResult) error
}

// MultiSink fans results out to several sinks and returns the first error.
type MultiSink []ResultSink

func (m MultiSink) PutResults(ctx context.Context, results []model.ExecutionResult) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutResults(ctx, results); err != nil {
			return err
		}
	}
	return nil
}
