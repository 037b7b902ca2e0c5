package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/observability"
	"github.com/aceclub-io/ace-engine/app/shared/results"
)

// Deps carries the observability plumbing a service hands to Operation.
type Deps struct {
	Logger  *slog.Logger
	Metrics observability.Metrics
	Tracer  trace.Tracer
	Service string
}

// Operation wraps a service operation with tracing, metrics, panic recovery
// and outcome logging. This standardizes observability across all services.
func Operation[S any, F any](
	ctx context.Context,
	deps Deps,
	operationName string,
	entityID string,
	op func(ctx context.Context) (results.OperationResult[S, F], error),
) (result results.OperationResult[S, F], err error) {
	ctx, span := deps.Tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("entity_id", entityID),
	))
	defer span.End()

	deps.Metrics.RecordOperationAttempt(ctx, operationName, deps.Service)

	startTime := time.Now()
	defer func() {
		deps.Metrics.RecordOperationDuration(ctx, operationName, deps.Service, time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			deps.Logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("operation", operationName),
				attr.String("entity_id", entityID),
				attr.Error(err),
			)
			deps.Metrics.RecordOperationFailure(ctx, operationName, deps.Service)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		deps.Logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("entity_id", entityID),
			attr.Error(wrappedErr),
		)
		deps.Metrics.RecordOperationFailure(ctx, operationName, deps.Service)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.Failure != nil {
		// Business failures are expected outcomes (precondition, race-lost);
		// the operation itself succeeded.
		deps.Logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("entity_id", entityID),
			attr.Any("failure_type", fmt.Sprintf("%T", *result.Failure)),
		)
		return result, nil
	}

	deps.Metrics.RecordOperationSuccess(ctx, operationName, deps.Service)
	deps.Logger.DebugContext(ctx, "Operation completed successfully",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
		attr.String("entity_id", entityID),
	)
	return result, nil
}
