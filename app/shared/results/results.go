package results

// OperationResult carries the outcome of a service operation. Exactly one of
// Success or Failure is set when the operation completed; infrastructure
// errors travel separately on the error return of the operation itself.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

// Success builds a successful result.
func Success[S any, F any](payload S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &payload}
}

// Failure builds a failed result.
func Failure[S any, F any](payload F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &payload}
}

func (r OperationResult[S, F]) IsSuccess() bool { return r.Success != nil }

func (r OperationResult[S, F]) IsFailure() bool { return r.Failure != nil }

// FailureKind classifies business failures so callers can tell an expected
// race loss apart from a validation or precondition problem.
type FailureKind string

const (
	FailureValidation   FailureKind = "validation"
	FailurePrecondition FailureKind = "precondition"
	FailureRaceLost     FailureKind = "race_lost"
)
