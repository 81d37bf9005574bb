package swap

import (
	"errors"
	"fmt"

	"swapEngine/internal/association"
	"swapEngine/internal/chain"
	"swapEngine/internal/dex"
	"swapEngine/internal/model"
	"swapEngine/internal/route"
)

const (
	StageValidate  = "validate"
	StageResolve   = "resolve"
	StageAmounts   = "amounts"
	StageRoute     = "route"
	StageQuote     = "quote"
	StageAssociate = "associate"
	StageCompose   = "compose"
	StageSubmit    = "submit"
	StageReceipt   = "receipt"
)

// StageError is a classified failure of one execution stage.
type StageError struct {
	Stage     string
	Kind      model.ErrorKind
	Err       error
	Retryable bool
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func validationError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Kind: model.KindValidation, Err: err}
}

func classifyResolve(err error) *StageError {
	return validationError(StageResolve, err)
}

func classifyRoute(err error) *StageError {
	switch {
	case errors.Is(err, route.ErrNoRoute):
		return &StageError{Stage: StageRoute, Kind: model.KindNoRoute, Err: err}
	case errors.Is(err, route.ErrSameToken), errors.Is(err, route.ErrNativeLeg):
		return validationError(StageRoute, err)
	default:
		return &StageError{Stage: StageRoute, Kind: model.KindUnavailable, Err: err, Retryable: true}
	}
}

func classifyQuote(err error) *StageError {
	if errors.Is(err, dex.ErrQuoteReverted) {
		return &StageError{Stage: StageQuote, Kind: model.KindNoRoute, Err: err}
	}
	return &StageError{Stage: StageQuote, Kind: model.KindUnavailable, Err: err, Retryable: true}
}

func classifyAssociation(err error) *StageError {
	if errors.Is(err, association.ErrQueryFailed) {
		return &StageError{Stage: StageAssociate, Kind: model.KindUnavailable, Err: err, Retryable: true}
	}
	return &StageError{Stage: StageAssociate, Kind: model.KindAssociationFailed, Err: err}
}

// classifySubmit keeps the ledger's message untouched; only ordering
// failures are safe to resubmit.
func classifySubmit(err error) *StageError {
	return &StageError{Stage: StageSubmit, Kind: model.KindSubmissionFailed, Err: err, Retryable: chain.IsOrderingError(err)}
}
