package model

import (
	"encoding/json"
	"time"
)

// ErrorKind classifies execution failures.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindNoRoute
	KindAssociationFailed
	KindSubmissionFailed
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return ""
	case KindValidation:
		return "ValidationError"
	case KindNoRoute:
		return "NoRouteFound"
	case KindAssociationFailed:
		return "AssociationFailed"
	case KindSubmissionFailed:
		return "SubmissionFailed"
	case KindUnavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// MarshalJSON encodes the kind by name.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// ExecutionResult is the outcome of a single swap execution.
type ExecutionResult struct {
	RequestID       string    `json:"request_id"`
	Success         bool      `json:"success"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	Mode            string    `json:"mode"`
	InputToken      string    `json:"input_token"`
	OutputToken     string    `json:"output_token"`
	Route           string    `json:"route,omitempty"`
	EstimatedAmount string    `json:"estimated_amount,omitempty"`
	LimitAmount     string    `json:"limit_amount,omitempty"`
	ActualAmount    string    `json:"actual_amount,omitempty"`
	GasUsed         uint64    `json:"gas_used"`
	Timestamp       time.Time `json:"timestamp"`
	ErrorKind       ErrorKind `json:"error_kind,omitempty"`
	Stage           string    `json:"stage,omitempty"`
	Error           string    `json:"error,omitempty"`
	Retryable       bool      `json:"retryable,omitempty"`
}
