package models

import (
	"errors"
	"fmt"
)

// IngestionKind classifies ingestion failures.
type IngestionKind string

const (
	IngestionTransport           IngestionKind = "transport"
	IngestionMalformedPayload    IngestionKind = "malformed_payload"
	IngestionInsufficientHistory IngestionKind = "insufficient_history"
	IngestionZeroBasePrice       IngestionKind = "zero_base_price"
)

// IngestionError is terminal for one computation cycle: no score and no
// recommendation are produced when it is returned.
type IngestionError struct {
	Kind IngestionKind
	Msg  string
	Err  error
}

// NewIngestionError builds an IngestionError.
func NewIngestionError(kind IngestionKind, msg string, err error) *IngestionError {
	return &IngestionError{Kind: kind, Msg: msg, Err: err}
}

func (e *IngestionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingestion %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("ingestion %s: %s", e.Kind, e.Msg)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// UserMessage is the text shown on the display surface.
func (e *IngestionError) UserMessage() string {
	switch e.Kind {
	case IngestionInsufficientHistory:
		return "Not enough data to compute SMA."
	case IngestionMalformedPayload:
		return "Failed to load historical price data for SMA."
	case IngestionZeroBasePrice:
		return "Historical price data contains a zero reference price."
	default:
		return "Failed to fetch Bitcoin data. Please try again."
	}
}

// IsIngestion reports whether err carries an IngestionError.
func IsIngestion(err error) bool {
	var ie *IngestionError
	return errors.As(err, &ie)
}

// InputValidationError rejects user input at the boundary.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var (
	ErrUnknownStrategy = errors.New("unknown risk strategy")
	ErrSessionNotFound = errors.New("session not found")
	ErrArchiveDisabled = errors.New("price archive disabled")
)
