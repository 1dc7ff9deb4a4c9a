package core

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindKnowledgeIngestion  ErrorKind = "KNOWLEDGE_INGESTION"
	KindProviderUnavailable ErrorKind = "PROVIDER_UNAVAILABLE"
	KindUnexpected          ErrorKind = "UNEXPECTED"
)

var (
	ErrKnowledgeIngestion  = errors.New("knowledge ingestion failed")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrUnexpected          = errors.New("unexpected error")
)

// Error carries one of the request failure kinds together with the cause.
// errors.Is matches it against the sentinel of its kind.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrKnowledgeIngestion:
		return e.Kind == KindKnowledgeIngestion
	case ErrProviderUnavailable:
		return e.Kind == KindProviderUnavailable
	case ErrUnexpected:
		return e.Kind == KindUnexpected
	}
	return false
}

func NewKnowledgeIngestionError(reason string, err error) *Error {
	return &Error{Kind: KindKnowledgeIngestion, Reason: reason, Err: err}
}

func NewProviderUnavailableError(reason string, err error) *Error {
	return &Error{Kind: KindProviderUnavailable, Reason: reason, Err: err}
}

func NewUnexpectedError(reason string, err error) *Error {
	return &Error{Kind: KindUnexpected, Reason: reason, Err: err}
}

// KindOf reports the failure kind of err. Errors that do not carry a kind
// are treated as unexpected.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
