package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind è la tassonomia dei fallimenti del percorso di ingestione.
type ErrorKind int

const (
	KindMalformedRequest ErrorKind = iota
	KindMissingField
	KindInvalidFieldType
	KindPersistenceFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingField:
		return "missing_field"
	case KindInvalidFieldType:
		return "invalid_field_type"
	case KindPersistenceFailure:
		return "persistence_failure"
	default:
		return "malformed_request"
	}
}

// KindOf estrae il kind da un errore qualsiasi del percorso di ingestione.
func KindOf(err error) ErrorKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindMalformedRequest
}

// IngestError porta il kind fino al confine HTTP, dove viene mappato
// su uno status code. Err e Field sono opzionali.
type IngestError struct {
	Kind  ErrorKind
	Field string
	Err   error
}

func (e *IngestError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("missing required field %q", e.Field)
	case KindInvalidFieldType:
		return fmt.Sprintf("invalid type for field %q", e.Field)
	case KindPersistenceFailure:
		if e.Err != nil {
			return fmt.Sprintf("persistence failure: %v", e.Err)
		}
		return "persistence failure"
	default:
		if e.Err != nil {
			return fmt.Sprintf("malformed request: %v", e.Err)
		}
		return "malformed request"
	}
}

func (e *IngestError) Unwrap() error { return e.Err }

// HTTPStatus mappa un errore di ingestione sullo status code di risposta.
// Gli errori di persistenza sono colpa del server, non del client: 500.
func HTTPStatus(err error) int {
	var ie *IngestError
	if errors.As(err, &ie) && ie.Kind == KindPersistenceFailure {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}
