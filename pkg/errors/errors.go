package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a failure and selects its HTTP status and public message.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
	CodeProcessing   Code = "PROCESSING_ERROR"
)

// Metadata is how a code surfaces to API clients. PublicMessage is Spanish,
// like everything a shopper reads.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   {http.StatusBadRequest, false, "Datos inválidos", true},
	CodeUnauthorized: {http.StatusUnauthorized, false, "Se requiere autenticación", false},
	CodeForbidden:    {http.StatusForbidden, false, "Acceso denegado", false},
	CodeNotFound:     {http.StatusNotFound, false, "Recurso no encontrado", false},
	CodeConflict:     {http.StatusConflict, false, "La solicitud entra en conflicto con otra en curso", false},
	CodeRateLimit:    {http.StatusTooManyRequests, false, "Demasiadas solicitudes, intenta más tarde", false},
	CodeInternal:     {http.StatusInternalServerError, true, "Error interno del servidor", false},
	CodeDependency:   {http.StatusServiceUnavailable, true, "Servicio no disponible temporalmente", true},
	CodeProcessing:   {http.StatusInternalServerError, true, "Error al procesar la cotización", false},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries a typed error with the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
