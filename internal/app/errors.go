package app

import (
	"errors"
	"fmt"
	"net/http"
)

const codeValidation = "VALIDATION_ERROR"

// DomainError is reported to clients as {"code","error","details"} with
// Status as the HTTP status.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// invalid rejects a request before it reaches the item store.
func invalid(message string) *DomainError {
	return &DomainError{Status: http.StatusUnprocessableEntity, Code: codeValidation, Message: message}
}

// validationError turns a model validation failure into a 422.
func validationError(err error) *DomainError {
	return invalid(err.Error())
}

// invalidBatchItem points at the batch create that failed validation.
func invalidBatchItem(index int, err error) *DomainError {
	message := err.Error()
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}
	e := invalid(message)
	e.Details = map[string]any{"index": index}
	return e
}
