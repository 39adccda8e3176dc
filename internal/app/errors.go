package app

import "fmt"

// DomainError is an operation failure with a fixed HTTP shape: a missing
// analysis or transcript, a rejected upload, a disabled snapshot store.
// mapError unwraps it into the error envelope; anything else becomes a
// generic 500.
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

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
