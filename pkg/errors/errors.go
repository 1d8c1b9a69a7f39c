package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation            = errors.New("validation failed")
	ErrDataIntegrity         = errors.New("data integrity violation")
	ErrGateway               = errors.New("payment gateway error")
	ErrConcurrencyConflict   = errors.New("concurrent modification detected")
	ErrNotFound              = errors.New("not found")
	ErrNothingDue            = errors.New("nothing due")
	ErrAlreadyPaid           = errors.New("fee already paid")
	ErrIllegalStatusChange   = errors.New("illegal payment status transition")
	ErrAssignmentExists      = errors.New("student already has an active fee assignment")
	ErrSignatureVerification = errors.New("gateway signature verification failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeDataIntegrity       = "DATA_INTEGRITY_ERROR"
	ErrCodeGateway             = "GATEWAY_ERROR"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeIllegalTransition   = "ILLEGAL_STATUS_TRANSITION"
)

// Wrap common errors with business context

func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, ErrValidation)
}

func WrapAlreadyPaid(feeType string) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf("Fee type %s has already been paid", feeType),
		ErrAlreadyPaid,
	)
}

func WrapNothingDue() *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		"No outstanding balance for the selected payment",
		ErrNothingDue,
	)
}

func WrapSemesterNotFound(semester int) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf("Semester %d is not part of the assigned fee structure", semester),
		ErrNotFound,
	)
}

func WrapDataIntegrity(message string, err error) *BusinessError {
	if err == nil {
		err = ErrDataIntegrity
	}
	return NewBusinessError(ErrCodeDataIntegrity, message, err)
}

func WrapGatewayError(err error) *BusinessError {
	return NewBusinessError(ErrCodeGateway, "payment gateway operation failed", err)
}

func WrapSignatureVerification() *BusinessError {
	return NewBusinessError(
		ErrCodeGateway,
		"Payment signature could not be verified",
		ErrSignatureVerification,
	)
}

func WrapConcurrencyConflict(assignmentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		fmt.Sprintf("Another payment for assignment %s is in progress, retry after refreshing status", assignmentID),
		ErrConcurrencyConflict,
	)
}

func WrapNotFound(what, id string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("%s %s not found", what, id),
		ErrNotFound,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(ErrCodeDatabaseError, "database operation failed", err)
}

func WrapIllegalTransition(from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeIllegalTransition,
		fmt.Sprintf("Payment status cannot change from %s to %s", from, to),
		ErrIllegalStatusChange,
	)
}

func WrapAssignmentExists(studentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf("Student %s already has an active fee assignment", studentID),
		ErrAssignmentExists,
	)
}
