package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError marks input that is malformed or semantically invalid,
// such as a transfer between identical accounts or a non-positive amount.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a reference to an entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s not found: %d", e.Entity, e.ID)
}

// NotFound builds a NotFoundError for the given entity kind and id.
func NotFound(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// DomainError marks an operation that violates a business rule, such as
// paying an already completed installment or closing without an active budget.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string { return e.Msg }

// Domainf builds a DomainError from a format string.
func Domainf(format string, args ...any) *DomainError {
	return &DomainError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientFundsError marks an explicit pre-check failure on an account
// balance. Ledger primitives themselves never enforce a floor; this error is
// raised only by operations that check before acting.
type InsufficientFundsError struct {
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return "insufficient balance, available: " + FormatAmount(e.Available)
}

// ErrInvalidAmount is returned by the money parsers for malformed input.
var ErrInvalidAmount = &ValidationError{Msg: "invalid amount"}
