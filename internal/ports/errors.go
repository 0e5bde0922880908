package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrInvalidRequest  = errors.New("invalid request parameters or format")
	ErrNotFound        = errors.New("resource not found")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")

	// Store Errors
	ErrNotConnected  = errors.New("store used before connection established")
	ErrUnknownTable  = errors.New("table is not declared in the schema registry")
	ErrUnknownColumn = errors.New("column is not declared for the table")

	// Reconciliation Errors
	ErrDataUnavailable = errors.New("price data unavailable")
	ErrDivisionByZero  = errors.New("degenerate pnl computation: exit price is zero")

	// Oracle Errors
	ErrEmptyReply = errors.New("oracle reply carries no content")
)
