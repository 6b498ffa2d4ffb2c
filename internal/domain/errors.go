package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Ledger errors
	ErrNoPendingBalance = errors.New("no pending tokens to claim")
	ErrInvalidSource    = errors.New("invalid earning source")
	ErrInvalidAmount    = errors.New("amount must be a positive finite number")
	ErrInvalidAddress   = errors.New("address must not be empty")

	// Transaction history errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransaction  = errors.New("transaction hash is required")

	// Admin errors
	ErrUnauthorized = errors.New("admin password required")
)
