package service

import "errors"

// Synchronous invariant violations. These are rejected at the call site
// before anything reaches the mutation queue — they are usage errors, not
// sync failures, and never produce a queue entry.
var (
	ErrSessionAlreadyOpen    = errors.New("a cash session is already open for this point of sale")
	ErrSessionNotFound       = errors.New("cash session not found")
	ErrSessionNotOpen        = errors.New("cash session is not open")
	ErrSessionNotSuspended   = errors.New("cash session is not suspended")
	ErrAuthorizationRequired = errors.New("withdrawals require supervisor authorization")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInvalidDenomination   = errors.New("invalid denomination in cash count")
	ErrInsufficientPayment   = errors.New("payments do not cover the sale total")
)
