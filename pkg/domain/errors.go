package domain

import "errors"

// Validation failures returned by ledger commands. Callers match them with
// errors.Is; the ledger is unchanged whenever one is returned.
var (
	ErrUnknownSpecCode    = errors.New("unknown spec code")
	ErrUnknownCombination = errors.New("unknown combination")
	ErrUnknownOrder       = errors.New("unknown test order")
	ErrUnknownFieldKey    = errors.New("unknown sheet field key")
	ErrNoEligibleOrder    = errors.New("no eligible test order")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidDirection   = errors.New("invalid reposition direction")
)
