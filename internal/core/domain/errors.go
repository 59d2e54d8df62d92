package domain

import (
	"errors"
	"fmt"
)

// Tag and record failures.
var (
	ErrMalformedRecord      = errors.New("malformed record")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrStaleGeneration      = errors.New("stale generation")
	ErrUnsupportedVersion   = errors.New("unsupported format version")
	ErrGenerationExhausted  = errors.New("generation counter exhausted")
	ErrCapacityExceeded     = errors.New("envelope exceeds tag capacity")
	ErrTagNotBlank          = errors.New("tag is not blank")
)

// Business failures.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrUnknownProduct      = errors.New("unknown product")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrUnauthorized        = errors.New("operation not authorized")
)

// Hardware and session failures.
var (
	ErrHardwareIO        = errors.New("tag i/o failure")
	ErrTagRemoved        = fmt.Errorf("%w: tag removed", ErrHardwareIO)
	ErrTagTimeout        = fmt.Errorf("%w: tag timeout", ErrHardwareIO)
	ErrSessionBusy       = errors.New("another tag session is in progress")
	ErrNoOperationArmed  = errors.New("no operation armed")
	ErrIllegalTransition = errors.New("illegal session transition")
)

// InsufficientBalanceError carries what the caller needs to offer a recharge.
type InsufficientBalanceError struct {
	Balance   uint64
	Cost      uint64
	Shortfall uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: cost %d, balance %d, shortfall %d", e.Cost, e.Balance, e.Shortfall)
}

// Is lets errors.Is(err, ErrInsufficientBalance) match.
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
