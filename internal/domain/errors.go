package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidState         = errors.New("invalid state")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConflict             = errors.New("conflict")

	ErrAuctionEnded = fmt.Errorf("auction has ended: %w", ErrInvalidState)
	ErrHasBids      = fmt.Errorf("item already has bids: %w", ErrInvalidState)
)

// BidTooLowError rejects a bid that does not beat the current price.
// MinAmount is the smallest amount the caller should retry with.
type BidTooLowError struct {
	MinAmount float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid must be at least %.2f", e.MinAmount)
}

func (e *BidTooLowError) Unwrap() error { return ErrInvalidInput }

// BidConflictError is returned when a competing bid won the race and
// retries were exhausted. MinAmount reflects the price after the race.
type BidConflictError struct {
	MinAmount float64
}

func (e *BidConflictError) Error() string {
	return fmt.Sprintf("a competing bid was accepted, bid must be at least %.2f", e.MinAmount)
}

func (e *BidConflictError) Unwrap() error { return ErrConflict }
