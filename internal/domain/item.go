package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinDurationHours = 1
	MaxDurationHours = 720

	// MinBidIncrement is the step used when reporting the minimum
	// acceptable amount to a rejected bidder. Validation itself is
	// strictly-greater-than-current.
	MinBidIncrement = 1.0
)

// NewItem validates the listing fields and builds an active item with
// CurrentBid seeded at BasePrice and EndTime at now + duration.
func NewItem(sellerID uuid.UUID, title, description, category string, basePrice float64, durationHours int, now time.Time) (*Item, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" || strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("title, description and category are required: %w", ErrInvalidInput)
	}
	if basePrice <= 0 {
		return nil, fmt.Errorf("base price must be greater than 0: %w", ErrInvalidInput)
	}
	if durationHours < MinDurationHours || durationHours > MaxDurationHours {
		return nil, fmt.Errorf("auction duration must be between %d and %d hours: %w", MinDurationHours, MaxDurationHours, ErrInvalidInput)
	}

	return &Item{
		ID:            uuid.New(),
		SellerID:      sellerID,
		Title:         title,
		Description:   description,
		Category:      category,
		BasePrice:     basePrice,
		CurrentBid:    basePrice,
		DurationHours: durationHours,
		EndTime:       now.Add(time.Duration(durationHours) * time.Hour),
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Ended reports whether the auction window has passed.
func (i *Item) Ended(now time.Time) bool {
	return !now.Before(i.EndTime)
}

// ResolveStatus lazily settles an item whose end time has passed.
// highest must be the top accepted bid (ties broken by earliest
// CreatedAt) or nil when the ledger is empty. Returns true when the
// item transitioned; calling it again on a terminal item is a no-op.
func (i *Item) ResolveStatus(highest *Bid, now time.Time) bool {
	if i.Status != StatusActive || !i.Ended(now) {
		return false
	}
	if highest != nil {
		i.Status = StatusSold
		winner := highest.BidderID
		i.WinnerID = &winner
		i.CurrentBid = highest.Amount
	} else {
		i.Status = StatusExpired
	}
	i.UpdatedAt = now
	return true
}

// NextMinBid is the minimum amount reported to a rejected bidder.
func (i *Item) NextMinBid() float64 {
	return i.CurrentBid + MinBidIncrement
}

// ValidateBidAmount checks a candidate amount against the current
// price. The amount must be positive and strictly greater than
// CurrentBid (which equals BasePrice while the ledger is empty).
func (i *Item) ValidateBidAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("bid amount must be greater than 0: %w", ErrInvalidInput)
	}
	if amount <= i.CurrentBid {
		return &BidTooLowError{MinAmount: i.NextMinBid()}
	}
	return nil
}

// Editable gates seller edits and deletes: only the owner may touch a
// listing, and only while it has no bids and has not ended.
func (i *Item) Editable(sellerID uuid.UUID, bidCount int, now time.Time) error {
	if i.SellerID != sellerID {
		return ErrForbidden
	}
	if bidCount > 0 {
		return ErrHasBids
	}
	if i.Ended(now) || i.Status.Terminal() {
		return ErrAuctionEnded
	}
	return nil
}

// HighestBid picks the winning bid from a ledger slice: greatest
// amount, earliest CreatedAt among equals. Returns nil for an empty
// slice.
func HighestBid(bids []Bid) *Bid {
	var top *Bid
	for idx := range bids {
		b := &bids[idx]
		if top == nil || b.Amount > top.Amount ||
			(b.Amount == top.Amount && b.CreatedAt.Before(top.CreatedAt)) {
			top = b
		}
	}
	return top
}
