package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleBuyer  Role = "Buyer"
	RoleSeller Role = "Seller"
	RoleAdmin  Role = "Admin"
)

func ValidRole(r Role) bool {
	return r == RoleBuyer || r == RoleSeller || r == RoleAdmin
}

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      Role
	IsBanned  bool
	CreatedAt time.Time
}

type ItemStatus string

const (
	StatusActive  ItemStatus = "active"
	StatusExpired ItemStatus = "expired"
	StatusSold    ItemStatus = "sold"
	StatusClosed  ItemStatus = "closed"
)

// Terminal reports whether the status is final. Terminal items never
// transition again.
func (s ItemStatus) Terminal() bool {
	return s == StatusExpired || s == StatusSold || s == StatusClosed
}

// Item is an auction lot. CurrentBid starts at BasePrice and only moves
// up through accepted bids. EndTime is frozen once the first bid lands.
type Item struct {
	ID            uuid.UUID
	SellerID      uuid.UUID
	Title         string
	Description   string
	Category      string
	BasePrice     float64
	CurrentBid    float64
	DurationHours int
	EndTime       time.Time
	Status        ItemStatus
	WinnerID      *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Bid is one record in the append-only ledger. Bids are never mutated
// after creation.
type Bid struct {
	ID        uuid.UUID
	ItemID    uuid.UUID
	BidderID  uuid.UUID
	Amount    float64
	CreatedAt time.Time
}
