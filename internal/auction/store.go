package auction

import (
	"context"

	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/domain"
)

// Event is an auction lifecycle fact recorded transactionally with the
// write that produced it and relayed to the broker by the outbox
// publisher.
type Event struct {
	Type    string
	ItemID  uuid.UUID
	Payload map[string]interface{}
}

const (
	EventBidPlaced      = "bid.placed"
	EventAuctionSold    = "auction.sold"
	EventAuctionExpired = "auction.expired"
	EventAuctionClosed  = "auction.closed"
)

// ItemFilter narrows item listings. Status accepts "active" (end time
// in the future) or "ended" (past end time or terminal status).
type ItemFilter struct {
	Category string
	Status   string
	Search   string
	Page     int
	Limit    int
}

// UserFilter narrows user listings by name/email substring.
type UserFilter struct {
	Search string
	Page   int
	Limit  int
}

// BidFilter narrows the admin bid listing.
type BidFilter struct {
	ItemID *uuid.UUID
	Page   int
	Limit  int
}

// Tx is the unit of work handed to InTx callbacks. All item writes for
// one bid or settlement happen through a single Tx so the store can
// serialize competing writers per item.
type Tx interface {
	GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	InsertItem(ctx context.Context, item *domain.Item) error
	SaveItem(ctx context.Context, item *domain.Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	InsertBid(ctx context.Context, bid *domain.Bid) error
	CountBids(ctx context.Context, itemID uuid.UUID) (int, error)
	HighestBid(ctx context.Context, itemID uuid.UUID) (*domain.Bid, error)
	InsertEvent(ctx context.Context, ev Event) error
}

// Store is the persistence contract the engine runs on. InTx must give
// the callback a serializable view: two InTx calls touching the same
// item cannot both commit stale reads, the loser fails with
// domain.ErrSerializationFailure and the engine retries.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	ListItems(ctx context.Context, f ItemFilter) ([]domain.Item, int, error)
	ListItemsBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Item, error)
	ListDueItemIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	DeleteItemCascade(ctx context.Context, itemID uuid.UUID) error

	ListBids(ctx context.Context, itemID uuid.UUID) ([]domain.Bid, error)
	ListAllBids(ctx context.Context, f BidFilter) ([]domain.Bid, int, error)
	DeleteBid(ctx context.Context, bidID uuid.UUID) error

	InsertUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SaveUser(ctx context.Context, user *domain.User) error
	ListUsers(ctx context.Context, f UserFilter) ([]domain.User, int, error)
}
