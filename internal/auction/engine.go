package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/domain"
	"github.com/openbid/auction-marketplace/internal/observability"
)

// Engine owns the bidding and settlement lifecycle. Every mutation is a
// short read-validate-write unit of work inside Store.InTx; settlement
// is evaluated lazily on every read path, never by a timer.
type Engine struct {
	store   Store
	logger  observability.Logger
	retries int
	now     func() time.Time
}

type Option func(*Engine)

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRetryAttempts sets how many times a bid transaction is retried
// after a serialization conflict before Conflict is surfaced.
func WithRetryAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.retries = n
		}
	}
}

func NewEngine(store Store, logger observability.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		logger:  logger.WithField("component", "engine"),
		retries: 3,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PlaceBid validates and applies one bid. Preconditions, in order: the
// item exists, the bidder is an unbanned Buyer, the auction is still
// open after lazy settlement, the amount beats the current price, and
// the bidder is not the seller. On success the bid is appended to the
// ledger and the item price advances, atomically. A rejected bid
// changes nothing.
func (e *Engine) PlaceBid(ctx context.Context, itemID, bidderID uuid.UUID, amount float64) (*domain.Bid, *domain.Item, error) {
	if _, err := e.store.GetItem(ctx, itemID); err != nil {
		return nil, nil, err
	}

	bidder, err := e.store.GetUser(ctx, bidderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrForbidden
		}
		return nil, nil, err
	}
	if bidder.Role != domain.RoleBuyer || bidder.IsBanned {
		observability.BidsTotal.WithLabelValues("rejected").Inc()
		return nil, nil, domain.ErrForbidden
	}

	var (
		placed  *domain.Bid
		updated *domain.Item
	)
	for attempt := 0; attempt < e.retries; attempt++ {
		err = e.store.InTx(ctx, func(tx Tx) error {
			item, err := tx.GetItem(ctx, itemID)
			if err != nil {
				return err
			}

			now := e.now()
			if err := e.settleTx(ctx, tx, item, now); err != nil {
				return err
			}
			if item.Status.Terminal() {
				return domain.ErrAuctionEnded
			}
			if err := item.ValidateBidAmount(amount); err != nil {
				return err
			}
			if item.SellerID == bidderID {
				return domain.ErrForbidden
			}

			bid := &domain.Bid{
				ID:        uuid.New(),
				ItemID:    item.ID,
				BidderID:  bidderID,
				Amount:    amount,
				CreatedAt: now,
			}
			if err := tx.InsertBid(ctx, bid); err != nil {
				return err
			}

			item.CurrentBid = amount
			item.UpdatedAt = now
			if err := tx.SaveItem(ctx, item); err != nil {
				return err
			}

			if err := tx.InsertEvent(ctx, Event{
				Type:   EventBidPlaced,
				ItemID: item.ID,
				Payload: map[string]interface{}{
					"bid_id":    bid.ID,
					"bidder_id": bid.BidderID,
					"amount":    bid.Amount,
				},
			}); err != nil {
				return err
			}

			placed = bid
			updated = item
			return nil
		})
		if errors.Is(err, domain.ErrSerializationFailure) {
			observability.BidRetries.Inc()
			e.logger.WithField("item_id", itemID.String()).Warn("bid transaction conflict, retrying")
			continue
		}
		break
	}

	if errors.Is(err, domain.ErrSerializationFailure) {
		observability.BidsTotal.WithLabelValues("conflict").Inc()
		return nil, nil, e.conflictWithFreshMin(ctx, itemID)
	}
	if err != nil {
		observability.BidsTotal.WithLabelValues("rejected").Inc()
		return nil, nil, err
	}

	observability.BidsTotal.WithLabelValues("accepted").Inc()
	e.logger.WithField("item_id", itemID.String()).
		WithField("bid_id", placed.ID.String()).
		WithField("amount", placed.Amount).
		Info("bid accepted")
	return placed, updated, nil
}

// conflictWithFreshMin re-reads the item so the losing bidder learns
// the price set by the race winner.
func (e *Engine) conflictWithFreshMin(ctx context.Context, itemID uuid.UUID) error {
	item, err := e.store.GetItem(ctx, itemID)
	if err != nil {
		return domain.ErrConflict
	}
	return &domain.BidConflictError{MinAmount: item.NextMinBid()}
}

// settleTx applies the lazy status transition inside an open
// transaction. No-op unless the item is active and past its end time.
func (e *Engine) settleTx(ctx context.Context, tx Tx, item *domain.Item, now time.Time) error {
	if item.Status != domain.StatusActive || !item.Ended(now) {
		return nil
	}
	highest, err := tx.HighestBid(ctx, item.ID)
	if err != nil {
		return err
	}
	if !item.ResolveStatus(highest, now) {
		return nil
	}
	if err := tx.SaveItem(ctx, item); err != nil {
		return err
	}

	ev := Event{Type: EventAuctionExpired, ItemID: item.ID, Payload: map[string]interface{}{}}
	if item.Status == domain.StatusSold {
		ev.Type = EventAuctionSold
		ev.Payload["winner_id"] = *item.WinnerID
		ev.Payload["final_price"] = item.CurrentBid
	}
	return tx.InsertEvent(ctx, ev)
}

// SettleItem settles one item if it is due. Idempotent; safe to call
// concurrently from readers and the sweep worker. The settled counter
// moves only after the transaction commits.
func (e *Engine) SettleItem(ctx context.Context, itemID uuid.UUID) error {
	var settled domain.ItemStatus
	err := e.store.InTx(ctx, func(tx Tx) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		before := item.Status
		if err := e.settleTx(ctx, tx, item, e.now()); err != nil {
			return err
		}
		if item.Status != before {
			settled = item.Status
		}
		return nil
	})
	if err == nil && settled != "" {
		observability.SettledItems.WithLabelValues(string(settled)).Inc()
	}
	return err
}

// GetItem returns the item with its status lazily resolved.
func (e *Engine) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.Item, error) {
	item, err := e.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == domain.StatusActive && item.Ended(e.now()) {
		if err := e.SettleItem(ctx, itemID); err != nil && !errors.Is(err, domain.ErrSerializationFailure) {
			return nil, err
		}
		return e.store.GetItem(ctx, itemID)
	}
	return item, nil
}

// ListItems returns a filtered page of items, each with its status
// resolved, plus the unpaged total.
func (e *Engine) ListItems(ctx context.Context, f ItemFilter) ([]domain.Item, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 12
	}
	items, total, err := e.store.ListItems(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	items, err = e.resolveAll(ctx, items)
	return items, total, err
}

// SellerItems lists a seller's own items, statuses resolved.
func (e *Engine) SellerItems(ctx context.Context, sellerID uuid.UUID) ([]domain.Item, error) {
	items, err := e.store.ListItemsBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return e.resolveAll(ctx, items)
}

func (e *Engine) resolveAll(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	now := e.now()
	for i := range items {
		if items[i].Status != domain.StatusActive || !items[i].Ended(now) {
			continue
		}
		if err := e.SettleItem(ctx, items[i].ID); err != nil {
			if errors.Is(err, domain.ErrSerializationFailure) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		settled, err := e.store.GetItem(ctx, items[i].ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		items[i] = *settled
	}
	return items, nil
}

// ListBids returns the ledger for an item, newest first.
func (e *Engine) ListBids(ctx context.Context, itemID uuid.UUID) ([]domain.Bid, error) {
	if _, err := e.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return e.store.ListBids(ctx, itemID)
}

// SellerBidHistory returns an item's ledger to its owner only.
func (e *Engine) SellerBidHistory(ctx context.Context, sellerID, itemID uuid.UUID) ([]domain.Bid, error) {
	item, err := e.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SellerID != sellerID {
		return nil, domain.ErrForbidden
	}
	return e.store.ListBids(ctx, itemID)
}

// SettleDue settles up to limit ended items still marked active. Used
// by the sweep worker; the lazy read path remains the source of truth,
// the sweep only moves notifications along.
func (e *Engine) SettleDue(ctx context.Context, limit int) (int, error) {
	ids, err := e.store.ListDueItemIDs(ctx, limit)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, id := range ids {
		if err := e.SettleItem(ctx, id); err != nil {
			if errors.Is(err, domain.ErrSerializationFailure) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return settled, fmt.Errorf("settle %s: %w", id, err)
		}
		settled++
	}
	return settled, nil
}
