package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/domain"
)

type CreateItemRequest struct {
	Title         string
	Description   string
	Category      string
	BasePrice     float64
	DurationHours int
}

// EditItemRequest carries partial updates; nil fields are untouched.
type EditItemRequest struct {
	Title         *string
	Description   *string
	Category      *string
	BasePrice     *float64
	DurationHours *int
}

// CreateItem lists a new lot for an unbanned Seller. The item starts
// active with CurrentBid at BasePrice.
func (e *Engine) CreateItem(ctx context.Context, sellerID uuid.UUID, req CreateItemRequest) (*domain.Item, error) {
	seller, err := e.store.GetUser(ctx, sellerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}
	if seller.Role != domain.RoleSeller || seller.IsBanned {
		return nil, domain.ErrForbidden
	}

	item, err := domain.NewItem(sellerID, req.Title, req.Description, req.Category, req.BasePrice, req.DurationHours, e.now())
	if err != nil {
		return nil, err
	}

	err = e.store.InTx(ctx, func(tx Tx) error {
		return tx.InsertItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	e.logger.WithField("item_id", item.ID.String()).
		WithField("seller_id", sellerID.String()).
		Info("item listed")
	return item, nil
}

// EditItem updates a listing. Allowed only for the owner while the
// ledger is empty and the auction has not ended. A new base price
// resets the current bid; a new duration restarts the window from now.
func (e *Engine) EditItem(ctx context.Context, sellerID, itemID uuid.UUID, req EditItemRequest) (*domain.Item, error) {
	var updated *domain.Item
	err := e.store.InTx(ctx, func(tx Tx) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		count, err := tx.CountBids(ctx, itemID)
		if err != nil {
			return err
		}
		now := e.now()
		if err := item.Editable(sellerID, count, now); err != nil {
			return err
		}

		if req.Title != nil {
			item.Title = *req.Title
		}
		if req.Description != nil {
			item.Description = *req.Description
		}
		if req.Category != nil {
			item.Category = *req.Category
		}
		if req.BasePrice != nil {
			if *req.BasePrice <= 0 {
				return fmt.Errorf("base price must be greater than 0: %w", domain.ErrInvalidInput)
			}
			item.BasePrice = *req.BasePrice
			item.CurrentBid = *req.BasePrice
		}
		if req.DurationHours != nil {
			if *req.DurationHours < domain.MinDurationHours || *req.DurationHours > domain.MaxDurationHours {
				return fmt.Errorf("auction duration must be between %d and %d hours: %w",
					domain.MinDurationHours, domain.MaxDurationHours, domain.ErrInvalidInput)
			}
			item.DurationHours = *req.DurationHours
			item.EndTime = now.Add(time.Duration(*req.DurationHours) * time.Hour)
		}
		item.UpdatedAt = now

		updated = item
		return tx.SaveItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem removes a listing. Owner only, and only while no bids
// exist.
func (e *Engine) DeleteItem(ctx context.Context, sellerID, itemID uuid.UUID) error {
	return e.store.InTx(ctx, func(tx Tx) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.SellerID != sellerID {
			return domain.ErrForbidden
		}
		count, err := tx.CountBids(ctx, itemID)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrHasBids
		}
		return tx.DeleteItem(ctx, itemID)
	})
}
