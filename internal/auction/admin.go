package auction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/domain"
)

// RegisterUser creates a user record. Credential handling lives in the
// auth collaborator; the marketplace only needs identity, role and ban
// state.
func (e *Engine) RegisterUser(ctx context.Context, name, email string, role domain.Role) (*domain.User, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("name and email are required: %w", domain.ErrInvalidInput)
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q: %w", role, domain.ErrInvalidInput)
	}
	user := &domain.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: e.now(),
	}
	if err := e.store.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser loads a user record; used by the auth middleware to resolve
// bearer identities.
func (e *Engine) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return e.store.GetUser(ctx, id)
}

// ListUsers pages through users for the admin dashboard.
func (e *Engine) ListUsers(ctx context.Context, f UserFilter) ([]domain.User, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	return e.store.ListUsers(ctx, f)
}

// ToggleUserBan flips a user's ban flag. Admin accounts cannot be
// banned.
func (e *Engine) ToggleUserBan(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	user.IsBanned = !user.IsBanned
	if err := e.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetUserRole changes a user's role.
func (e *Engine) SetUserRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q: %w", role, domain.ErrInvalidInput)
	}
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := e.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ForceClose ends an auction administratively. The item goes straight
// to closed without winner resolution; this is the external override,
// not the engine's own transition rule.
func (e *Engine) ForceClose(ctx context.Context, itemID uuid.UUID) (*domain.Item, error) {
	var closed *domain.Item
	err := e.store.InTx(ctx, func(tx Tx) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Status.Terminal() {
			return domain.ErrAuctionEnded
		}
		item.Status = domain.StatusClosed
		item.UpdatedAt = e.now()
		if err := tx.SaveItem(ctx, item); err != nil {
			return err
		}
		closed = item
		return tx.InsertEvent(ctx, Event{Type: EventAuctionClosed, ItemID: item.ID, Payload: map[string]interface{}{}})
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// AdminDeleteItem removes an item and its entire ledger.
func (e *Engine) AdminDeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if _, err := e.store.GetItem(ctx, itemID); err != nil {
		return err
	}
	return e.store.DeleteItemCascade(ctx, itemID)
}

// AdminDeleteBid removes a single bid for moderation. The item's
// current price is deliberately left untouched: the ledger is an audit
// trail and deletion never rewinds an accepted price.
func (e *Engine) AdminDeleteBid(ctx context.Context, bidID uuid.UUID) error {
	return e.store.DeleteBid(ctx, bidID)
}

// ListAllBids pages through bids across items for moderation.
func (e *Engine) ListAllBids(ctx context.Context, f BidFilter) ([]domain.Bid, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	return e.store.ListAllBids(ctx, f)
}

// Now exposes the engine clock for collaborators that report on time
// (sweep lag metrics).
func (e *Engine) Now() time.Time { return e.now() }
