// Package memory holds an in-process implementation of the engine's
// store contract. It backs the unit tests and local development; the
// production store is the pgx adapter. A single mutex plays the role
// of the database's serializable isolation: InTx callbacks run one at
// a time and their writes are buffered so a failed callback leaves no
// partial state.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/auction"
	"github.com/openbid/auction-marketplace/internal/domain"
	"github.com/openbid/auction-marketplace/internal/reporting"
)

type Store struct {
	mu     sync.Mutex
	items  map[uuid.UUID]domain.Item
	bids   map[uuid.UUID]domain.Bid
	users  map[uuid.UUID]domain.User
	events []auction.Event

	// Now is consulted by list filters; tests override it together
	// with the engine clock.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		items: make(map[uuid.UUID]domain.Item),
		bids:  make(map[uuid.UUID]domain.Bid),
		users: make(map[uuid.UUID]domain.User),
		Now:   time.Now,
	}
}

type memTx struct {
	s           *Store
	itemWrites  map[uuid.UUID]domain.Item
	itemDeletes map[uuid.UUID]bool
	bidInserts  []domain.Bid
	events      []auction.Event
}

func (s *Store) InTx(ctx context.Context, fn func(tx auction.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:           s,
		itemWrites:  make(map[uuid.UUID]domain.Item),
		itemDeletes: make(map[uuid.UUID]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for id, item := range tx.itemWrites {
		s.items[id] = item
	}
	for id := range tx.itemDeletes {
		delete(s.items, id)
	}
	for _, b := range tx.bidInserts {
		s.bids[b.ID] = b
	}
	s.events = append(s.events, tx.events...)
	return nil
}

func (tx *memTx) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	if item, ok := tx.itemWrites[id]; ok {
		cp := item
		return &cp, nil
	}
	if tx.itemDeletes[id] {
		return nil, domain.ErrNotFound
	}
	item, ok := tx.s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := item
	return &cp, nil
}

func (tx *memTx) InsertItem(ctx context.Context, item *domain.Item) error {
	tx.itemWrites[item.ID] = *item
	return nil
}

func (tx *memTx) SaveItem(ctx context.Context, item *domain.Item) error {
	tx.itemWrites[item.ID] = *item
	return nil
}

func (tx *memTx) DeleteItem(ctx context.Context, id uuid.UUID) error {
	delete(tx.itemWrites, id)
	tx.itemDeletes[id] = true
	return nil
}

func (tx *memTx) InsertBid(ctx context.Context, bid *domain.Bid) error {
	tx.bidInserts = append(tx.bidInserts, *bid)
	return nil
}

func (tx *memTx) CountBids(ctx context.Context, itemID uuid.UUID) (int, error) {
	n := 0
	for _, b := range tx.s.bids {
		if b.ItemID == itemID {
			n++
		}
	}
	for _, b := range tx.bidInserts {
		if b.ItemID == itemID {
			n++
		}
	}
	return n, nil
}

func (tx *memTx) HighestBid(ctx context.Context, itemID uuid.UUID) (*domain.Bid, error) {
	var all []domain.Bid
	for _, b := range tx.s.bids {
		if b.ItemID == itemID {
			all = append(all, b)
		}
	}
	for _, b := range tx.bidInserts {
		if b.ItemID == itemID {
			all = append(all, b)
		}
	}
	return domain.HighestBid(all), nil
}

func (tx *memTx) InsertEvent(ctx context.Context, ev auction.Event) error {
	tx.events = append(tx.events, ev)
	return nil
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := item
	return &cp, nil
}

func (s *Store) ListItems(ctx context.Context, f auction.ItemFilter) ([]domain.Item, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	var matched []domain.Item
	for _, item := range s.items {
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(item.Title), strings.ToLower(f.Search)) {
			continue
		}
		switch f.Status {
		case "active":
			if item.Status != domain.StatusActive || item.Ended(now) {
				continue
			}
		case "ended":
			if item.Status == domain.StatusActive && !item.Ended(now) {
				continue
			}
		}
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	return pageSlice(matched, f.Page, f.Limit), total, nil
}

func (s *Store) ListItemsBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Item
	for _, item := range s.items {
		if item.SellerID == sellerID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListDueItemIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	var ids []uuid.UUID
	for _, item := range s.items {
		if item.Status == domain.StatusActive && item.Ended(now) {
			ids = append(ids, item.ID)
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

func (s *Store) DeleteItemCascade(ctx context.Context, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.items, itemID)
	for id, b := range s.bids {
		if b.ItemID == itemID {
			delete(s.bids, id)
		}
	}
	return nil
}

func (s *Store) ListBids(ctx context.Context, itemID uuid.UUID) ([]domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Bid
	for _, b := range s.bids {
		if b.ItemID == itemID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListAllBids(ctx context.Context, f auction.BidFilter) ([]domain.Bid, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Bid
	for _, b := range s.bids {
		if f.ItemID != nil && b.ItemID != *f.ItemID {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	return pageSlice(matched, f.Page, f.Limit), total, nil
}

func (s *Store) DeleteBid(ctx context.Context, bidID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bids[bidID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.bids, bidID)
	return nil
}

func (s *Store) InsertUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := user
	return &cp, nil
}

func (s *Store) SaveUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) ListUsers(ctx context.Context, f auction.UserFilter) ([]domain.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.User
	for _, u := range s.users {
		if f.Search != "" {
			needle := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(u.Name), needle) &&
				!strings.Contains(strings.ToLower(u.Email), needle) {
				continue
			}
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	return pageSlice(matched, f.Page, f.Limit), total, nil
}

// CountStats implements reporting.Store.
func (s *Store) CountStats(ctx context.Context) (reporting.DashboardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	stats := reporting.DashboardStats{
		TotalUsers: len(s.users),
		TotalItems: len(s.items),
		TotalBids:  len(s.bids),
	}
	for _, item := range s.items {
		if item.Status == domain.StatusActive && !item.Ended(now) {
			stats.ActiveAuctions++
		} else {
			stats.EndedAuctions++
		}
	}
	for _, u := range s.users {
		if u.IsBanned {
			stats.BannedUsers++
		}
	}
	return stats, nil
}

// Events returns the committed event log; used by tests.
func (s *Store) Events() []auction.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auction.Event, len(s.events))
	copy(out, s.events)
	return out
}

func pageSlice[T any](in []T, page, limit int) []T {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		return in
	}
	start := (page - 1) * limit
	if start >= len(in) {
		return nil
	}
	end := start + limit
	if end > len(in) {
		end = len(in)
	}
	return in[start:end]
}
