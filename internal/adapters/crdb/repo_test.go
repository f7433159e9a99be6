package crdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openbid/auction-marketplace/internal/adapters/crdb"
	"github.com/openbid/auction-marketplace/internal/auction"
	"github.com/openbid/auction-marketplace/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
	CREATE DATABASE IF NOT EXISTS auction;
	CREATE TABLE IF NOT EXISTS auction.users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT CHECK (role IN ('Buyer', 'Seller', 'Admin')),
		is_banned BOOL NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS auction.items (
		id UUID PRIMARY KEY,
		seller_id UUID NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		base_price NUMERIC NOT NULL,
		current_bid NUMERIC NOT NULL,
		duration_hours INT NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		status TEXT CHECK (status IN ('active', 'expired', 'sold', 'closed')),
		winner_id UUID,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS auction.bids (
		id UUID PRIMARY KEY,
		item_id UUID NOT NULL,
		bidder_id UUID NOT NULL,
		amount NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS auction.outbox (
		id UUID PRIMARY KEY,
		item_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		payload_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'NEW',
		dedupe_key TEXT NOT NULL
	);
`

func setupRepo(t *testing.T) *crdb.Repository {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/auction?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}
	return crdb.NewRepository(pool)
}

func insertItem(t *testing.T, repo *crdb.Repository, item *domain.Item) {
	t.Helper()
	err := repo.InTx(context.Background(), func(tx auction.Tx) error {
		return tx.InsertItem(context.Background(), item)
	})
	if err != nil {
		t.Fatal(err)
	}
}

func activeItem(endTime time.Time) *domain.Item {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Item{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Title:         "vintage lamp",
		Description:   "brass, working",
		Category:      "home",
		BasePrice:     50,
		CurrentBid:    50,
		DurationHours: 24,
		EndTime:       endTime,
		Status:        domain.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestRepository_BidTransaction(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	item := activeItem(time.Now().Add(24 * time.Hour))
	insertItem(t, repo, item)

	bidder := uuid.New()
	err := repo.InTx(ctx, func(tx auction.Tx) error {
		got, err := tx.GetItem(ctx, item.ID)
		if err != nil {
			return err
		}
		bid := &domain.Bid{ID: uuid.New(), ItemID: got.ID, BidderID: bidder, Amount: 60, CreatedAt: time.Now()}
		if err := tx.InsertBid(ctx, bid); err != nil {
			return err
		}
		got.CurrentBid = 60
		if err := tx.SaveItem(ctx, got); err != nil {
			return err
		}
		return tx.InsertEvent(ctx, auction.Event{
			Type:    auction.EventBidPlaced,
			ItemID:  got.ID,
			Payload: map[string]interface{}{"amount": 60},
		})
	})
	if err != nil {
		t.Fatalf("bid transaction: %v", err)
	}

	got, err := repo.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentBid != 60 {
		t.Errorf("current bid = %v, want 60", got.CurrentBid)
	}

	bids, err := repo.ListBids(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bids) != 1 || bids[0].Amount != 60 {
		t.Errorf("bids = %+v", bids)
	}

	records, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].EventType != auction.EventBidPlaced {
		t.Fatalf("outbox = %+v, want one bid.placed record", records)
	}
	if err := repo.MarkPublished(ctx, records[0].ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	records, err = repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("published record still pending: %+v", records)
	}
}

func TestRepository_RolledBackTxLeavesNoState(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	item := activeItem(time.Now().Add(24 * time.Hour))
	insertItem(t, repo, item)

	sentinel := errors.New("validation failed")
	err := repo.InTx(ctx, func(tx auction.Tx) error {
		bid := &domain.Bid{ID: uuid.New(), ItemID: item.ID, BidderID: uuid.New(), Amount: 70, CreatedAt: time.Now()}
		if err := tx.InsertBid(ctx, bid); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v, want sentinel", err)
	}

	bids, err := repo.ListBids(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bids) != 0 {
		t.Errorf("rolled back bid persisted: %+v", bids)
	}
}

func TestRepository_HighestBidTieBreak(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	item := activeItem(time.Now().Add(24 * time.Hour))
	insertItem(t, repo, item)

	base := time.Now().UTC().Truncate(time.Microsecond)
	first := uuid.New()
	err := repo.InTx(ctx, func(tx auction.Tx) error {
		for _, b := range []*domain.Bid{
			{ID: first, ItemID: item.ID, BidderID: uuid.New(), Amount: 100, CreatedAt: base},
			{ID: uuid.New(), ItemID: item.ID, BidderID: uuid.New(), Amount: 100, CreatedAt: base.Add(time.Second)},
			{ID: uuid.New(), ItemID: item.ID, BidderID: uuid.New(), Amount: 90, CreatedAt: base.Add(2 * time.Second)},
		} {
			if err := tx.InsertBid(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = repo.InTx(ctx, func(tx auction.Tx) error {
		top, err := tx.HighestBid(ctx, item.ID)
		if err != nil {
			return err
		}
		if top == nil || top.ID != first {
			t.Errorf("highest = %+v, want earliest bid at 100", top)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRepository_ListDueItemIDs(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	due := activeItem(time.Now().Add(-time.Hour))
	open := activeItem(time.Now().Add(time.Hour))
	insertItem(t, repo, due)
	insertItem(t, repo, open)

	ids, err := repo.ListDueItemIDs(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != due.ID {
		t.Errorf("due ids = %v, want only %s", ids, due.ID)
	}
}

func TestRepository_DeleteItemCascade(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	item := activeItem(time.Now().Add(24 * time.Hour))
	insertItem(t, repo, item)
	err := repo.InTx(ctx, func(tx auction.Tx) error {
		return tx.InsertBid(ctx, &domain.Bid{ID: uuid.New(), ItemID: item.ID, BidderID: uuid.New(), Amount: 60, CreatedAt: time.Now()})
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteItemCascade(ctx, item.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetItem(ctx, item.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	bids, err := repo.ListBids(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bids) != 0 {
		t.Errorf("cascade left bids behind: %+v", bids)
	}
}

func TestRepository_Users(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	user := &domain.User{ID: uuid.New(), Name: "alex", Email: "alex@test.dev", Role: domain.RoleBuyer, CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	if err := repo.InsertUser(ctx, user); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Role != domain.RoleBuyer || got.IsBanned {
		t.Errorf("user = %+v", got)
	}

	got.IsBanned = true
	if err := repo.SaveUser(ctx, got); err != nil {
		t.Fatal(err)
	}

	users, total, err := repo.ListUsers(ctx, auction.UserFilter{Search: "alex", Page: 1, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(users) != 1 || !users[0].IsBanned {
		t.Errorf("users = %+v, total = %d", users, total)
	}

	if _, err := repo.GetUser(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
