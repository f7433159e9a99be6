// Package crdb is the pgx-backed system of record for users, items and
// the bid ledger. Bid placement and settlement run inside serializable
// transactions; a serialization failure surfaces as
// domain.ErrSerializationFailure and the engine retries against fresh
// state, which is the per-item write discipline the marketplace relies
// on.
package crdb

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openbid/auction-marketplace/internal/auction"
	"github.com/openbid/auction-marketplace/internal/domain"
	"github.com/openbid/auction-marketplace/internal/observability"
)

const serializationFailureCode = "40001"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx runs fn inside a serializable transaction. Concurrent
// transactions over the same item cannot both commit; the loser maps
// to domain.ErrSerializationFailure.
func (r *Repository) InTx(ctx context.Context, fn func(tx auction.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		return err
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		return mapSerialization(err)
	}

	return mapSerialization(tx.Commit(ctx))
}

func mapSerialization(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
		return domain.ErrSerializationFailure
	}
	return err
}

type pgTx struct {
	tx pgx.Tx
}

const itemColumns = `id, seller_id, title, description, category, base_price, current_bid,
	duration_hours, end_time, status, winner_id, created_at, updated_at`

func scanItem(row pgx.Row) (*domain.Item, error) {
	var item domain.Item
	var status string
	err := row.Scan(&item.ID, &item.SellerID, &item.Title, &item.Description, &item.Category,
		&item.BasePrice, &item.CurrentBid, &item.DurationHours, &item.EndTime, &status,
		&item.WinnerID, &item.CreatedAt, &item.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	item.Status = domain.ItemStatus(status)
	return &item, nil
}

func (t *pgTx) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	return scanItem(row)
}

func (t *pgTx) InsertItem(ctx context.Context, item *domain.Item) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO items (id, seller_id, title, description, category, base_price, current_bid,
			duration_hours, end_time, status, winner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, item.ID, item.SellerID, item.Title, item.Description, item.Category, item.BasePrice,
		item.CurrentBid, item.DurationHours, item.EndTime, string(item.Status), item.WinnerID,
		item.CreatedAt, item.UpdatedAt)
	return err
}

func (t *pgTx) SaveItem(ctx context.Context, item *domain.Item) error {
	result, err := t.tx.Exec(ctx, `
		UPDATE items SET title = $2, description = $3, category = $4, base_price = $5,
			current_bid = $6, duration_hours = $7, end_time = $8, status = $9,
			winner_id = $10, updated_at = $11
		WHERE id = $1
	`, item.ID, item.Title, item.Description, item.Category, item.BasePrice, item.CurrentBid,
		item.DurationHours, item.EndTime, string(item.Status), item.WinnerID, item.UpdatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteItem(ctx context.Context, id uuid.UUID) error {
	result, err := t.tx.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertBid(ctx context.Context, bid *domain.Bid) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bids (id, item_id, bidder_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, bid.ID, bid.ItemID, bid.BidderID, bid.Amount, bid.CreatedAt)
	return err
}

func (t *pgTx) CountBids(ctx context.Context, itemID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(*) FROM bids WHERE item_id = $1`, itemID).Scan(&n)
	return n, err
}

func (t *pgTx) HighestBid(ctx context.Context, itemID uuid.UUID) (*domain.Bid, error) {
	var bid domain.Bid
	err := t.tx.QueryRow(ctx, `
		SELECT id, item_id, bidder_id, amount, created_at
		FROM bids WHERE item_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`, itemID).Scan(&bid.ID, &bid.ItemID, &bid.BidderID, &bid.Amount, &bid.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	return scanItem(row)
}

func (r *Repository) ListItems(ctx context.Context, f auction.ItemFilter) ([]domain.Item, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Category != "" {
		where += " AND category = " + arg(f.Category)
	}
	if f.Search != "" {
		where += " AND title ILIKE " + arg("%"+f.Search+"%")
	}
	switch f.Status {
	case "active":
		where += " AND status = 'active' AND end_time > now()"
	case "ended":
		where += " AND (end_time <= now() OR status IN ('expired', 'sold', 'closed'))"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + itemColumns + ` FROM items` + where + ` ORDER BY created_at DESC`
	query += ` LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg((f.Page-1)*f.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectItems(rows)
	return items, total, err
}

func (r *Repository) ListItemsBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM items WHERE seller_id = $1 ORDER BY created_at DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]domain.Item, error) {
	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *Repository) ListDueItemIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM items
		WHERE status = 'active' AND end_time <= now()
		ORDER BY end_time ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) DeleteItemCascade(ctx context.Context, itemID uuid.UUID) error {
	return r.InTx(ctx, func(tx auction.Tx) error {
		pt := tx.(*pgTx)
		if _, err := pt.tx.Exec(ctx, `DELETE FROM bids WHERE item_id = $1`, itemID); err != nil {
			return err
		}
		return pt.DeleteItem(ctx, itemID)
	})
}

func (r *Repository) ListBids(ctx context.Context, itemID uuid.UUID) ([]domain.Bid, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, bidder_id, amount, created_at
		FROM bids WHERE item_id = $1
		ORDER BY created_at DESC
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBids(rows)
}

func (r *Repository) ListAllBids(ctx context.Context, f auction.BidFilter) ([]domain.Bid, int, error) {
	where := ""
	args := []interface{}{}
	if f.ItemID != nil {
		where = " WHERE item_id = $1"
		args = append(args, *f.ItemID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM bids`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := `SELECT id, item_id, bidder_id, amount, created_at FROM bids` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bids, err := collectBids(rows)
	return bids, total, err
}

func collectBids(rows pgx.Rows) ([]domain.Bid, error) {
	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.ID, &b.ItemID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (r *Repository) DeleteBid(ctx context.Context, bidID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM bids WHERE id = $1`, bidID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

