package crdb

import (
	"context"

	"github.com/openbid/auction-marketplace/internal/reporting"
)

// CountStats implements reporting.Store with plain count queries; the
// dashboard is a read-side view, nothing here feeds back into bidding.
func (r *Repository) CountStats(ctx context.Context) (reporting.DashboardStats, error) {
	var stats reporting.DashboardStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM items),
			(SELECT count(*) FROM bids),
			(SELECT count(*) FROM items WHERE status = 'active' AND end_time > now()),
			(SELECT count(*) FROM items WHERE end_time <= now() OR status <> 'active'),
			(SELECT count(*) FROM users WHERE is_banned)
	`).Scan(&stats.TotalUsers, &stats.TotalItems, &stats.TotalBids,
		&stats.ActiveAuctions, &stats.EndedAuctions, &stats.BannedUsers)
	return stats, err
}
