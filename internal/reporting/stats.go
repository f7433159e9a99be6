// Package reporting computes the admin dashboard aggregates. These are
// pure read-side queries over the stores; no bidding invariant depends
// on them.
package reporting

import (
	"context"

	"github.com/openbid/auction-marketplace/internal/observability"
)

type DashboardStats struct {
	TotalUsers     int `json:"total_users"`
	TotalItems     int `json:"total_items"`
	TotalBids      int `json:"total_bids"`
	ActiveAuctions int `json:"active_auctions"`
	EndedAuctions  int `json:"ended_auctions"`
	BannedUsers    int `json:"banned_users"`
}

// Store is the read-side contract; implemented by the pgx repository
// and the in-memory store.
type Store interface {
	CountStats(ctx context.Context) (DashboardStats, error)
}

type Reporter struct {
	store  Store
	logger observability.Logger
}

func NewReporter(store Store, logger observability.Logger) *Reporter {
	return &Reporter{store: store, logger: logger.WithField("component", "reporting")}
}

func (r *Reporter) Dashboard(ctx context.Context) (DashboardStats, error) {
	stats, err := r.store.CountStats(ctx)
	if err != nil {
		r.logger.WithError(err).Error("failed to compute dashboard stats")
		return DashboardStats{}, err
	}
	return stats, nil
}
