package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/auction"
	"github.com/openbid/auction-marketplace/internal/domain"
)

type userView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	IsBanned bool      `json:"is_banned"`
}

func toUserView(u *domain.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), IsBanned: u.IsBanned}
}

func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reporter.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := auction.UserFilter{Search: q.Get("search"), Page: page, Limit: limit}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}

	users, total, err := h.engine.ListUsers(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, toUserView(&users[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":      views,
		"pagination": paginate(f.Page, f.Limit, total),
	})
}

// AdminListItems is the moderation view of the catalogue: same filters
// as the public listing, no status restriction by default.
func (h *Handlers) AdminListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := auction.ItemFilter{
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
		Page:     page,
		Limit:    limit,
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}

	items, total, err := h.engine.ListItems(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]itemView, 0, len(items))
	for i := range items {
		views = append(views, toItemView(&items[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":      views,
		"pagination": paginate(f.Page, f.Limit, total),
	})
}

func (h *Handlers) AdminToggleBan(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user, err := h.engine.ToggleUserBan(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.audit != nil {
		admin := UserFrom(r.Context())
		if err := h.audit.LogUserBan(r.Context(), admin.ID, userID, user.IsBanned); err != nil {
			h.logger.WithError(err).Warn("failed to write audit record")
		}
	}
	writeJSON(w, http.StatusOK, toUserView(user))
}

func (h *Handlers) AdminSetRole(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		Role domain.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := h.engine.SetUserRole(r.Context(), userID, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.audit != nil {
		admin := UserFrom(r.Context())
		if err := h.audit.LogRoleChange(r.Context(), admin.ID, userID, string(req.Role)); err != nil {
			h.logger.WithError(err).Warn("failed to write audit record")
		}
	}
	writeJSON(w, http.StatusOK, toUserView(user))
}

func (h *Handlers) AdminForceClose(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	item, err := h.engine.ForceClose(r.Context(), itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.audit != nil {
		admin := UserFrom(r.Context())
		if err := h.audit.LogForceClose(r.Context(), admin.ID, itemID); err != nil {
			h.logger.WithError(err).Warn("failed to write audit record")
		}
	}
	writeJSON(w, http.StatusOK, toItemView(item))
}

func (h *Handlers) AdminDeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.AdminDeleteItem(r.Context(), itemID); err != nil {
		writeError(w, err)
		return
	}
	if h.audit != nil {
		admin := UserFrom(r.Context())
		if err := h.audit.LogItemDeleted(r.Context(), admin.ID, itemID); err != nil {
			h.logger.WithError(err).Warn("failed to write audit record")
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

func (h *Handlers) AdminListBids(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := auction.BidFilter{Page: page, Limit: limit}
	if raw := q.Get("item_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid item_id", http.StatusBadRequest)
			return
		}
		f.ItemID = &id
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}

	bids, total, err := h.engine.ListAllBids(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":      toBidViews(bids),
		"pagination": paginate(f.Page, f.Limit, total),
	})
}

func (h *Handlers) AdminDeleteBid(w http.ResponseWriter, r *http.Request) {
	bidID, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.AdminDeleteBid(r.Context(), bidID); err != nil {
		writeError(w, err)
		return
	}
	if h.audit != nil {
		admin := UserFrom(r.Context())
		if err := h.audit.LogBidDeleted(r.Context(), admin.ID, bidID); err != nil {
			h.logger.WithError(err).Warn("failed to write audit record")
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "bid deleted"})
}
