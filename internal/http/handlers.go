package http

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/auction"
	"github.com/openbid/auction-marketplace/internal/domain"
	"github.com/openbid/auction-marketplace/internal/idempotency"
	"github.com/openbid/auction-marketplace/internal/observability"
	"github.com/openbid/auction-marketplace/internal/reporting"
)

// MediaStore is the item image collaborator (Mongo in production).
type MediaStore interface {
	AddImages(ctx context.Context, itemID uuid.UUID, urls []string) ([]string, error)
	GetImages(ctx context.Context, itemID uuid.UUID) ([]string, error)
}

// AuditLog records moderation actions.
type AuditLog interface {
	LogUserBan(ctx context.Context, adminID, userID uuid.UUID, banned bool) error
	LogRoleChange(ctx context.Context, adminID, userID uuid.UUID, role string) error
	LogItemDeleted(ctx context.Context, adminID, itemID uuid.UUID) error
	LogBidDeleted(ctx context.Context, adminID, bidID uuid.UUID) error
	LogForceClose(ctx context.Context, adminID, itemID uuid.UUID) error
}

type Handlers struct {
	engine   *auction.Engine
	reporter *reporting.Reporter
	idemp    *idempotency.Idempotency
	media    MediaStore
	audit    AuditLog
	logger   observability.Logger
}

func NewHandlers(engine *auction.Engine, reporter *reporting.Reporter, idemp *idempotency.Idempotency, media MediaStore, audit AuditLog, logger observability.Logger) *Handlers {
	return &Handlers{
		engine:   engine,
		reporter: reporter,
		idemp:    idemp,
		media:    media,
		audit:    audit,
		logger:   logger,
	}
}

type itemView struct {
	ID            uuid.UUID  `json:"id"`
	SellerID      uuid.UUID  `json:"seller_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	BasePrice     float64    `json:"base_price"`
	CurrentBid    float64    `json:"current_bid"`
	DurationHours int        `json:"duration_hours"`
	EndTime       time.Time  `json:"end_time"`
	Status        string     `json:"status"`
	WinnerID      *uuid.UUID `json:"winner_id,omitempty"`
	Images        []string   `json:"images,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type bidView struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type pagination struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

func toItemView(item *domain.Item) itemView {
	return itemView{
		ID:            item.ID,
		SellerID:      item.SellerID,
		Title:         item.Title,
		Description:   item.Description,
		Category:      item.Category,
		BasePrice:     item.BasePrice,
		CurrentBid:    item.CurrentBid,
		DurationHours: item.DurationHours,
		EndTime:       item.EndTime,
		Status:        string(item.Status),
		WinnerID:      item.WinnerID,
		CreatedAt:     item.CreatedAt,
	}
}

func toBidViews(bids []domain.Bid) []bidView {
	out := make([]bidView, 0, len(bids))
	for _, b := range bids {
		out = append(out, bidView{ID: b.ID, ItemID: b.ItemID, BidderID: b.BidderID, Amount: b.Amount, CreatedAt: b.CreatedAt})
	}
	return out
}

func paginate(page, limit, total int) pagination {
	pages := int(math.Ceil(float64(total) / float64(limit)))
	return pagination{
		Current: page,
		Total:   pages,
		HasNext: page*limit < total,
		HasPrev: page > 1,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

// writeError maps domain error kinds onto HTTP statuses. Bid
// rejections carry min_amount so the client can retry with a price
// that will clear.
func writeError(w http.ResponseWriter, err error) {
	var tooLow *domain.BidTooLowError
	if errors.As(err, &tooLow) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"message":    tooLow.Error(),
			"min_amount": tooLow.MinAmount,
		})
		return
	}
	var conflict *domain.BidConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"message":    conflict.Error(),
			"min_amount": conflict.MinAmount,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "server error"
	}
	writeJSON(w, status, map[string]interface{}{"message": msg})
}

func parseID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// CreateUser registers a marketplace identity. Credentials are the
// auth collaborator's business.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string      `json:"name"`
		Email string      `json:"email"`
		Role  domain.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := h.engine.RegisterUser(r.Context(), req.Name, req.Email, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	})
}

func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
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
		f.Limit = 12
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

func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	item, err := h.engine.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	view := toItemView(item)
	if h.media != nil {
		if images, err := h.media.GetImages(r.Context(), id); err == nil {
			view.Images = images
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) ListItemBids(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	bids, err := h.engine.ListBids(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBidViews(bids))
}

// PlaceBid is the hot path: one bid attempt, atomically accepted or
// rejected with an actionable minimum.
func (h *Handlers) PlaceBid(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if existing, err := h.idemp.Get(r.Context(), key); err == nil && existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	itemID, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user := UserFrom(r.Context())

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bid, item, err := h.engine.PlaceBid(r.Context(), itemID, user.ID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, map[string]interface{}{
		"bid":  bidView{ID: bid.ID, ItemID: bid.ItemID, BidderID: bid.BidderID, Amount: bid.Amount, CreatedAt: bid.CreatedAt},
		"item": toItemView(item),
	})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if existing, err := h.idemp.Get(r.Context(), key); err == nil && existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	user := UserFrom(r.Context())
	var req struct {
		Title         string  `json:"title"`
		Description   string  `json:"description"`
		Category      string  `json:"category"`
		BasePrice     float64 `json:"base_price"`
		DurationHours int     `json:"duration_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.engine.CreateItem(r.Context(), user.ID, auction.CreateItemRequest{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		BasePrice:     req.BasePrice,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, toItemView(item))
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) MyItems(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	items, err := h.engine.SellerItems(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]itemView, 0, len(items))
	for i := range items {
		views = append(views, toItemView(&items[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) EditItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user := UserFrom(r.Context())

	var req struct {
		Title         *string  `json:"title"`
		Description   *string  `json:"description"`
		Category      *string  `json:"category"`
		BasePrice     *float64 `json:"base_price"`
		DurationHours *int     `json:"duration_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.engine.EditItem(r.Context(), user.ID, itemID, auction.EditItemRequest{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		BasePrice:     req.BasePrice,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemView(item))
}

func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user := UserFrom(r.Context())
	if err := h.engine.DeleteItem(r.Context(), user.ID, itemID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

func (h *Handlers) SellerBidHistory(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user := UserFrom(r.Context())
	bids, err := h.engine.SellerBidHistory(r.Context(), user.ID, itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBidViews(bids))
}

// UploadImages attaches image URLs to a listing. Only URL metadata is
// stored; blob hosting is external.
func (h *Handlers) UploadImages(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseID(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user := UserFrom(r.Context())
	item, err := h.engine.GetItem(r.Context(), itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	if item.SellerID != user.ID {
		writeError(w, domain.ErrForbidden)
		return
	}

	var req struct {
		Images []string `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Images) == 0 {
		http.Error(w, "no images provided", http.StatusBadRequest)
		return
	}
	if h.media == nil {
		http.Error(w, "media storage unavailable", http.StatusServiceUnavailable)
		return
	}
	images, err := h.media.AddImages(r.Context(), itemID, req.Images)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"images": images})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
