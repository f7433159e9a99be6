package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/adapters/memory"
	"github.com/openbid/auction-marketplace/internal/auction"
	"github.com/openbid/auction-marketplace/internal/domain"
	httpapi "github.com/openbid/auction-marketplace/internal/http"
	"github.com/openbid/auction-marketplace/internal/idempotency"
	"github.com/openbid/auction-marketplace/internal/observability"
	"github.com/openbid/auction-marketplace/internal/reporting"
)

type apiFixture struct {
	store  *memory.Store
	engine *auction.Engine
	srv    *httptest.Server
	seller *domain.User
	buyer  *domain.User
	admin  *domain.User
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	logger := observability.NewLogger()
	engine := auction.NewEngine(store, logger)
	reporter := reporting.NewReporter(store, logger)
	idemp := idempotency.NewIdempotency(nil, time.Hour)

	handlers := httpapi.NewHandlers(engine, reporter, idemp, nil, nil, logger)
	router := httpapi.NewRouter(handlers, engine, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	f := &apiFixture{store: store, engine: engine, srv: srv}
	f.seller = f.addUser(t, domain.RoleSeller)
	f.buyer = f.addUser(t, domain.RoleBuyer)
	f.admin = f.addUser(t, domain.RoleAdmin)
	return f
}

func (f *apiFixture) addUser(t *testing.T, role domain.Role) *domain.User {
	t.Helper()
	user := &domain.User{ID: uuid.New(), Name: string(role), Email: uuid.NewString() + "@test.dev", Role: role, CreatedAt: time.Now()}
	if err := f.store.InsertUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	return user
}

func (f *apiFixture) listItem(t *testing.T, basePrice float64) *domain.Item {
	t.Helper()
	item, err := f.engine.CreateItem(context.Background(), f.seller.ID, auction.CreateItemRequest{
		Title:         "vintage lamp",
		Description:   "brass, working",
		Category:      "home",
		BasePrice:     basePrice,
		DurationHours: 24,
	})
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func (f *apiFixture) do(t *testing.T, method, path string, as *domain.User, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+as.ID.String())
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestListItemsEnvelope(t *testing.T) {
	f := newAPIFixture(t)
	for i := 0; i < 3; i++ {
		f.listItem(t, 50)
	}

	resp := f.do(t, http.MethodGet, "/v1/items?limit=2", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Items      []json.RawMessage `json:"items"`
		Pagination struct {
			Current int  `json:"current"`
			Total   int  `json:"total"`
			HasNext bool `json:"has_next"`
			HasPrev bool `json:"has_prev"`
		} `json:"pagination"`
	}
	decode(t, resp, &body)
	if len(body.Items) != 2 {
		t.Errorf("items = %d, want 2", len(body.Items))
	}
	if body.Pagination.Total != 2 || !body.Pagination.HasNext || body.Pagination.HasPrev {
		t.Errorf("pagination = %+v", body.Pagination)
	}
}

func TestPlaceBidEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	item := f.listItem(t, 50)
	path := fmt.Sprintf("/v1/items/%s/bids", item.ID)

	t.Run("unauthenticated", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, path, nil, map[string]float64{"amount": 60})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("wrong role", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, path, f.seller, map[string]float64{"amount": 60})
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("accepted", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, path, f.buyer, map[string]float64{"amount": 60})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want 201", resp.StatusCode)
		}
		var body struct {
			Bid struct {
				Amount float64 `json:"amount"`
			} `json:"bid"`
			Item struct {
				CurrentBid float64 `json:"current_bid"`
			} `json:"item"`
		}
		decode(t, resp, &body)
		if body.Bid.Amount != 60 || body.Item.CurrentBid != 60 {
			t.Errorf("body = %+v", body)
		}
	})

	t.Run("too low carries min_amount", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, path, f.buyer, map[string]float64{"amount": 55})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
		var body struct {
			MinAmount float64 `json:"min_amount"`
		}
		decode(t, resp, &body)
		if body.MinAmount != 61 {
			t.Errorf("min_amount = %v, want 61", body.MinAmount)
		}
	})

	t.Run("missing idempotency key", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, bytes.NewBufferString(`{"amount":70}`))
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+f.buyer.ID.String())
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unknown item", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, fmt.Sprintf("/v1/items/%s/bids", uuid.New()), f.buyer, map[string]float64{"amount": 60})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestBidOnClosedItemConflicts(t *testing.T) {
	f := newAPIFixture(t)
	item := f.listItem(t, 50)
	if _, err := f.engine.ForceClose(context.Background(), item.ID); err != nil {
		t.Fatal(err)
	}

	resp := f.do(t, http.MethodPost, fmt.Sprintf("/v1/items/%s/bids", item.ID), f.buyer, map[string]float64{"amount": 60})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestListItemBidsNewestFirst(t *testing.T) {
	f := newAPIFixture(t)
	item := f.listItem(t, 50)
	ctx := context.Background()

	for _, amount := range []float64{60, 70} {
		if _, _, err := f.engine.PlaceBid(ctx, item.ID, f.buyer.ID, amount); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	resp := f.do(t, http.MethodGet, fmt.Sprintf("/v1/items/%s/bids", item.ID), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var bids []struct {
		Amount float64 `json:"amount"`
	}
	decode(t, resp, &bids)
	if len(bids) != 2 || bids[0].Amount != 70 {
		t.Errorf("bids = %+v, want newest first", bids)
	}
}

func TestSellerRoutes(t *testing.T) {
	f := newAPIFixture(t)
	item := f.listItem(t, 50)

	t.Run("edit own item", func(t *testing.T) {
		resp := f.do(t, http.MethodPut, "/v1/seller/items/"+item.ID.String(), f.seller, map[string]string{"title": "better lamp"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var body struct {
			Title string `json:"title"`
		}
		decode(t, resp, &body)
		if body.Title != "better lamp" {
			t.Errorf("title = %q", body.Title)
		}
	})

	t.Run("buyer cannot reach seller routes", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/v1/seller/items", f.buyer, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("edit after bid conflicts", func(t *testing.T) {
		if _, _, err := f.engine.PlaceBid(context.Background(), item.ID, f.buyer.ID, 60); err != nil {
			t.Fatal(err)
		}
		resp := f.do(t, http.MethodPut, "/v1/seller/items/"+item.ID.String(), f.seller, map[string]string{"title": "x"})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})
}

func TestAdminRoutes(t *testing.T) {
	f := newAPIFixture(t)
	f.listItem(t, 50)

	t.Run("stats", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/v1/admin/stats", f.admin, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var stats reporting.DashboardStats
		decode(t, resp, &stats)
		if stats.TotalUsers != 3 || stats.TotalItems != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/v1/admin/stats", f.buyer, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("ban toggles", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/users/%s/ban", f.buyer.ID), f.admin, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var body struct {
			IsBanned bool `json:"is_banned"`
		}
		decode(t, resp, &body)
		if !body.IsBanned {
			t.Error("expected banned")
		}
	})

	t.Run("role change", func(t *testing.T) {
		user := f.addUser(t, domain.RoleBuyer)
		resp := f.do(t, http.MethodPut, fmt.Sprintf("/v1/admin/users/%s/role", user.ID), f.admin, map[string]string{"role": "Seller"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var body struct {
			Role string `json:"role"`
		}
		decode(t, resp, &body)
		if body.Role != "Seller" {
			t.Errorf("role = %q", body.Role)
		}
	})
}

func TestRegisterUser(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/v1/users", nil, map[string]string{
		"name":  "alex",
		"email": "alex@test.dev",
		"role":  "Buyer",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, resp, &body)
	if body.ID == uuid.Nil {
		t.Error("missing id")
	}

	bad := f.do(t, http.MethodPost, "/v1/users", nil, map[string]string{"name": "x", "email": "y@z", "role": "Owner"})
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid role: status = %d, want 400", bad.StatusCode)
	}
}
