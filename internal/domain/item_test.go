package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewItemValidation(t *testing.T) {
	seller := uuid.New()
	now := time.Now()

	cases := []struct {
		name     string
		title    string
		price    float64
		duration int
		wantErr  bool
	}{
		{"valid", "vintage lamp", 50, 24, false},
		{"min duration", "vintage lamp", 50, 1, false},
		{"max duration", "vintage lamp", 50, 720, false},
		{"empty title", "", 50, 24, true},
		{"zero price", "vintage lamp", 0, 24, true},
		{"negative price", "vintage lamp", -5, 24, true},
		{"duration too short", "vintage lamp", 50, 0, true},
		{"duration too long", "vintage lamp", 50, 721, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item, err := NewItem(seller, tc.title, "desc", "home", tc.price, tc.duration, now)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if item.CurrentBid != tc.price {
				t.Errorf("current bid = %v, want base price %v", item.CurrentBid, tc.price)
			}
			if item.Status != StatusActive {
				t.Errorf("status = %v, want active", item.Status)
			}
			want := now.Add(time.Duration(tc.duration) * time.Hour)
			if !item.EndTime.Equal(want) {
				t.Errorf("end time = %v, want %v", item.EndTime, want)
			}
		})
	}
}

func TestValidateBidAmount(t *testing.T) {
	item := &Item{BasePrice: 50, CurrentBid: 50}

	if err := item.ValidateBidAmount(-1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative amount: got %v, want ErrInvalidInput", err)
	}

	err := item.ValidateBidAmount(50)
	var tooLow *BidTooLowError
	if !errors.As(err, &tooLow) {
		t.Fatalf("equal amount: got %v, want BidTooLowError", err)
	}
	if tooLow.MinAmount != 51 {
		t.Errorf("min amount = %v, want 51", tooLow.MinAmount)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("BidTooLowError should unwrap to ErrInvalidInput")
	}

	if err := item.ValidateBidAmount(50.01); err != nil {
		t.Errorf("strictly greater amount rejected: %v", err)
	}
}

func TestResolveStatus(t *testing.T) {
	now := time.Now()
	bidder := uuid.New()

	t.Run("sold with highest bid", func(t *testing.T) {
		item := &Item{Status: StatusActive, CurrentBid: 55, EndTime: now.Add(-time.Minute)}
		highest := &Bid{BidderID: bidder, Amount: 60, CreatedAt: now.Add(-time.Hour)}
		if !item.ResolveStatus(highest, now) {
			t.Fatal("expected transition")
		}
		if item.Status != StatusSold {
			t.Errorf("status = %v, want sold", item.Status)
		}
		if item.WinnerID == nil || *item.WinnerID != bidder {
			t.Errorf("winner = %v, want %v", item.WinnerID, bidder)
		}
		if item.CurrentBid != 60 {
			t.Errorf("final price = %v, want 60", item.CurrentBid)
		}
	})

	t.Run("expired without bids", func(t *testing.T) {
		item := &Item{Status: StatusActive, EndTime: now.Add(-time.Minute)}
		if !item.ResolveStatus(nil, now) {
			t.Fatal("expected transition")
		}
		if item.Status != StatusExpired {
			t.Errorf("status = %v, want expired", item.Status)
		}
		if item.WinnerID != nil {
			t.Error("expired item must have no winner")
		}
	})

	t.Run("no-op before end time", func(t *testing.T) {
		item := &Item{Status: StatusActive, EndTime: now.Add(time.Hour)}
		if item.ResolveStatus(nil, now) {
			t.Error("active item before end time must not transition")
		}
	})

	t.Run("idempotent on terminal", func(t *testing.T) {
		winner := uuid.New()
		item := &Item{Status: StatusSold, WinnerID: &winner, CurrentBid: 60, EndTime: now.Add(-time.Minute)}
		other := &Bid{BidderID: uuid.New(), Amount: 99, CreatedAt: now}
		if item.ResolveStatus(other, now) {
			t.Error("terminal item must not transition again")
		}
		if *item.WinnerID != winner || item.CurrentBid != 60 {
			t.Error("terminal item mutated by repeated resolution")
		}
	})
}

func TestHighestBidTieBreak(t *testing.T) {
	early := time.Now()
	late := early.Add(time.Second)
	first := Bid{ID: uuid.New(), Amount: 100, CreatedAt: early}
	second := Bid{ID: uuid.New(), Amount: 100, CreatedAt: late}
	lower := Bid{ID: uuid.New(), Amount: 90, CreatedAt: early.Add(-time.Hour)}

	top := HighestBid([]Bid{second, lower, first})
	if top == nil || top.ID != first.ID {
		t.Fatalf("tie must go to earliest bid, got %+v", top)
	}

	if HighestBid(nil) != nil {
		t.Error("empty ledger must yield nil")
	}
}

func TestEditable(t *testing.T) {
	owner := uuid.New()
	now := time.Now()
	item := &Item{SellerID: owner, Status: StatusActive, EndTime: now.Add(time.Hour)}

	if err := item.Editable(owner, 0, now); err != nil {
		t.Errorf("owner with empty ledger: %v", err)
	}
	if err := item.Editable(uuid.New(), 0, now); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner: got %v, want ErrForbidden", err)
	}
	if err := item.Editable(owner, 2, now); !errors.Is(err, ErrInvalidState) {
		t.Errorf("with bids: got %v, want ErrInvalidState", err)
	}
	ended := &Item{SellerID: owner, Status: StatusActive, EndTime: now.Add(-time.Hour)}
	if err := ended.Editable(owner, 0, now); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ended: got %v, want ErrInvalidState", err)
	}
}
