package service

import (
	"errors"
	"testing"
	"time"

	"github.com/riverhall/attendance/internal/model"
)

func slidingEvent() *model.Event {
	return &model.Event{
		ID:               "ev1",
		PricingMode:      model.PricingSlidingScale,
		Currency:         "USD",
		SlidingMin:       2000,
		SlidingSuggested: 3500,
		SlidingMax:       6000,
	}
}

func TestResolvePriceSlidingScaleBounds(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		amount int64
		ok     bool
	}{
		{1500, false},
		{2000, true},
		{3500, true},
		{6000, true},
		{6100, false},
	}
	for _, tt := range tests {
		price, err := resolvePrice(slidingEvent(), model.RegisterRequest{
			UserID: "u1", AmountOffered: tt.amount,
		}, now)
		if tt.ok {
			if err != nil {
				t.Errorf("amount %d: unexpected error %v", tt.amount, err)
				continue
			}
			if price.Amount != tt.amount {
				t.Errorf("amount %d: resolved %d", tt.amount, price.Amount)
			}
			if price.Kind != model.KindTicket {
				t.Errorf("amount %d: kind = %s, want ticket", tt.amount, price.Kind)
			}
		} else if !errors.Is(err, ErrValidation) {
			t.Errorf("amount %d: error = %v, want ErrValidation", tt.amount, err)
		}
	}
}

func TestResolvePriceFixed(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	couples := int64(4500)
	event := &model.Event{
		ID:              "ev1",
		PricingMode:     model.PricingFixed,
		Currency:        "USD",
		PriceIndividual: 2500,
		PriceCouples:    &couples,
	}

	price, err := resolvePrice(event, model.RegisterRequest{UserID: "u1", AmountOffered: 2500}, now)
	if err != nil {
		t.Fatalf("exact individual price rejected: %v", err)
	}
	if price.Amount != 2500 || price.TicketType != model.TicketIndividual {
		t.Fatalf("resolved %+v", price)
	}

	if _, err := resolvePrice(event, model.RegisterRequest{UserID: "u1", AmountOffered: 2400}, now); !errors.Is(err, ErrValidation) {
		t.Fatalf("mismatched price: error = %v, want ErrValidation", err)
	}

	price, err = resolvePrice(event, model.RegisterRequest{
		UserID: "u1", TicketType: model.TicketCouples, AmountOffered: 4500,
	}, now)
	if err != nil {
		t.Fatalf("couples price rejected: %v", err)
	}
	if price.Amount != 4500 {
		t.Fatalf("couples resolved %d", price.Amount)
	}
}

func TestResolvePriceCouplesNotOffered(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	event := &model.Event{
		ID:              "ev1",
		PricingMode:     model.PricingFixed,
		Currency:        "USD",
		PriceIndividual: 2500,
	}
	_, err := resolvePrice(event, model.RegisterRequest{
		UserID: "u1", TicketType: model.TicketCouples, AmountOffered: 5000,
	}, now)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestResolvePriceFree(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	event := &model.Event{ID: "ev1", PricingMode: model.PricingFree}

	price, err := resolvePrice(event, model.RegisterRequest{UserID: "u1"}, now)
	if err != nil {
		t.Fatalf("free event rejected: %v", err)
	}
	if price.Kind != model.KindRSVP || price.Amount != 0 {
		t.Fatalf("resolved %+v, want zero-amount RSVP", price)
	}
}

func TestResolvePriceRegistrationWindow(t *testing.T) {
	t.Parallel()

	opens := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	closes := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	event := &model.Event{
		ID:                   "ev1",
		PricingMode:          model.PricingFree,
		RegistrationOpensAt:  &opens,
		RegistrationClosesAt: &closes,
	}

	if _, err := resolvePrice(event, model.RegisterRequest{UserID: "u1"}, opens.Add(-time.Hour)); !errors.Is(err, ErrRegistrationNotYetOpen) {
		t.Fatalf("before open: error = %v, want ErrRegistrationNotYetOpen", err)
	}
	if _, err := resolvePrice(event, model.RegisterRequest{UserID: "u1"}, closes.Add(time.Hour)); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("after close: error = %v, want ErrRegistrationClosed", err)
	}
	if _, err := resolvePrice(event, model.RegisterRequest{UserID: "u1"}, opens.Add(time.Hour)); err != nil {
		t.Fatalf("inside window: %v", err)
	}

	// Absent bounds mean unbounded on that side.
	unbounded := &model.Event{ID: "ev2", PricingMode: model.PricingFree}
	if _, err := resolvePrice(unbounded, model.RegisterRequest{UserID: "u1"}, opens.Add(-24*365*time.Hour)); err != nil {
		t.Fatalf("unbounded window: %v", err)
	}
}
