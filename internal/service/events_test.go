package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverhall/attendance/internal/model"
	"github.com/riverhall/attendance/internal/service"
)

func TestCreateEventValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	couplesZero := int64(0)
	opens := eventStart.Add(-30 * 24 * time.Hour)
	closesAfterStart := eventStart.Add(time.Hour)

	base := func() model.CreateEventRequest {
		return model.CreateEventRequest{
			Name:        "Workshop",
			StartAt:     eventStart,
			Capacity:    20,
			PricingMode: model.PricingFree,
		}
	}

	tests := []struct {
		name   string
		mutate func(*model.CreateEventRequest)
	}{
		{"empty name", func(r *model.CreateEventRequest) { r.Name = "  " }},
		{"zero capacity", func(r *model.CreateEventRequest) { r.Capacity = 0 }},
		{"negative cutoff", func(r *model.CreateEventRequest) { r.RefundCutoffHours = -1 }},
		{"window closes after start", func(r *model.CreateEventRequest) {
			r.RegistrationOpensAt = &opens
			r.RegistrationClosesAt = &closesAfterStart
		}},
		{"fixed without price", func(r *model.CreateEventRequest) {
			r.PricingMode = model.PricingFixed
			r.Currency = "USD"
		}},
		{"fixed without currency", func(r *model.CreateEventRequest) {
			r.PricingMode = model.PricingFixed
			r.PriceIndividual = 2500
		}},
		{"zero couples price", func(r *model.CreateEventRequest) {
			r.PricingMode = model.PricingFixed
			r.Currency = "USD"
			r.PriceIndividual = 2500
			r.PriceCouples = &couplesZero
		}},
		{"sliding min above suggested", func(r *model.CreateEventRequest) {
			r.PricingMode = model.PricingSlidingScale
			r.Currency = "USD"
			r.SlidingMin = 4000
			r.SlidingSuggested = 3500
			r.SlidingMax = 6000
		}},
		{"sliding non-positive", func(r *model.CreateEventRequest) {
			r.PricingMode = model.PricingSlidingScale
			r.Currency = "USD"
			r.SlidingMin = 0
			r.SlidingSuggested = 3500
			r.SlidingMax = 6000
		}},
		{"sub-quota without quota", func(r *model.CreateEventRequest) {
			r.VolunteerPolicy = model.VolunteerSubQuota
		}},
	}
	for _, tt := range tests {
		req := base()
		tt.mutate(&req)
		if _, err := f.svc.CreateEvent(context.Background(), req); !errors.Is(err, service.ErrValidation) {
			t.Errorf("%s: error = %v, want ErrValidation", tt.name, err)
		}
	}
}

func TestCreateEventDefaultsVolunteerPolicy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	event := f.createEvent(t, nil)
	if event.VolunteerPolicy != model.VolunteerExempt {
		t.Fatalf("policy = %s, want exempt by default", event.VolunteerPolicy)
	}
}

func TestListAttendanceUnknownEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.svc.ListAttendance(context.Background(), "no-such-event")
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
