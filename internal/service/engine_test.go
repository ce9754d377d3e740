package service_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/riverhall/attendance/internal/memory"
	"github.com/riverhall/attendance/internal/model"
	"github.com/riverhall/attendance/internal/service"
)

// fakeClock is a settable clock for window and cutoff rules.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type refundCall struct {
	transactionID string
	amount        int64
}

// fakeGateway records calls and fails on demand.
type fakeGateway struct {
	mu          sync.Mutex
	failCharge  bool
	failRefund  bool
	charges     int
	chargeKeys  []string
	refundCalls []refundCall
}

func (g *fakeGateway) Charge(_ context.Context, _ int64, _, _, idempotencyKey string) (service.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges++
	g.chargeKeys = append(g.chargeKeys, idempotencyKey)
	if g.failCharge {
		return service.ChargeResult{}, fmt.Errorf("gateway unavailable")
	}
	return service.ChargeResult{
		TransactionID: fmt.Sprintf("txn-%d", g.charges),
		Succeeded:     true,
	}, nil
}

func (g *fakeGateway) Refund(_ context.Context, transactionID string, amount int64) (service.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls = append(g.refundCalls, refundCall{transactionID, amount})
	if g.failRefund {
		return service.RefundResult{}, fmt.Errorf("gateway unavailable")
	}
	return service.RefundResult{
		RefundTransactionID: fmt.Sprintf("ref-%d", len(g.refundCalls)),
		Succeeded:           true,
	}, nil
}

// fakeNotifier counts deliveries per kind.
type fakeNotifier struct {
	mu   sync.Mutex
	sent map[service.NotificationKind]int
}

func (n *fakeNotifier) Notify(_ context.Context, _ string, kind service.NotificationKind, _ map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[service.NotificationKind]int)
	}
	n.sent[kind]++
}

// fixture wires a Service over the in-memory store.
type fixture struct {
	store    *memory.Store
	gateway  *fakeGateway
	notifier *fakeNotifier
	clock    *fakeClock
	svc      *service.Service
}

// eventStart is one month after the fixture clock's initial time, so
// registration is open and the refund cutoff is far away by default.
var (
	fixtureNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	eventStart = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:    store,
		gateway:  &fakeGateway{},
		notifier: &fakeNotifier{},
		clock:    &fakeClock{now: fixtureNow},
	}
	f.svc = service.New(store, store, store, store, store,
		f.gateway, f.notifier, f.clock, slog.Default())
	return f
}

func (f *fixture) createEvent(t *testing.T, mutate func(*model.CreateEventRequest)) *model.Event {
	t.Helper()
	req := model.CreateEventRequest{
		Name:              "Community Potluck",
		StartAt:           eventStart,
		EndAt:             eventStart.Add(4 * time.Hour),
		Capacity:          10,
		RefundCutoffHours: 48,
		PricingMode:       model.PricingFree,
		Published:         true,
	}
	if mutate != nil {
		mutate(&req)
	}
	event, err := f.svc.CreateEvent(context.Background(), req)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func (f *fixture) createFixedPriceEvent(t *testing.T, price int64) *model.Event {
	t.Helper()
	return f.createEvent(t, func(req *model.CreateEventRequest) {
		req.Name = "Spring Gala"
		req.PricingMode = model.PricingFixed
		req.Currency = "USD"
		req.PriceIndividual = price
	})
}

func (f *fixture) register(t *testing.T, eventID, userID string) *model.AttendanceRecord {
	t.Helper()
	record, err := f.svc.RegisterForEvent(context.Background(), eventID, model.RegisterRequest{
		UserID: userID,
	})
	if err != nil {
		t.Fatalf("register %s: %v", userID, err)
	}
	return record
}

func (f *fixture) registerPaid(t *testing.T, eventID, userID string, amount int64) *model.AttendanceRecord {
	t.Helper()
	record, err := f.svc.RegisterForEvent(context.Background(), eventID, model.RegisterRequest{
		UserID:           userID,
		AmountOffered:    amount,
		PaymentMethodRef: "pm_" + userID,
	})
	if err != nil {
		t.Fatalf("register %s: %v", userID, err)
	}
	return record
}

func (f *fixture) capacity(t *testing.T, eventID string) model.CapacityInfo {
	t.Helper()
	info, err := f.svc.GetCapacity(context.Background(), eventID)
	if err != nil {
		t.Fatalf("get capacity: %v", err)
	}
	return info
}
