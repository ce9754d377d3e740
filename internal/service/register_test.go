package service_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/riverhall/attendance/internal/memory"
	"github.com/riverhall/attendance/internal/model"
	"github.com/riverhall/attendance/internal/service"
)

func TestRegisterFreeRSVPConfirmsImmediately(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	event := f.createEvent(t, nil)

	record := f.register(t, event.ID, "alice")
	if record.Kind != model.KindRSVP {
		t.Fatalf("kind = %s, want rsvp", record.Kind)
	}
	if record.Status != model.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", record.Status)
	}
	if record.ConfirmationCode == "" {
		t.Fatal("no confirmation code assigned")
	}
	if f.gateway.charges != 0 {
		t.Fatalf("free RSVP triggered %d gateway charges", f.gateway.charges)
	}
	if got := f.capacity(t, event.ID); got.Current != 1 {
		t.Fatalf("current = %d, want 1", got.Current)
	}
}

func TestRegisterPaidTicketChargesAndConfirms(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	event := f.createFixedPriceEvent(t, 2500)

	record := f.registerPaid(t, event.ID, "alice", 2500)
	if record.Kind != model.KindTicket {
		t.Fatalf("kind = %s, want ticket", record.Kind)
	}
	if record.Status != model.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", record.Status)
	}
	if f.gateway.charges != 1 {
		t.Fatalf("charges = %d, want 1", f.gateway.charges)
	}

	payment, err := f.store.GetPaymentByTicket(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != model.PaymentCompleted {
		t.Fatalf("payment status = %s, want completed", payment.Status)
	}
	if payment.Amount != 2500 {
		t.Fatalf("payment amount = %d, want 2500", payment.Amount)
	}
}

func TestRegisterPaymentFailureRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.gateway.failCharge = true
	event := f.createFixedPriceEvent(t, 2500)

	_, err := f.svc.RegisterForEvent(context.Background(), event.ID, model.RegisterRequest{
		UserID:           "alice",
		AmountOffered:    2500,
		PaymentMethodRef: "pm_alice",
	})
	if !errors.Is(err, service.ErrPaymentFailed) {
		t.Fatalf("error = %v, want ErrPaymentFailed", err)
	}

	// The seat is back and the record terminal.
	if got := f.capacity(t, event.ID); got.Current != 0 {
		t.Fatalf("current = %d after rollback, want 0", got.Current)
	}
	records, err := f.store.ListByEvent(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 || records[0].Status != model.StatusCancelled {
		t.Fatalf("records after rollback: %+v", records)
	}

	// The same user can register again once the gateway recovers.
	f.gateway.mu.Lock()
	f.gateway.failCharge = false
	f.gateway.mu.Unlock()
	f.registerPaid(t, event.ID, "alice", 2500)
}

func TestChargeKeysDistinctPerTicket(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	event := f.createFixedPriceEvent(t, 2500)
	f.registerPaid(t, event.ID, "alice", 2500)
	f.registerPaid(t, event.ID, "bob", 2500)

	if len(f.gateway.chargeKeys) != 2 {
		t.Fatalf("chargeKeys = %v", f.gateway.chargeKeys)
	}
	if f.gateway.chargeKeys[0] == f.gateway.chargeKeys[1] {
		t.Fatal("different tickets produced the same idempotency key")
	}
}

func TestRegisterDuplicateAttendanceRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	event := f.createEvent(t, nil)
	f.register(t, event.ID, "alice")

	_, err := f.svc.RegisterForEvent(context.Background(), event.ID, model.RegisterRequest{UserID: "alice"})
	if !errors.Is(err, service.ErrDuplicateAttendance) {
		t.Fatalf("error = %v, want ErrDuplicateAttendance", err)
	}
	if got := f.capacity(t, event.ID); got.Current != 1 {
		t.Fatalf("current = %d after duplicate, want 1", got.Current)
	}
}

func TestRegisterUnpublishedEventRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	event := f.createEvent(t, func(req *model.CreateEventRequest) { req.Published = false })

	_, err := f.svc.RegisterForEvent(context.Background(), event.ID, model.RegisterRequest{UserID: "alice"})
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestRegisterNoOversellUnderConcurrency(t *testing.T) {
	t.Parallel()

	const capacity = 5
	const contenders = 40

	f := newFixture(t)
	event := f.createEvent(t, func(req *model.CreateEventRequest) { req.Capacity = capacity })

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.RegisterForEvent(context.Background(), event.ID, model.RegisterRequest{
				UserID: userN(i),
			})
		}(i)
	}
	wg.Wait()

	var won, full int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, service.ErrCapacityExceeded):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != capacity {
		t.Fatalf("%d registrations succeeded for capacity %d", won, capacity)
	}
	if full != contenders-capacity {
		t.Fatalf("%d rejections, want %d", full, contenders-capacity)
	}
	if got := f.capacity(t, event.ID); got.Current != capacity || got.Available != 0 {
		t.Fatalf("capacity after race: %+v", got)
	}
}

func TestCapacityScenarioCancelFreesExactlyOneSeat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	event := f.createEvent(t, func(req *model.CreateEventRequest) { req.Capacity = 2 })

	first := f.register(t, event.ID, "alice")
	f.register(t, event.ID, "bob")

	if _, err := f.svc.RegisterForEvent(context.Background(), event.ID, model.RegisterRequest{UserID: "carol"}); !errors.Is(err, service.ErrCapacityExceeded) {
		t.Fatalf("third registration: error = %v, want ErrCapacityExceeded", err)
	}

	if _, err := f.svc.CancelAttendance(context.Background(), first.ID, model.CancelRequest{ActingUserID: "alice"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := f.capacity(t, event.ID); got.Current != 1 {
		t.Fatalf("current = %d after cancel, want 1", got.Current)
	}

	// Exactly one more seat: carol gets it, dave does not.
	f.register(t, event.ID, "carol")
	if _, err := f.svc.RegisterForEvent(context.Background(), event.ID, model.RegisterRequest{UserID: "dave"}); !errors.Is(err, service.ErrCapacityExceeded) {
		t.Fatalf("fourth registration: error = %v, want ErrCapacityExceeded", err)
	}
}

func TestCapacityRaiseAdmitsImmediately(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	event := f.createEvent(t, func(req *model.CreateEventRequest) { req.Capacity = 1 })
	f.register(t, event.ID, "alice")

	if _, err := f.svc.RegisterForEvent(context.Background(), event.ID, model.RegisterRequest{UserID: "bob"}); !errors.Is(err, service.ErrCapacityExceeded) {
		t.Fatalf("error = %v, want ErrCapacityExceeded", err)
	}

	// Organizer raises capacity; no resync step is needed.
	if err := f.store.SetCapacity(context.Background(), event.ID, 2); err != nil {
		t.Fatalf("raise capacity: %v", err)
	}
	f.register(t, event.ID, "bob")
}

func userN(i int) string {
	return "user" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

// blockingGateway parks every charge until released so a test can act
// while the payment is in flight.
type blockingGateway struct {
	inner   *fakeGateway
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGateway) Charge(ctx context.Context, amount int64, currency, methodRef, idempotencyKey string) (service.ChargeResult, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.inner.Charge(ctx, amount, currency, methodRef, idempotencyKey)
}

func (g *blockingGateway) Refund(ctx context.Context, transactionID string, amount int64) (service.RefundResult, error) {
	return g.inner.Refund(ctx, transactionID, amount)
}

func TestCancelDuringChargeRefundsCapture(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	bg := &blockingGateway{inner: f.gateway, entered: make(chan struct{}), release: make(chan struct{})}
	svc := service.New(f.store, f.store, f.store, f.store, f.store,
		bg, f.notifier, f.clock, slog.Default())
	event := f.createFixedPriceEvent(t, 2500)

	done := make(chan error, 1)
	go func() {
		_, err := svc.RegisterForEvent(context.Background(), event.ID, model.RegisterRequest{
			UserID:           "alice",
			AmountOffered:    2500,
			PaymentMethodRef: "pm_alice",
		})
		done <- err
	}()

	<-bg.entered
	records, err := f.store.ListByEvent(context.Background(), event.ID)
	if err != nil || len(records) != 1 {
		t.Fatalf("records mid-charge = %v, %v", records, err)
	}
	if _, err := f.svc.CancelAttendance(context.Background(), records[0].ID, model.CancelRequest{
		ActingUserID:  "organizer",
		AdminOverride: true,
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	close(bg.release)

	if err := <-done; !errors.Is(err, service.ErrInvalidStateTransition) {
		t.Fatalf("register error = %v, want ErrInvalidStateTransition", err)
	}

	// The cancellation saw a pending payment and skipped the refund, so
	// the registration side must hand the captured money back.
	payment, err := f.store.GetPaymentByTicket(context.Background(), records[0].ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != model.PaymentRefunded || payment.RefundAmount != 2500 {
		t.Fatalf("payment = %+v, want fully refunded", payment)
	}
	if payment.RefundOutstanding {
		t.Fatalf("payment flagged outstanding after successful refund")
	}
	if got := f.capacity(t, event.ID); got.Current != 0 {
		t.Fatalf("current = %d after mid-charge cancel, want 0", got.Current)
	}
}

func TestCancelDuringChargeRefundFailureFlagsOutstanding(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	bg := &blockingGateway{inner: f.gateway, entered: make(chan struct{}), release: make(chan struct{})}
	svc := service.New(f.store, f.store, f.store, f.store, f.store,
		bg, f.notifier, f.clock, slog.Default())
	event := f.createFixedPriceEvent(t, 2500)

	done := make(chan error, 1)
	go func() {
		_, err := svc.RegisterForEvent(context.Background(), event.ID, model.RegisterRequest{
			UserID:           "alice",
			AmountOffered:    2500,
			PaymentMethodRef: "pm_alice",
		})
		done <- err
	}()

	<-bg.entered
	records, err := f.store.ListByEvent(context.Background(), event.ID)
	if err != nil || len(records) != 1 {
		t.Fatalf("records mid-charge = %v, %v", records, err)
	}
	if _, err := f.svc.CancelAttendance(context.Background(), records[0].ID, model.CancelRequest{
		ActingUserID:  "organizer",
		AdminOverride: true,
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.gateway.failRefund = true
	close(bg.release)

	if err := <-done; !errors.Is(err, service.ErrInvalidStateTransition) {
		t.Fatalf("register error = %v, want ErrInvalidStateTransition", err)
	}

	payment, err := f.store.GetPaymentByTicket(context.Background(), records[0].ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != model.PaymentCompleted || !payment.RefundOutstanding {
		t.Fatalf("payment = %+v, want completed with refund outstanding", payment)
	}
}

// confirmFailStore simulates a store outage at the confirmation step.
type confirmFailStore struct {
	*memory.Store
}

func (s *confirmFailStore) ConfirmRecord(context.Context, string, time.Time) error {
	return fmt.Errorf("store unavailable")
}

func TestRegisterFreeRSVPConfirmFailureReleasesSeat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := service.New(f.store, &confirmFailStore{f.store}, f.store, f.store, f.store,
		f.gateway, f.notifier, f.clock, slog.Default())
	event := f.createEvent(t, nil)

	if _, err := svc.RegisterForEvent(context.Background(), event.ID, model.RegisterRequest{UserID: "alice"}); err == nil {
		t.Fatal("register succeeded despite confirmation failure")
	}

	if got := f.capacity(t, event.ID); got.Current != 0 {
		t.Fatalf("current = %d after failed confirmation, want 0", got.Current)
	}
	records, err := f.store.ListByEvent(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 || records[0].Status != model.StatusCancelled {
		t.Fatalf("records = %+v, want one cancelled record", records)
	}
}
