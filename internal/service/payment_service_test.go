package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
)

// memPaymentRepo is an in-memory PaymentRepository.
type memPaymentRepo struct {
	payments map[string]*domain.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: map[string]*domain.Payment{}}
}

func (r *memPaymentRepo) Create(_ context.Context, p *domain.Payment) error {
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "payment", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (r *memPaymentRepo) Update(_ context.Context, p *domain.Payment) error {
	if _, ok := r.payments[p.ID]; !ok {
		return &domain.NotFoundError{Entity: "payment", ID: p.ID}
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) matches(p *domain.Payment, propertyID string, filter domain.PaymentFilter) bool {
	if p.PropertyID != propertyID {
		return false
	}
	if filter.Status != "" && p.Status != filter.Status {
		return false
	}
	if !filter.From.IsZero() && p.DueDate.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && p.DueDate.After(filter.To) {
		return false
	}
	return true
}

func (r *memPaymentRepo) ListByProperty(_ context.Context, propertyID string, filter domain.PaymentFilter) ([]*domain.Payment, error) {
	var out []*domain.Payment
	for _, p := range r.payments {
		if r.matches(p, propertyID, filter) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) SumByStatus(_ context.Context, propertyID string, filter domain.PaymentFilter) (domain.PaymentTotals, error) {
	filter.Status = ""
	var totals domain.PaymentTotals
	for _, p := range r.payments {
		if !r.matches(p, propertyID, filter) {
			continue
		}
		switch p.Status {
		case domain.PaymentPaid:
			totals.TotalPaid += p.Amount
		case domain.PaymentPending:
			totals.TotalPending += p.Amount
		case domain.PaymentOverdue:
			totals.TotalOverdue += p.Amount
		}
	}
	return totals, nil
}

func (r *memPaymentRepo) ListDuePending(_ context.Context, before time.Time) ([]*domain.Payment, error) {
	var out []*domain.Payment
	for _, p := range r.payments {
		if p.Status == domain.PaymentPending && p.DueDate.Before(before) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func seedPayments(t *testing.T) (*PaymentService, *memPaymentRepo, *memTenantRepo) {
	t.Helper()
	payments := newMemPaymentRepo()
	tenants := newMemTenantRepo()
	rooms := newMemRoomRepo()

	rooms.rooms["r1"] = &domain.Room{ID: "r1", PropertyID: "p1", Name: "A-101", Status: domain.RoomOccupied, TenantID: "t1"}
	tenants.tenants["t1"] = &domain.Tenant{ID: "t1", PropertyID: "p1", Name: "Alice", RoomID: "r1", Status: domain.TenantActive, PaymentStatus: domain.TenantPending}
	tenants.tenants["t2"] = &domain.Tenant{ID: "t2", PropertyID: "p1", Name: "Bob", Status: domain.TenantActive, PaymentStatus: domain.TenantPaid}

	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	payments.payments["pay1"] = &domain.Payment{ID: "pay1", PropertyID: "p1", TenantID: "t1", RoomID: "r1", Amount: 100, DueDate: due, Status: domain.PaymentPending}
	payments.payments["pay2"] = &domain.Payment{ID: "pay2", PropertyID: "p1", TenantID: "t2", Amount: 200, DueDate: due.AddDate(0, 0, 5), Status: domain.PaymentOverdue}

	svc := NewPaymentService(payments, tenants, rooms, nil, time.Second, nil)
	return svc, payments, tenants
}

func TestRecordPaymentSettlesPending(t *testing.T) {
	svc, payments, tenants := seedPayments(t)
	ctx := context.Background()

	paid, err := svc.RecordPayment(ctx, "p1", "pay1", "transfer", "")
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if paid.Status != domain.PaymentPaid || paid.PaidDate == nil {
		t.Errorf("payment not settled: %+v", paid)
	}
	if paid.Method != "transfer" {
		t.Errorf("method not recorded: %q", paid.Method)
	}
	if payments.payments["pay1"].Status != domain.PaymentPaid {
		t.Error("store does not reflect the settle")
	}
	// Tenant standing recomputed: no open payments left for t1.
	if tenants.tenants["t1"].PaymentStatus != domain.TenantPaid {
		t.Errorf("tenant standing not refreshed: %v", tenants.tenants["t1"].PaymentStatus)
	}
}

func TestRecordPaymentTwiceConflicts(t *testing.T) {
	svc, _, _ := seedPayments(t)
	ctx := context.Background()

	if _, err := svc.RecordPayment(ctx, "p1", "pay1", "cash", ""); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	_, err := svc.RecordPayment(ctx, "p1", "pay1", "cash", "")
	if !domain.IsConflict(err, domain.ConflictAlreadyPaid) {
		t.Errorf("expected already_paid conflict, got %v", err)
	}
}

func TestRecordOverduePaymentSettles(t *testing.T) {
	svc, _, _ := seedPayments(t)
	paid, err := svc.RecordPayment(context.Background(), "p1", "pay2", "cash", "")
	if err != nil {
		t.Fatalf("RecordPayment on overdue failed: %v", err)
	}
	if paid.Status != domain.PaymentPaid {
		t.Errorf("overdue payment not settled: %v", paid.Status)
	}
}

func TestMarkOverdueOnlyAdvances(t *testing.T) {
	svc, _, _ := seedPayments(t)
	ctx := context.Background()

	p, err := svc.MarkOverdue(ctx, "pay1")
	if err != nil {
		t.Fatalf("MarkOverdue failed: %v", err)
	}
	if p.Status != domain.PaymentOverdue {
		t.Errorf("expected overdue, got %v", p.Status)
	}

	// Idempotent on overdue.
	if _, err := svc.MarkOverdue(ctx, "pay1"); err != nil {
		t.Errorf("MarkOverdue on overdue should be a no-op, got %v", err)
	}

	// Never backwards from paid.
	if _, err := svc.RecordPayment(ctx, "p1", "pay1", "cash", ""); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	_, err = svc.MarkOverdue(ctx, "pay1")
	if !domain.IsConflict(err, domain.ConflictAlreadyPaid) {
		t.Errorf("expected already_paid conflict, got %v", err)
	}
}

func TestAggregateSumInvariant(t *testing.T) {
	svc, _, _ := seedPayments(t)
	totals, err := svc.Aggregate(context.Background(), "p1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if totals.TotalPending != 100 || totals.TotalOverdue != 200 || totals.TotalPaid != 0 {
		t.Errorf("unexpected totals: %+v", totals)
	}
	if totals.Sum() != totals.TotalPaid+totals.TotalPending+totals.TotalOverdue {
		t.Error("sum invariant violated")
	}
}

func TestAggregateCacheInvalidatedOnWrite(t *testing.T) {
	svc, _, _ := seedPayments(t)
	ctx := context.Background()

	before, err := svc.Aggregate(ctx, "p1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "p1", "pay1", "cash", ""); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	after, err := svc.Aggregate(ctx, "p1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if after.TotalPaid != before.TotalPaid+100 {
		t.Errorf("aggregate served stale data after write: before=%+v after=%+v", before, after)
	}
	if after.Sum() != before.Sum() {
		t.Errorf("settling a payment changed the grand total: %d vs %d", after.Sum(), before.Sum())
	}
}

func TestListSortsByTenantNameWithIDTieBreak(t *testing.T) {
	svc, payments, _ := seedPayments(t)
	// Second payment for Alice, same name sort key, higher id.
	payments.payments["pay3"] = &domain.Payment{ID: "pay3", PropertyID: "p1", TenantID: "t1", Amount: 50, DueDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), Status: domain.PaymentPending}

	views, err := svc.List(context.Background(), "p1", ListOptions{SortField: SortByTenant, SortOrder: SortAsc})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(views))
	}
	got := []string{views[0].Payment.ID, views[1].Payment.ID, views[2].Payment.ID}
	want := []string{"pay1", "pay3", "pay2"} // Alice (pay1 < pay3 by id), then Bob
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v want %v", got, want)
		}
	}
}

func TestListDescendingKeepsIDTieBreakAscending(t *testing.T) {
	svc, payments, _ := seedPayments(t)
	payments.payments["pay3"] = &domain.Payment{ID: "pay3", PropertyID: "p1", TenantID: "t1", Amount: 50, DueDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), Status: domain.PaymentPending}

	views, err := svc.List(context.Background(), "p1", ListOptions{SortField: SortByTenant, SortOrder: SortDesc})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	got := []string{views[0].Payment.ID, views[1].Payment.ID, views[2].Payment.ID}
	want := []string{"pay2", "pay1", "pay3"} // Bob first, Alice rows still id-ascending
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got %v want %v", got, want)
		}
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _, _ := seedPayments(t)
	views, err := svc.List(context.Background(), "p1", ListOptions{Status: domain.PaymentOverdue})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 1 || views[0].Payment.ID != "pay2" {
		t.Errorf("expected only pay2, got %d rows", len(views))
	}
}

func TestNextSortTogglesOrder(t *testing.T) {
	field, order := NextSort(SortByAmount, SortAsc, SortByAmount)
	if field != SortByAmount || order != SortDesc {
		t.Errorf("repeat should toggle to desc, got %v %v", field, order)
	}
	field, order = NextSort(SortByAmount, SortDesc, SortByAmount)
	if order != SortAsc {
		t.Errorf("repeat should toggle back to asc, got %v", order)
	}
	field, order = NextSort(SortByAmount, SortDesc, SortByTenant)
	if field != SortByTenant || order != SortAsc {
		t.Errorf("new field should start ascending, got %v %v", field, order)
	}
}

func TestCreatePaymentValidates(t *testing.T) {
	svc, _, _ := seedPayments(t)
	ctx := context.Background()

	if _, err := svc.CreatePayment(ctx, "p1", "t1", 0, time.Now(), ""); !domain.IsValidation(err) {
		t.Errorf("expected validation error for zero amount, got %v", err)
	}
	if _, err := svc.CreatePayment(ctx, "p1", "missing", 100, time.Now(), ""); !domain.IsNotFound(err) {
		t.Errorf("expected not found for unknown tenant, got %v", err)
	}
}

func TestReminderTextMatchesStatusAndLocale(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &domain.Payment{Amount: 150, DueDate: due, Status: domain.PaymentPending}

	msg := ReminderText(p, "Alice", "Sunrise Rooms", "en")
	if !strings.Contains(msg, "Alice") || !strings.Contains(msg, "150") || !strings.Contains(msg, "Sunrise Rooms") {
		t.Errorf("reminder missing fields: %q", msg)
	}
	if !strings.Contains(msg, "due on") {
		t.Errorf("pending reminder should mention the due date: %q", msg)
	}

	p.Status = domain.PaymentOverdue
	msg = ReminderText(p, "Alice", "Sunrise Rooms", "en")
	if !strings.Contains(msg, "overdue") {
		t.Errorf("overdue reminder should say so: %q", msg)
	}

	msg = ReminderText(p, "Alice", "Sunrise Rooms", "id")
	if !strings.Contains(msg, "jatuh tempo") {
		t.Errorf("id locale not applied: %q", msg)
	}
}
