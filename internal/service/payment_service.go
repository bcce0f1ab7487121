package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/observability/metrics"
	"github.com/aryan0dhankhar/roomdesk/pkg/cache"
)

// PaymentSortField selects the column a payment listing is ordered by.
type PaymentSortField string

const (
	SortByTenant   PaymentSortField = "tenant"
	SortByRoom     PaymentSortField = "room"
	SortByAmount   PaymentSortField = "amount"
	SortByDueDate  PaymentSortField = "dueDate"
	SortByPaidDate PaymentSortField = "paidDate"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// NextSort returns the field and order to use when the user requests a sort
// on `requested`: repeating the current field toggles the order, a new field
// starts ascending.
func NextSort(currentField PaymentSortField, currentOrder SortOrder, requested PaymentSortField) (PaymentSortField, SortOrder) {
	if requested == currentField {
		if currentOrder == SortAsc {
			return requested, SortDesc
		}
		return requested, SortAsc
	}
	return requested, SortAsc
}

// ListOptions restricts and orders a payment listing.
type ListOptions struct {
	From      time.Time
	To        time.Time
	Status    domain.PaymentStatus
	SortField PaymentSortField
	SortOrder SortOrder
}

// PaymentView is one row of the derived listing, with counterpart names
// resolved for display and sorting.
type PaymentView struct {
	Payment    *domain.Payment `json:"payment"`
	TenantName string          `json:"tenantName"`
	RoomName   string          `json:"roomName"`
}

// PaymentService owns the payment status lifecycle and the derived financial
// aggregates. Status only ever advances: pending->overdue, pending->paid,
// overdue->paid.
type PaymentService struct {
	payments      domain.PaymentRepository
	tenants       domain.TenantRepository
	rooms         domain.RoomRepository
	notifications domain.NotificationRepository
	aggCache      *cache.Cache
	aggCacheTTL   time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewPaymentService creates a new payment service. notifications may be nil
// in tests; payment notifications are then skipped.
func NewPaymentService(
	payments domain.PaymentRepository,
	tenants domain.TenantRepository,
	rooms domain.RoomRepository,
	notifications domain.NotificationRepository,
	aggCacheTTL time.Duration,
	logger *slog.Logger,
) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	if aggCacheTTL <= 0 {
		aggCacheTTL = 30 * time.Second
	}
	return &PaymentService{
		payments:      payments,
		tenants:       tenants,
		rooms:         rooms,
		notifications: notifications,
		aggCache:      cache.New(),
		aggCacheTTL:   aggCacheTTL,
		logger:        logger,
		now:           time.Now,
	}
}

// CreatePayment schedules a pending payment for a tenant.
func (s *PaymentService) CreatePayment(ctx context.Context, propertyID, tenantID string, amount int64, dueDate time.Time, notes string) (*domain.Payment, error) {
	if propertyID == "" {
		return nil, &domain.ValidationError{Field: "propertyId", Message: "is required"}
	}
	if amount <= 0 {
		return nil, &domain.ValidationError{Field: "amount", Message: "must be positive"}
	}
	if dueDate.IsZero() {
		return nil, &domain.ValidationError{Field: "dueDate", Message: "is required"}
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.PropertyID != propertyID {
		return nil, &domain.NotFoundError{Entity: "tenant", ID: tenantID}
	}

	payment := &domain.Payment{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		TenantID:   tenant.ID,
		RoomID:     tenant.RoomID,
		Amount:     amount,
		DueDate:    dueDate,
		Status:     domain.PaymentPending,
		Notes:      notes,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	s.invalidateAggregates(propertyID)
	return payment, nil
}

// GetPayment returns one payment within the property scope.
func (s *PaymentService) GetPayment(ctx context.Context, propertyID, paymentID string) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.PropertyID != propertyID {
		return nil, &domain.NotFoundError{Entity: "payment", ID: paymentID}
	}
	return payment, nil
}

// RecordPayment settles a pending or overdue payment. Paid payments stay
// paid: recording one again is a conflict.
func (s *PaymentService) RecordPayment(ctx context.Context, propertyID, paymentID, method, notes string) (*domain.Payment, error) {
	payment, err := s.GetPayment(ctx, propertyID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentPaid {
		return nil, domain.NewConflict(domain.ConflictAlreadyPaid)
	}

	paidAt := s.now()
	payment.Status = domain.PaymentPaid
	payment.PaidDate = &paidAt
	payment.Method = method
	if notes != "" {
		payment.Notes = notes
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}
	s.invalidateAggregates(propertyID)
	metrics.ObservePaymentRecorded(method)

	s.refreshTenantStanding(ctx, payment.TenantID)
	s.emitPaymentNotification(ctx, payment, "Payment received",
		fmt.Sprintf("Payment of %d settled via %s", payment.Amount, methodLabel(method)))

	s.logger.Info("payment recorded",
		slog.String("payment_id", payment.ID),
		slog.String("tenant_id", payment.TenantID),
		slog.Int64("amount", payment.Amount),
		slog.String("method", method),
	)
	return payment, nil
}

// MarkOverdue advances a pending payment to overdue. Overdue is idempotent;
// paid payments never move back.
func (s *PaymentService) MarkOverdue(ctx context.Context, paymentID string) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	switch payment.Status {
	case domain.PaymentOverdue:
		return payment, nil
	case domain.PaymentPaid:
		return nil, domain.NewConflict(domain.ConflictAlreadyPaid)
	}

	payment.Status = domain.PaymentOverdue
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}
	s.invalidateAggregates(payment.PropertyID)
	metrics.ObservePaymentOverdue()
	s.refreshTenantStanding(ctx, payment.TenantID)
	return payment, nil
}

// List returns the derived, sorted view of a property's payments.
func (s *PaymentService) List(ctx context.Context, propertyID string, opts ListOptions) ([]*PaymentView, error) {
	filter := domain.PaymentFilter{From: opts.From, To: opts.To, Status: opts.Status}
	payments, err := s.payments.ListByProperty(ctx, propertyID, filter)
	if err != nil {
		return nil, err
	}

	tenantNames, roomNames, err := s.counterpartNames(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	views := make([]*PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, &PaymentView{
			Payment:    p,
			TenantName: tenantNames[p.TenantID],
			RoomName:   roomNames[p.RoomID],
		})
	}
	sortViews(views, opts.SortField, opts.SortOrder)
	return views, nil
}

// Aggregate returns amount totals grouped by status for payments whose due
// date falls in the range (all payments when the range is open). Results are
// cached briefly per property and invalidated on every payment write.
func (s *PaymentService) Aggregate(ctx context.Context, propertyID string, from, to time.Time) (domain.PaymentTotals, error) {
	key := aggregateCacheKey(propertyID, from, to)
	if v, ok := s.aggCache.Get(key); ok {
		return v.(domain.PaymentTotals), nil
	}

	totals, err := s.payments.SumByStatus(ctx, propertyID, domain.PaymentFilter{From: from, To: to})
	if err != nil {
		return domain.PaymentTotals{}, err
	}
	s.aggCache.Set(key, totals, s.aggCacheTTL)
	return totals, nil
}

func aggregateCacheKey(propertyID string, from, to time.Time) string {
	return fmt.Sprintf("aggregate:%s:%d:%d", propertyID, from.Unix(), to.Unix())
}

func (s *PaymentService) invalidateAggregates(propertyID string) {
	s.aggCache.Invalidate("aggregate:" + propertyID)
}

// refreshTenantStanding recomputes the tenant's derived payment standing.
// Best effort: the standing is display state, not an invariant, so failures
// are logged and swallowed.
func (s *PaymentService) refreshTenantStanding(ctx context.Context, tenantID string) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		s.logger.Warn("failed to load tenant for standing refresh",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return
	}

	open, err := s.payments.ListByProperty(ctx, tenant.PropertyID, domain.PaymentFilter{})
	if err != nil {
		s.logger.Warn("failed to list payments for standing refresh",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return
	}

	standing := domain.TenantPaid
	for _, p := range open {
		if p.TenantID != tenantID {
			continue
		}
		switch p.Status {
		case domain.PaymentOverdue:
			standing = domain.TenantOverdue
		case domain.PaymentPending:
			if standing == domain.TenantPaid {
				standing = domain.TenantPending
			}
		}
	}
	if tenant.PaymentStatus == standing {
		return
	}
	tenant.PaymentStatus = standing
	if err := s.tenants.Update(ctx, tenant); err != nil {
		s.logger.Warn("failed to update tenant standing",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
	}
}

// emitPaymentNotification writes a payment-type notification. Best effort.
func (s *PaymentService) emitPaymentNotification(ctx context.Context, payment *domain.Payment, title, message string) {
	if s.notifications == nil {
		return
	}
	n := &domain.Notification{
		ID:               uuid.NewString(),
		Title:            title,
		Message:          message,
		Type:             domain.NotificationPayment,
		Status:           domain.NotificationUnread,
		TargetPropertyID: payment.PropertyID,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Warn("failed to create payment notification",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PaymentService) counterpartNames(ctx context.Context, propertyID string) (map[string]string, map[string]string, error) {
	tenants, err := s.tenants.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, nil, err
	}
	rooms, err := s.rooms.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, nil, err
	}

	tenantNames := make(map[string]string, len(tenants))
	for _, t := range tenants {
		tenantNames[t.ID] = t.Name
	}
	roomNames := make(map[string]string, len(rooms))
	for _, r := range rooms {
		roomNames[r.ID] = r.Name
	}
	return tenantNames, roomNames, nil
}

// sortViews orders the listing, breaking ties by payment id so the order is
// stable across reloads.
func sortViews(views []*PaymentView, field PaymentSortField, order SortOrder) {
	if field == "" {
		field = SortByDueDate
	}
	desc := order == SortDesc

	less := func(a, b *PaymentView) bool {
		switch field {
		case SortByTenant:
			if a.TenantName != b.TenantName {
				return a.TenantName < b.TenantName
			}
		case SortByRoom:
			if a.RoomName != b.RoomName {
				return a.RoomName < b.RoomName
			}
		case SortByAmount:
			if a.Payment.Amount != b.Payment.Amount {
				return a.Payment.Amount < b.Payment.Amount
			}
		case SortByPaidDate:
			at, bt := paidTime(a.Payment), paidTime(b.Payment)
			if !at.Equal(bt) {
				return at.Before(bt)
			}
		default: // due date
			if !a.Payment.DueDate.Equal(b.Payment.DueDate) {
				return a.Payment.DueDate.Before(b.Payment.DueDate)
			}
		}
		return a.Payment.ID < b.Payment.ID
	}

	sort.SliceStable(views, func(i, j int) bool {
		if desc {
			// Keep the id tie-break ascending even in descending order.
			if viewsEqualOnField(views[i], views[j], field) {
				return views[i].Payment.ID < views[j].Payment.ID
			}
			return less(views[j], views[i])
		}
		return less(views[i], views[j])
	})
}

func viewsEqualOnField(a, b *PaymentView, field PaymentSortField) bool {
	switch field {
	case SortByTenant:
		return a.TenantName == b.TenantName
	case SortByRoom:
		return a.RoomName == b.RoomName
	case SortByAmount:
		return a.Payment.Amount == b.Payment.Amount
	case SortByPaidDate:
		return paidTime(a.Payment).Equal(paidTime(b.Payment))
	default:
		return a.Payment.DueDate.Equal(b.Payment.DueDate)
	}
}

func paidTime(p *domain.Payment) time.Time {
	if p.PaidDate == nil {
		return time.Time{}
	}
	return *p.PaidDate
}

func methodLabel(method string) string {
	if method == "" {
		return "unspecified method"
	}
	return method
}

// ReminderText renders the reminder message for a payment's current status.
// Pure: the caller hands it to the messaging integration, nothing is sent
// from here. Supported locales are "en" (default) and "id".
func ReminderText(p *domain.Payment, tenantName, businessName, locale string) string {
	due := p.DueDate.Format("2 Jan 2006")
	if locale == "id" {
		switch p.Status {
		case domain.PaymentPaid:
			return fmt.Sprintf("Halo %s, pembayaran sewa Anda sebesar %d sudah kami terima. Terima kasih! — %s", tenantName, p.Amount, businessName)
		case domain.PaymentOverdue:
			return fmt.Sprintf("Halo %s, pembayaran sewa Anda sebesar %d sudah melewati jatuh tempo (%s). Mohon segera diselesaikan. — %s", tenantName, p.Amount, due, businessName)
		default:
			return fmt.Sprintf("Halo %s, pembayaran sewa Anda sebesar %d akan jatuh tempo pada %s. — %s", tenantName, p.Amount, due, businessName)
		}
	}
	switch p.Status {
	case domain.PaymentPaid:
		return fmt.Sprintf("Hi %s, we have received your rent payment of %d. Thank you! — %s", tenantName, p.Amount, businessName)
	case domain.PaymentOverdue:
		return fmt.Sprintf("Hi %s, your rent payment of %d was due on %s and is now overdue. Please settle it as soon as possible. — %s", tenantName, p.Amount, due, businessName)
	default:
		return fmt.Sprintf("Hi %s, your rent payment of %d is due on %s. — %s", tenantName, p.Amount, due, businessName)
	}
}
