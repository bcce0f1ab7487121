package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/featureflags"
	"github.com/aryan0dhankhar/roomdesk/internal/reliability/retry"
	"github.com/aryan0dhankhar/roomdesk/internal/service"
)

// OverdueWorker periodically scans for pending payments past their due date
// and moves them to overdue. Status only ever advances; a payment settled
// between the scan and the update simply fails the transition and is skipped.
type OverdueWorker struct {
	payments      *service.PaymentService
	paymentRepo   domain.PaymentRepository
	notifications domain.NotificationRepository
	logger        *slog.Logger
	interval      time.Duration
	retryCfg      *retry.Config
	now           func() time.Time
}

// NewOverdueWorker creates a new overdue worker.
func NewOverdueWorker(
	payments *service.PaymentService,
	paymentRepo domain.PaymentRepository,
	notifications domain.NotificationRepository,
	logger *slog.Logger,
	interval time.Duration,
) *OverdueWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverdueWorker{
		payments:      payments,
		paymentRepo:   paymentRepo,
		notifications: notifications,
		logger:        logger,
		interval:      interval,
		retryCfg:      retry.DefaultConfig(),
		now:           time.Now,
	}
}

// Start begins the worker loop. Blocks until ctx is cancelled.
func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("overdue worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one scan over pending payments past due.
func (w *OverdueWorker) Sweep(ctx context.Context) {
	due, err := retry.Do(ctx, w.retryCfg, w.logger, "list due payments", func(ctx context.Context) ([]*domain.Payment, error) {
		return w.paymentRepo.ListDuePending(ctx, w.now())
	})
	if err != nil {
		w.logger.Error("failed to list due payments", slog.String("error", err.Error()))
		return
	}
	if len(due) == 0 {
		return
	}

	w.logger.Info("marking payments overdue", slog.Int("count", len(due)))

	byProperty := map[string]int{}
	for _, p := range due {
		if _, err := w.payments.MarkOverdue(ctx, p.ID); err != nil {
			// Likely settled since the scan. Skip, the next sweep re-checks.
			w.logger.Warn("skipping payment",
				slog.String("payment_id", p.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		byProperty[p.PropertyID]++
	}

	if featureflags.Enabled("overdue_notifications") {
		for propertyID, count := range byProperty {
			w.notifyProperty(ctx, propertyID, count)
		}
	}
}

func (w *OverdueWorker) notifyProperty(ctx context.Context, propertyID string, count int) {
	if w.notifications == nil {
		return
	}
	n := &domain.Notification{
		ID:               uuid.NewString(),
		Title:            "Payments overdue",
		Message:          fmt.Sprintf("%d payment(s) passed their due date", count),
		Type:             domain.NotificationPayment,
		Status:           domain.NotificationUnread,
		TargetPropertyID: propertyID,
	}
	if err := w.notifications.Create(ctx, n); err != nil {
		w.logger.Warn("failed to create overdue notification",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
	}
}
