package audit

import (
	"context"
	"log/slog"
	"time"
)

// RequestIDContextKey carries the request id set by the outermost HTTP
// middleware so audit entries correlate with access logs.
type RequestIDContextKey struct{}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, propertyID, userID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID, ok := ctx.Value(RequestIDContextKey{}).(string); ok {
		requestID = reqID
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("property_id", propertyID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogAssignment(ctx context.Context, propertyID, userID, roomID, status, details string) {
	al.LogAction(ctx, propertyID, userID, "assign", "room", roomID, status, details)
}

func (al *Logger) LogPayment(ctx context.Context, propertyID, userID, paymentID, status, details string) {
	al.LogAction(ctx, propertyID, userID, "record_payment", "payment", paymentID, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, propertyID, userID, reason string) {
	al.LogAction(ctx, propertyID, userID, "access_denied", "api", "", "denied", reason)
}
