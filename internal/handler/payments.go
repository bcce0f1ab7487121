package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/security/middleware"
	"github.com/aryan0dhankhar/roomdesk/internal/service"
	"github.com/aryan0dhankhar/roomdesk/pkg/config"
)

// PaymentResponse is the wire shape of one payment row, with counterpart
// names resolved for display.
type PaymentResponse struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenantId"`
	TenantName string     `json:"tenantName,omitempty"`
	RoomID     string     `json:"roomId,omitempty"`
	RoomName   string     `json:"roomName,omitempty"`
	Amount     int64      `json:"amount"`
	DueDate    time.Time  `json:"dueDate"`
	PaidDate   *time.Time `json:"paidDate,omitempty"`
	Status     string     `json:"status"`
	Method     string     `json:"method,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

func toPaymentResponse(v *service.PaymentView) PaymentResponse {
	p := v.Payment
	return PaymentResponse{
		ID:         p.ID,
		TenantID:   p.TenantID,
		TenantName: v.TenantName,
		RoomID:     p.RoomID,
		RoomName:   v.RoomName,
		Amount:     p.Amount,
		DueDate:    p.DueDate,
		PaidDate:   p.PaidDate,
		Status:     string(p.Status),
		Method:     p.Method,
		Notes:      p.Notes,
	}
}

// PaymentsHandler handles the payment ledger endpoints.
type PaymentsHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
	config   *config.Config
}

// NewPaymentsHandler creates a new payments handler.
func NewPaymentsHandler(payments *service.PaymentService, logger *slog.Logger, cfg *config.Config) *PaymentsHandler {
	return &PaymentsHandler{payments: payments, logger: logger, config: cfg}
}

func parseDateParam(r *http.Request, name string) time.Time {
	if raw := r.URL.Query().Get(name); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// List handles GET /api/payments
func (h *PaymentsHandler) List(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())

	opts := service.ListOptions{
		From:      parseDateParam(r, "from"),
		To:        parseDateParam(r, "to"),
		Status:    domain.PaymentStatus(r.URL.Query().Get("status")),
		SortField: service.PaymentSortField(r.URL.Query().Get("sort")),
		SortOrder: service.SortOrder(r.URL.Query().Get("order")),
	}

	views, err := h.payments.List(r.Context(), propertyID, opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]PaymentResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toPaymentResponse(v))
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

type createPaymentRequest struct {
	TenantID string    `json:"tenantId"`
	Amount   int64     `json:"amount"`
	DueDate  time.Time `json:"dueDate"`
	Notes    string    `json:"notes"`
}

// Create handles POST /api/payments
func (h *PaymentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	propertyID := middleware.GetPropertyFromContext(r.Context())
	payment, err := h.payments.CreatePayment(r.Context(), propertyID, req.TenantID, req.Amount, req.DueDate, req.Notes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toPaymentResponse(&service.PaymentView{Payment: payment}))
}

// Get handles GET /api/payments/{id}
func (h *PaymentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())
	payment, err := h.payments.GetPayment(r.Context(), propertyID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toPaymentResponse(&service.PaymentView{Payment: payment}))
}

type recordPaymentRequest struct {
	Method string `json:"method"`
	Notes  string `json:"notes"`
}

// Record handles POST /api/payments/{id}/record
func (h *PaymentsHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	propertyID := middleware.GetPropertyFromContext(r.Context())
	payment, err := h.payments.RecordPayment(r.Context(), propertyID, r.PathValue("id"), req.Method, req.Notes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toPaymentResponse(&service.PaymentView{Payment: payment}))
}

// AggregateResponse carries the by-status totals for a range.
type AggregateResponse struct {
	TotalPaid    int64 `json:"totalPaid"`
	TotalPending int64 `json:"totalPending"`
	TotalOverdue int64 `json:"totalOverdue"`
	Total        int64 `json:"total"`
}

// Aggregate handles GET /api/payments/aggregate
func (h *PaymentsHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())
	totals, err := h.payments.Aggregate(r.Context(), propertyID, parseDateParam(r, "from"), parseDateParam(r, "to"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, AggregateResponse{
		TotalPaid:    totals.TotalPaid,
		TotalPending: totals.TotalPending,
		TotalOverdue: totals.TotalOverdue,
		Total:        totals.Sum(),
	})
}

// ReminderResponse carries the rendered reminder message.
type ReminderResponse struct {
	PaymentID string `json:"paymentId"`
	Message   string `json:"message"`
}

// Reminder handles GET /api/payments/{id}/reminder. The message is rendered
// for the caller to paste or send; nothing leaves the server.
func (h *PaymentsHandler) Reminder(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())
	views, err := h.payments.List(r.Context(), propertyID, service.ListOptions{})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	id := r.PathValue("id")
	for _, v := range views {
		if v.Payment.ID == id {
			msg := service.ReminderText(v.Payment, v.TenantName, h.config.BusinessName, r.URL.Query().Get("locale"))
			writeJSON(w, h.logger, http.StatusOK, ReminderResponse{PaymentID: id, Message: msg})
			return
		}
	}
	writeError(w, h.logger, &domain.NotFoundError{Entity: "payment", ID: id})
}
