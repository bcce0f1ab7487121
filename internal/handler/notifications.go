package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/security/middleware"
)

// NotificationResponse is the wire shape of a notification.
type NotificationResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Message          string    `json:"message,omitempty"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	TargetUserID     string    `json:"targetUserId,omitempty"`
	TargetPropertyID string    `json:"targetPropertyId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:               n.ID,
		Title:            n.Title,
		Message:          n.Message,
		Type:             string(n.Type),
		Status:           string(n.Status),
		TargetUserID:     n.TargetUserID,
		TargetPropertyID: n.TargetPropertyID,
		CreatedAt:        n.CreatedAt,
	}
}

// NotificationsHandler handles the notification REST endpoints. All writes go
// through the repository, which publishes to the change feed, so any open
// live view reloads on its own.
type NotificationsHandler struct {
	repo   domain.NotificationRepository
	logger *slog.Logger
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(repo domain.NotificationRepository, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{repo: repo, logger: logger}
}

func viewerScope(r *http.Request) (userID, propertyID string) {
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		userID = claims.UserID
	}
	return userID, middleware.GetPropertyFromContext(r.Context())
}

// List handles GET /api/notifications
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, propertyID := viewerScope(r)
	items, err := h.repo.ListVisible(r.Context(), userID, propertyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]NotificationResponse, 0, len(items))
	unread := 0
	for _, n := range items {
		if n.Status == domain.NotificationUnread {
			unread++
		}
		out = append(out, toNotificationResponse(n))
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"notifications": out,
		"unreadCount":   unread,
	})
}

type createNotificationRequest struct {
	Title            string `json:"title"`
	Message          string `json:"message"`
	Type             string `json:"type"`
	TargetUserID     string `json:"targetUserId"`
	TargetPropertyID string `json:"targetPropertyId"`
}

// Create handles POST /api/notifications
func (h *NotificationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		writeError(w, h.logger, &domain.ValidationError{Field: "title", Message: "is required"})
		return
	}
	typ := domain.NotificationType(req.Type)
	if typ == "" {
		typ = domain.NotificationSystem
	}

	n := &domain.Notification{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Message:          req.Message,
		Type:             typ,
		Status:           domain.NotificationUnread,
		TargetUserID:     req.TargetUserID,
		TargetPropertyID: req.TargetPropertyID,
	}
	if err := h.repo.Create(r.Context(), n); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toNotificationResponse(n))
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if n.Status != domain.NotificationRead {
		n.Status = domain.NotificationRead
		if err := h.repo.Update(r.Context(), n); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	writeJSON(w, h.logger, http.StatusOK, toNotificationResponse(n))
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, propertyID := viewerScope(r)
	if err := h.repo.MarkAllRead(r.Context(), userID, propertyID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/notifications/{id}
func (h *NotificationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
