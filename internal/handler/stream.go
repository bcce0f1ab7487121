package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/security/middleware"
	"github.com/aryan0dhankhar/roomdesk/internal/service"
)

// FeedHandler handles WebSocket connections for the live notification view.
// Each connection gets its own session context and hub, so switching
// properties on one console never disturbs another.
type FeedHandler struct {
	verifier       middleware.TokenVerifier
	repo           domain.NotificationRepository
	feed           domain.ChangeFeed
	logger         *slog.Logger
	allowedOrigins []string
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(verifier middleware.TokenVerifier, repo domain.NotificationRepository, feed domain.ChangeFeed, logger *slog.Logger, allowedOrigins []string) *FeedHandler {
	return &FeedHandler{
		verifier:       verifier,
		repo:           repo,
		feed:           feed,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *FeedHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// feedCommand is one message from the client.
type feedCommand struct {
	Action     string `json:"action"` // switch_property, mark_read, mark_all_read, delete
	ID         string `json:"id,omitempty"`
	PropertyID string `json:"propertyId,omitempty"`
}

// feedSnapshot is what the server pushes after every change.
type feedSnapshot struct {
	UnreadCount   int                    `json:"unreadCount"`
	Notifications []NotificationResponse `json:"notifications"`
}

// ServeHTTP handles GET /ws/feed?token=...
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on websocket dials, so the token rides in
	// the query string.
	claims, err := h.verifier.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	propertyID := claims.PropertyID
	if override := r.URL.Query().Get("propertyId"); override != "" {
		propertyID = override
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	ctx := r.Context()
	session := service.NewSessionContext()
	hub := service.NewNotificationHub(ctx, h.repo, h.feed, h.logger)
	hub.AttachSession(session)

	session.SignIn(claims.UserID, propertyID)
	defer session.SignOut()

	h.logger.Debug("feed stream opened",
		slog.String("user_id", claims.UserID),
		slog.String("property_id", propertyID),
	)

	done := make(chan struct{})
	go h.writeLoop(ws, hub, done)

	// Read loop: client commands drive the hub, the hub's change signal
	// drives the write loop.
	for {
		var cmd feedCommand
		if err := ws.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("feed stream closed unexpectedly", slog.String("error", err.Error()))
			}
			close(done)
			return
		}

		switch cmd.Action {
		case "switch_property":
			session.SwitchProperty(cmd.PropertyID)
		case "mark_read":
			if err := hub.MarkAsRead(ctx, cmd.ID); err != nil {
				h.logger.Warn("mark_read failed", slog.String("id", cmd.ID), slog.String("error", err.Error()))
			}
		case "mark_all_read":
			if err := hub.MarkAllAsRead(ctx); err != nil {
				h.logger.Warn("mark_all_read failed", slog.String("error", err.Error()))
			}
		case "delete":
			if err := hub.Delete(ctx, cmd.ID); err != nil {
				h.logger.Warn("delete failed", slog.String("id", cmd.ID), slog.String("error", err.Error()))
			}
		default:
			h.logger.Debug("ignoring unknown feed action", slog.String("action", cmd.Action))
		}
	}
}

// writeLoop is the only goroutine writing to the socket: snapshots on every
// hub change, pings to keep the connection alive.
func (h *FeedHandler) writeLoop(ws *websocket.Conn, hub *service.NotificationHub, done chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-hub.Changed():
			if err := h.writeSnapshot(ws, hub); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		case <-done:
			return
		}
	}
}

func (h *FeedHandler) writeSnapshot(ws *websocket.Conn, hub *service.NotificationHub) error {
	items := hub.Snapshot()
	snap := feedSnapshot{
		UnreadCount:   hub.UnreadCount(),
		Notifications: make([]NotificationResponse, 0, len(items)),
	}
	for _, n := range items {
		snap.Notifications = append(snap.Notifications, toNotificationResponse(n))
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, payload)
}
