package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/security/middleware"
	"github.com/aryan0dhankhar/roomdesk/internal/service"
)

// RoomResponse is the wire shape of a room.
type RoomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Floor     int       `json:"floor"`
	Status    string    `json:"status"`
	TenantID  string    `json:"tenantId,omitempty"`
	Rate      int64     `json:"rate"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toRoomResponse(r *domain.Room) RoomResponse {
	return RoomResponse{
		ID:        r.ID,
		Name:      r.Name,
		Floor:     r.Floor,
		Status:    string(r.Status),
		TenantID:  r.TenantID,
		Rate:      r.Rate,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// RoomsHandler handles room CRUD and the occupancy transitions.
type RoomsHandler struct {
	occupancy *service.OccupancyService
	logger    *slog.Logger
}

// NewRoomsHandler creates a new rooms handler.
func NewRoomsHandler(occupancy *service.OccupancyService, logger *slog.Logger) *RoomsHandler {
	return &RoomsHandler{occupancy: occupancy, logger: logger}
}

type roomRequest struct {
	Name  string `json:"name"`
	Floor int    `json:"floor"`
	Rate  int64  `json:"rate"`
	Notes string `json:"notes"`
}

// List handles GET /api/rooms
func (h *RoomsHandler) List(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())
	rooms, err := h.occupancy.ListRooms(r.Context(), propertyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomResponse(room))
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// Create handles POST /api/rooms
func (h *RoomsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	propertyID := middleware.GetPropertyFromContext(r.Context())
	room, err := h.occupancy.CreateRoom(r.Context(), propertyID, req.Name, req.Floor, req.Rate, req.Notes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toRoomResponse(room))
}

// Get handles GET /api/rooms/{id}
func (h *RoomsHandler) Get(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())
	room, err := h.occupancy.GetRoom(r.Context(), propertyID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toRoomResponse(room))
}

// Update handles PUT /api/rooms/{id}
func (h *RoomsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	propertyID := middleware.GetPropertyFromContext(r.Context())
	room, err := h.occupancy.UpdateRoom(r.Context(), propertyID, r.PathValue("id"), req.Name, req.Floor, req.Rate, req.Notes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toRoomResponse(room))
}

// Delete handles DELETE /api/rooms/{id}
func (h *RoomsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())
	if err := h.occupancy.DeleteRoom(r.Context(), propertyID, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	TenantID string `json:"tenantId"`
}

type occupancyResponse struct {
	Room   RoomResponse    `json:"room"`
	Tenant *TenantResponse `json:"tenant,omitempty"`
}

// Assign handles POST /api/rooms/{id}/assign
func (h *RoomsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	propertyID := middleware.GetPropertyFromContext(r.Context())
	room, tenant, err := h.occupancy.AssignTenant(r.Context(), propertyID, r.PathValue("id"), req.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := occupancyResponse{Room: toRoomResponse(room)}
	if tenant != nil {
		t := toTenantResponse(tenant)
		resp.Tenant = &t
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// Vacate handles POST /api/rooms/{id}/vacate
func (h *RoomsHandler) Vacate(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())
	room, tenant, err := h.occupancy.VacateRoom(r.Context(), propertyID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := occupancyResponse{Room: toRoomResponse(room)}
	if tenant != nil {
		t := toTenantResponse(tenant)
		resp.Tenant = &t
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

type maintenanceRequest struct {
	Maintenance bool `json:"maintenance"`
}

// Maintenance handles POST /api/rooms/{id}/maintenance
func (h *RoomsHandler) Maintenance(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	propertyID := middleware.GetPropertyFromContext(r.Context())
	room, err := h.occupancy.SetMaintenance(r.Context(), propertyID, r.PathValue("id"), req.Maintenance)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toRoomResponse(room))
}

// Duplicate handles POST /api/rooms/{id}/duplicate
func (h *RoomsHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())
	room, err := h.occupancy.DuplicateRoom(r.Context(), propertyID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toRoomResponse(room))
}
