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

// TenantResponse is the wire shape of a tenant.
type TenantResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone,omitempty"`
	Email         string     `json:"email,omitempty"`
	RoomID        string     `json:"roomId,omitempty"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"paymentStatus"`
	MoveInDate    *time.Time `json:"moveInDate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func toTenantResponse(t *domain.Tenant) TenantResponse {
	resp := TenantResponse{
		ID:            t.ID,
		Name:          t.Name,
		Phone:         t.Phone,
		Email:         t.Email,
		RoomID:        t.RoomID,
		Status:        string(t.Status),
		PaymentStatus: string(t.PaymentStatus),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if !t.MoveInDate.IsZero() {
		moveIn := t.MoveInDate
		resp.MoveInDate = &moveIn
	}
	return resp
}

// TenantsHandler handles tenant CRUD.
type TenantsHandler struct {
	occupancy *service.OccupancyService
	logger    *slog.Logger
}

// NewTenantsHandler creates a new tenants handler.
func NewTenantsHandler(occupancy *service.OccupancyService, logger *slog.Logger) *TenantsHandler {
	return &TenantsHandler{occupancy: occupancy, logger: logger}
}

type tenantRequest struct {
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Email      string     `json:"email"`
	MoveInDate *time.Time `json:"moveInDate"`
}

// List handles GET /api/tenants
func (h *TenantsHandler) List(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())
	tenants, err := h.occupancy.ListTenants(r.Context(), propertyID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, toTenantResponse(t))
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// Create handles POST /api/tenants
func (h *TenantsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	propertyID := middleware.GetPropertyFromContext(r.Context())
	moveIn := time.Time{}
	if req.MoveInDate != nil {
		moveIn = *req.MoveInDate
	}
	tenant, err := h.occupancy.CreateTenant(r.Context(), propertyID, req.Name, req.Phone, req.Email, moveIn)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toTenantResponse(tenant))
}

// Update handles PUT /api/tenants/{id}
func (h *TenantsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	propertyID := middleware.GetPropertyFromContext(r.Context())
	tenant, err := h.occupancy.UpdateTenant(r.Context(), propertyID, r.PathValue("id"), req.Name, req.Phone, req.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toTenantResponse(tenant))
}

// Delete handles DELETE /api/tenants/{id}. A tenant still in a room is
// vacated first, as one paired write.
func (h *TenantsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	propertyID := middleware.GetPropertyFromContext(r.Context())
	if err := h.occupancy.RemoveTenant(r.Context(), propertyID, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
