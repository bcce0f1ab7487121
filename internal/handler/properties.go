package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/security"
	"github.com/aryan0dhankhar/roomdesk/internal/security/middleware"
)

// PropertyResponse is the wire shape of a property.
type PropertyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toPropertyResponse(p *domain.Property) PropertyResponse {
	return PropertyResponse{
		ID:        p.ID,
		Name:      p.Name,
		Address:   p.Address,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// PropertiesHandler handles property CRUD. Mutations on a property are
// restricted to its owner (admins bypass).
type PropertiesHandler struct {
	repo   domain.PropertyRepository
	authz  *security.AuthorizationServiceV2
	logger *slog.Logger
}

// NewPropertiesHandler creates a new properties handler.
func NewPropertiesHandler(repo domain.PropertyRepository, authz *security.AuthorizationServiceV2, logger *slog.Logger) *PropertiesHandler {
	return &PropertiesHandler{repo: repo, authz: authz, logger: logger}
}

func (h *PropertiesHandler) checkOwnership(r *http.Request, p *domain.Property, action security.Action) error {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		return nil
	}
	return h.authz.ValidateResourceAccess(claims.UserID, security.Role(claims.Role), security.ResourcePermission{
		ResourceType: security.ResourceProperty,
		ResourceID:   p.ID,
		OwnerID:      p.OwnerUserID,
		Action:       action,
	})
}

type propertyRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// List handles GET /api/properties
func (h *PropertiesHandler) List(w http.ResponseWriter, r *http.Request) {
	properties, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]PropertyResponse, 0, len(properties))
	for _, p := range properties {
		out = append(out, toPropertyResponse(p))
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// Create handles POST /api/properties
func (h *PropertiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, h.logger, &domain.ValidationError{Field: "name", Message: "is required"})
		return
	}

	ownerID := ""
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		ownerID = claims.UserID
	}
	p := &domain.Property{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Address:     req.Address,
		OwnerUserID: ownerID,
	}
	if err := h.repo.Create(r.Context(), p); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, toPropertyResponse(p))
}

// Get handles GET /api/properties/{id}
func (h *PropertiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toPropertyResponse(p))
}

// Update handles PUT /api/properties/{id}
func (h *PropertiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	p, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.checkOwnership(r, p, security.ActionWrite); err != nil {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	p.Address = req.Address
	if err := h.repo.Update(r.Context(), p); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toPropertyResponse(p))
}

// Delete handles DELETE /api/properties/{id}
func (h *PropertiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.checkOwnership(r, p, security.ActionDelete); err != nil {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	if err := h.repo.Delete(r.Context(), p.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
