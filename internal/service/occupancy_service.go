package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
	"github.com/aryan0dhankhar/roomdesk/internal/observability/metrics"
)

// OccupancyService owns the bidirectional room/tenant assignment. The store
// has no cross-entity transaction, so every assignment change is a paired
// write: room first, then tenant, with a compensating write reverting the room
// if the tenant write fails. Readers never observe a half-applied pair from
// this layer: the combined reload happens only after both writes commit.
type OccupancyService struct {
	rooms   domain.RoomRepository
	tenants domain.TenantRepository
	logger  *slog.Logger
}

// NewOccupancyService creates a new occupancy service.
func NewOccupancyService(
	rooms domain.RoomRepository,
	tenants domain.TenantRepository,
	logger *slog.Logger,
) *OccupancyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OccupancyService{rooms: rooms, tenants: tenants, logger: logger}
}

// getScoped loads a room and hides rooms from other properties behind a
// not-found error so nothing leaks across scopes.
func (s *OccupancyService) getScoped(ctx context.Context, propertyID, roomID string) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.PropertyID != propertyID {
		return nil, &domain.NotFoundError{Entity: "room", ID: roomID}
	}
	return room, nil
}

// AssignTenant moves a vacant room to occupied and links both sides of the
// relationship. Returns the freshly reloaded pair.
func (s *OccupancyService) AssignTenant(ctx context.Context, propertyID, roomID, tenantID string) (*domain.Room, *domain.Tenant, error) {
	if roomID == "" {
		return nil, nil, &domain.ValidationError{Field: "roomId", Message: "is required"}
	}
	if tenantID == "" {
		return nil, nil, &domain.ValidationError{Field: "tenantId", Message: "is required"}
	}

	room, err := s.getScoped(ctx, propertyID, roomID)
	if err != nil {
		return nil, nil, err
	}
	if room.Status != domain.RoomVacant {
		metrics.ObservePairedWrite("assign", "rejected")
		return nil, nil, domain.NewConflict(domain.ConflictAlreadyOccupied)
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	if tenant.PropertyID != propertyID {
		return nil, nil, &domain.NotFoundError{Entity: "tenant", ID: tenantID}
	}
	if tenant.Status != domain.TenantActive {
		return nil, nil, &domain.ValidationError{Field: "tenantId", Message: "tenant is inactive"}
	}
	if tenant.RoomID != "" {
		metrics.ObservePairedWrite("assign", "rejected")
		return nil, nil, domain.NewConflict(domain.ConflictAlreadyAssigned)
	}

	// Paired write: room side first.
	updatedRoom := *room
	updatedRoom.Status = domain.RoomOccupied
	updatedRoom.TenantID = tenant.ID
	if err := s.rooms.Update(ctx, &updatedRoom); err != nil {
		return nil, nil, err
	}

	updatedTenant := *tenant
	updatedTenant.RoomID = room.ID
	if err := s.tenants.Update(ctx, &updatedTenant); err != nil {
		return nil, nil, s.compensateRoom(ctx, "assign", room, err)
	}

	metrics.ObservePairedWrite("assign", "success")
	s.logger.Info("tenant assigned",
		slog.String("property_id", propertyID),
		slog.String("room_id", room.ID),
		slog.String("tenant_id", tenant.ID),
	)
	return s.reloadPair(ctx, room.ID, tenant.ID)
}

// VacateRoom clears both sides of an occupied room's assignment.
func (s *OccupancyService) VacateRoom(ctx context.Context, propertyID, roomID string) (*domain.Room, *domain.Tenant, error) {
	room, err := s.getScoped(ctx, propertyID, roomID)
	if err != nil {
		return nil, nil, err
	}
	if room.Status != domain.RoomOccupied || room.TenantID == "" {
		metrics.ObservePairedWrite("vacate", "rejected")
		return nil, nil, domain.NewConflict(domain.ConflictNotOccupied)
	}

	tenant, err := s.tenants.GetByID(ctx, room.TenantID)
	if err != nil {
		return nil, nil, err
	}

	updatedRoom := *room
	updatedRoom.Status = domain.RoomVacant
	updatedRoom.TenantID = ""
	if err := s.rooms.Update(ctx, &updatedRoom); err != nil {
		return nil, nil, err
	}

	updatedTenant := *tenant
	updatedTenant.RoomID = ""
	if err := s.tenants.Update(ctx, &updatedTenant); err != nil {
		return nil, nil, s.compensateRoom(ctx, "vacate", room, err)
	}

	metrics.ObservePairedWrite("vacate", "success")
	s.logger.Info("room vacated",
		slog.String("property_id", propertyID),
		slog.String("room_id", room.ID),
		slog.String("tenant_id", tenant.ID),
	)
	return s.reloadPair(ctx, room.ID, tenant.ID)
}

// compensateRoom reverts the already-committed room write after the tenant
// write failed. Compensation is best effort: if the revert itself fails the
// store is left inconsistent and both errors are surfaced together.
func (s *OccupancyService) compensateRoom(ctx context.Context, operation string, original *domain.Room, cause error) error {
	revert := *original
	if rerr := s.rooms.Update(ctx, &revert); rerr != nil {
		metrics.ObservePairedWrite(operation, "compensation_failed")
		s.logger.Error("compensating room write failed, store left inconsistent",
			slog.String("room_id", original.ID),
			slog.String("cause", cause.Error()),
			slog.String("revert_error", rerr.Error()),
		)
		return &domain.RemoteError{Op: operation, Err: errors.Join(cause, rerr)}
	}
	metrics.ObservePairedWrite(operation, "compensated")
	s.logger.Warn("tenant write failed, room write reverted",
		slog.String("room_id", original.ID),
		slog.String("error", cause.Error()),
	)
	if domain.IsRemote(cause) || domain.IsNotFound(cause) {
		return cause
	}
	return &domain.RemoteError{Op: operation, Err: cause}
}

// reloadPair fetches both sides once, after both writes have committed.
func (s *OccupancyService) reloadPair(ctx context.Context, roomID, tenantID string) (*domain.Room, *domain.Tenant, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	return room, tenant, nil
}

// DeleteRoom removes a vacant, unreferenced room.
func (s *OccupancyService) DeleteRoom(ctx context.Context, propertyID, roomID string) error {
	room, err := s.getScoped(ctx, propertyID, roomID)
	if err != nil {
		return err
	}

	count, err := s.tenants.CountByRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Status == domain.RoomOccupied || count > 0 {
		if count == 0 {
			count = 1
		}
		return &domain.ConflictError{Kind: domain.ConflictHasTenants, Count: count}
	}
	if room.Status != domain.RoomVacant {
		return domain.NewConflict(domain.ConflictNotVacant)
	}

	if err := s.rooms.Delete(ctx, roomID); err != nil {
		return err
	}
	s.logger.Info("room deleted", slog.String("room_id", roomID))
	return nil
}

// DuplicateRoom creates a vacant copy of a room's descriptive fields. The
// assignment side is never copied.
func (s *OccupancyService) DuplicateRoom(ctx context.Context, propertyID, roomID string) (*domain.Room, error) {
	room, err := s.getScoped(ctx, propertyID, roomID)
	if err != nil {
		return nil, err
	}

	copied := &domain.Room{
		ID:         uuid.NewString(),
		PropertyID: room.PropertyID,
		Name:       fmt.Sprintf("%s (copy)", room.Name),
		Floor:      room.Floor,
		Status:     domain.RoomVacant,
		Rate:       room.Rate,
		Notes:      room.Notes,
	}
	if err := s.rooms.Create(ctx, copied); err != nil {
		return nil, err
	}
	s.logger.Info("room duplicated",
		slog.String("source_room_id", room.ID),
		slog.String("room_id", copied.ID),
	)
	return copied, nil
}

// CreateRoom adds a new vacant room to a property.
func (s *OccupancyService) CreateRoom(ctx context.Context, propertyID, name string, floor int, rate int64, notes string) (*domain.Room, error) {
	if propertyID == "" {
		return nil, &domain.ValidationError{Field: "propertyId", Message: "is required"}
	}
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "is required"}
	}

	room := &domain.Room{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		Name:       name,
		Floor:      floor,
		Status:     domain.RoomVacant,
		Rate:       rate,
		Notes:      notes,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// UpdateRoom writes descriptive fields only; occupancy state is owned by the
// assign/vacate paths.
func (s *OccupancyService) UpdateRoom(ctx context.Context, propertyID, roomID, name string, floor int, rate int64, notes string) (*domain.Room, error) {
	room, err := s.getScoped(ctx, propertyID, roomID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		room.Name = name
	}
	room.Floor = floor
	room.Rate = rate
	room.Notes = notes
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// SetMaintenance toggles a vacant room in or out of maintenance.
func (s *OccupancyService) SetMaintenance(ctx context.Context, propertyID, roomID string, maintenance bool) (*domain.Room, error) {
	room, err := s.getScoped(ctx, propertyID, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status == domain.RoomOccupied {
		return nil, domain.NewConflict(domain.ConflictAlreadyOccupied)
	}
	if maintenance {
		room.Status = domain.RoomMaintenance
	} else {
		room.Status = domain.RoomVacant
	}
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ListRooms returns the rooms of a property and refreshes the occupancy gauge.
func (s *OccupancyService) ListRooms(ctx context.Context, propertyID string) ([]*domain.Room, error) {
	rooms, err := s.rooms.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	occupied := 0
	for _, r := range rooms {
		if r.Status == domain.RoomOccupied {
			occupied++
		}
	}
	metrics.SetOccupiedRooms(propertyID, occupied)
	return rooms, nil
}

// GetRoom returns one room within the property scope.
func (s *OccupancyService) GetRoom(ctx context.Context, propertyID, roomID string) (*domain.Room, error) {
	return s.getScoped(ctx, propertyID, roomID)
}

// CreateTenant adds a new unassigned, active tenant.
func (s *OccupancyService) CreateTenant(ctx context.Context, propertyID, name, phone, email string, moveIn time.Time) (*domain.Tenant, error) {
	if propertyID == "" {
		return nil, &domain.ValidationError{Field: "propertyId", Message: "is required"}
	}
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "is required"}
	}

	tenant := &domain.Tenant{
		ID:            uuid.NewString(),
		PropertyID:    propertyID,
		Name:          name,
		Phone:         phone,
		Email:         email,
		Status:        domain.TenantActive,
		PaymentStatus: domain.TenantPaid,
		MoveInDate:    moveIn,
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// UpdateTenant writes descriptive tenant fields only; the room link is owned
// by the assign/vacate paths.
func (s *OccupancyService) UpdateTenant(ctx context.Context, propertyID, tenantID, name, phone, email string) (*domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.PropertyID != propertyID {
		return nil, &domain.NotFoundError{Entity: "tenant", ID: tenantID}
	}
	if name != "" {
		tenant.Name = name
	}
	tenant.Phone = phone
	tenant.Email = email
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// RemoveTenant deletes a tenant record. An assigned tenant's room is vacated
// first through the same paired-write path, so invariants hold even when the
// delete fails afterwards.
func (s *OccupancyService) RemoveTenant(ctx context.Context, propertyID, tenantID string) error {
	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.PropertyID != propertyID {
		return &domain.NotFoundError{Entity: "tenant", ID: tenantID}
	}

	if tenant.RoomID != "" {
		if _, _, err := s.VacateRoom(ctx, propertyID, tenant.RoomID); err != nil {
			return err
		}
	}
	if err := s.tenants.Delete(ctx, tenantID); err != nil {
		return err
	}
	s.logger.Info("tenant removed", slog.String("tenant_id", tenantID))
	return nil
}

// ListTenants returns the tenants of a property.
func (s *OccupancyService) ListTenants(ctx context.Context, propertyID string) ([]*domain.Tenant, error) {
	return s.tenants.ListByProperty(ctx, propertyID)
}
