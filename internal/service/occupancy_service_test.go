package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aryan0dhankhar/roomdesk/internal/domain"
)

// memRoomRepo is an in-memory RoomRepository with optional failure injection.
type memRoomRepo struct {
	rooms      map[string]*domain.Room
	failUpdate bool
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{rooms: map[string]*domain.Room{}}
}

func (r *memRoomRepo) Create(_ context.Context, room *domain.Room) error {
	cp := *room
	r.rooms[room.ID] = &cp
	return nil
}

func (r *memRoomRepo) GetByID(_ context.Context, id string) (*domain.Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "room", ID: id}
	}
	cp := *room
	return &cp, nil
}

func (r *memRoomRepo) Update(_ context.Context, room *domain.Room) error {
	if r.failUpdate {
		return &domain.RemoteError{Op: "update room", Err: errors.New("injected")}
	}
	if _, ok := r.rooms[room.ID]; !ok {
		return &domain.NotFoundError{Entity: "room", ID: room.ID}
	}
	cp := *room
	r.rooms[room.ID] = &cp
	return nil
}

func (r *memRoomRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.rooms[id]; !ok {
		return &domain.NotFoundError{Entity: "room", ID: id}
	}
	delete(r.rooms, id)
	return nil
}

func (r *memRoomRepo) ListByProperty(_ context.Context, propertyID string) ([]*domain.Room, error) {
	var out []*domain.Room
	for _, room := range r.rooms {
		if room.PropertyID == propertyID {
			cp := *room
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memTenantRepo is an in-memory TenantRepository with optional failure injection.
type memTenantRepo struct {
	tenants    map[string]*domain.Tenant
	failUpdate bool
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: map[string]*domain.Tenant{}}
}

func (r *memTenantRepo) Create(_ context.Context, tenant *domain.Tenant) error {
	cp := *tenant
	r.tenants[tenant.ID] = &cp
	return nil
}

func (r *memTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	tenant, ok := r.tenants[id]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "tenant", ID: id}
	}
	cp := *tenant
	return &cp, nil
}

func (r *memTenantRepo) Update(_ context.Context, tenant *domain.Tenant) error {
	if r.failUpdate {
		return &domain.RemoteError{Op: "update tenant", Err: errors.New("injected")}
	}
	if _, ok := r.tenants[tenant.ID]; !ok {
		return &domain.NotFoundError{Entity: "tenant", ID: tenant.ID}
	}
	cp := *tenant
	r.tenants[tenant.ID] = &cp
	return nil
}

func (r *memTenantRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tenants[id]; !ok {
		return &domain.NotFoundError{Entity: "tenant", ID: id}
	}
	delete(r.tenants, id)
	return nil
}

func (r *memTenantRepo) ListByProperty(_ context.Context, propertyID string) ([]*domain.Tenant, error) {
	var out []*domain.Tenant
	for _, tenant := range r.tenants {
		if tenant.PropertyID == propertyID {
			cp := *tenant
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memTenantRepo) CountByRoom(_ context.Context, roomID string) (int, error) {
	n := 0
	for _, tenant := range r.tenants {
		if tenant.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func seedOccupancy(t *testing.T) (*OccupancyService, *memRoomRepo, *memTenantRepo) {
	t.Helper()
	rooms := newMemRoomRepo()
	tenants := newMemTenantRepo()
	rooms.rooms["r1"] = &domain.Room{ID: "r1", PropertyID: "p1", Name: "A-101", Floor: 1, Status: domain.RoomVacant, Rate: 150000}
	rooms.rooms["r2"] = &domain.Room{ID: "r2", PropertyID: "p1", Name: "A-102", Floor: 1, Status: domain.RoomVacant, Rate: 150000}
	tenants.tenants["t1"] = &domain.Tenant{ID: "t1", PropertyID: "p1", Name: "Alice", Status: domain.TenantActive, PaymentStatus: domain.TenantPaid}
	tenants.tenants["t2"] = &domain.Tenant{ID: "t2", PropertyID: "p1", Name: "Bob", Status: domain.TenantActive, PaymentStatus: domain.TenantPaid}
	return NewOccupancyService(rooms, tenants, nil), rooms, tenants
}

func TestAssignTenantLinksBothSides(t *testing.T) {
	svc, rooms, tenants := seedOccupancy(t)
	ctx := context.Background()

	room, tenant, err := svc.AssignTenant(ctx, "p1", "r1", "t1")
	if err != nil {
		t.Fatalf("AssignTenant failed: %v", err)
	}
	if room.Status != domain.RoomOccupied || room.TenantID != "t1" {
		t.Errorf("room not occupied by t1: %+v", room)
	}
	if tenant.RoomID != "r1" {
		t.Errorf("tenant not linked to r1: %+v", tenant)
	}
	if rooms.rooms["r1"].TenantID != "t1" || tenants.tenants["t1"].RoomID != "r1" {
		t.Error("store does not reflect both sides of the assignment")
	}
}

func TestAssignTenantOccupiedRoomConflicts(t *testing.T) {
	svc, _, _ := seedOccupancy(t)
	ctx := context.Background()

	if _, _, err := svc.AssignTenant(ctx, "p1", "r1", "t1"); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	_, _, err := svc.AssignTenant(ctx, "p1", "r1", "t2")
	if !domain.IsConflict(err, domain.ConflictAlreadyOccupied) {
		t.Errorf("expected already_occupied conflict, got %v", err)
	}
}

func TestAssignTenantAlreadyAssignedConflicts(t *testing.T) {
	svc, _, _ := seedOccupancy(t)
	ctx := context.Background()

	if _, _, err := svc.AssignTenant(ctx, "p1", "r1", "t1"); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	_, _, err := svc.AssignTenant(ctx, "p1", "r2", "t1")
	if !domain.IsConflict(err, domain.ConflictAlreadyAssigned) {
		t.Errorf("expected already_assigned conflict, got %v", err)
	}
}

func TestAssignTenantCompensatesRoomOnTenantFailure(t *testing.T) {
	svc, rooms, tenants := seedOccupancy(t)
	ctx := context.Background()
	tenants.failUpdate = true

	_, _, err := svc.AssignTenant(ctx, "p1", "r1", "t1")
	if err == nil {
		t.Fatal("expected assign to fail")
	}
	if !domain.IsRemote(err) {
		t.Errorf("expected remote error, got %v", err)
	}

	// Room write must have been reverted.
	room := rooms.rooms["r1"]
	if room.Status != domain.RoomVacant || room.TenantID != "" {
		t.Errorf("room not reverted after tenant failure: %+v", room)
	}
	if tenants.tenants["t1"].RoomID != "" {
		t.Errorf("tenant should remain unassigned: %+v", tenants.tenants["t1"])
	}
}

func TestCompensationFailureSurfacesBothErrors(t *testing.T) {
	svc, rooms, _ := seedOccupancy(t)
	ctx := context.Background()

	origRoom := *rooms.rooms["r1"]
	rooms.failUpdate = true

	err := svc.compensateRoom(ctx, "assign", &origRoom, errors.New("tenant boom"))
	if err == nil {
		t.Fatal("expected compensation failure error")
	}
	if !domain.IsRemote(err) {
		t.Errorf("expected remote error wrapping both failures, got %v", err)
	}
}

func TestVacateRoomClearsBothSides(t *testing.T) {
	svc, rooms, tenants := seedOccupancy(t)
	ctx := context.Background()

	if _, _, err := svc.AssignTenant(ctx, "p1", "r1", "t1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	room, tenant, err := svc.VacateRoom(ctx, "p1", "r1")
	if err != nil {
		t.Fatalf("VacateRoom failed: %v", err)
	}
	if room.Status != domain.RoomVacant || room.TenantID != "" {
		t.Errorf("room not vacated: %+v", room)
	}
	if tenant.RoomID != "" {
		t.Errorf("tenant still linked: %+v", tenant)
	}
	if rooms.rooms["r1"].TenantID != "" || tenants.tenants["t1"].RoomID != "" {
		t.Error("store does not reflect the vacate")
	}
}

func TestVacateVacantRoomConflicts(t *testing.T) {
	svc, _, _ := seedOccupancy(t)
	_, _, err := svc.VacateRoom(context.Background(), "p1", "r1")
	if !domain.IsConflict(err, domain.ConflictNotOccupied) {
		t.Errorf("expected not_occupied conflict, got %v", err)
	}
}

func TestDeleteOccupiedRoomReportsBlockingCount(t *testing.T) {
	svc, _, _ := seedOccupancy(t)
	ctx := context.Background()

	if _, _, err := svc.AssignTenant(ctx, "p1", "r1", "t1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	err := svc.DeleteRoom(ctx, "p1", "r1")
	var ce *domain.ConflictError
	if !errors.As(err, &ce) || ce.Kind != domain.ConflictHasTenants {
		t.Fatalf("expected has_tenants conflict, got %v", err)
	}
	if ce.Count != 1 {
		t.Errorf("expected count 1, got %d", ce.Count)
	}
}

func TestDeleteMaintenanceRoomConflicts(t *testing.T) {
	svc, _, _ := seedOccupancy(t)
	ctx := context.Background()

	if _, err := svc.SetMaintenance(ctx, "p1", "r1", true); err != nil {
		t.Fatalf("SetMaintenance failed: %v", err)
	}
	err := svc.DeleteRoom(ctx, "p1", "r1")
	if !domain.IsConflict(err, domain.ConflictNotVacant) {
		t.Errorf("expected not_vacant conflict, got %v", err)
	}
}

func TestDeleteVacantRoomSucceeds(t *testing.T) {
	svc, rooms, _ := seedOccupancy(t)
	if err := svc.DeleteRoom(context.Background(), "p1", "r1"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, ok := rooms.rooms["r1"]; ok {
		t.Error("room still in store after delete")
	}
}

func TestDuplicateRoomNeverCopiesAssignment(t *testing.T) {
	svc, _, _ := seedOccupancy(t)
	ctx := context.Background()

	if _, _, err := svc.AssignTenant(ctx, "p1", "r1", "t1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	copied, err := svc.DuplicateRoom(ctx, "p1", "r1")
	if err != nil {
		t.Fatalf("DuplicateRoom failed: %v", err)
	}
	if copied.Status != domain.RoomVacant || copied.TenantID != "" {
		t.Errorf("duplicate carried occupancy state: %+v", copied)
	}
	if copied.Name != "A-101 (copy)" {
		t.Errorf("unexpected duplicate name: %s", copied.Name)
	}
	if copied.Rate != 150000 || copied.Floor != 1 {
		t.Errorf("descriptive fields not copied: %+v", copied)
	}
}

func TestRoomsFromOtherPropertiesAreHidden(t *testing.T) {
	svc, rooms, _ := seedOccupancy(t)
	rooms.rooms["other"] = &domain.Room{ID: "other", PropertyID: "p2", Name: "B-201", Status: domain.RoomVacant}

	_, err := svc.GetRoom(context.Background(), "p1", "other")
	if !domain.IsNotFound(err) {
		t.Errorf("expected not found across property scope, got %v", err)
	}
}

func TestRemoveAssignedTenantVacatesFirst(t *testing.T) {
	svc, rooms, tenants := seedOccupancy(t)
	ctx := context.Background()

	if _, _, err := svc.AssignTenant(ctx, "p1", "r1", "t1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if err := svc.RemoveTenant(ctx, "p1", "t1"); err != nil {
		t.Fatalf("RemoveTenant failed: %v", err)
	}
	if rooms.rooms["r1"].Status != domain.RoomVacant || rooms.rooms["r1"].TenantID != "" {
		t.Errorf("room not vacated on tenant removal: %+v", rooms.rooms["r1"])
	}
	if _, ok := tenants.tenants["t1"]; ok {
		t.Error("tenant still in store after removal")
	}
}

func TestCreateTenantStartsUnassigned(t *testing.T) {
	svc, _, _ := seedOccupancy(t)
	tenant, err := svc.CreateTenant(context.Background(), "p1", "Carol", "555", "carol@example.com", time.Now())
	if err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}
	if tenant.RoomID != "" || tenant.Status != domain.TenantActive {
		t.Errorf("unexpected new tenant state: %+v", tenant)
	}
}
