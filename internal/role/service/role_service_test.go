package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"auth-control-plane/backend/internal/role/domain"
)

type memRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Role
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.byID[id]; ok {
		cp := *role
		return &cp, nil
	}
	return nil, nil
}

func (r *memRepo) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.byID {
		if role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListActive(ctx context.Context) ([]*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Role
	for _, role := range r.byID {
		if role.IsActive {
			cp := *role
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) Create(ctx context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *role
	r.byID[role.ID] = &cp
	return nil
}

func (r *memRepo) Update(ctx context.Context, role *domain.Role) error {
	return r.Create(ctx, role)
}

func newTestService() (*RoleService, *memRepo) {
	repo := &memRepo{byID: map[string]*domain.Role{}}
	return NewRoleService(repo), repo
}

func TestRoleService_CreateAndGet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	role, err := svc.Create(ctx, CreateInput{Name: "auditor", DisplayName: "Auditor"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !role.IsActive {
		t.Error("new roles must start active")
	}

	got, err := svc.Get(ctx, role.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "auditor" {
		t.Errorf("Name = %q", got.Name)
	}

	if _, err := svc.Get(ctx, "nope"); !errors.Is(err, ErrRoleNotFound) {
		t.Errorf("unknown id: want ErrRoleNotFound, got %v", err)
	}
}

func TestRoleService_CreateDuplicateName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Name: "auditor", DisplayName: "Auditor"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Name: "auditor", DisplayName: "Other"}); !errors.Is(err, ErrRoleExists) {
		t.Errorf("duplicate name: want ErrRoleExists, got %v", err)
	}
}

func TestRoleService_FindByNameSkipsInactive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	role, _ := svc.Create(ctx, CreateInput{Name: "auditor", DisplayName: "Auditor"})

	got, err := svc.FindByName(ctx, "auditor")
	if err != nil || got == nil {
		t.Fatalf("FindByName active: got %v, err %v", got, err)
	}

	if err := svc.Remove(ctx, role.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got, err = svc.FindByName(ctx, "auditor")
	if err != nil {
		t.Fatalf("FindByName after remove: %v", err)
	}
	if got != nil {
		t.Error("inactive role must not be found by name")
	}
	// The row survives; only the flag flips.
	kept, err := svc.Get(ctx, role.ID)
	if err != nil {
		t.Fatalf("Get after remove: %v", err)
	}
	if kept.IsActive {
		t.Error("Remove must mark the role inactive")
	}
}

func TestRoleService_Update(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	role, _ := svc.Create(ctx, CreateInput{Name: "auditor", DisplayName: "Auditor", Description: "Read access"})

	display := "Lead Auditor"
	active := false
	updated, err := svc.Update(ctx, role.ID, UpdateInput{DisplayName: &display, IsActive: &active})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.DisplayName != "Lead Auditor" || updated.IsActive {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Description != "Read access" {
		t.Error("nil pointer must leave Description unchanged")
	}
}

func TestRoleService_SeedDefaults(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	for _, name := range []string{domain.NameAdmin, domain.NameModerator, domain.NameUser} {
		role, err := svc.FindByName(ctx, name)
		if err != nil {
			t.Fatalf("FindByName(%s): %v", name, err)
		}
		if role == nil {
			t.Fatalf("bootstrap role %s missing", name)
		}
	}

	// A second run must not duplicate or reset anything.
	admin, _ := svc.FindByName(ctx, domain.NameAdmin)
	display := "Custom"
	if _, err := svc.Update(ctx, admin.ID, UpdateInput{DisplayName: &display}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults repeat: %v", err)
	}
	if len(repo.byID) != 3 {
		t.Errorf("roles after reseed = %d, want 3", len(repo.byID))
	}
	again, _ := svc.FindByName(ctx, domain.NameAdmin)
	if again.DisplayName != "Custom" {
		t.Error("reseeding must not touch existing roles")
	}
}
