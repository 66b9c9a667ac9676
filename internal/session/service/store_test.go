package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"auth-control-plane/backend/internal/security"
	"auth-control-plane/backend/internal/session/domain"
)

// memSessionRepo mirrors the Postgres repository's semantics in memory:
// reads exclude expired rows, and CreateEvicting drops the least-recently-
// active sessions to stay under the cap.
type memSessionRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byID: map[string]*domain.Session{}}
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byID[id]
	if s == nil || s.Expired(time.Now()) {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.RefreshTokenHash == hash && !s.Expired(time.Now()) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.byID {
		if s.UserID == userID && !s.Expired(time.Now()) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memSessionRepo) CreateEvicting(ctx context.Context, s *domain.Session, maxSessions int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []*domain.Session
	for _, existing := range r.byID {
		if existing.UserID == s.UserID && !existing.Expired(time.Now()) {
			active = append(active, existing)
		}
	}
	if over := len(active) - maxSessions + 1; over > 0 {
		sort.Slice(active, func(i, j int) bool {
			if !active[i].LastActivityAt.Equal(active[j].LastActivityAt) {
				return active[i].LastActivityAt.Before(active[j].LastActivityAt)
			}
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		})
		for _, victim := range active[:over] {
			delete(r.byID, victim.ID)
		}
	}
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) UpdateRefreshTokenHash(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		s.RefreshTokenHash = hash
		s.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *memSessionRepo) TouchActivity(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		s.LastActivityAt = at
	}
	return nil
}

func (r *memSessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	delete(r.byID, id)
	return ok, nil
}

func (r *memSessionRepo) DeleteAllByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.byID {
		if s.UserID == userID {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteOthers(ctx context.Context, keepID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.byID {
		if s.UserID == userID && id != keepID {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *memSessionRepo) setActivity(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].LastActivityAt = at
}

func newTestStore(maxSessions int) (*Store, *memSessionRepo) {
	repo := newMemSessionRepo()
	return NewStore(repo, maxSessions, time.Hour), repo
}

func TestStore_CreateReturnsRawTokenStoresHash(t *testing.T) {
	store, repo := newTestStore(5)
	ctx := context.Background()

	sess, token, err := store.Create(ctx, "user-1", domain.ClientMeta{UserAgent: "test"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if token == "" {
		t.Fatal("expected a raw refresh token")
	}
	stored := repo.byID[sess.ID]
	if stored.RefreshTokenHash == token {
		t.Fatal("raw token must not be persisted")
	}
	if stored.RefreshTokenHash != security.HashRefreshToken(token) {
		t.Fatal("stored hash does not match the issued token")
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Fatal("session must not be created expired")
	}
}

func TestStore_CapEvictsLeastRecentlyActive(t *testing.T) {
	store, repo := newTestStore(2)
	ctx := context.Background()

	s1, _, _ := store.Create(ctx, "user-1", domain.ClientMeta{})
	s2, _, _ := store.Create(ctx, "user-1", domain.ClientMeta{})
	// s1 is the stale one.
	repo.setActivity(s1.ID, time.Now().Add(-time.Hour))
	repo.setActivity(s2.ID, time.Now().Add(-time.Minute))

	s3, _, err := store.Create(ctx, "user-1", domain.ClientMeta{})
	if err != nil {
		t.Fatalf("Create over cap: %v", err)
	}

	if got, _ := store.FindByID(ctx, s1.ID); got != nil {
		t.Error("least-recently-active session should have been evicted")
	}
	if _, err := store.FindByID(ctx, s2.ID); err != nil {
		t.Errorf("s2 should survive: %v", err)
	}
	if _, err := store.FindByID(ctx, s3.ID); err != nil {
		t.Errorf("new session should exist: %v", err)
	}
	active, _ := store.ListActive(ctx, "user-1")
	if len(active) != 2 {
		t.Errorf("active sessions = %d, want 2", len(active))
	}
}

func TestStore_CapEvictionTieBreaksOnCreatedAt(t *testing.T) {
	store, repo := newTestStore(2)
	ctx := context.Background()

	s1, _, _ := store.Create(ctx, "user-1", domain.ClientMeta{})
	s2, _, _ := store.Create(ctx, "user-1", domain.ClientMeta{})

	// Same activity timestamp; the older session loses.
	same := time.Now().Add(-time.Minute)
	repo.setActivity(s1.ID, same)
	repo.setActivity(s2.ID, same)
	repo.mu.Lock()
	repo.byID[s1.ID].CreatedAt = time.Now().Add(-2 * time.Hour)
	repo.byID[s2.ID].CreatedAt = time.Now().Add(-time.Hour)
	repo.mu.Unlock()

	if _, _, err := store.Create(ctx, "user-1", domain.ClientMeta{}); err != nil {
		t.Fatalf("Create over cap: %v", err)
	}
	if got, _ := store.FindByID(ctx, s1.ID); got != nil {
		t.Error("oldest session should lose the tie-break")
	}
	if _, err := store.FindByID(ctx, s2.ID); err != nil {
		t.Errorf("newer session should survive: %v", err)
	}
}

func TestStore_FourLoginsCapThree(t *testing.T) {
	store, repo := newTestStore(3)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		s, _, err := store.Create(ctx, "user-1", domain.ClientMeta{})
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		ids = append(ids, s.ID)
		// Strictly increasing activity: the first login is the stalest.
		repo.setActivity(s.ID, base.Add(time.Duration(i)*time.Minute))
	}

	s4, _, err := store.Create(ctx, "user-1", domain.ClientMeta{})
	if err != nil {
		t.Fatalf("fourth Create: %v", err)
	}
	repo.setActivity(s4.ID, base.Add(3*time.Minute))

	active, err := store.ListActive(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("active = %d, want 3", len(active))
	}
	// Newest activity first: the fourth login, then the third, then the second.
	want := []string{s4.ID, ids[2], ids[1]}
	for i, s := range active {
		if s.ID != want[i] {
			t.Errorf("active[%d] = %s, want %s", i, s.ID, want[i])
		}
	}
	if got, _ := store.FindByID(ctx, ids[0]); got != nil {
		t.Error("first login should have been evicted")
	}
}

func TestStore_CapIsPerUser(t *testing.T) {
	store, _ := newTestStore(1)
	ctx := context.Background()

	a, _, _ := store.Create(ctx, "user-a", domain.ClientMeta{})
	if _, _, err := store.Create(ctx, "user-b", domain.ClientMeta{}); err != nil {
		t.Fatalf("Create for second user: %v", err)
	}
	if _, err := store.FindByID(ctx, a.ID); err != nil {
		t.Errorf("another user's login must not evict this session: %v", err)
	}
}

func TestStore_RotateInvalidatesOldToken(t *testing.T) {
	store, _ := newTestStore(5)
	ctx := context.Background()

	sess, oldToken, _ := store.Create(ctx, "user-1", domain.ClientMeta{})

	newToken, err := store.RotateRefreshToken(ctx, sess.ID)
	if err != nil {
		t.Fatalf("RotateRefreshToken: %v", err)
	}
	if newToken == oldToken {
		t.Fatal("rotation must mint a different token")
	}
	if _, err := store.FindByRefreshToken(ctx, oldToken); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("old token after rotation: want ErrSessionNotFound, got %v", err)
	}
	got, err := store.FindByRefreshToken(ctx, newToken)
	if err != nil {
		t.Fatalf("new token lookup: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("new token resolves to %s, want %s", got.ID, sess.ID)
	}
}

func TestStore_ExpiredSessionsInvisible(t *testing.T) {
	store, repo := newTestStore(5)
	ctx := context.Background()

	sess, token, _ := store.Create(ctx, "user-1", domain.ClientMeta{})
	repo.mu.Lock()
	repo.byID[sess.ID].ExpiresAt = time.Now().Add(-time.Second)
	repo.mu.Unlock()

	if _, err := store.FindByID(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired FindByID: want ErrSessionNotFound, got %v", err)
	}
	if _, err := store.FindByRefreshToken(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired FindByRefreshToken: want ErrSessionNotFound, got %v", err)
	}
	active, _ := store.ListActive(ctx, "user-1")
	if len(active) != 0 {
		t.Errorf("expired session listed as active: %v", active)
	}
}

func TestStore_TerminateChecksOwnership(t *testing.T) {
	store, _ := newTestStore(5)
	ctx := context.Background()

	sess, _, _ := store.Create(ctx, "user-1", domain.ClientMeta{})

	if err := store.Terminate(ctx, sess.ID, "user-2"); !errors.Is(err, ErrNotSessionOwner) {
		t.Fatalf("foreign terminate: want ErrNotSessionOwner, got %v", err)
	}
	if _, err := store.FindByID(ctx, sess.ID); err != nil {
		t.Fatalf("session must survive a foreign terminate: %v", err)
	}

	if err := store.Terminate(ctx, sess.ID, "user-1"); err != nil {
		t.Fatalf("owner terminate: %v", err)
	}
	if err := store.Terminate(ctx, sess.ID, "user-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("double terminate: want ErrSessionNotFound, got %v", err)
	}
}

func TestStore_TerminateAllAndOthers(t *testing.T) {
	store, _ := newTestStore(5)
	ctx := context.Background()

	keep, _, _ := store.Create(ctx, "user-1", domain.ClientMeta{})
	store.Create(ctx, "user-1", domain.ClientMeta{})
	store.Create(ctx, "user-1", domain.ClientMeta{})
	other, _, _ := store.Create(ctx, "user-2", domain.ClientMeta{})

	if err := store.TerminateOthers(ctx, keep.ID, "user-1"); err != nil {
		t.Fatalf("TerminateOthers: %v", err)
	}
	active, _ := store.ListActive(ctx, "user-1")
	if len(active) != 1 || active[0].ID != keep.ID {
		t.Fatalf("after TerminateOthers: %v", active)
	}
	if _, err := store.FindByID(ctx, other.ID); err != nil {
		t.Errorf("other user's session must survive: %v", err)
	}

	if err := store.TerminateAll(ctx, "user-1"); err != nil {
		t.Fatalf("TerminateAll: %v", err)
	}
	active, _ = store.ListActive(ctx, "user-1")
	if len(active) != 0 {
		t.Fatalf("after TerminateAll: %v", active)
	}
	// No sessions left; still a no-op success.
	if err := store.TerminateAll(ctx, "user-1"); err != nil {
		t.Fatalf("TerminateAll on empty: %v", err)
	}
}
