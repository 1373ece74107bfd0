package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/fencer/internal/core/domain"
)

// MemoryStorage backs every repository with maps behind one RWMutex.
// Used when no database URL is configured, and by tests.
type MemoryStorage struct {
	fences   map[string]*domain.Geofence
	members  map[string]map[string]*domain.Member // fenceID -> userID -> member
	users    map[string]*domain.User
	sessions map[string]*domain.Session
	audits   []*domain.AuditEvent
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		fences:   make(map[string]*domain.Geofence),
		members:  make(map[string]map[string]*domain.Member),
		users:    make(map[string]*domain.User),
		sessions: make(map[string]*domain.Session),
	}
}

// -----------------------------------------------------------------------------
// Fence Repository
// -----------------------------------------------------------------------------

type FenceRepo struct {
	store *MemoryStorage
}

func NewFenceRepo(store *MemoryStorage) *FenceRepo {
	return &FenceRepo{store: store}
}

func (r *FenceRepo) Create(ctx context.Context, fence *domain.Geofence) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *fence
	r.store.fences[fence.ID] = &cp
	return nil
}

func (r *FenceRepo) GetByID(ctx context.Context, id string) (*domain.Geofence, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	f, ok := r.store.fences[id]
	if !ok || f.Deleted() {
		return nil, domain.ErrFenceNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *FenceRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Geofence, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var fences []*domain.Geofence
	for fenceID, byUser := range r.store.members {
		if _, ok := byUser[userID]; !ok {
			continue
		}
		f, ok := r.store.fences[fenceID]
		if !ok || f.Deleted() {
			continue
		}
		cp := *f
		fences = append(fences, &cp)
	}
	sort.Slice(fences, func(i, j int) bool {
		return fences[i].CreatedAt.Before(fences[j].CreatedAt)
	})
	return fences, nil
}

func (r *FenceRepo) Update(ctx context.Context, fence *domain.Geofence) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.fences[fence.ID]
	if !ok || existing.Deleted() {
		return domain.ErrFenceNotFound
	}
	cp := *fence
	cp.CreatedAt = existing.CreatedAt
	r.store.fences[fence.ID] = &cp
	return nil
}

func (r *FenceRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f, ok := r.store.fences[id]
	if !ok || f.Deleted() {
		return domain.ErrFenceNotFound
	}
	f.DeletedAt = &at
	return nil
}

func (r *FenceRepo) PurgeDeletedBefore(ctx context.Context, threshold time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, f := range r.store.fences {
		if f.Deleted() && f.DeletedAt.Before(threshold) {
			delete(r.store.fences, id)
			delete(r.store.members, id)
			n++
		}
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Member Repository
// -----------------------------------------------------------------------------

type MemberRepo struct {
	store *MemoryStorage
}

func NewMemberRepo(store *MemoryStorage) *MemberRepo {
	return &MemberRepo{store: store}
}

func (r *MemberRepo) Add(ctx context.Context, m *domain.Member) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	byUser, ok := r.store.members[m.FenceID]
	if !ok {
		byUser = make(map[string]*domain.Member)
		r.store.members[m.FenceID] = byUser
	}
	if _, exists := byUser[m.UserID]; exists {
		return domain.ErrAlreadyMember
	}
	cp := *m
	byUser[m.UserID] = &cp
	return nil
}

func (r *MemberRepo) Get(ctx context.Context, fenceID, userID string) (*domain.Member, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	m, ok := r.store.members[fenceID][userID]
	if !ok {
		return nil, domain.ErrNotAMember
	}
	cp := *m
	return &cp, nil
}

func (r *MemberRepo) ListByFence(ctx context.Context, fenceID string) ([]*domain.Member, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var members []*domain.Member
	for _, m := range r.store.members[fenceID] {
		cp := *m
		members = append(members, &cp)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].AddedAt.Before(members[j].AddedAt)
	})
	return members, nil
}

func (r *MemberRepo) Remove(ctx context.Context, fenceID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.members[fenceID][userID]; !ok {
		return domain.ErrNotAMember
	}
	delete(r.store.members[fenceID], userID)
	return nil
}

func (r *MemberRepo) CountOwners(ctx context.Context, fenceID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, m := range r.store.members[fenceID] {
		if m.Role == domain.RoleOwner {
			count++
		}
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// User Repository
// -----------------------------------------------------------------------------

type UserRepo struct {
	store *MemoryStorage
}

func NewUserRepo(store *MemoryStorage) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	cp := *u
	r.store.users[u.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, u := range r.store.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// -----------------------------------------------------------------------------
// Session Repository
// -----------------------------------------------------------------------------

type SessionRepo struct {
	store *MemoryStorage
}

func NewSessionRepo(store *MemoryStorage) *SessionRepo {
	return &SessionRepo{store: store}
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *s
	r.store.sessions[s.ID] = &cp
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	s, ok := r.store.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *SessionRepo) Rotate(
	ctx context.Context,
	id, newRefreshTokenID string,
	expiresAt time.Time,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[id]
	if !ok || s.Revoked {
		return domain.ErrSessionNotFound
	}
	s.RefreshTokenID = newRefreshTokenID
	s.ExpiresAt = expiresAt
	return nil
}

func (r *SessionRepo) Revoke(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Revoked = true
	return nil
}

func (r *SessionRepo) DeleteExpiredBefore(
	ctx context.Context,
	threshold time.Time,
) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, s := range r.store.sessions {
		if s.Revoked || s.ExpiresAt.Before(threshold) {
			delete(r.store.sessions, id)
			n++
		}
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Audit Repository
// -----------------------------------------------------------------------------

type AuditRepo struct {
	store *MemoryStorage
}

func NewAuditRepo(store *MemoryStorage) *AuditRepo {
	return &AuditRepo{store: store}
}

func (r *AuditRepo) Record(ctx context.Context, e *domain.AuditEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *e
	r.store.audits = append(r.store.audits, &cp)
	return nil
}

func (r *AuditRepo) ListBySubject(
	ctx context.Context,
	subjectID string,
	limit int,
) ([]*domain.AuditEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var events []*domain.AuditEvent
	for i := len(r.store.audits) - 1; i >= 0 && len(events) < limit; i-- {
		if r.store.audits[i].SubjectID == subjectID {
			cp := *r.store.audits[i]
			events = append(events, &cp)
		}
	}
	return events, nil
}
