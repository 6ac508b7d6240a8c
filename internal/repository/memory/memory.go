// Package memory holds map-backed repositories with the same semantics as
// the postgres ones. They back the test suites and DB-less development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/acadops/timetable-backend/internal/models"
	"github.com/acadops/timetable-backend/internal/repository"
)

type UsersRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]models.User
}

func NewUsers() *UsersRepo {
	return &UsersRepo{nextID: 1, users: map[int64]models.User{}}
}

func (r *UsersRepo) Create(_ context.Context, u models.User) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = r.nextID
	r.nextID++
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = u
	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *UsersRepo) GetByResetToken(ctx context.Context, token string) (models.User, error) {
	return r.find(func(u models.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token
	})
}

func (r *UsersRepo) find(match func(models.User) bool) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (r *UsersRepo) List(_ context.Context, f repository.UserFilter, skip, limit int) ([]models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.User
	for _, u := range r.users {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return window(all, skip, limit), int64(len(all)), nil
}

func (r *UsersRepo) Update(_ context.Context, u models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = time.Now()
	r.users[u.ID] = u
	return nil
}

func (r *UsersRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type AuditRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []models.AuditEntry

	// FailInserts makes Insert return an error; used to exercise the
	// "audit failure never surfaces" paths.
	FailInserts error
}

func NewAuditEntries() *AuditRepo {
	return &AuditRepo{nextID: 1}
}

func (r *AuditRepo) Insert(_ context.Context, e models.NewAuditEntry) (models.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInserts != nil {
		return models.AuditEntry{}, r.FailInserts
	}
	entry := models.AuditEntry{
		ID:         r.nextID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Changes:    e.Changes,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		Timestamp:  time.Now(),
	}
	r.nextID++
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *AuditRepo) List(_ context.Context, f repository.AuditFilter, skip, limit int) ([]models.AuditEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.AuditEntry
	for _, e := range r.entries {
		if !matches(e, f) {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.After(all[j].Timestamp)
		}
		return all[i].ID > all[j].ID
	})
	return window(all, skip, limit), int64(len(all)), nil
}

func matches(e models.AuditEntry, f repository.AuditFilter) bool {
	if f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID) {
		return false
	}
	if f.EntityType != "" && (e.EntityType == nil || *e.EntityType != f.EntityType) {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Start != nil && e.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && e.Timestamp.After(*f.End) {
		return false
	}
	return true
}

func (r *AuditRepo) GetByID(_ context.Context, id int64) (models.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return models.AuditEntry{}, repository.ErrNotFound
}

// All returns a snapshot in insertion order.
func (r *AuditRepo) All() []models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func window[T any](all []T, skip, limit int) []T {
	if skip >= len(all) {
		return nil
	}
	all = all[skip:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all
}
