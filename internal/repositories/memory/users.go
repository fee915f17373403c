package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

// UserDirectory is a fixed identity source for local runs and tests.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewUserDirectory(users ...*models.User) *UserDirectory {
	dir := &UserDirectory{users: make(map[string]*models.User, len(users))}
	for _, u := range users {
		dir.Put(u)
	}
	return dir
}

func (d *UserDirectory) Put(u *models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *u
	cp.Roles = append([]models.UserRole(nil), u.Roles...)
	d.users[u.ID] = &cp
}

func (d *UserDirectory) GetByID(ctx context.Context, id string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (d *UserDirectory) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, err := d.GetByID(ctx, id); err == nil {
			users = append(users, u)
		}
	}
	return users, nil
}

func (d *UserDirectory) ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*models.User
	for _, u := range d.users {
		if u.HasRole(role) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
