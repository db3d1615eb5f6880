package repository

import (
	"sort"
	"sync"

	"github.com/tracktime-io/tracktime/internal/models"
)

// MemoryTicketSystemRepository implements TicketSystemRepository in memory
type MemoryTicketSystemRepository struct {
	mu      sync.RWMutex
	systems map[int]*models.TicketSystem
}

func NewMemoryTicketSystemRepository() *MemoryTicketSystemRepository {
	return &MemoryTicketSystemRepository{systems: make(map[int]*models.TicketSystem)}
}

func (r *MemoryTicketSystemRepository) Add(ts *models.TicketSystem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *ts
	r.systems[ts.ID] = &clone
}

func (r *MemoryTicketSystemRepository) GetByID(id int) (*models.TicketSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ts, ok := r.systems[id]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *ts
	return &clone, nil
}

func (r *MemoryTicketSystemRepository) List() ([]*models.TicketSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var systems []*models.TicketSystem
	for _, ts := range r.systems {
		clone := *ts
		systems = append(systems, &clone)
	}
	sort.Slice(systems, func(i, j int) bool { return systems[i].ID < systems[j].ID })

	return systems, nil
}

// MemoryUserRepository implements UserRepository in memory
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[int]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[int]*models.User)}
}

func (r *MemoryUserRepository) Add(user *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *user
	r.users[user.ID] = &clone
}

func (r *MemoryUserRepository) GetByID(id int) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *user
	return &clone, nil
}
