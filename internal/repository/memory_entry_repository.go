package repository

import (
	"sort"
	"sync"

	"github.com/tracktime-io/tracktime/internal/models"
)

// MemoryEntryRepository implements EntryRepository with in-memory storage.
// This is for development/testing. Production should use the SQL implementation.
type MemoryEntryRepository struct {
	mu      sync.RWMutex
	entries map[int]*models.Entry
	nextID  int
}

func NewMemoryEntryRepository() *MemoryEntryRepository {
	return &MemoryEntryRepository{
		entries: make(map[int]*models.Entry),
		nextID:  1,
	}
}

// Add stores an entry, assigning an id when it has none.
func (r *MemoryEntryRepository) Add(entry *models.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == 0 {
		entry.ID = r.nextID
		r.nextID++
	} else if entry.ID >= r.nextID {
		r.nextID = entry.ID + 1
	}

	clone := *entry
	r.entries[entry.ID] = &clone
}

func (r *MemoryEntryRepository) GetByID(id int) (*models.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *entry
	return &clone, nil
}

func (r *MemoryEntryRepository) UpdateSyncState(entry *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.entries[entry.ID]
	if !ok {
		return ErrNotFound
	}

	stored.WorklogID = entry.WorklogID
	stored.SyncedToTicketsystem = entry.SyncedToTicketsystem

	return nil
}

func (r *MemoryEntryRepository) FindByUserAndTicketSystem(userID, ticketSystemID, limit int) ([]*models.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*models.Entry
	for _, entry := range r.entries {
		if entry.UserID != userID || entry.Ticket == "" || entry.Project == nil {
			continue
		}
		matches := (entry.Project.TicketSystemID != nil && *entry.Project.TicketSystemID == ticketSystemID) ||
			(entry.Project.InternalJiraTicketSystem != nil && *entry.Project.InternalJiraTicketSystem == ticketSystemID)
		if !matches {
			continue
		}
		clone := *entry
		entries = append(entries, &clone)
	}

	// Most recent first
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Day.Equal(entries[j].Day) {
			return entries[i].Day.After(entries[j].Day)
		}
		return entries[i].Start.After(entries[j].Start)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
