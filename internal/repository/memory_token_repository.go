package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/tracktime-io/tracktime/internal/models"
)

// MemoryTokenRepository implements TokenRepository with in-memory storage.
// This is for development/testing. Production should use the SQL implementation.
type MemoryTokenRepository struct {
	mu     sync.RWMutex
	tokens map[[2]int]*models.UserTicketToken
	nextID int
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{
		tokens: make(map[[2]int]*models.UserTicketToken),
		nextID: 1,
	}
}

func (r *MemoryTokenRepository) Find(userID, ticketSystemID int) (*models.UserTicketToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[[2]int{userID, ticketSystemID}]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *token
	return &clone, nil
}

func (r *MemoryTokenRepository) Upsert(token *models.UserTicketToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]int{token.UserID, token.TicketSystemID}
	now := time.Now()

	if existing, ok := r.tokens[key]; ok {
		token.ID = existing.ID
		token.CreateTime = existing.CreateTime
	} else {
		token.ID = r.nextID
		r.nextID++
		token.CreateTime = now
	}
	token.ChangeTime = now

	clone := *token
	r.tokens[key] = &clone

	return nil
}

func (r *MemoryTokenRepository) Delete(userID, ticketSystemID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, [2]int{userID, ticketSystemID})
	return nil
}

func (r *MemoryTokenRepository) ListUserIDs(ticketSystemID int) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int
	for key, token := range r.tokens {
		if key[1] == ticketSystemID && !token.AvoidConnection {
			ids = append(ids, key[0])
		}
	}
	sort.Ints(ids)

	return ids, nil
}

func (r *MemoryTokenRepository) ListByUser(userID int) ([]*models.UserTicketToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tokens []*models.UserTicketToken
	for key, token := range r.tokens {
		if key[0] == userID {
			clone := *token
			tokens = append(tokens, &clone)
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].TicketSystemID < tokens[j].TicketSystemID
	})

	return tokens, nil
}
