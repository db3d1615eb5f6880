package repository

import (
	"errors"

	"github.com/tracktime-io/tracktime/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// TokenRepository persists per-(user, ticket system) OAuth token pairs
type TokenRepository interface {
	Find(userID, ticketSystemID int) (*models.UserTicketToken, error)
	Upsert(token *models.UserTicketToken) error
	Delete(userID, ticketSystemID int) error
	ListUserIDs(ticketSystemID int) ([]int, error)
	ListByUser(userID int) ([]*models.UserTicketToken, error)
}

// EntryRepository loads and writes back tracked time entries
type EntryRepository interface {
	GetByID(id int) (*models.Entry, error)
	UpdateSyncState(entry *models.Entry) error
	FindByUserAndTicketSystem(userID, ticketSystemID, limit int) ([]*models.Entry, error)
}

// TicketSystemRepository reads configured ticket systems
type TicketSystemRepository interface {
	GetByID(id int) (*models.TicketSystem, error)
	List() ([]*models.TicketSystem, error)
}

// UserRepository reads users
type UserRepository interface {
	GetByID(id int) (*models.User, error)
}
