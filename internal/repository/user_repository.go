package repository

import (
	"database/sql"
	"fmt"

	"github.com/tracktime-io/tracktime/internal/models"
)

// SQLUserRepository reads users
type SQLUserRepository struct {
	db *sql.DB
}

func NewSQLUserRepository(db *sql.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

func (r *SQLUserRepository) GetByID(id int) (*models.User, error) {
	query := `SELECT id, username FROM users WHERE id = $1`

	user := &models.User{}
	err := r.db.QueryRow(query, id).Scan(&user.ID, &user.Username)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
