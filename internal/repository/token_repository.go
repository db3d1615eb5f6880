package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tracktime-io/tracktime/internal/models"
)

// SQLTokenRepository stores OAuth token pairs in the users_ticketsystems table
type SQLTokenRepository struct {
	db *sql.DB
}

func NewSQLTokenRepository(db *sql.DB) *SQLTokenRepository {
	return &SQLTokenRepository{db: db}
}

func (r *SQLTokenRepository) Find(userID, ticketSystemID int) (*models.UserTicketToken, error) {
	query := `
		SELECT id, user_id, ticket_system_id, access_token, token_secret,
			avoid_connection, create_time, change_time
		FROM users_ticketsystems
		WHERE user_id = $1 AND ticket_system_id = $2`

	token := &models.UserTicketToken{}
	err := r.db.QueryRow(query, userID, ticketSystemID).Scan(
		&token.ID,
		&token.UserID,
		&token.TicketSystemID,
		&token.AccessToken,
		&token.TokenSecret,
		&token.AvoidConnection,
		&token.CreateTime,
		&token.ChangeTime,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}

	return token, nil
}

// Upsert inserts or overwrites the single token row for (user, ticket system).
func (r *SQLTokenRepository) Upsert(token *models.UserTicketToken) error {
	query := `
		INSERT INTO users_ticketsystems (
			user_id, ticket_system_id, access_token, token_secret,
			avoid_connection, create_time, change_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, ticket_system_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			token_secret = EXCLUDED.token_secret,
			avoid_connection = EXCLUDED.avoid_connection,
			change_time = EXCLUDED.change_time
		RETURNING id`

	now := time.Now()
	err := r.db.QueryRow(query,
		token.UserID,
		token.TicketSystemID,
		token.AccessToken,
		token.TokenSecret,
		token.AvoidConnection,
		now,
		now,
	).Scan(&token.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert token: %w", err)
	}

	return nil
}

// Delete removes the token row if present; deleting a missing row is not an error.
func (r *SQLTokenRepository) Delete(userID, ticketSystemID int) error {
	query := `DELETE FROM users_ticketsystems WHERE user_id = $1 AND ticket_system_id = $2`

	if _, err := r.db.Exec(query, userID, ticketSystemID); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return nil
}

func (r *SQLTokenRepository) ListUserIDs(ticketSystemID int) ([]int, error) {
	query := `
		SELECT user_id FROM users_ticketsystems
		WHERE ticket_system_id = $1 AND avoid_connection = false
		ORDER BY user_id`

	rows, err := r.db.Query(query, ticketSystemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list token users: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *SQLTokenRepository) ListByUser(userID int) ([]*models.UserTicketToken, error) {
	query := `
		SELECT id, user_id, ticket_system_id, access_token, token_secret,
			avoid_connection, create_time, change_time
		FROM users_ticketsystems
		WHERE user_id = $1
		ORDER BY ticket_system_id`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.UserTicketToken
	for rows.Next() {
		token := &models.UserTicketToken{}
		if err := rows.Scan(
			&token.ID,
			&token.UserID,
			&token.TicketSystemID,
			&token.AccessToken,
			&token.TokenSecret,
			&token.AvoidConnection,
			&token.CreateTime,
			&token.ChangeTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}
