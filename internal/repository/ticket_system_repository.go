package repository

import (
	"database/sql"
	"fmt"

	"github.com/tracktime-io/tracktime/internal/models"
)

// SQLTicketSystemRepository reads ticket system configurations
type SQLTicketSystemRepository struct {
	db *sql.DB
}

func NewSQLTicketSystemRepository(db *sql.DB) *SQLTicketSystemRepository {
	return &SQLTicketSystemRepository{db: db}
}

const ticketSystemSelect = `
	SELECT id, name, type, url, ticket_url, book_time, login, password,
		public_key, private_key, oauth_consumer_key, oauth_consumer_secret
	FROM ticket_systems`

func scanTicketSystem(row interface{ Scan(...any) error }) (*models.TicketSystem, error) {
	ts := &models.TicketSystem{}
	var login, password, publicKey, privateKey, consumerKey, consumerSecret sql.NullString

	err := row.Scan(
		&ts.ID,
		&ts.Name,
		&ts.Type,
		&ts.URL,
		&ts.TicketURL,
		&ts.BookTime,
		&login,
		&password,
		&publicKey,
		&privateKey,
		&consumerKey,
		&consumerSecret,
	)
	if err != nil {
		return nil, err
	}

	ts.Login = login.String
	ts.Password = password.String
	ts.PublicKey = publicKey.String
	ts.PrivateKey = privateKey.String
	ts.OAuthConsumerKey = consumerKey.String
	ts.OAuthConsumerSecret = consumerSecret.String

	return ts, nil
}

func (r *SQLTicketSystemRepository) GetByID(id int) (*models.TicketSystem, error) {
	ts, err := scanTicketSystem(r.db.QueryRow(ticketSystemSelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket system: %w", err)
	}

	return ts, nil
}

func (r *SQLTicketSystemRepository) List() ([]*models.TicketSystem, error) {
	rows, err := r.db.Query(ticketSystemSelect + ` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket systems: %w", err)
	}
	defer rows.Close()

	var systems []*models.TicketSystem
	for rows.Next() {
		ts, err := scanTicketSystem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket system: %w", err)
		}
		systems = append(systems, ts)
	}

	return systems, rows.Err()
}
