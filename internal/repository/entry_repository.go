package repository

import (
	"database/sql"
	"fmt"

	"github.com/tracktime-io/tracktime/internal/models"
)

// SQLEntryRepository loads time entries with their relations resolved for sync
type SQLEntryRepository struct {
	db *sql.DB
}

func NewSQLEntryRepository(db *sql.DB) *SQLEntryRepository {
	return &SQLEntryRepository{db: db}
}

const entrySelect = `
	SELECT e.id, e.user_id, e.project_id, e.customer_id, e.activity_id,
		e.ticket, e.description, e.day, e.start, e.end, e.duration,
		e.worklog_id, e.synced_to_ticketsystem,
		u.username,
		p.name, p.jira_id, p.ticket_system_id, p.internal_jira_project_key, p.internal_jira_ticket_system,
		c.name,
		a.name
	FROM entries e
	JOIN users u ON u.id = e.user_id
	JOIN projects p ON p.id = e.project_id
	JOIN customers c ON c.id = e.customer_id
	JOIN activities a ON a.id = e.activity_id`

func (r *SQLEntryRepository) scanEntry(row interface{ Scan(...any) error }) (*models.Entry, error) {
	entry := &models.Entry{
		User:     &models.User{},
		Project:  &models.Project{},
		Customer: &models.Customer{},
		Activity: &models.Activity{},
	}

	var jiraID sql.NullString
	var internalKey sql.NullString
	var ticketSystemID, internalTicketSystem sql.NullInt64

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.ProjectID,
		&entry.CustomerID,
		&entry.ActivityID,
		&entry.Ticket,
		&entry.Description,
		&entry.Day,
		&entry.Start,
		&entry.End,
		&entry.Duration,
		&entry.WorklogID,
		&entry.SyncedToTicketsystem,
		&entry.User.Username,
		&entry.Project.Name,
		&jiraID,
		&ticketSystemID,
		&internalKey,
		&internalTicketSystem,
		&entry.Customer.Name,
		&entry.Activity.Name,
	)
	if err != nil {
		return nil, err
	}

	entry.User.ID = entry.UserID
	entry.Project.ID = entry.ProjectID
	entry.Customer.ID = entry.CustomerID
	entry.Activity.ID = entry.ActivityID
	entry.Project.JiraID = jiraID.String
	entry.Project.InternalJiraProjectKey = internalKey.String
	if ticketSystemID.Valid {
		id := int(ticketSystemID.Int64)
		entry.Project.TicketSystemID = &id
	}
	if internalTicketSystem.Valid {
		id := int(internalTicketSystem.Int64)
		entry.Project.InternalJiraTicketSystem = &id
	}

	return entry, nil
}

func (r *SQLEntryRepository) GetByID(id int) (*models.Entry, error) {
	entry, err := r.scanEntry(r.db.QueryRow(entrySelect+` WHERE e.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return entry, nil
}

// UpdateSyncState writes back the remote worklog id and sync flag for one entry.
func (r *SQLEntryRepository) UpdateSyncState(entry *models.Entry) error {
	query := `
		UPDATE entries
		SET worklog_id = $2, synced_to_ticketsystem = $3
		WHERE id = $1`

	if _, err := r.db.Exec(query, entry.ID, entry.WorklogID, entry.SyncedToTicketsystem); err != nil {
		return fmt.Errorf("failed to update entry sync state: %w", err)
	}

	return nil
}

// FindByUserAndTicketSystem returns entries carrying a ticket for one user and
// ticket system, most recent first. A limit <= 0 means unbounded.
func (r *SQLEntryRepository) FindByUserAndTicketSystem(userID, ticketSystemID, limit int) ([]*models.Entry, error) {
	query := entrySelect + `
		WHERE e.user_id = $1
			AND e.ticket <> ''
			AND (p.ticket_system_id = $2 OR p.internal_jira_ticket_system = $2)
		ORDER BY e.day DESC, e.start DESC`

	args := []any{userID, ticketSystemID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
