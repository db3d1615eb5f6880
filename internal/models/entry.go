package models

import "time"

// Customer represents the customer a time entry was booked for
type Customer struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Activity represents the kind of work performed (development, support, ...)
type Activity struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Project represents a customer project time entries are booked on
type Project struct {
	ID                       int    `json:"id" db:"id"`
	Name                     string `json:"name" db:"name"`
	CustomerID               int    `json:"customer_id" db:"customer_id"`
	JiraID                   string `json:"jira_id,omitempty" db:"jira_id"` // remote project key prefix, e.g. "TT"
	TicketSystemID           *int   `json:"ticket_system_id,omitempty" db:"ticket_system_id"`
	InternalJiraProjectKey   string `json:"internal_jira_project_key,omitempty" db:"internal_jira_project_key"`
	InternalJiraTicketSystem *int   `json:"internal_jira_ticket_system,omitempty" db:"internal_jira_ticket_system"`
}

// Entry represents one tracked time span. WorklogID and SyncedToTicketsystem
// are written back by the sync core after each successful remote operation.
type Entry struct {
	ID                   int       `json:"id" db:"id"`
	UserID               int       `json:"user_id" db:"user_id"`
	ProjectID            int       `json:"project_id" db:"project_id"`
	CustomerID           int       `json:"customer_id" db:"customer_id"`
	ActivityID           int       `json:"activity_id" db:"activity_id"`
	Ticket               string    `json:"ticket" db:"ticket"`
	Description          string    `json:"description" db:"description"`
	Day                  time.Time `json:"day" db:"day"`
	Start                time.Time `json:"start" db:"start"`
	End                  time.Time `json:"end" db:"end"`
	Duration             int       `json:"duration" db:"duration"` // minutes
	WorklogID            *int64    `json:"worklog_id,omitempty" db:"worklog_id"`
	SyncedToTicketsystem bool      `json:"synced_to_ticketsystem" db:"synced_to_ticketsystem"`

	// Resolved relations, populated by the repository when loading for sync.
	User     *User     `json:"user,omitempty" db:"-"`
	Project  *Project  `json:"project,omitempty" db:"-"`
	Customer *Customer `json:"customer,omitempty" db:"-"`
	Activity *Activity `json:"activity,omitempty" db:"-"`
}

// StartedAt combines Day and Start into the moment the work began.
func (e *Entry) StartedAt() time.Time {
	return time.Date(
		e.Day.Year(), e.Day.Month(), e.Day.Day(),
		e.Start.Hour(), e.Start.Minute(), e.Start.Second(), 0,
		e.Day.Location(),
	)
}
