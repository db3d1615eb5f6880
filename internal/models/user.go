package models

import "time"

// User represents a tracked user as seen by the sync core
type User struct {
	ID       int    `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
}

// UserTicketToken holds a user's OAuth token pair for one ticket system.
// At most one row exists per (user, ticket system); token and secret are
// encrypted at rest, legacy rows may still hold plaintext values.
type UserTicketToken struct {
	ID              int       `json:"id" db:"id"`
	UserID          int       `json:"user_id" db:"user_id"`
	TicketSystemID  int       `json:"ticket_system_id" db:"ticket_system_id"`
	AccessToken     string    `json:"-" db:"access_token"`
	TokenSecret     string    `json:"-" db:"token_secret"`
	AvoidConnection bool      `json:"avoid_connection" db:"avoid_connection"`
	CreateTime      time.Time `json:"create_time" db:"create_time"`
	ChangeTime      time.Time `json:"change_time" db:"change_time"`
}
