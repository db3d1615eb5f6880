package models

import "strings"

// TicketSystemType identifies the kind of remote ticket system
type TicketSystemType string

const (
	TicketSystemTypeJira      TicketSystemType = "JIRA"
	TicketSystemTypeOTRS      TicketSystemType = "OTRS"
	TicketSystemTypeFreshdesk TicketSystemType = "FRESHDESK"
)

// TicketSystem represents a configured remote ticket system.
// Created and edited by the admin surface; the sync core treats it as read-only.
type TicketSystem struct {
	ID                  int              `json:"id" db:"id"`
	Name                string           `json:"name" db:"name"`
	Type                TicketSystemType `json:"type" db:"type"`
	URL                 string           `json:"url" db:"url"`
	TicketURL           string           `json:"ticket_url" db:"ticket_url"` // template with %s placeholder for the ticket key
	BookTime            bool             `json:"book_time" db:"book_time"`
	Login               string           `json:"login,omitempty" db:"login"`
	Password            string           `json:"-" db:"password"`
	PublicKey           string           `json:"-" db:"public_key"`
	PrivateKey          string           `json:"-" db:"private_key"` // PEM-encoded RSA key for OAuth1 request signing
	OAuthConsumerKey    string           `json:"oauth_consumer_key,omitempty" db:"oauth_consumer_key"`
	OAuthConsumerSecret string           `json:"-" db:"oauth_consumer_secret"`
}

// BaseURL returns the system URL without a trailing slash.
func (ts *TicketSystem) BaseURL() string {
	return strings.TrimSuffix(ts.URL, "/")
}

// TicketLink expands the ticket URL template for the given ticket key.
// Returns "" when no template is configured.
func (ts *TicketSystem) TicketLink(ticket string) string {
	if ts.TicketURL == "" || ticket == "" {
		return ""
	}
	if strings.Contains(ts.TicketURL, "%s") {
		return strings.Replace(ts.TicketURL, "%s", ticket, 1)
	}
	return strings.TrimSuffix(ts.TicketURL, "/") + "/" + ticket
}
