package jira

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tracktime-io/tracktime/internal/models"
)

const (
	defaultSummary     = "Timetracker Entry"
	defaultDescription = "No description provided"
)

// TicketService provides ticket-level operations on top of the signed transport.
type TicketService struct {
	client *HTTPClientService
}

func NewTicketService(client *HTTPClientService) *TicketService {
	return &TicketService{client: client}
}

// CreateTicket creates a remote issue for a time entry. The entry's project
// must carry a remote project key.
func (s *TicketService) CreateTicket(ctx context.Context, ts *models.TicketSystem, entry *models.Entry) (*models.JiraIssue, error) {
	if entry.Project == nil || entry.Project.JiraID == "" {
		return nil, NewAPIError(http.StatusBadRequest, "project has no remote project key configured")
	}

	summary := buildSummary(entry)
	description := entry.Description
	if description == "" {
		description = defaultDescription
	}

	payload := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": entry.Project.JiraID},
			"summary":     summary,
			"description": description,
			"issuetype":   map[string]string{"name": issueTypeForEntry(entry)},
		},
	}

	issue := &models.JiraIssue{}
	if err := s.client.Post(ctx, ts, entry.User, "issue/", payload, issue); err != nil {
		return nil, err
	}

	if issue.Key == "" {
		return nil, NewAPIError(http.StatusInternalServerError, "create issue response is missing key")
	}

	return issue, nil
}

// SearchTickets runs a JQL query. POST is used instead of GET so long
// queries do not overflow the URL.
func (s *TicketService) SearchTickets(ctx context.Context, ts *models.TicketSystem, user *models.User, jql string, fields []string, limit int) (*models.JiraSearchResult, error) {
	if limit <= 0 {
		limit = 1
	}

	request := &models.JiraSearchRequest{
		JQL:        jql,
		Fields:     fields,
		MaxResults: limit,
	}

	result := &models.JiraSearchResult{}
	if err := s.client.Post(ctx, ts, user, "search/", request, result); err != nil {
		return nil, err
	}

	return result, nil
}

// DoesTicketExist probes for an issue by key. Absence is expected, not
// exceptional: any API error reads as "does not exist".
func (s *TicketService) DoesTicketExist(ctx context.Context, ts *models.TicketSystem, user *models.User, key string) bool {
	issue := &models.JiraIssue{}
	if err := s.client.Get(ctx, ts, user, "issue/"+url.PathEscape(key), issue); err != nil {
		return false
	}
	return true
}

// GetSubtickets returns the subtasks of an issue, tolerating missing fields.
func (s *TicketService) GetSubtickets(ctx context.Context, ts *models.TicketSystem, user *models.User, key string) ([]models.Subticket, error) {
	issue := &models.JiraIssue{}
	if err := s.client.Get(ctx, ts, user, "issue/"+url.PathEscape(key), issue); err != nil {
		return nil, err
	}

	if issue.Fields == nil {
		return nil, nil
	}

	subtickets := make([]models.Subticket, 0, len(issue.Fields.Subtasks))
	for _, subtask := range issue.Fields.Subtasks {
		sub := models.Subticket{Key: subtask.Key}
		if subtask.Fields != nil {
			sub.Summary = subtask.Fields.Summary
			if subtask.Fields.Status != nil {
				sub.Status = subtask.Fields.Status.Name
			}
			if subtask.Fields.Assignee != nil {
				sub.Assignee = subtask.Fields.Assignee.DisplayName
				if sub.Assignee == "" {
					sub.Assignee = subtask.Fields.Assignee.Name
				}
			}
		}
		subtickets = append(subtickets, sub)
	}

	return subtickets, nil
}

// UpdateTicket applies a field update to an issue.
func (s *TicketService) UpdateTicket(ctx context.Context, ts *models.TicketSystem, user *models.User, key string, fields map[string]any) error {
	payload := map[string]any{"fields": fields}
	return s.client.Put(ctx, ts, user, "issue/"+url.PathEscape(key), payload, nil)
}

// AddComment appends a comment to an issue.
func (s *TicketService) AddComment(ctx context.Context, ts *models.TicketSystem, user *models.User, key, comment string) error {
	payload := map[string]string{"body": comment}
	return s.client.Post(ctx, ts, user, "issue/"+url.PathEscape(key)+"/comment", payload, nil)
}

// GetTransitions lists the workflow transitions available on an issue.
// Probe semantics: any API error yields an empty list.
func (s *TicketService) GetTransitions(ctx context.Context, ts *models.TicketSystem, user *models.User, key string) []models.JiraTransition {
	response := &models.JiraTransitionsResponse{}
	if err := s.client.Get(ctx, ts, user, "issue/"+url.PathEscape(key)+"/transitions", response); err != nil {
		return nil
	}
	return response.Transitions
}

// TransitionTicket moves an issue through a workflow transition.
func (s *TicketService) TransitionTicket(ctx context.Context, ts *models.TicketSystem, user *models.User, key, transitionID string) error {
	payload := map[string]any{
		"transition": map[string]string{"id": transitionID},
	}
	return s.client.Post(ctx, ts, user, "issue/"+url.PathEscape(key)+"/transitions", payload, nil)
}

// buildSummary joins the customer, project and activity names for the issue
// summary, falling back to a fixed label when all are absent.
func buildSummary(entry *models.Entry) string {
	var parts []string
	if entry.Customer != nil && entry.Customer.Name != "" {
		parts = append(parts, entry.Customer.Name)
	}
	if entry.Project != nil && entry.Project.Name != "" {
		parts = append(parts, entry.Project.Name)
	}
	if entry.Activity != nil && entry.Activity.Name != "" {
		parts = append(parts, entry.Activity.Name)
	}

	if len(parts) == 0 {
		return defaultSummary
	}

	return strings.Join(parts, " - ")
}

// issueTypeForEntry infers the remote issue type from the activity name.
func issueTypeForEntry(entry *models.Entry) string {
	if entry.Activity == nil {
		return "Task"
	}

	name := strings.ToLower(entry.Activity.Name)
	switch {
	case strings.Contains(name, "bug") || strings.Contains(name, "fix"):
		return "Bug"
	case strings.Contains(name, "feature") || strings.Contains(name, "development"):
		return "Story"
	case strings.Contains(name, "support") || strings.Contains(name, "maintenance"):
		return "Task"
	default:
		return "Task"
	}
}
