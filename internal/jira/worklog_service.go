package jira

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/tracktime-io/tracktime/internal/metrics"
	"github.com/tracktime-io/tracktime/internal/models"
	"github.com/tracktime-io/tracktime/internal/repository"
)

// startedFormat is the timestamp layout Jira expects on worklog records:
// ISO-8601 with millisecond and offset precision.
const startedFormat = "2006-01-02T15:04:05.000-0700"

const noDescription = "no description"

const transientRetries = 3

// WorklogService keeps a local entry's remote worklog in sync.
type WorklogService struct {
	client  *HTTPClientService
	auth    *AuthService
	tickets *TicketService
	entries repository.EntryRepository
}

func NewWorklogService(client *HTTPClientService, auth *AuthService, tickets *TicketService, entries repository.EntryRepository) *WorklogService {
	return &WorklogService{
		client:  client,
		auth:    auth,
		tickets: tickets,
		entries: entries,
	}
}

// UpdateEntryWorklog creates or updates the remote worklog for an entry.
//
// The entry is skipped without error when it carries no ticket, lacks its
// user/project/ticket-system context, or the user holds no usable token.
// Zero-duration entries delete the remote worklog instead: remote systems
// reject zero-length logs. A recorded worklog id that no longer exists
// remotely is treated as unset and re-created.
func (s *WorklogService) UpdateEntryWorklog(ctx context.Context, ts *models.TicketSystem, entry *models.Entry) error {
	if entry.Ticket == "" {
		return nil
	}
	if entry.User == nil || entry.Project == nil || ts == nil {
		return nil
	}
	if !s.auth.CheckUserTicketSystem(entry.User, ts) {
		return nil
	}
	if !s.tickets.DoesTicketExist(ctx, ts, entry.User, entry.Ticket) {
		return nil
	}

	if entry.Duration == 0 {
		return s.DeleteEntryWorklog(ctx, ts, entry)
	}

	if entry.WorklogID != nil && !s.DoesWorklogExist(ctx, ts, entry.User, entry.Ticket, *entry.WorklogID) {
		// Stale reference: the remote worklog was removed out of band.
		entry.WorklogID = nil
	}

	payload := &models.JiraWorklog{
		Comment:          worklogComment(entry),
		Started:          entry.StartedAt().Format(startedFormat),
		TimeSpentSeconds: entry.Duration * 60,
	}

	result := &models.JiraWorklog{}
	var err error
	if entry.WorklogID != nil {
		path := fmt.Sprintf("issue/%s/worklog/%d", url.PathEscape(entry.Ticket), *entry.WorklogID)
		err = s.withRetry(ctx, func() error {
			return s.client.Put(ctx, ts, entry.User, path, payload, result)
		})
	} else {
		path := fmt.Sprintf("issue/%s/worklog", url.PathEscape(entry.Ticket))
		posted := false
		err = s.withRetry(ctx, func() error {
			if posted {
				// The failed POST may still have committed remotely;
				// re-posting would duplicate the worklog.
				if id, ok := s.findWorklog(ctx, ts, entry.User, entry.Ticket, payload); ok {
					result.ID = strconv.FormatInt(id, 10)
					return nil
				}
			}
			posted = true
			return s.client.Post(ctx, ts, entry.User, path, payload, result)
		})
	}
	if err != nil {
		metrics.ObserveSync("update", false)
		return err
	}

	worklogID, err := strconv.ParseInt(result.ID, 10, 64)
	if result.ID == "" || err != nil {
		metrics.ObserveSync("update", false)
		return NewAPIError(http.StatusInternalServerError, "worklog response is missing id")
	}

	entry.WorklogID = &worklogID
	entry.SyncedToTicketsystem = true

	if err := s.entries.UpdateSyncState(entry); err != nil {
		return err
	}

	metrics.ObserveSync("update", true)

	return nil
}

// DeleteEntryWorklog removes the remote worklog of an entry. A worklog that
// is already gone remotely only gets cleared locally; the operation is
// idempotent and always leaves the entry unsynced with no worklog id.
func (s *WorklogService) DeleteEntryWorklog(ctx context.Context, ts *models.TicketSystem, entry *models.Entry) error {
	if entry.Ticket == "" || entry.WorklogID == nil {
		return nil
	}
	if entry.User == nil || entry.Project == nil || ts == nil {
		return nil
	}
	if !s.auth.CheckUserTicketSystem(entry.User, ts) {
		return nil
	}

	if s.DoesWorklogExist(ctx, ts, entry.User, entry.Ticket, *entry.WorklogID) {
		path := fmt.Sprintf("issue/%s/worklog/%d", url.PathEscape(entry.Ticket), *entry.WorklogID)
		err := s.withRetry(ctx, func() error {
			return s.client.Delete(ctx, ts, entry.User, path)
		})
		if err != nil && !IsNotFound(err) {
			metrics.ObserveSync("delete", false)
			return err
		}
	}

	entry.WorklogID = nil
	entry.SyncedToTicketsystem = false

	if err := s.entries.UpdateSyncState(entry); err != nil {
		return err
	}

	metrics.ObserveSync("delete", true)

	return nil
}

// DoesWorklogExist probes a remote worklog record by id.
func (s *WorklogService) DoesWorklogExist(ctx context.Context, ts *models.TicketSystem, user *models.User, ticket string, worklogID int64) bool {
	path := fmt.Sprintf("issue/%s/worklog/%d", url.PathEscape(ticket), worklogID)
	return s.client.DoesResourceExist(ctx, ts, user, path)
}

// findWorklog scans the ticket's remote worklogs for a record matching the
// payload's comment and start time, recovering the id of a create whose
// response was lost in transit.
func (s *WorklogService) findWorklog(ctx context.Context, ts *models.TicketSystem, user *models.User, ticket string, payload *models.JiraWorklog) (int64, bool) {
	var list struct {
		Worklogs []models.JiraWorklog `json:"worklogs"`
	}

	path := fmt.Sprintf("issue/%s/worklog", url.PathEscape(ticket))
	if err := s.client.Get(ctx, ts, user, path, &list); err != nil {
		return 0, false
	}

	for _, worklog := range list.Worklogs {
		if worklog.Comment != payload.Comment || worklog.Started != payload.Started {
			continue
		}
		id, err := strconv.ParseInt(worklog.ID, 10, 64)
		if err != nil {
			continue
		}
		return id, true
	}

	return 0, false
}

// SyncEntriesLimited syncs the user's entries for one ticket system, most
// recent first, at most limit entries when limit > 0. A failing entry is
// logged and skipped; the batch always makes partial progress.
func (s *WorklogService) SyncEntriesLimited(ctx context.Context, user *models.User, ts *models.TicketSystem, limit int) (int, error) {
	entries, err := s.entries.FindByUserAndTicketSystem(user.ID, ts.ID, limit)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, entry := range entries {
		entry.User = user
		if err := s.UpdateEntryWorklog(ctx, ts, entry); err != nil {
			log.Printf("failed to sync entry %d for user %d: %v", entry.ID, user.ID, err)
			continue
		}
		synced++
	}

	return synced, nil
}

// withRetry retries transient remote failures (5xx-class APIErrors) with
// exponential backoff. Client errors and authorization failures are permanent.
func (s *WorklogService) withRetry(ctx context.Context, op func() error) error {
	attempt := func() error {
		err := op()
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if !IsUnauthorized(err) && !IsNotFound(err) && errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError {
			return err
		}

		return backoff.Permanent(err)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), transientRetries)

	return backoff.Retry(attempt, backoff.WithContext(policy, ctx))
}

// worklogComment builds the pipe-joined comment line for a worklog record.
func worklogComment(entry *models.Entry) string {
	description := entry.Description
	if description == "" {
		description = noDescription
	}

	parts := make([]string, 0, 4)
	if entry.Customer != nil {
		parts = append(parts, entry.Customer.Name)
	}
	if entry.Project != nil {
		parts = append(parts, entry.Project.Name)
	}
	if entry.Activity != nil {
		parts = append(parts, entry.Activity.Name)
	}
	parts = append(parts, description)

	return strings.Join(parts, " | ")
}
