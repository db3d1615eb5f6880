package jira

import (
	"context"
	"fmt"
	"log"

	"github.com/tracktime-io/tracktime/internal/models"
	"github.com/tracktime-io/tracktime/internal/repository"
)

// IntegrationService decides whether and how an entry is synced and exposes
// save/delete/bulk-sync to the web layer and the scheduler.
type IntegrationService struct {
	worklogs      *WorklogService
	auth          *AuthService
	ticketSystems repository.TicketSystemRepository
	tokens        repository.TokenRepository
	users         repository.UserRepository
	locks         SyncLocker
}

func NewIntegrationService(
	worklogs *WorklogService,
	auth *AuthService,
	ticketSystems repository.TicketSystemRepository,
	tokens repository.TokenRepository,
	users repository.UserRepository,
	locks SyncLocker,
) *IntegrationService {
	if locks == nil {
		locks = NewLocalSyncLocker()
	}
	return &IntegrationService{
		worklogs:      worklogs,
		auth:          auth,
		ticketSystems: ticketSystems,
		tokens:        tokens,
		users:         users,
		locks:         locks,
	}
}

// ShouldSync gates worklog synchronization: only Jira systems with time
// booking enabled, and only entries that reference a ticket and carry time.
func (s *IntegrationService) ShouldSync(ts *models.TicketSystem, entry *models.Entry) bool {
	if ts == nil || !ts.BookTime || ts.Type != models.TicketSystemTypeJira {
		return false
	}
	if entry.Ticket == "" || entry.Duration <= 0 {
		return false
	}
	return true
}

// ResolveTicketSystem picks the ticket system an entry syncs against: an
// explicit override wins, then the project's internal Jira system when the
// project declares an internal project key, then the project's own system.
func (s *IntegrationService) ResolveTicketSystem(entry *models.Entry, override *models.TicketSystem) *models.TicketSystem {
	if override != nil {
		return override
	}
	if entry.Project == nil {
		return nil
	}

	if entry.Project.InternalJiraProjectKey != "" && entry.Project.InternalJiraTicketSystem != nil {
		if ts, err := s.ticketSystems.GetByID(*entry.Project.InternalJiraTicketSystem); err == nil {
			return ts
		}
	}

	if entry.Project.TicketSystemID != nil {
		if ts, err := s.ticketSystems.GetByID(*entry.Project.TicketSystemID); err == nil {
			return ts
		}
	}

	return nil
}

// SaveWorklog syncs one entry's worklog. Unlike the bulk path, failures
// propagate to the caller after logging.
func (s *IntegrationService) SaveWorklog(ctx context.Context, entry *models.Entry, override *models.TicketSystem) error {
	ts := s.ResolveTicketSystem(entry, override)

	if !s.ShouldSync(ts, entry) {
		// A zero-duration entry with a recorded worklog still flows through:
		// the remote worklog must be removed.
		zeroDurationCleanup := ts != nil && ts.Type == models.TicketSystemTypeJira && ts.BookTime &&
			entry.Duration == 0 && entry.WorklogID != nil
		if !zeroDurationCleanup {
			return nil
		}
	}

	if entry.User == nil {
		return fmt.Errorf("entry %d has no user", entry.ID)
	}

	if err := s.worklogs.UpdateEntryWorklog(ctx, ts, entry); err != nil {
		log.Printf("failed to save worklog for entry %d: %v", entry.ID, err)
		return err
	}

	log.Printf("saved worklog for entry %d on ticket %s", entry.ID, entry.Ticket)

	return nil
}

// DeleteWorklog removes one entry's remote worklog. Failures propagate.
func (s *IntegrationService) DeleteWorklog(ctx context.Context, entry *models.Entry, override *models.TicketSystem) error {
	ts := s.ResolveTicketSystem(entry, override)
	if ts == nil || ts.Type != models.TicketSystemTypeJira || !ts.BookTime {
		return nil
	}

	if entry.User == nil {
		return fmt.Errorf("entry %d has no user", entry.ID)
	}

	if err := s.worklogs.DeleteEntryWorklog(ctx, ts, entry); err != nil {
		log.Printf("failed to delete worklog for entry %d: %v", entry.ID, err)
		return err
	}

	log.Printf("deleted worklog for entry %d on ticket %s", entry.ID, entry.Ticket)

	return nil
}

// BulkSyncEntries syncs a batch of entries, isolating failures per entry.
// The result map reports every entry; no failure aborts the batch.
func (s *IntegrationService) BulkSyncEntries(ctx context.Context, entries []*models.Entry, override *models.TicketSystem) map[int]models.SyncResult {
	results := make(map[int]models.SyncResult, len(entries))

	for _, entry := range entries {
		if err := s.SaveWorklog(ctx, entry, override); err != nil {
			results[entry.ID] = models.SyncResult{Success: false, Message: err.Error()}
			continue
		}
		results[entry.ID] = models.SyncResult{Success: true}
	}

	return results
}

// NeedsSync reports whether an entry still has to be pushed to its ticket system.
func (s *IntegrationService) NeedsSync(entry *models.Entry) bool {
	if entry.SyncedToTicketsystem {
		return false
	}
	return s.ShouldSync(s.ResolveTicketSystem(entry, nil), entry)
}

// SyncUser runs a bounded bulk sync of one user against one ticket system,
// serialized per (user, ticket system).
func (s *IntegrationService) SyncUser(ctx context.Context, user *models.User, ts *models.TicketSystem, limit int) (int, error) {
	release, err := s.locks.Lock(ctx, user.ID, ts.ID)
	if err != nil {
		return 0, err
	}
	defer release()

	return s.worklogs.SyncEntriesLimited(ctx, user, ts, limit)
}

// SyncAll walks every Jira ticket system with time booking enabled and syncs
// each user holding a usable token. Used by the scheduler; per-user failures
// are logged and do not stop the run.
func (s *IntegrationService) SyncAll(ctx context.Context, limit int) {
	systems, err := s.ticketSystems.List()
	if err != nil {
		log.Printf("scheduled sync: failed to list ticket systems: %v", err)
		return
	}

	for _, ts := range systems {
		if ts.Type != models.TicketSystemTypeJira || !ts.BookTime {
			continue
		}

		userIDs, err := s.tokens.ListUserIDs(ts.ID)
		if err != nil {
			log.Printf("scheduled sync: failed to list users for ticket system %d: %v", ts.ID, err)
			continue
		}

		for _, userID := range userIDs {
			user, err := s.users.GetByID(userID)
			if err != nil {
				log.Printf("scheduled sync: failed to load user %d: %v", userID, err)
				continue
			}

			synced, err := s.SyncUser(ctx, user, ts, limit)
			if err != nil {
				log.Printf("scheduled sync: user %d on ticket system %d failed: %v", userID, ts.ID, err)
				continue
			}
			if synced > 0 {
				log.Printf("scheduled sync: synced %d entries for user %d on ticket system %d", synced, userID, ts.ID)
			}
		}
	}
}
