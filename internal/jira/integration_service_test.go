package jira

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracktime-io/tracktime/internal/models"
)

func TestShouldSync(t *testing.T) {
	stack := newTestStack(t)

	base := func() (*models.TicketSystem, *models.Entry) {
		ts := *stack.ts
		return &ts, stack.newSyncableEntry("SA-1", 60)
	}

	tests := []struct {
		name  string
		setup func(ts *models.TicketSystem, entry *models.Entry)
		want  bool
	}{
		{"syncable entry", func(ts *models.TicketSystem, entry *models.Entry) {}, true},
		{"time booking disabled", func(ts *models.TicketSystem, entry *models.Entry) { ts.BookTime = false }, false},
		{"non-jira system", func(ts *models.TicketSystem, entry *models.Entry) { ts.Type = models.TicketSystemTypeOTRS }, false},
		{"no ticket", func(ts *models.TicketSystem, entry *models.Entry) { entry.Ticket = "" }, false},
		{"zero duration", func(ts *models.TicketSystem, entry *models.Entry) { entry.Duration = 0 }, false},
		{"negative duration", func(ts *models.TicketSystem, entry *models.Entry) { entry.Duration = -30 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, entry := base()
			tt.setup(ts, entry)
			assert.Equal(t, tt.want, stack.sync.ShouldSync(ts, entry))
		})
	}

	_, entry := base()
	assert.False(t, stack.sync.ShouldSync(nil, entry))
}

func TestResolveTicketSystemPrecedence(t *testing.T) {
	stack := newTestStack(t)

	internal := &models.TicketSystem{ID: 2, Type: models.TicketSystemTypeJira, BookTime: true}
	stack.systems.Add(internal)

	override := &models.TicketSystem{ID: 3, Type: models.TicketSystemTypeJira}

	entry := stack.newSyncableEntry("SA-1", 60)

	// Explicit override wins over everything.
	resolved := stack.sync.ResolveTicketSystem(entry, override)
	require.NotNil(t, resolved)
	assert.Equal(t, override.ID, resolved.ID)

	// The internal Jira system wins when the project declares an internal key.
	internalID := internal.ID
	entry.Project.InternalJiraProjectKey = "INT"
	entry.Project.InternalJiraTicketSystem = &internalID
	resolved = stack.sync.ResolveTicketSystem(entry, nil)
	require.NotNil(t, resolved)
	assert.Equal(t, internal.ID, resolved.ID)

	// Otherwise the project's own ticket system applies.
	entry.Project.InternalJiraProjectKey = ""
	resolved = stack.sync.ResolveTicketSystem(entry, nil)
	require.NotNil(t, resolved)
	assert.Equal(t, stack.ts.ID, resolved.ID)

	// No project, no system.
	entry.Project = nil
	assert.Nil(t, stack.sync.ResolveTicketSystem(entry, nil))
}

func TestSaveWorklogSkipsNonSyncableEntry(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	entry := stack.newSyncableEntry("", 60)

	require.NoError(t, stack.sync.SaveWorklog(context.Background(), entry, nil))
	assert.Zero(t, stack.fake.requestCount())
}

// An entry shortened to zero duration fails the sync gate but still carries a
// worklog id; the save path must flow through and remove the remote worklog.
func TestSaveWorklogZeroDurationCleansUpRemote(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	entry := stack.newSyncableEntry("SA-1", 0)
	worklogID := int64(42)
	entry.WorklogID = &worklogID
	entry.SyncedToTicketsystem = true
	stack.entries.Add(entry)

	stack.fake.on("GET", "issue/SA-1", jsonResponse(http.StatusOK, `{"key":"SA-1"}`))
	stack.fake.on("HEAD", "issue/SA-1/worklog/42", jsonResponse(http.StatusOK, ""))
	stack.fake.on("DELETE", "issue/SA-1/worklog/42", jsonResponse(http.StatusNoContent, ""))

	require.NoError(t, stack.sync.SaveWorklog(context.Background(), entry, nil))

	assert.Equal(t, 1, stack.fake.calls("DELETE", "issue/SA-1/worklog/42"))
	assert.Nil(t, entry.WorklogID)
	assert.False(t, entry.SyncedToTicketsystem)
}

func TestDeleteWorklog(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	entry := stack.newSyncableEntry("SA-1", 60)
	worklogID := int64(42)
	entry.WorklogID = &worklogID
	stack.entries.Add(entry)

	stack.fake.on("HEAD", "issue/SA-1/worklog/42", jsonResponse(http.StatusOK, ""))
	stack.fake.on("DELETE", "issue/SA-1/worklog/42", jsonResponse(http.StatusNoContent, ""))

	require.NoError(t, stack.sync.DeleteWorklog(context.Background(), entry, nil))
	assert.Nil(t, entry.WorklogID)
}

// One failing entry must not abort the batch: every entry gets a result and
// the healthy ones sync.
func TestBulkSyncEntriesIsolatesFailures(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	good := stack.newSyncableEntry("SA-1", 60)
	bad := stack.newSyncableEntry("SB-2", 30)
	alsoGood := stack.newSyncableEntry("SC-3", 15)

	stack.fake.on("GET", "issue/SA-1", jsonResponse(http.StatusOK, `{"key":"SA-1"}`))
	stack.fake.on("GET", "issue/SB-2", jsonResponse(http.StatusOK, `{"key":"SB-2"}`))
	stack.fake.on("GET", "issue/SC-3", jsonResponse(http.StatusOK, `{"key":"SC-3"}`))
	stack.fake.on("POST", "issue/SA-1/worklog", jsonResponse(http.StatusCreated, `{"id":"100"}`))
	stack.fake.on("POST", "issue/SB-2/worklog", jsonResponse(http.StatusBadRequest, `{"errorMessages":["Worklog is invalid"]}`))
	stack.fake.on("POST", "issue/SC-3/worklog", jsonResponse(http.StatusCreated, `{"id":"300"}`))

	results := stack.sync.BulkSyncEntries(context.Background(), []*models.Entry{good, bad, alsoGood}, nil)
	require.Len(t, results, 3)

	assert.True(t, results[good.ID].Success)
	assert.True(t, results[alsoGood.ID].Success)

	assert.False(t, results[bad.ID].Success)
	assert.Contains(t, results[bad.ID].Message, "Worklog is invalid")

	assert.True(t, good.SyncedToTicketsystem)
	assert.True(t, alsoGood.SyncedToTicketsystem)
	assert.False(t, bad.SyncedToTicketsystem)
}

func TestNeedsSync(t *testing.T) {
	stack := newTestStack(t)

	entry := stack.newSyncableEntry("SA-1", 60)
	assert.True(t, stack.sync.NeedsSync(entry))

	entry.SyncedToTicketsystem = true
	assert.False(t, stack.sync.NeedsSync(entry))

	entry.SyncedToTicketsystem = false
	entry.Ticket = ""
	assert.False(t, stack.sync.NeedsSync(entry))
}

func TestSyncUser(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	stack.newSyncableEntry("SA-1", 60)
	stack.newSyncableEntry("SB-2", 30)

	stack.fake.on("GET", "issue/SA-1", jsonResponse(http.StatusOK, `{"key":"SA-1"}`))
	stack.fake.on("GET", "issue/SB-2", jsonResponse(http.StatusOK, `{"key":"SB-2"}`))
	stack.fake.on("POST", "issue/SA-1/worklog", jsonResponse(http.StatusCreated, `{"id":"100"}`))
	stack.fake.on("POST", "issue/SB-2/worklog", jsonResponse(http.StatusCreated, `{"id":"200"}`))

	synced, err := stack.sync.SyncUser(context.Background(), stack.user, stack.ts, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
}

func TestSyncUserLimit(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	stack.newSyncableEntry("SA-1", 60)
	stack.newSyncableEntry("SB-2", 30)

	stack.fake.on("GET", "issue/SA-1", jsonResponse(http.StatusOK, `{"key":"SA-1"}`))
	stack.fake.on("GET", "issue/SB-2", jsonResponse(http.StatusOK, `{"key":"SB-2"}`))
	stack.fake.on("POST", "issue/SA-1/worklog", jsonResponse(http.StatusCreated, `{"id":"100"}`))
	stack.fake.on("POST", "issue/SB-2/worklog", jsonResponse(http.StatusCreated, `{"id":"200"}`))

	synced, err := stack.sync.SyncUser(context.Background(), stack.user, stack.ts, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
}

func TestSyncAllWalksAuthorizedUsers(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	stack.newSyncableEntry("SA-1", 60)

	stack.fake.on("GET", "issue/SA-1", jsonResponse(http.StatusOK, `{"key":"SA-1"}`))
	stack.fake.on("POST", "issue/SA-1/worklog", jsonResponse(http.StatusCreated, `{"id":"100"}`))

	stack.sync.SyncAll(context.Background(), 0)

	assert.Equal(t, 1, stack.fake.calls("POST", "issue/SA-1/worklog"))
}
