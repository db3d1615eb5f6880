package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracktime-io/tracktime/internal/models"
)

func TestCreateTicketRequiresProjectKey(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	entry := stack.newSyncableEntry("", 60)
	entry.Project.JiraID = ""

	_, err := stack.tickets.CreateTicket(context.Background(), stack.ts, entry)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Zero(t, stack.fake.requestCount())
}

func TestCreateTicketBuildsFieldsFromEntry(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	entry := stack.newSyncableEntry("", 60)
	entry.Project.JiraID = "TT"

	var payload struct {
		Fields struct {
			Project     map[string]string `json:"project"`
			Summary     string            `json:"summary"`
			Description string            `json:"description"`
			IssueType   map[string]string `json:"issuetype"`
		} `json:"fields"`
	}

	stack.fake.on("POST", "issue/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		jsonResponse(http.StatusCreated, `{"id":"10001","key":"TT-9"}`)(w, r)
	})

	issue, err := stack.tickets.CreateTicket(context.Background(), stack.ts, entry)
	require.NoError(t, err)
	assert.Equal(t, "TT-9", issue.Key)

	assert.Equal(t, "TT", payload.Fields.Project["key"])
	assert.Equal(t, "ACME - Timetracker - Development", payload.Fields.Summary)
	assert.Equal(t, "refactored sync layer", payload.Fields.Description)
	assert.Equal(t, "Story", payload.Fields.IssueType["name"])
}

func TestCreateTicketMissingResponseKey(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	entry := stack.newSyncableEntry("", 60)
	entry.Project.JiraID = "TT"

	stack.fake.on("POST", "issue/", jsonResponse(http.StatusCreated, `{"id":"10001"}`))

	_, err := stack.tickets.CreateTicket(context.Background(), stack.ts, entry)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestSearchTicketsDefaultsLimit(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	var request models.JiraSearchRequest
	stack.fake.on("POST", "search/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		jsonResponse(http.StatusOK, `{"total":1,"issues":[{"key":"TT-9"}]}`)(w, r)
	})

	result, err := stack.tickets.SearchTickets(context.Background(), stack.ts, stack.user, `project = TT`, []string{"key"}, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, request.MaxResults)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "TT-9", result.Issues[0].Key)
}

func TestDoesTicketExist(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	stack.fake.on("GET", "issue/SA-1", jsonResponse(http.StatusOK, `{"key":"SA-1"}`))

	assert.True(t, stack.tickets.DoesTicketExist(context.Background(), stack.ts, stack.user, "SA-1"))
	assert.False(t, stack.tickets.DoesTicketExist(context.Background(), stack.ts, stack.user, "NOPE-1"))
}

func TestGetSubtickets(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	stack.fake.on("GET", "issue/SA-1", jsonResponse(http.StatusOK, `{
		"key": "SA-1",
		"fields": {
			"subtasks": [
				{"key": "SA-2", "fields": {"summary": "write docs", "status": {"name": "Open"}, "assignee": {"displayName": "Jane Dev"}}},
				{"key": "SA-3"}
			]
		}
	}`))

	subtickets, err := stack.tickets.GetSubtickets(context.Background(), stack.ts, stack.user, "SA-1")
	require.NoError(t, err)
	require.Len(t, subtickets, 2)

	assert.Equal(t, "SA-2", subtickets[0].Key)
	assert.Equal(t, "write docs", subtickets[0].Summary)
	assert.Equal(t, "Open", subtickets[0].Status)
	assert.Equal(t, "Jane Dev", subtickets[0].Assignee)

	assert.Equal(t, "SA-3", subtickets[1].Key)
	assert.Empty(t, subtickets[1].Summary)
}

func TestGetTransitionsSwallowsErrors(t *testing.T) {
	stack := newTestStack(t)
	stack.authorize(t)

	assert.Nil(t, stack.tickets.GetTransitions(context.Background(), stack.ts, stack.user, "NOPE-1"))

	stack.fake.on("GET", "issue/SA-1/transitions", jsonResponse(http.StatusOK,
		`{"transitions":[{"id":"31","name":"Done"}]}`))

	transitions := stack.tickets.GetTransitions(context.Background(), stack.ts, stack.user, "SA-1")
	require.Len(t, transitions, 1)
	assert.Equal(t, "31", transitions[0].ID)
}

func TestBuildSummary(t *testing.T) {
	stack := newTestStack(t)
	entry := stack.newSyncableEntry("", 60)

	assert.Equal(t, "ACME - Timetracker - Development", buildSummary(entry))

	entry.Customer = nil
	entry.Activity = nil
	assert.Equal(t, "Timetracker", buildSummary(entry))

	entry.Project = nil
	assert.Equal(t, defaultSummary, buildSummary(entry))
}

func TestIssueTypeForEntry(t *testing.T) {
	tests := []struct {
		activity string
		want     string
	}{
		{"Bugfixing", "Bug"},
		{"Hotfix", "Bug"},
		{"Feature Work", "Story"},
		{"Development", "Story"},
		{"Support", "Task"},
		{"Maintenance", "Task"},
		{"Meeting", "Task"},
	}

	for _, tt := range tests {
		entry := &models.Entry{Activity: &models.Activity{Name: tt.activity}}
		assert.Equal(t, tt.want, issueTypeForEntry(entry), "activity %q", tt.activity)
	}

	assert.Equal(t, "Task", issueTypeForEntry(&models.Entry{}))
}
