package models

// Wire DTOs for the Jira REST API (/rest/api/latest). Fields the remote may
// omit are pointers or zero-tolerant; decoding never fails on a missing field.

// JiraIssueFields is the subset of issue fields the sync core reads
type JiraIssueFields struct {
	Summary   string          `json:"summary,omitempty"`
	Subtasks  []JiraIssue     `json:"subtasks,omitempty"`
	Status    *JiraStatus     `json:"status,omitempty"`
	Assignee  *JiraUser       `json:"assignee,omitempty"`
	IssueType *JiraIssueType  `json:"issuetype,omitempty"`
	Project   *JiraProjectRef `json:"project,omitempty"`
}

// JiraIssue represents a remote issue
type JiraIssue struct {
	ID     string           `json:"id,omitempty"`
	Key    string           `json:"key,omitempty"`
	Self   string           `json:"self,omitempty"`
	Fields *JiraIssueFields `json:"fields,omitempty"`
}

// JiraStatus represents a remote issue status
type JiraStatus struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// JiraUser represents a remote user reference
type JiraUser struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// JiraIssueType identifies an issue type by name (Bug, Story, Task)
type JiraIssueType struct {
	Name string `json:"name,omitempty"`
}

// JiraProjectRef references a remote project by key
type JiraProjectRef struct {
	Key string `json:"key,omitempty"`
}

// JiraWorklog is the payload and response shape of issue worklog operations
type JiraWorklog struct {
	ID               string `json:"id,omitempty"`
	Comment          string `json:"comment,omitempty"`
	Started          string `json:"started,omitempty"` // ISO-8601 with millisecond and offset
	TimeSpentSeconds int    `json:"timeSpentSeconds,omitempty"`
}

// JiraSearchRequest is the body of a JQL search POST
type JiraSearchRequest struct {
	JQL        string   `json:"jql"`
	Fields     []string `json:"fields,omitempty"`
	MaxResults int      `json:"maxResults,omitempty"`
}

// JiraSearchResult is the response of a JQL search
type JiraSearchResult struct {
	Total  int         `json:"total"`
	Issues []JiraIssue `json:"issues,omitempty"`
}

// JiraTransition represents an available workflow transition
type JiraTransition struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// JiraTransitionsResponse is the response of the transitions endpoint
type JiraTransitionsResponse struct {
	Transitions []JiraTransition `json:"transitions,omitempty"`
}

// Subticket is the flattened subtask record returned to callers
type Subticket struct {
	Key      string `json:"key"`
	Summary  string `json:"summary,omitempty"`
	Status   string `json:"status,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

// SyncResult reports the outcome of syncing a single entry
type SyncResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
