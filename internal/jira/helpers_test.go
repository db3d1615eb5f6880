package jira

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tracktime-io/tracktime/internal/crypto"
	"github.com/tracktime-io/tracktime/internal/models"
	"github.com/tracktime-io/tracktime/internal/repository"
)

// testPrivateKeyPEM generates a throwaway RSA key in PEM form, standing in
// for the key material an admin pastes into the ticket system record.
func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}

	return string(pem.EncodeToMemory(block))
}

func newTestTicketSystem(t *testing.T, baseURL string) *models.TicketSystem {
	t.Helper()

	return &models.TicketSystem{
		ID:               1,
		Name:             "Test Jira",
		Type:             models.TicketSystemTypeJira,
		URL:              baseURL,
		TicketURL:        baseURL + "/browse/%s",
		BookTime:         true,
		PrivateKey:       testPrivateKeyPEM(t),
		OAuthConsumerKey: "tracktime",
	}
}

// fakeJira is a scriptable stand-in for the remote REST API. Handlers are
// keyed by "METHOD path" (path without the /rest/api/latest prefix for REST
// calls); unmatched requests return 404.
type fakeJira struct {
	server   *httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []string
}

func newFakeJira(t *testing.T) *fakeJira {
	f := &fakeJira{
		handlers: make(map[string]http.HandlerFunc),
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		f.mu.Lock()
		f.requests = append(f.requests, key)
		handler, ok := f.handlers[key]
		f.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeJira) URL() string {
	return f.server.URL
}

// on registers a handler for a REST resource under /rest/api/latest.
func (f *fakeJira) on(method, resource string, handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+restAPIPath+resource] = handler
}

// onRaw registers a handler for an absolute path (OAuth endpoints).
func (f *fakeJira) onRaw(method, path string, handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = handler
}

// requestCount returns the total number of requests seen.
func (f *fakeJira) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// calls returns how often a "METHOD path" request was seen.
func (f *fakeJira) calls(method, resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := method + " " + restAPIPath + resource
	n := 0
	for _, seen := range f.requests {
		if seen == key {
			n++
		}
	}
	return n
}

func jsonResponse(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

// testStack bundles a fully wired sync core over in-memory repositories.
type testStack struct {
	fake     *fakeJira
	ts       *models.TicketSystem
	user     *models.User
	tokens   *repository.MemoryTokenRepository
	entries  *repository.MemoryEntryRepository
	systems  *repository.MemoryTicketSystemRepository
	users    *repository.MemoryUserRepository
	auth     *AuthService
	client   *HTTPClientService
	tickets  *TicketService
	worklogs *WorklogService
	sync     *IntegrationService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	fake := newFakeJira(t)
	ts := newTestTicketSystem(t, fake.URL())
	user := &models.User{ID: 7, Username: "tester"}

	tokens := repository.NewMemoryTokenRepository()
	entries := repository.NewMemoryEntryRepository()
	systems := repository.NewMemoryTicketSystemRepository()
	users := repository.NewMemoryUserRepository()
	systems.Add(ts)
	users.Add(user)

	cipher := crypto.NewTokenCipher("test-secret")
	auth := NewAuthService(tokens, cipher, "http://localhost/jiraoauthcallback", 5*time.Second)
	client := NewHTTPClientService(auth, 5*time.Second)
	tickets := NewTicketService(client)
	worklogs := NewWorklogService(client, auth, tickets, entries)
	sync := NewIntegrationService(worklogs, auth, systems, tokens, users, NewLocalSyncLocker())

	return &testStack{
		fake:     fake,
		ts:       ts,
		user:     user,
		tokens:   tokens,
		entries:  entries,
		systems:  systems,
		users:    users,
		auth:     auth,
		client:   client,
		tickets:  tickets,
		worklogs: worklogs,
		sync:     sync,
	}
}

// authorize stores a usable access token pair for the stack's user.
func (s *testStack) authorize(t *testing.T) {
	t.Helper()
	require.NoError(t, s.auth.storeTokens(s.user, s.ts, "access-token", "token-secret", false))
}

// newSyncableEntry builds an entry that clears every sync precondition.
func (s *testStack) newSyncableEntry(ticket string, duration int) *models.Entry {
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC)

	systemID := s.ts.ID
	entry := &models.Entry{
		UserID:      s.user.ID,
		ProjectID:   3,
		CustomerID:  4,
		ActivityID:  5,
		Ticket:      ticket,
		Description: "refactored sync layer",
		Day:         day,
		Start:       start,
		End:         start.Add(time.Hour),
		Duration:    duration,
		User:        s.user,
		Project:     &models.Project{ID: 3, Name: "Timetracker", TicketSystemID: &systemID},
		Customer:    &models.Customer{ID: 4, Name: "ACME"},
		Activity:    &models.Activity{ID: 5, Name: "Development"},
	}
	s.entries.Add(entry)

	return entry
}
