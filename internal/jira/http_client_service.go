package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/tracktime-io/tracktime/internal/metrics"
	"github.com/tracktime-io/tracktime/internal/models"
)

const restAPIPath = "/rest/api/latest/"

// HTTPClientService provides OAuth1-signed transport to a ticket system's
// REST API, caches configured clients per credential pair, and classifies
// transport failures into the typed error taxonomy.
type HTTPClientService struct {
	auth    *AuthService
	timeout time.Duration

	mu      sync.RWMutex
	clients map[string]*http.Client
}

func NewHTTPClientService(auth *AuthService, timeout time.Duration) *HTTPClientService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClientService{
		auth:    auth,
		timeout: timeout,
		clients: make(map[string]*http.Client),
	}
}

// GetClient returns a signed client for the user's stored access token pair
// on the ticket system; an empty pair raises the unauthorized redirect.
func (s *HTTPClientService) GetClient(ctx context.Context, ts *models.TicketSystem, user *models.User) (*http.Client, error) {
	token, secret, err := s.auth.GetTokens(user, ts)
	if err != nil {
		return nil, err
	}
	if token == "" && secret == "" {
		return nil, s.auth.NewUnauthorizedRedirect(ts, nil)
	}

	cacheKey := fmt.Sprintf("%d:%s%s", ts.ID, token, secret)

	s.mu.RLock()
	client, ok := s.clients[cacheKey]
	s.mu.RUnlock()
	if ok {
		return client, nil
	}

	cfg, err := oauthConfig(ts, s.auth.callbackURL)
	if err != nil {
		return nil, err
	}

	client = cfg.Client(ctx, oauth1.NewToken(token, secret))
	client.Timeout = s.timeout

	s.mu.Lock()
	s.clients[cacheKey] = client
	s.mu.Unlock()

	return client, nil
}

// InvalidateClient drops the cached client for the user's credential pair,
// forcing reconstruction after a re-authorization.
func (s *HTTPClientService) InvalidateClient(ts *models.TicketSystem, user *models.User) {
	token, secret, err := s.auth.GetTokens(user, ts)
	if err != nil {
		return
	}

	s.mu.Lock()
	delete(s.clients, fmt.Sprintf("%d:%s%s", ts.ID, token, secret))
	s.mu.Unlock()
}

// Get issues a GET under /rest/api/latest and decodes the response into out.
func (s *HTTPClientService) Get(ctx context.Context, ts *models.TicketSystem, user *models.User, path string, out any) error {
	return s.request(ctx, ts, user, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body under /rest/api/latest.
func (s *HTTPClientService) Post(ctx context.Context, ts *models.TicketSystem, user *models.User, path string, body, out any) error {
	return s.request(ctx, ts, user, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body under /rest/api/latest.
func (s *HTTPClientService) Put(ctx context.Context, ts *models.TicketSystem, user *models.User, path string, body, out any) error {
	return s.request(ctx, ts, user, http.MethodPut, path, body, out)
}

// Delete issues a DELETE under /rest/api/latest.
func (s *HTTPClientService) Delete(ctx context.Context, ts *models.TicketSystem, user *models.User, path string) error {
	return s.request(ctx, ts, user, http.MethodDelete, path, nil, nil)
}

// DoesResourceExist probes a resource with a HEAD request. True only on a
// 200; any failure, including transport errors, reads as "does not exist".
func (s *HTTPClientService) DoesResourceExist(ctx context.Context, ts *models.TicketSystem, user *models.User, path string) bool {
	client, err := s.GetClient(ctx, ts, user)
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.apiURL(ts, path), nil)
	if err != nil {
		return false
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	metrics.ObserveJiraRequest(http.MethodHead, resp.StatusCode, started)

	return resp.StatusCode == http.StatusOK
}

func (s *HTTPClientService) apiURL(ts *models.TicketSystem, path string) string {
	return ts.BaseURL() + restAPIPath + strings.TrimPrefix(path, "/")
}

func (s *HTTPClientService) request(ctx context.Context, ts *models.TicketSystem, user *models.User, method, path string, body, out any) error {
	client, err := s.GetClient(ctx, ts, user)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return NewAPIError(http.StatusInternalServerError, fmt.Sprintf("failed to encode request body: %v", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.apiURL(ts, path), reader)
	if err != nil {
		return NewAPIError(http.StatusInternalServerError, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		// No response at all: connection failure, DNS error, timeout.
		return NewAPIError(http.StatusInternalServerError, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	metrics.ObserveJiraRequest(method, resp.StatusCode, started)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewAPIError(http.StatusInternalServerError, fmt.Sprintf("failed to read response: %v", err))
	}

	if err := s.classifyStatus(ts, resp.StatusCode, respBody); err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		// Empty bodies decode to the zero value.
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return NewAPIError(resp.StatusCode, fmt.Sprintf("malformed JSON response: %v", err))
	}

	return nil
}

func (s *HTTPClientService) classifyStatus(ts *models.TicketSystem, statusCode int, body []byte) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized:
		return s.auth.NewUnauthorizedRedirect(ts, NewAPIError(statusCode, "remote rejected credentials"))
	case statusCode == http.StatusNotFound:
		return NewInvalidResourceError(extractErrorMessage(body))
	default:
		return NewAPIError(statusCode, extractErrorMessage(body))
	}
}

// extractErrorMessage pulls a readable message out of a Jira error body:
// the errorMessages array, then the errors object, then the raw body text.
func extractErrorMessage(body []byte) string {
	var decoded struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}

	if err := json.Unmarshal(body, &decoded); err == nil {
		if len(decoded.ErrorMessages) > 0 {
			return strings.Join(decoded.ErrorMessages, "; ")
		}
		if len(decoded.Errors) > 0 {
			parts := make([]string, 0, len(decoded.Errors))
			for field, message := range decoded.Errors {
				parts = append(parts, field+": "+message)
			}
			return strings.Join(parts, "; ")
		}
	}

	return strings.TrimSpace(string(body))
}
