package jira

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/tracktime-io/tracktime/internal/crypto"
	"github.com/tracktime-io/tracktime/internal/models"
	"github.com/tracktime-io/tracktime/internal/repository"
)

// AuthService owns the OAuth1 three-legged handshake and token custody.
//
// Token state per (user, ticket system) moves only through the two fetch
// operations and DeleteTokens: no token -> request token issued
// (AvoidConnection=true) -> authorized (AvoidConnection=false), back to no
// token on revoke or OAuth deny.
type AuthService struct {
	tokens      repository.TokenRepository
	cipher      *crypto.TokenCipher
	callbackURL string
	timeout     time.Duration
}

func NewAuthService(tokens repository.TokenRepository, cipher *crypto.TokenCipher, callbackURL string, timeout time.Duration) *AuthService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AuthService{
		tokens:      tokens,
		cipher:      cipher,
		callbackURL: callbackURL,
		timeout:     timeout,
	}
}

// FetchRequestToken starts the OAuth dance: it obtains a request token from
// the ticket system and stores it as a placeholder pending user authorization.
func (s *AuthService) FetchRequestToken(ctx context.Context, ts *models.TicketSystem, user *models.User) (string, error) {
	cfg, err := oauthConfig(ts, s.callbackURL)
	if err != nil {
		return "", err
	}

	requestURL := cfg.Endpoint.RequestTokenURL + "?oauth_callback=" + url.QueryEscape(s.callbackURL)

	values, err := s.postOAuth(ctx, cfg, oauth1.NewToken("", ""), requestURL)
	if err != nil {
		return "", err
	}

	requestToken := values.Get("oauth_token")
	if requestToken == "" {
		return "", NewAPIError(http.StatusInternalServerError, "OAuth response is missing oauth_token")
	}

	if err := s.storeTokens(user, ts, requestToken, "", true); err != nil {
		return "", err
	}

	log.Printf("issued jira request token for user %d on ticket system %d", user.ID, ts.ID)

	return requestToken, nil
}

// FetchAccessToken exchanges an authorized request token and verifier for the
// long-lived access token pair and persists it.
func (s *AuthService) FetchAccessToken(ctx context.Context, ts *models.TicketSystem, user *models.User, requestToken, verifier string) error {
	cfg, err := oauthConfig(ts, s.callbackURL)
	if err != nil {
		return err
	}

	accessURL := cfg.Endpoint.AccessTokenURL + "?oauth_verifier=" + url.QueryEscape(verifier)

	values, err := s.postOAuth(ctx, cfg, oauth1.NewToken(requestToken, ""), accessURL)
	if err != nil {
		return err
	}

	accessToken := values.Get("oauth_token")
	tokenSecret := values.Get("oauth_token_secret")
	if accessToken == "" || tokenSecret == "" {
		return NewAPIError(http.StatusInternalServerError, "OAuth response is missing oauth_token or oauth_token_secret")
	}

	if err := s.storeTokens(user, ts, accessToken, tokenSecret, false); err != nil {
		return err
	}

	log.Printf("stored jira access token for user %d on ticket system %d", user.ID, ts.ID)

	return nil
}

// GetTokens returns the decrypted token pair for (user, ticket system), or
// two empty strings when none is stored. Values that fail to decrypt are
// returned raw: legacy rows hold plaintext tokens and stay authoritative.
func (s *AuthService) GetTokens(user *models.User, ts *models.TicketSystem) (string, string, error) {
	token, err := s.tokens.Find(user.ID, ts.ID)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", "", nil
		}
		return "", "", fmt.Errorf("failed to load token: %w", err)
	}

	return s.decryptOrRaw(token.AccessToken), s.decryptOrRaw(token.TokenSecret), nil
}

// DeleteTokens removes the stored token pair; deleting a missing pair is a no-op.
func (s *AuthService) DeleteTokens(user *models.User, ts *models.TicketSystem) error {
	return s.tokens.Delete(user.ID, ts.ID)
}

// CheckUserTicketSystem reports whether the user holds a usable token for the
// ticket system: a stored pair whose AvoidConnection flag is cleared.
func (s *AuthService) CheckUserTicketSystem(user *models.User, ts *models.TicketSystem) bool {
	token, err := s.tokens.Find(user.ID, ts.ID)
	if err != nil {
		return false
	}
	return !token.AvoidConnection
}

// AuthorizeURL builds the URL the user must visit to authorize a request token.
func (s *AuthService) AuthorizeURL(ts *models.TicketSystem, token string) string {
	return ts.BaseURL() + oauthAuthorizePath + "?oauth_token=" + url.QueryEscape(token)
}

// NewUnauthorizedRedirect builds the error raised when no usable token exists
// or the remote rejected our credentials. It carries the authorize URL so the
// web layer can redirect the user into the OAuth dance.
func (s *AuthService) NewUnauthorizedRedirect(ts *models.TicketSystem, cause error) *UnauthorizedError {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return &UnauthorizedError{
		RedirectURL: s.AuthorizeURL(ts, ""),
		Message:     message,
	}
}

func (s *AuthService) storeTokens(user *models.User, ts *models.TicketSystem, accessToken, tokenSecret string, avoidConnection bool) error {
	encToken, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}
	encSecret, err := s.cipher.Encrypt(tokenSecret)
	if err != nil {
		return fmt.Errorf("failed to encrypt token secret: %w", err)
	}

	return s.tokens.Upsert(&models.UserTicketToken{
		UserID:          user.ID,
		TicketSystemID:  ts.ID,
		AccessToken:     encToken,
		TokenSecret:     encSecret,
		AvoidConnection: avoidConnection,
	})
}

func (s *AuthService) decryptOrRaw(stored string) string {
	plain, err := s.cipher.Decrypt(stored)
	if err != nil {
		return stored
	}
	return plain
}

// postOAuth issues a signed POST to an OAuth endpoint and parses the
// form-encoded response body.
func (s *AuthService) postOAuth(ctx context.Context, cfg *oauth1.Config, token *oauth1.Token, rawURL string) (url.Values, error) {
	client := cfg.Client(ctx, token)
	client.Timeout = s.timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, nil)
	if err != nil {
		return nil, NewAPIError(http.StatusInternalServerError, err.Error())
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewAPIError(http.StatusInternalServerError, fmt.Sprintf("OAuth request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewAPIError(http.StatusInternalServerError, fmt.Sprintf("failed to read OAuth response: %v", err))
	}

	return parseOAuthResponse(resp.StatusCode, body)
}

// parseOAuthResponse decodes a form-encoded OAuth handshake response. An
// empty body or an oauth_problem value is a handshake failure.
func parseOAuthResponse(statusCode int, body []byte) (url.Values, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, NewAPIError(statusCode, "empty OAuth response")
	}

	values, err := url.ParseQuery(trimmed)
	if err != nil {
		return nil, NewAPIError(statusCode, fmt.Sprintf("malformed OAuth response: %v", err))
	}

	if problem := values.Get("oauth_problem"); problem != "" {
		return nil, NewAPIError(statusCode, "OAuth problem: "+problem)
	}

	return values, nil
}
