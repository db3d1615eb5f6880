package jira

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"

	"github.com/dghubble/oauth1"

	"github.com/tracktime-io/tracktime/internal/models"
)

const (
	oauthRequestTokenPath = "/plugins/servlet/oauth/request-token"
	oauthAuthorizePath    = "/plugins/servlet/oauth/authorize"
	oauthAccessTokenPath  = "/plugins/servlet/oauth/access-token"
)

// parseRSAPrivateKey loads the ticket system's PEM key material. Jira OAuth1
// consumers sign with RSA-SHA1; a broken key is a configuration error and
// surfaces as an APIError.
func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, NewAPIError(http.StatusInternalServerError, "ticket system private key is not valid PEM")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, NewAPIError(http.StatusInternalServerError, "failed to parse ticket system private key")
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, NewAPIError(http.StatusInternalServerError, "ticket system private key is not an RSA key")
	}

	return key, nil
}

// oauthConfig builds the OAuth1 signing configuration for a ticket system.
// The RSA signer works from the in-memory key, no key file is materialized.
func oauthConfig(ts *models.TicketSystem, callbackURL string) (*oauth1.Config, error) {
	key, err := parseRSAPrivateKey(ts.PrivateKey)
	if err != nil {
		return nil, err
	}

	base := ts.BaseURL()

	return &oauth1.Config{
		ConsumerKey:    ts.OAuthConsumerKey,
		ConsumerSecret: ts.OAuthConsumerSecret,
		CallbackURL:    callbackURL,
		Endpoint: oauth1.Endpoint{
			RequestTokenURL: base + oauthRequestTokenPath,
			AuthorizeURL:    base + oauthAuthorizePath,
			AccessTokenURL:  base + oauthAccessTokenPath,
		},
		Signer: &oauth1.RSASigner{PrivateKey: key},
	}, nil
}
