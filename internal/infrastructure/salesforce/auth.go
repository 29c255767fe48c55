package salesforce

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
)

const grantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// Session is an authenticated connection to one Salesforce org
type Session struct {
	// Identity is the identity URL returned by the token endpoint
	Identity    string
	Username    string
	InstanceURL string
	AccessToken string
	TokenType   string
	CreatedAt   time.Time
}

// Authenticator performs the OAuth handshake that yields a Session
type Authenticator interface {
	Authenticate(ctx context.Context) (*Session, error)
}

// JWTBearerAuthenticator implements the OAuth 2.0 JWT bearer flow: an RS256
// assertion signed with the connected app's private key is exchanged for an
// access token. No refresh token is issued in this flow.
type JWTBearerAuthenticator struct {
	cfg        *Config
	creds      CredentialProvider
	httpClient *http.Client
	now        func() time.Time
}

// NewJWTBearerAuthenticator creates an authenticator. A nil client gets one
// with the configured request timeout.
func NewJWTBearerAuthenticator(cfg *Config, creds CredentialProvider, httpClient *http.Client) *JWTBearerAuthenticator {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &JWTBearerAuthenticator{
		cfg:        cfg,
		creds:      creds,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Authenticate exchanges a freshly signed assertion for a session.
// Rejected credentials yield *crm.AuthenticationError, other platform
// answers *crm.PlatformError, and local or transport failures
// *crm.UnexpectedError.
func (a *JWTBearerAuthenticator) Authenticate(ctx context.Context) (*Session, error) {
	creds, err := a.creds.Credentials(ctx)
	if err != nil {
		return nil, &crm.UnexpectedError{Err: fmt.Errorf("salesforce: loading credentials: %w", err)}
	}
	if err := creds.Validate(a.cfg.LoginURL == ""); err != nil {
		return nil, &crm.UnexpectedError{Err: err}
	}

	assertion, err := a.signAssertion(creds)
	if err != nil {
		return nil, &crm.UnexpectedError{Err: err}
	}

	form := url.Values{}
	form.Set("grant_type", grantTypeJWTBearer)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.tokenURL(creds), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &crm.UnexpectedError{Err: fmt.Errorf("salesforce: failed to create token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &crm.UnexpectedError{Err: fmt.Errorf("salesforce: token request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &crm.UnexpectedError{Err: fmt.Errorf("salesforce: failed to read token response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		var oauthErr oauthErrorResponse
		if decodeJSON(body, &oauthErr) != nil || oauthErr.Error == "" {
			return nil, &crm.AuthenticationError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return nil, &crm.AuthenticationError{Code: resp.StatusCode, Message: oauthErr.String()}
	default:
		return nil, &crm.PlatformError{Code: resp.StatusCode, Content: decodeContent(body)}
	}

	var token tokenResponse
	if err := decodeJSON(body, &token); err != nil {
		return nil, &crm.UnexpectedError{Err: fmt.Errorf("salesforce: decoding token response: %w", err)}
	}
	if token.AccessToken == "" || token.InstanceURL == "" {
		return nil, &crm.UnexpectedError{Err: fmt.Errorf("salesforce: token response without access token or instance url")}
	}

	return &Session{
		Identity:    token.ID,
		Username:    creds.Username,
		InstanceURL: strings.TrimRight(token.InstanceURL, "/"),
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		CreatedAt:   a.now(),
	}, nil
}

func (a *JWTBearerAuthenticator) signAssertion(creds Credentials) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(normalizePEM(creds.PrivateKeyPEM)))
	if err != nil {
		return "", fmt.Errorf("salesforce: parsing private key: %w", err)
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		Issuer:    creds.ConsumerKey,
		Subject:   creds.Username,
		Audience:  jwt.ClaimStrings{a.cfg.loginBaseURL(creds)},
		ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.AssertionTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("salesforce: signing assertion: %w", err)
	}
	return signed, nil
}

// normalizePEM restores line breaks in keys injected as a single line with
// literal "\n" sequences.
func normalizePEM(pem string) string {
	pem = strings.TrimSpace(pem)
	if !strings.Contains(pem, "\n") && strings.Contains(pem, `\n`) {
		pem = strings.ReplaceAll(pem, `\n`, "\n")
	}
	return pem + "\n"
}
