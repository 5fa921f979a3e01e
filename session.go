package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
)

// SessionTokenPair carries the externally issued tokens handed back to the
// client after a successful verification. Both tokens are opaque to this
// module beyond pass-through.
type SessionTokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenExchanger trades a verified identity for a session token pair against
// the identity provider's token endpoint.
type TokenExchanger interface {
	// Exchange performs a token-exchange grant for an already verified subject.
	Exchange(ctx context.Context, subject string) (*SessionTokenPair, error)
	// PasswordGrant performs a resource-owner-password-credentials grant.
	PasswordGrant(ctx context.Context, username, password string) (*SessionTokenPair, error)
}

const tokenExchangeGrantType = "urn:ietf:params:oauth:grant-type:token-exchange"

// ProviderTokenClient implements TokenExchanger over an OAuth2 token
// endpoint. The HTTP client is constructed once at process start and
// injected, never ambient.
type ProviderTokenClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	logger     Logger
}

// ProviderTokenClientOption customizes the client.
type ProviderTokenClientOption func(*ProviderTokenClient)

// WithProviderHTTPClient injects the HTTP client used for token calls.
func WithProviderHTTPClient(client *http.Client) ProviderTokenClientOption {
	return func(c *ProviderTokenClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithProviderLogger overrides the client logger.
func WithProviderLogger(logger Logger) ProviderTokenClientOption {
	return func(c *ProviderTokenClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewProviderTokenClient builds a token client for the given OAuth2 config.
func NewProviderTokenClient(config *oauth2.Config, opts ...ProviderTokenClientOption) *ProviderTokenClient {
	c := &ProviderTokenClient{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// PasswordGrant exchanges username+password for a token pair using the
// resource-owner-password grant.
func (c *ProviderTokenClient) PasswordGrant(ctx context.Context, username, password string) (*SessionTokenPair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.config.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "password grant failed")
	}

	return &SessionTokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}, nil
}

// Exchange performs an RFC 8693 style token exchange for a subject that this
// process has already verified out of band.
func (c *ProviderTokenClient) Exchange(ctx context.Context, subject string) (*SessionTokenPair, error) {
	form := url.Values{
		"grant_type":         {tokenExchangeGrantType},
		"client_id":          {c.config.ClientID},
		"client_secret":      {c.config.ClientSecret},
		"subject_token":      {subject},
		"subject_token_type": {"urn:ietf:params:oauth:token-type:id_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build token exchange request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "token exchange request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to read token exchange response")
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("token exchange returned status %d", resp.StatusCode)
		return nil, goerrors.New("token exchange rejected", goerrors.CategoryExternal).
			WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to decode token exchange response")
	}

	if payload.AccessToken == "" {
		return nil, goerrors.New("token exchange response missing access token", goerrors.CategoryExternal)
	}

	return &SessionTokenPair{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}, nil
}
