package federated

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Provider is one configured OAuth identity provider.
type Provider struct {
	name    string
	config  *oauth2.Config
	jwksURL string
	issuer  string
}

// Name returns the provider identifier (e.g. "github", "google").
func (p *Provider) Name() string { return p.name }

// JWKSURL returns the provider's key set URL, empty for providers that issue
// no ID tokens.
func (p *Provider) JWKSURL() string { return p.jwksURL }

// Issuer returns the expected iss claim of the provider's ID tokens.
func (p *Provider) Issuer() string { return p.issuer }

// AuthCodeURL renders the authorization URL with the given encoded state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for the provider's token.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		clone := ErrExchangeFailed.Clone()
		clone.Source = err
		return nil, clone.WithMetadata(map[string]any{"provider": p.name})
	}
	return token, nil
}

// NewGoogleProvider configures Google sign-in.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *Provider {
	return &Provider{
		name: "google",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		jwksURL: "https://www.googleapis.com/oauth2/v3/certs",
		issuer:  "https://accounts.google.com",
	}
}

// NewGitHubProvider configures GitHub sign-in. GitHub issues no ID tokens;
// profile data comes from the API instead.
func NewGitHubProvider(clientID, clientSecret, redirectURL string) *Provider {
	return &Provider{
		name: "github",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

// Registry holds the configured providers and builds per-attempt authorize
// URLs with encrypted state.
type Registry struct {
	providers map[string]*Provider
	states    StateManager
}

// NewRegistry builds a registry over the given providers.
func NewRegistry(states StateManager, providers ...*Provider) *Registry {
	r := &Registry{
		providers: map[string]*Provider{},
		states:    states,
	}
	for _, p := range providers {
		if p != nil {
			r.providers[p.name] = p
		}
	}
	return r
}

// Provider resolves a provider by name.
func (r *Registry) Provider(name string) (*Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrProviderNotFound.Clone().
			WithMetadata(map[string]any{"provider": name})
	}
	return p, nil
}

// AuthorizeURL builds the provider authorization URL with a fresh encrypted
// state, satisfying the HTTP controller's redirect surface.
func (r *Registry) AuthorizeURL(provider string) (string, error) {
	p, err := r.Provider(provider)
	if err != nil {
		return "", err
	}

	state, err := r.states.Encode(&FlowState{Provider: p.name})
	if err != nil {
		return "", err
	}

	return p.AuthCodeURL(state), nil
}

// AuthorizeURLForAttempt embeds the callback port and request id of a
// client-local sign-in attempt into the state.
func (r *Registry) AuthorizeURLForAttempt(provider, requestID string, callbackPort int) (string, error) {
	p, err := r.Provider(provider)
	if err != nil {
		return "", err
	}

	state, err := r.states.Encode(&FlowState{
		Provider:     p.name,
		RequestID:    requestID,
		CallbackPort: callbackPort,
	})
	if err != nil {
		return "", err
	}

	return p.AuthCodeURL(state), nil
}

// DecodeState verifies and unpacks a returned state parameter.
func (r *Registry) DecodeState(token string) (*FlowState, error) {
	return r.states.Decode(token)
}
