package providers

import (
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/env"
)

// Per-provider scope sets. The three Google-backed providers share client
// credentials and token endpoint but request different scopes, so each gets
// its own consent screen and its own stored grant.
var providerScopes = map[string][]string{
	models.ProviderGoogleBusiness: {"https://www.googleapis.com/auth/business.manage"},
	models.ProviderSearchConsole:  {"https://www.googleapis.com/auth/webmasters.readonly"},
	models.ProviderYouTube:        {"https://www.googleapis.com/auth/youtube.readonly"},
	models.ProviderFacebook: {
		"pages_show_list",
		"pages_read_engagement",
		"instagram_basic",
		"read_insights",
	},
}

// CallbackBaseURL returns the externally reachable base URL used to build
// provider redirect URIs.
func CallbackBaseURL() string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}

// OAuthConfig builds the oauth2 config for one provider from environment
// credentials. Returns an error for unknown providers so callers can 404
// instead of redirecting to a half-configured endpoint.
func OAuthConfig(provider string) (*oauth2.Config, error) {
	scopes, ok := providerScopes[provider]
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider %q", provider)
	}

	cfg := &oauth2.Config{
		RedirectURL: CallbackBaseURL() + "/auth/" + provider + "/callback",
		Scopes:      scopes,
	}

	switch provider {
	case models.ProviderFacebook:
		cfg.ClientID = env.GetEnv("FACEBOOK_CLIENT_ID", "")
		cfg.ClientSecret = env.GetEnv("FACEBOOK_CLIENT_SECRET", "")
		cfg.Endpoint = facebook.Endpoint
	default:
		cfg.ClientID = env.GetEnv("GOOGLE_CLIENT_ID", "")
		cfg.ClientSecret = env.GetEnv("GOOGLE_CLIENT_SECRET", "")
		cfg.Endpoint = google.Endpoint
	}

	return cfg, nil
}

// AuthCodeURL builds the provider consent URL carrying the opaque state.
// Google grants only include a refresh token with offline access plus
// forced consent, so both are always requested.
func AuthCodeURL(provider, state string) (string, error) {
	cfg, err := OAuthConfig(provider)
	if err != nil {
		return "", err
	}
	if provider == models.ProviderFacebook {
		return cfg.AuthCodeURL(state), nil
	}
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// NewTokenSource returns the token source for one provider.
func NewTokenSource(provider string) (TokenSource, error) {
	cfg, err := OAuthConfig(provider)
	if err != nil {
		return nil, err
	}
	if provider == models.ProviderFacebook {
		return NewFacebookTokenSource(cfg), nil
	}
	return NewGoogleTokenSource(cfg), nil
}
