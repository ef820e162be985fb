package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/env"
)

const defaultGraphAPIBaseURL = "https://graph.facebook.com/v19.0"

// FacebookTokenSource implements TokenSource against the Facebook Graph
// token endpoint. Facebook issues no refresh tokens; the stored "refresh
// token" is the long-lived user token and Refresh re-exchanges it via the
// fb_exchange_token grant (valid ~60 days, extended on every exchange).
type FacebookTokenSource struct {
	cfg        *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// NewFacebookTokenSource creates a token source over a prepared oauth2 config
func NewFacebookTokenSource(cfg *oauth2.Config) *FacebookTokenSource {
	return &FacebookTokenSource{
		cfg:        cfg,
		apiBaseURL: strings.TrimRight(env.GetEnv("FACEBOOK_API_BASE_URL", defaultGraphAPIBaseURL), "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ExchangeCode trades an authorization code for a short-lived user token,
// then immediately upgrades it to a long-lived one so the stored grant
// survives past the first hour.
func (f *FacebookTokenSource) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("oauth code is required")
	}
	tok, err := f.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("facebook code exchange failed: %w", err)
	}

	longLived, err := f.exchangeLongLived(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}
	// The long-lived token plays both roles: bearer credential now, and
	// the refresh credential for the next re-exchange.
	longLived.RefreshToken = longLived.AccessToken
	return longLived, nil
}

// Refresh re-exchanges the stored long-lived token for a fresh one.
func (f *FacebookTokenSource) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, errors.New("long-lived token is required")
	}
	tok, err := f.exchangeLongLived(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	tok.RefreshToken = tok.AccessToken
	return tok, nil
}

func (f *FacebookTokenSource) exchangeLongLived(ctx context.Context, userToken string) (*Token, error) {
	// client_secret and the user token travel in the request body, never
	// the URL: transport errors quote the full URL verbatim.
	form := url.Values{}
	form.Set("grant_type", "fb_exchange_token")
	form.Set("client_id", f.cfg.ClientID)
	form.Set("client_secret", f.cfg.ClientSecret)
	form.Set("fb_exchange_token", userToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.apiBaseURL+"/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, redactTransportError("facebook token exchange request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook token exchange failed: status %d: %s", resp.StatusCode, graphErrorMessage(body))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("facebook token response invalid: %w", err)
	}
	if parsed.AccessToken == "" {
		return nil, errors.New("facebook token response missing access_token")
	}

	out := &Token{AccessToken: parsed.AccessToken, Scope: strings.Join(f.cfg.Scopes, " ")}
	if parsed.ExpiresIn > 0 {
		t := time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
		out.ExpiresAt = &t
	}
	return out, nil
}

// redactTransportError strips the query string from the URL a *url.Error
// quotes in its message. Graph requests carry the access token (and paging
// cursors carry it again) as query parameters, and err.Error() output ends
// up in logs and the persisted last_error column.
func redactTransportError(msg string, err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	redacted := uerr.URL
	if u, perr := url.Parse(uerr.URL); perr == nil {
		u.RawQuery = ""
		u.User = nil
		redacted = u.String()
	}
	return fmt.Errorf("%s: %s %s: %w", msg, uerr.Op, redacted, uerr.Err)
}

// graphErrorMessage pulls the human-readable message out of a Graph API
// error payload without surfacing tokens embedded in the raw body.
func graphErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error.Message == "" {
		return "unrecognized error response"
	}
	return fmt.Sprintf("%s (%s, code %d)", parsed.Error.Message, parsed.Error.Type, parsed.Error.Code)
}

// PageInfo is one entry of the pages listing, including the linked
// Instagram business account when the page has one.
type PageInfo struct {
	ID                 string
	Name               string
	AccessToken        string
	InstagramAccountID string
	InstagramUsername  string
}

// GraphClient reads page listings from the Facebook Graph API.
type GraphClient struct {
	APIBaseURL string
	HTTPClient *http.Client
}

// NewGraphClient creates a Graph API client from environment configuration
func NewGraphClient() *GraphClient {
	return &GraphClient{
		APIBaseURL: strings.TrimRight(env.GetEnv("FACEBOOK_API_BASE_URL", defaultGraphAPIBaseURL), "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ListPages returns every page the user token can manage, with page-scoped
// tokens and linked Instagram business accounts. Paging cursors are
// followed until exhausted.
func (c *GraphClient) ListPages(ctx context.Context, userToken string) ([]PageInfo, error) {
	if strings.TrimSpace(userToken) == "" {
		return nil, errors.New("user token is required")
	}

	q := url.Values{}
	q.Set("fields", "id,name,access_token,instagram_business_account{id,username}")
	q.Set("access_token", userToken)
	next := c.APIBaseURL + "/me/accounts?" + q.Encode()

	var pages []PageInfo
	for next != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, redactTransportError("facebook pages listing request failed", err)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("facebook pages listing failed: status %d: %s", resp.StatusCode, graphErrorMessage(body))
		}

		var parsed struct {
			Data []struct {
				ID                       string `json:"id"`
				Name                     string `json:"name"`
				AccessToken              string `json:"access_token"`
				InstagramBusinessAccount *struct {
					ID       string `json:"id"`
					Username string `json:"username"`
				} `json:"instagram_business_account"`
			} `json:"data"`
			Paging struct {
				Next string `json:"next"`
			} `json:"paging"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("facebook pages response invalid: %w", err)
		}

		for _, p := range parsed.Data {
			info := PageInfo{ID: p.ID, Name: p.Name, AccessToken: p.AccessToken}
			if p.InstagramBusinessAccount != nil {
				info.InstagramAccountID = p.InstagramBusinessAccount.ID
				info.InstagramUsername = p.InstagramBusinessAccount.Username
			}
			pages = append(pages, info)
		}
		next = parsed.Paging.Next
	}

	return pages, nil
}
