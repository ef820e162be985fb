package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestFacebookSource(serverURL string) *FacebookTokenSource {
	return &FacebookTokenSource{
		cfg: &oauth2.Config{
			ClientID:     "app-id",
			ClientSecret: "app-secret",
			Scopes:       []string{"pages_show_list", "instagram_basic"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  serverURL + "/dialog/oauth",
				TokenURL: serverURL + "/oauth/access_token",
			},
		},
		apiBaseURL: serverURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestFacebookExchangeCodeUpgradesToLongLivedToken(t *testing.T) {
	var sawExchange, sawUpgrade bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/access_token", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Empty(t, r.URL.RawQuery, "credentials belong in the request body")

		if r.Form.Get("code") != "" {
			// Code exchange done by the oauth2 package.
			sawExchange = true
			assert.Equal(t, "auth-code-1", r.Form.Get("code"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"short-lived","token_type":"bearer","expires_in":3600}`)
			return
		}

		// Long-lived upgrade.
		sawUpgrade = true
		assert.Equal(t, "fb_exchange_token", r.Form.Get("grant_type"))
		assert.Equal(t, "app-id", r.Form.Get("client_id"))
		assert.Equal(t, "app-secret", r.Form.Get("client_secret"))
		assert.Equal(t, "short-lived", r.Form.Get("fb_exchange_token"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"long-lived","token_type":"bearer","expires_in":5184000}`)
	}))
	defer srv.Close()

	src := newTestFacebookSource(srv.URL)
	tok, err := src.ExchangeCode(context.Background(), "auth-code-1")
	require.NoError(t, err)
	assert.True(t, sawExchange)
	assert.True(t, sawUpgrade)

	assert.Equal(t, "long-lived", tok.AccessToken)
	assert.Equal(t, "long-lived", tok.RefreshToken, "long-lived token doubles as the refresh credential")
	require.NotNil(t, tok.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(5184000*time.Second), *tok.ExpiresAt, 10*time.Second)
}

func TestFacebookExchangeCodeRequiresCode(t *testing.T) {
	src := newTestFacebookSource("http://127.0.0.1:0")
	_, err := src.ExchangeCode(context.Background(), "  ")
	assert.Error(t, err)
}

func TestFacebookRefreshReExchangesLongLivedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/access_token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "fb_exchange_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-long-lived", r.Form.Get("fb_exchange_token"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-long-lived","token_type":"bearer","expires_in":5184000}`)
	}))
	defer srv.Close()

	src := newTestFacebookSource(srv.URL)
	tok, err := src.Refresh(context.Background(), "old-long-lived")
	require.NoError(t, err)
	assert.Equal(t, "new-long-lived", tok.AccessToken)
	assert.Equal(t, "new-long-lived", tok.RefreshToken)
}

func TestFacebookRefreshSurfacesGraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`)
	}))
	defer srv.Close()

	src := newTestFacebookSource(srv.URL)
	_, err := src.Refresh(context.Background(), "revoked-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error validating access token")
	assert.Contains(t, err.Error(), "OAuthException")
	assert.NotContains(t, err.Error(), "revoked-token", "credentials must not leak into errors")
}

func TestFacebookRefreshTransportErrorOmitsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // every request now fails at the transport level

	src := newTestFacebookSource(srv.URL)
	_, err := src.Refresh(context.Background(), "old-long-lived")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "old-long-lived")
	assert.NotContains(t, err.Error(), "app-secret", "last_error and the logs carry this string verbatim")
}

func TestFacebookRefreshRejectsMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token_type":"bearer"}`)
	}))
	defer srv.Close()

	src := newTestFacebookSource(srv.URL)
	_, err := src.Refresh(context.Background(), "long-lived")
	assert.ErrorContains(t, err, "missing access_token")
}

func TestGraphClientListPagesFollowsPaging(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me/accounts", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "user-token", q.Get("access_token"))
		assert.Equal(t, "id,name,access_token,instagram_business_account{id,username}", q.Get("fields"))

		w.Header().Set("Content-Type", "application/json")
		if q.Get("after") == "" {
			fmt.Fprintf(w, `{
				"data": [
					{"id":"101","name":"Main Page","access_token":"page-token-101",
					 "instagram_business_account":{"id":"ig-501","username":"mainshop"}},
					{"id":"102","name":"Side Page","access_token":"page-token-102"}
				],
				"paging": {"next": %q}
			}`, srv.URL+"/me/accounts?"+q.Encode()+"&after=c2")
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"103","name":"Third Page","access_token":"page-token-103"}],"paging":{}}`)
	}))
	defer srv.Close()

	client := &GraphClient{APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	pages, err := client.ListPages(context.Background(), "user-token")
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, PageInfo{
		ID:                 "101",
		Name:               "Main Page",
		AccessToken:        "page-token-101",
		InstagramAccountID: "ig-501",
		InstagramUsername:  "mainshop",
	}, pages[0])
	assert.Empty(t, pages[1].InstagramAccountID)
	assert.Equal(t, "103", pages[2].ID)
}

func TestGraphClientListPagesRequiresToken(t *testing.T) {
	client := &GraphClient{APIBaseURL: "http://127.0.0.1:0", HTTPClient: http.DefaultClient}
	_, err := client.ListPages(context.Background(), "")
	assert.Error(t, err)
}

func TestGraphClientListPagesSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"message":"Permissions error","type":"OAuthException","code":200}}`)
	}))
	defer srv.Close()

	client := &GraphClient{APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := client.ListPages(context.Background(), "user-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "Permissions error")
}

func TestGraphClientListPagesTransportErrorOmitsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := &GraphClient{APIBaseURL: srv.URL, HTTPClient: http.DefaultClient}
	_, err := client.ListPages(context.Background(), "user-token")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "user-token", "the token rides the query string, so the URL must be redacted")
	assert.Contains(t, err.Error(), "/me/accounts", "the path stays for diagnostics")
}

func TestGraphErrorMessageUnrecognizedBody(t *testing.T) {
	assert.Equal(t, "unrecognized error response", graphErrorMessage([]byte("<html>gateway timeout</html>")))
	assert.Equal(t, "unrecognized error response", graphErrorMessage(json.RawMessage(`{"error":{}}`)))
}
