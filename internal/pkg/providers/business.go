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

	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/env"
)

const (
	defaultBusinessAccountsBaseURL = "https://mybusinessaccountmanagement.googleapis.com/v1"
	defaultBusinessInfoBaseURL     = "https://mybusinessbusinessinformation.googleapis.com/v1"
)

// BusinessAccount is one Business Profile account the grant can manage.
type BusinessAccount struct {
	Name        string `json:"name"` // resource name, "accounts/{id}"
	AccountName string `json:"accountName"`
	Type        string `json:"type"`
}

// BusinessLocation is one location under a Business Profile account.
type BusinessLocation struct {
	Name  string `json:"name"` // resource name, "locations/{id}"
	Title string `json:"title"`
}

// BusinessClient reads accounts, locations and location detail from the
// Google Business Profile APIs.
type BusinessClient struct {
	AccountsBaseURL string
	InfoBaseURL     string
	HTTPClient      *http.Client
}

// NewBusinessClient creates a Business Profile client from environment configuration
func NewBusinessClient() *BusinessClient {
	return &BusinessClient{
		AccountsBaseURL: strings.TrimRight(env.GetEnv("GOOGLE_BUSINESS_ACCOUNTS_BASE_URL", defaultBusinessAccountsBaseURL), "/"),
		InfoBaseURL:     strings.TrimRight(env.GetEnv("GOOGLE_BUSINESS_INFO_BASE_URL", defaultBusinessInfoBaseURL), "/"),
		HTTPClient:      &http.Client{Timeout: 15 * time.Second},
	}
}

// ListAccounts returns the Business Profile accounts visible to the token
func (c *BusinessClient) ListAccounts(ctx context.Context, accessToken string) ([]BusinessAccount, error) {
	var parsed struct {
		Accounts []BusinessAccount `json:"accounts"`
	}
	if err := c.getJSON(ctx, accessToken, c.AccountsBaseURL+"/accounts", &parsed); err != nil {
		return nil, err
	}
	return parsed.Accounts, nil
}

// ListLocations returns the locations of one account. accountID is the
// "accounts/{id}" resource name from ListAccounts.
func (c *BusinessClient) ListLocations(ctx context.Context, accessToken, accountID string) ([]BusinessLocation, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("account id is required")
	}
	q := url.Values{}
	q.Set("readMask", "name,title")

	var parsed struct {
		Locations []BusinessLocation `json:"locations"`
	}
	endpoint := fmt.Sprintf("%s/%s/locations?%s", c.InfoBaseURL, accountID, q.Encode())
	if err := c.getJSON(ctx, accessToken, endpoint, &parsed); err != nil {
		return nil, err
	}
	return parsed.Locations, nil
}

// FetchLocation returns the full detail payload of one location as raw
// JSON. The caller caches it opaque; this layer does not interpret it.
func (c *BusinessClient) FetchLocation(ctx context.Context, accessToken, locationID string) (json.RawMessage, error) {
	if strings.TrimSpace(locationID) == "" {
		return nil, errors.New("location id is required")
	}
	q := url.Values{}
	q.Set("readMask", "name,title,phoneNumbers,categories,storefrontAddress,websiteUri,regularHours,metadata")

	endpoint := fmt.Sprintf("%s/%s?%s", c.InfoBaseURL, locationID, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("location detail request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("location detail fetch failed: status %d", resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, errors.New("location detail response is not valid JSON")
	}
	return json.RawMessage(body), nil
}

func (c *BusinessClient) getJSON(ctx context.Context, accessToken, endpoint string, out interface{}) error {
	if strings.TrimSpace(accessToken) == "" {
		return errors.New("access token is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("business api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("business api call failed: status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
