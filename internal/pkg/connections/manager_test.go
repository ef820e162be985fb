package connections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/providers"
)

type fakeRefresher struct {
	calls int
	token *providers.Token
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, _ string) (*providers.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

func newTestManager(t *testing.T) (*Manager, *fakeConnRepo, *fakeRefresher, time.Time) {
	t.Helper()
	repos, conns, _, _ := newTestRepos()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	refresher := &fakeRefresher{}
	m := NewManager(repos)
	m.now = func() time.Time { return now }
	m.refresherFor = func(string) (Refresher, error) { return refresher, nil }
	return m, conns, refresher, now
}

func seedConnection(t *testing.T, repo *fakeConnRepo, conn models.ProviderConnection) *models.ProviderConnection {
	t.Helper()
	repo.mu.Lock()
	repo.nextID++
	conn.ID = repo.nextID
	repo.rows[conn.ID] = &conn
	repo.mu.Unlock()
	return &conn
}

func TestCreateOrUpdateConnectionIsIdempotent(t *testing.T) {
	m, conns, _, _ := newTestManager(t)

	first, err := m.CreateOrUpdateConnection(context.Background(), ConnectionInput{
		OrganizationID: 1,
		Provider:       models.ProviderGoogleBusiness,
		AccessToken:    "token-a",
		DisplayName:    "First Store",
	})
	require.NoError(t, err)

	second, err := m.CreateOrUpdateConnection(context.Background(), ConnectionInput{
		OrganizationID: 1,
		Provider:       models.ProviderGoogleBusiness,
		AccessToken:    "token-b",
		DisplayName:    "Renamed Store",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "duplicate callback must land on the same row")

	rows, err := conns.ListByOrg(1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "token-b", rows[0].AccessToken, "second write wins")
	assert.Equal(t, "Renamed Store", rows[0].DisplayName)
	assert.Equal(t, models.ConnectionStatusActive, rows[0].Status)
	assert.NotNil(t, rows[0].LastSyncedAt)
}

func TestCreateOrUpdateConnectionRequiresOrgAndProvider(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	_, err := m.CreateOrUpdateConnection(context.Background(), ConnectionInput{Provider: models.ProviderYouTube})
	assert.Error(t, err)

	_, err = m.CreateOrUpdateConnection(context.Background(), ConnectionInput{OrganizationID: 3})
	assert.Error(t, err)
}

func TestGetValidAccessTokenServesFreshTokenWithoutRefresh(t *testing.T) {
	m, conns, refresher, now := newTestManager(t)
	expiry := now.Add(time.Hour)
	seedConnection(t, conns, models.ProviderConnection{
		OrganizationID:       1,
		Provider:             models.ProviderGoogleBusiness,
		AccessToken:          "fresh-token",
		RefreshToken:         "refresh",
		AccessTokenExpiresAt: &expiry,
		Status:               models.ConnectionStatusActive,
	})

	token, err := m.GetValidAccessToken(context.Background(), 1, models.ProviderGoogleBusiness)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Zero(t, refresher.calls, "a token outside the buffer must not be refreshed")
}

func TestGetValidAccessTokenRefreshesInsideBuffer(t *testing.T) {
	m, conns, refresher, now := newTestManager(t)
	expiry := now.Add(2 * time.Minute) // inside the 5 minute buffer
	newExpiry := now.Add(time.Hour)
	refresher.token = &providers.Token{AccessToken: "renewed-token", ExpiresAt: &newExpiry}
	conn := seedConnection(t, conns, models.ProviderConnection{
		OrganizationID:       1,
		Provider:             models.ProviderGoogleBusiness,
		AccessToken:          "stale-token",
		RefreshToken:         "refresh",
		AccessTokenExpiresAt: &expiry,
		Status:               models.ConnectionStatusActive,
	})

	token, err := m.GetValidAccessToken(context.Background(), 1, models.ProviderGoogleBusiness)
	require.NoError(t, err)
	assert.Equal(t, "renewed-token", token)
	assert.Equal(t, 1, refresher.calls)

	stored, err := conns.GetByID(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "renewed-token", stored.AccessToken, "refreshed token must be persisted")
	assert.Equal(t, newExpiry, *stored.AccessTokenExpiresAt)
	assert.Equal(t, models.ConnectionStatusActive, stored.Status)
	assert.Empty(t, stored.LastError)
}

func TestGetValidAccessTokenPersistsRotatedRefreshToken(t *testing.T) {
	m, conns, refresher, now := newTestManager(t)
	expiry := now.Add(-time.Minute)
	newExpiry := now.Add(60 * 24 * time.Hour)
	// Facebook re-exchanges the long-lived token on every refresh; the new
	// one replaces the old as the refresh credential.
	refresher.token = &providers.Token{AccessToken: "new-long-lived", RefreshToken: "new-long-lived", ExpiresAt: &newExpiry}
	conn := seedConnection(t, conns, models.ProviderConnection{
		OrganizationID:       1,
		Provider:             models.ProviderFacebook,
		AccessToken:          "old-long-lived",
		RefreshToken:         "old-long-lived",
		AccessTokenExpiresAt: &expiry,
		Status:               models.ConnectionStatusActive,
	})

	_, err := m.GetValidAccessToken(context.Background(), 1, models.ProviderFacebook)
	require.NoError(t, err)

	stored, err := conns.GetByID(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-long-lived", stored.RefreshToken, "the next refresh must use the rotated credential")
}

func TestGetValidAccessTokenKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	m, conns, refresher, now := newTestManager(t)
	expiry := now.Add(2 * time.Minute)
	newExpiry := now.Add(time.Hour)
	refresher.token = &providers.Token{AccessToken: "renewed-token", ExpiresAt: &newExpiry}
	conn := seedConnection(t, conns, models.ProviderConnection{
		OrganizationID:       1,
		Provider:             models.ProviderGoogleBusiness,
		AccessToken:          "stale-token",
		RefreshToken:         "stable-refresh",
		AccessTokenExpiresAt: &expiry,
		Status:               models.ConnectionStatusActive,
	})

	_, err := m.GetValidAccessToken(context.Background(), 1, models.ProviderGoogleBusiness)
	require.NoError(t, err)

	stored, err := conns.GetByID(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "stable-refresh", stored.RefreshToken)
}

func TestGetValidAccessTokenWithoutExpiryNeverRefreshes(t *testing.T) {
	m, conns, refresher, _ := newTestManager(t)
	seedConnection(t, conns, models.ProviderConnection{
		OrganizationID: 1,
		Provider:       models.ProviderFacebook,
		AccessToken:    "long-lived",
		Status:         models.ConnectionStatusActive,
	})

	token, err := m.GetValidAccessToken(context.Background(), 1, models.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, "long-lived", token)
	assert.Zero(t, refresher.calls)
}

func TestGetValidAccessTokenExpiredWithoutRefreshToken(t *testing.T) {
	m, conns, refresher, now := newTestManager(t)
	expiry := now.Add(-time.Minute)
	conn := seedConnection(t, conns, models.ProviderConnection{
		OrganizationID:       1,
		Provider:             models.ProviderSearchConsole,
		AccessToken:          "dead-token",
		AccessTokenExpiresAt: &expiry,
		Status:               models.ConnectionStatusActive,
	})

	_, err := m.GetValidAccessToken(context.Background(), 1, models.ProviderSearchConsole)
	require.ErrorIs(t, err, ErrReauthRequired)
	assert.Zero(t, refresher.calls)

	stored, err := conns.GetByID(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusError, stored.Status)
	assert.NotEmpty(t, stored.LastError, "the reason must be persisted for the dashboard")
}

func TestGetValidAccessTokenRefreshFailurePersistsError(t *testing.T) {
	m, conns, refresher, now := newTestManager(t)
	refresher.err = errors.New("invalid_grant: token revoked")
	expiry := now.Add(-time.Minute)
	conn := seedConnection(t, conns, models.ProviderConnection{
		OrganizationID:       1,
		Provider:             models.ProviderYouTube,
		AccessToken:          "dead-token",
		RefreshToken:         "revoked",
		AccessTokenExpiresAt: &expiry,
		Status:               models.ConnectionStatusActive,
	})

	_, err := m.GetValidAccessToken(context.Background(), 1, models.ProviderYouTube)
	require.ErrorIs(t, err, ErrRefreshFailed)
	assert.Equal(t, 1, refresher.calls, "exactly one refresh attempt per call")

	stored, err := conns.GetByID(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusError, stored.Status)
	assert.Contains(t, stored.LastError, "invalid_grant")
}

func TestGetValidAccessTokenUnknownOrgOrStatus(t *testing.T) {
	m, conns, _, _ := newTestManager(t)

	_, err := m.GetValidAccessToken(context.Background(), 99, models.ProviderGoogleBusiness)
	assert.ErrorIs(t, err, ErrNotConnected)

	seedConnection(t, conns, models.ProviderConnection{
		OrganizationID: 2,
		Provider:       models.ProviderGoogleBusiness,
		Status:         models.ConnectionStatusPending,
	})

	_, err = m.GetValidAccessToken(context.Background(), 2, models.ProviderGoogleBusiness)
	var notActive *NotActiveError
	require.ErrorAs(t, err, &notActive)
	assert.Equal(t, models.ConnectionStatusPending, notActive.Status)
}

// Full lifecycle: a connection whose token expires keeps serving through a
// single transparent refresh and stays active.
func TestRefreshScenarioKeepsConnectionActive(t *testing.T) {
	m, conns, refresher, now := newTestManager(t)
	expiry := now.Add(3 * time.Minute)
	newExpiry := now.Add(time.Hour)
	refresher.token = &providers.Token{AccessToken: "second-generation", ExpiresAt: &newExpiry}
	seedConnection(t, conns, models.ProviderConnection{
		OrganizationID:       7,
		Provider:             models.ProviderGoogleBusiness,
		AccessToken:          "first-generation",
		RefreshToken:         "refresh",
		AccessTokenExpiresAt: &expiry,
		Status:               models.ConnectionStatusActive,
	})

	token, err := m.GetValidAccessToken(context.Background(), 7, models.ProviderGoogleBusiness)
	require.NoError(t, err)
	assert.Equal(t, "second-generation", token)

	// Second call is served from the stored token, no further refresh.
	token, err = m.GetValidAccessToken(context.Background(), 7, models.ProviderGoogleBusiness)
	require.NoError(t, err)
	assert.Equal(t, "second-generation", token)
	assert.Equal(t, 1, refresher.calls)

	stored, err := conns.GetByOrgAndProvider(7, models.ProviderGoogleBusiness)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusActive, stored.Status)
	assert.True(t, stored.AccessTokenExpiresAt.After(expiry))
}

func TestDisconnectRemovesDerivedRows(t *testing.T) {
	repos, conns, pages, platforms := newTestRepos()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(repos)
	m.now = func() time.Time { return now }

	conn := seedConnection(t, conns, models.ProviderConnection{
		OrganizationID: 1,
		Provider:       models.ProviderFacebook,
		Status:         models.ConnectionStatusActive,
	})
	require.NoError(t, pages.Upsert(&models.PageConnection{
		OrganizationID:       1,
		ProviderConnectionID: conn.ID,
		PageID:               "page-1",
		Status:               models.ConnectionStatusActive,
	}))
	page, err := pages.GetByID(1)
	require.NoError(t, err)
	_, err = platforms.Upsert(&models.PlatformConnection{
		OrganizationID:    1,
		Platform:          models.PlatformFacebook,
		ExternalAccountID: "page-1",
		SourceType:        models.SourceTypePage,
		SourceID:          page.ID,
	})
	require.NoError(t, err)
	_, err = platforms.Upsert(&models.PlatformConnection{
		OrganizationID:    1,
		Platform:          models.PlatformInstagram,
		ExternalAccountID: "ig-1",
		SourceType:        models.SourceTypePage,
		SourceID:          page.ID,
	})
	require.NoError(t, err)

	require.NoError(t, m.Disconnect(context.Background(), 1, models.ProviderFacebook))

	_, err = conns.GetByOrgAndProvider(1, models.ProviderFacebook)
	assert.Error(t, err, "connection row must be gone")
	remainingPages, err := pages.ListActiveByOrg(1)
	require.NoError(t, err)
	assert.Empty(t, remainingPages)
	remainingPlatforms, err := platforms.ListByOrg(1)
	require.NoError(t, err)
	assert.Empty(t, remainingPlatforms, "derived facebook and instagram rows must be gone")
}

func TestDisconnectUnknownProvider(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	err := m.Disconnect(context.Background(), 1, models.ProviderGoogleBusiness)
	assert.ErrorIs(t, err, ErrNotConnected)
}
