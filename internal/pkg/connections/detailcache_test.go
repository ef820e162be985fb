package connections

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
)

type fakeLocationFetcher struct {
	calls  int
	detail json.RawMessage
	err    error
}

func (f *fakeLocationFetcher) FetchLocation(_ context.Context, _, _ string) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

func newTestDetailService(t *testing.T) (*DetailService, *fakeConnRepo, *fakeLocationFetcher, time.Time) {
	t.Helper()
	repos, conns, _, _ := newTestRepos()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(repos)
	m.now = func() time.Time { return now }
	fetcher := &fakeLocationFetcher{}
	s := NewDetailService(conns, m, fetcher)
	s.now = func() time.Time { return now }
	return s, conns, fetcher, now
}

func TestGetLocationDetailServesFreshSnapshot(t *testing.T) {
	s, conns, fetcher, now := newTestDetailService(t)
	synced := now.Add(-time.Hour)
	seedConnection(t, conns, models.ProviderConnection{
		OrganizationID: 1,
		Provider:       models.ProviderGoogleBusiness,
		AccessToken:    "token",
		LocationID:     "locations/1",
		ProviderData:   datatypes.JSON(`{"title":"Cached Store"}`),
		LastSyncedAt:   &synced,
		Status:         models.ConnectionStatusActive,
	})

	detail, err := s.GetLocationDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Cached Store"}`, string(detail))
	assert.Zero(t, fetcher.calls, "a fresh snapshot must not trigger a provider call")
}

func TestGetLocationDetailRefreshesStaleSnapshot(t *testing.T) {
	s, conns, fetcher, now := newTestDetailService(t)
	fetcher.detail = json.RawMessage(`{"title":"Fresh Store"}`)
	synced := now.Add(-DetailTTL - time.Hour)
	conn := seedConnection(t, conns, models.ProviderConnection{
		OrganizationID: 1,
		Provider:       models.ProviderGoogleBusiness,
		AccessToken:    "token",
		LocationID:     "locations/1",
		ProviderData:   datatypes.JSON(`{"title":"Cached Store"}`),
		LastSyncedAt:   &synced,
		Status:         models.ConnectionStatusActive,
	})

	detail, err := s.GetLocationDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Fresh Store"}`, string(detail))
	assert.Equal(t, 1, fetcher.calls)

	stored, err := conns.GetByID(conn.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Fresh Store"}`, string(stored.ProviderData))
	assert.Equal(t, now, *stored.LastSyncedAt)
}

func TestGetLocationDetailStaleServeOnFetchFailure(t *testing.T) {
	s, conns, fetcher, now := newTestDetailService(t)
	fetcher.err = errors.New("upstream 503")
	synced := now.Add(-DetailTTL - time.Hour)
	conn := seedConnection(t, conns, models.ProviderConnection{
		OrganizationID: 1,
		Provider:       models.ProviderGoogleBusiness,
		AccessToken:    "token",
		LocationID:     "locations/1",
		ProviderData:   datatypes.JSON(`{"title":"Cached Store"}`),
		LastSyncedAt:   &synced,
		Status:         models.ConnectionStatusActive,
	})

	detail, err := s.GetLocationDetail(context.Background(), 1)
	require.NoError(t, err, "a stale snapshot beats an error page")
	assert.JSONEq(t, `{"title":"Cached Store"}`, string(detail))

	stored, err := conns.GetByID(conn.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.LastError, "upstream 503")
	assert.JSONEq(t, `{"title":"Cached Store"}`, string(stored.ProviderData), "the snapshot is never cleared on failure")
}

func TestGetLocationDetailNoSnapshotNoProvider(t *testing.T) {
	s, conns, fetcher, _ := newTestDetailService(t)
	fetcher.err = errors.New("upstream 503")
	seedConnection(t, conns, models.ProviderConnection{
		OrganizationID: 1,
		Provider:       models.ProviderGoogleBusiness,
		AccessToken:    "token",
		LocationID:     "locations/1",
		Status:         models.ConnectionStatusActive,
	})

	_, err := s.GetLocationDetail(context.Background(), 1)
	assert.Error(t, err, "nothing cached and nothing fetchable is an error")
}

func TestGetLocationDetailNotConnected(t *testing.T) {
	s, _, _, _ := newTestDetailService(t)
	_, err := s.GetLocationDetail(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotConnected)
}
