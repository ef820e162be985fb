package connections

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/repository"
)

// DetailTTL is how long a cached location detail snapshot is considered
// fresh.
const DetailTTL = 24 * time.Hour

// LocationFetcher is the provider call the detail service refreshes
// through; satisfied by providers.BusinessClient.
type LocationFetcher interface {
	FetchLocation(ctx context.Context, accessToken, locationID string) (json.RawMessage, error)
}

// DetailService is the read-through cache for the business location detail
// snapshot. On refresh failure the stale snapshot is served rather than a
// broken dashboard: availability over freshness, with the failure recorded
// in last_error for diagnostics.
type DetailService struct {
	repo    repository.ConnectionRepository
	manager *Manager
	fetcher LocationFetcher
	now     func() time.Time
}

// NewDetailService creates the location detail cache.
func NewDetailService(repo repository.ConnectionRepository, manager *Manager, fetcher LocationFetcher) *DetailService {
	return &DetailService{repo: repo, manager: manager, fetcher: fetcher, now: time.Now}
}

// GetLocationDetail returns the cached provider snapshot for the
// organization's business listing, refreshing it when older than
// DetailTTL. Returns nil when no connection exists and no snapshot was
// ever cached.
func (s *DetailService) GetLocationDetail(ctx context.Context, orgID uint) (json.RawMessage, error) {
	conn, err := s.repo.GetByOrgAndProvider(orgID, models.ProviderGoogleBusiness)
	if err != nil {
		return nil, ErrNotConnected
	}

	if s.isFresh(conn) {
		return json.RawMessage(conn.ProviderData), nil
	}

	fresh, err := s.refresh(ctx, conn)
	if err != nil {
		log.Warnf("[Connections] org=%d: location detail refresh failed, serving stale snapshot: %v", orgID, err)
		if perr := s.repo.SetLastError(conn.ID, err.Error()); perr != nil {
			log.Errorf("[Connections] org=%d: persisting detail refresh failure failed: %v", orgID, perr)
		}
		// Stale-serve fallback: the cached snapshot is never cleared on
		// a failed refresh.
		if len(conn.ProviderData) > 0 {
			return json.RawMessage(conn.ProviderData), nil
		}
		return nil, err
	}
	return fresh, nil
}

func (s *DetailService) isFresh(conn *models.ProviderConnection) bool {
	if len(conn.ProviderData) == 0 || conn.LastSyncedAt == nil {
		return false
	}
	return s.now().Sub(*conn.LastSyncedAt) < DetailTTL
}

func (s *DetailService) refresh(ctx context.Context, conn *models.ProviderConnection) (json.RawMessage, error) {
	token, err := s.manager.GetValidAccessToken(ctx, conn.OrganizationID, models.ProviderGoogleBusiness)
	if err != nil {
		return nil, err
	}

	detail, err := s.fetcher.FetchLocation(ctx, token, conn.LocationID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveProviderData(conn.ID, datatypes.JSON(detail), s.now()); err != nil {
		return nil, err
	}
	return detail, nil
}
