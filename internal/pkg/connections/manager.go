package connections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/repository"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/metrics/counter"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/providers"
)

// RefreshBuffer is the safety margin applied before actual expiry: a token
// inside this window is treated as expired and refreshed proactively
// instead of being used right up to the wire.
const RefreshBuffer = 5 * time.Minute

// Refresher is the slice of providers.TokenSource the manager needs.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*providers.Token, error)
}

// RefresherFor resolves the refresher for a provider key. The default
// implementation builds providers.TokenSource from environment config;
// tests swap it for fakes.
type RefresherFor func(provider string) (Refresher, error)

// Manager owns the connection status state machine and the token freshness
// policy. It is the only writer of provider_connections besides the
// pending-connection broker.
type Manager struct {
	repo         repository.ConnectionRepository
	platformRepo repository.PlatformConnectionRepository
	pageRepo     repository.PageConnectionRepository
	refresherFor RefresherFor
	now          func() time.Time
}

// NewManager creates a connection manager over the given repositories.
func NewManager(repos *repository.Repositories) *Manager {
	return &Manager{
		repo:         repos.Connection,
		platformRepo: repos.PlatformConnection,
		pageRepo:     repos.PageConnection,
		refresherFor: defaultRefresherFor,
		now:          time.Now,
	}
}

func defaultRefresherFor(provider string) (Refresher, error) {
	return providers.NewTokenSource(provider)
}

// ConnectionInput carries the fields of a direct (non-pending) connection
// write, used when a completed OAuth exchange replaces an existing grant.
type ConnectionInput struct {
	OrganizationID       uint
	Provider             string
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt *time.Time
	Scope                string
	AccountID            string
	LocationID           string
	DisplayName          string
	ConnectedByUserID    uint
}

// GetValidAccessToken returns an access token that is good for at least
// RefreshBuffer, refreshing it first when needed. At most one refresh
// attempt is made per call; every refresh-failure path persists the reason
// so the dashboard can explain why re-authentication is needed.
func (m *Manager) GetValidAccessToken(ctx context.Context, orgID uint, provider string) (string, error) {
	conn, err := m.repo.GetByOrgAndProvider(orgID, provider)
	if err != nil {
		return "", ErrNotConnected
	}
	if !conn.IsActive() {
		return "", &NotActiveError{Status: conn.Status}
	}

	if !m.isExpired(conn) {
		return conn.AccessToken, nil
	}

	if conn.RefreshToken == "" {
		msg := "access token expired and no refresh token is stored; re-authentication required"
		if err := m.repo.SetStatus(conn.ID, models.ConnectionStatusError, msg); err != nil {
			log.Errorf("[Connections] org=%d provider=%s: persisting error status failed: %v", orgID, provider, err)
		}
		return "", ErrReauthRequired
	}

	refresher, err := m.refresherFor(provider)
	if err != nil {
		return "", err
	}

	tok, err := refresher.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		log.Warnf("[Connections] org=%d provider=%s: token refresh failed: %v", orgID, provider, err)
		if perr := m.repo.SetStatus(conn.ID, models.ConnectionStatusError, err.Error()); perr != nil {
			log.Errorf("[Connections] org=%d provider=%s: persisting refresh failure failed: %v", orgID, provider, perr)
		}
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	// Not wrapped in a transaction with the network call above: a crash
	// between refresh and persist loses the new token, recoverable via
	// the still-valid refresh token on the next attempt.
	if err := m.repo.UpdateTokens(conn.ID, tok.AccessToken, tok.RefreshToken, tok.ExpiresAt); err != nil {
		return "", err
	}
	counter.AddTokenRefresh(conn.ID)
	log.Infof("[Connections] org=%d provider=%s: access token refreshed", orgID, provider)

	return tok.AccessToken, nil
}

// isExpired applies the freshness policy. A connection without an expiry
// timestamp never expires (API-key style grants).
func (m *Manager) isExpired(conn *models.ProviderConnection) bool {
	if conn.AccessTokenExpiresAt == nil {
		return false
	}
	return !m.now().Before(conn.AccessTokenExpiresAt.Add(-RefreshBuffer))
}

// CreateOrUpdateConnection upserts the connection for (organization,
// provider) in a single atomic statement. OAuth callbacks can arrive more
// than once for the same organization; the unique key absorbs the
// duplicate instead of racing a read-then-write.
func (m *Manager) CreateOrUpdateConnection(ctx context.Context, input ConnectionInput) (*models.ProviderConnection, error) {
	_ = ctx
	if input.OrganizationID == 0 || input.Provider == "" {
		return nil, errors.New("organization and provider are required")
	}

	syncedAt := m.now()
	conn, err := m.repo.Upsert(repository.ConnectionUpsertInput{
		OrganizationID:       input.OrganizationID,
		Provider:             input.Provider,
		UUID:                 uuid.New().String(),
		AccessToken:          input.AccessToken,
		RefreshToken:         input.RefreshToken,
		AccessTokenExpiresAt: input.AccessTokenExpiresAt,
		Scope:                input.Scope,
		AccountID:            input.AccountID,
		LocationID:           input.LocationID,
		DisplayName:          input.DisplayName,
		Status:               models.ConnectionStatusActive,
		ConnectedByUserID:    input.ConnectedByUserID,
	})
	if err != nil {
		return nil, err
	}
	if err := m.repo.SaveProviderData(conn.ID, conn.ProviderData, syncedAt); err != nil {
		return nil, err
	}
	conn.LastSyncedAt = &syncedAt
	return conn, nil
}

// Disconnect removes the connection and every row derived from it. Hard
// delete; reconnection starts from a clean slate.
func (m *Manager) Disconnect(ctx context.Context, orgID uint, provider string) error {
	_ = ctx
	conn, err := m.repo.GetByOrgAndProvider(orgID, provider)
	if err != nil {
		return ErrNotConnected
	}

	if provider == models.ProviderFacebook {
		pages, err := m.pageRepo.ListActiveByOrg(orgID)
		if err != nil {
			return err
		}
		for _, page := range pages {
			if page.ProviderConnectionID != conn.ID {
				continue
			}
			if err := m.platformRepo.DeleteBySource(orgID, models.SourceTypePage, page.ID); err != nil {
				return err
			}
		}
		if err := m.pageRepo.DeleteByConnectionID(conn.ID); err != nil {
			return err
		}
	} else {
		if err := m.platformRepo.DeleteBySource(orgID, models.SourceTypeLocation, conn.ID); err != nil {
			return err
		}
	}
	if err := m.repo.Delete(orgID, provider); err != nil {
		return err
	}
	log.Infof("[Connections] org=%d provider=%s: disconnected", orgID, provider)
	return nil
}
