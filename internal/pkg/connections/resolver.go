package connections

import (
	"context"

	"gorm.io/gorm"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/repository"
)

// Credentials is the structured bag a caller needs to address provider API
// endpoints on behalf of one unified connection.
type Credentials struct {
	AccessToken        string
	Provider           string
	AccountID          string
	LocationID         string
	PageID             string
	InstagramAccountID string
}

// SourceResolver resolves one source type into concrete credentials.
// Adding a provider means adding one implementation and one Register call;
// existing resolvers are never touched.
type SourceResolver interface {
	SourceType() string
	Resolve(ctx context.Context, orgID, sourceID uint) (*Credentials, error)
}

// Resolver dispatches a unified platform connection to the source resolver
// registered for its source type.
type Resolver struct {
	sources map[string]SourceResolver
}

// NewResolver creates a resolver with the default source types registered.
func NewResolver(repos *repository.Repositories, manager *Manager) *Resolver {
	r := &Resolver{sources: make(map[string]SourceResolver)}
	r.Register(&locationSourceResolver{repo: repos.Connection})
	r.Register(&pageSourceResolver{pages: repos.PageConnection, manager: manager})
	return r
}

// Register adds a source resolver to the dispatch table.
func (r *Resolver) Register(s SourceResolver) {
	r.sources[s.SourceType()] = s
}

// Resolve translates a unified connection row into provider credentials.
// Unregistered source types answer ErrNotImplemented, never empty
// credentials, so callers can tell "not yet supported" from "broken".
func (r *Resolver) Resolve(ctx context.Context, row *models.PlatformConnection) (*Credentials, error) {
	source, ok := r.sources[row.SourceType]
	if !ok {
		return nil, ErrNotImplemented
	}
	return source.Resolve(ctx, row.OrganizationID, row.SourceID)
}

// locationSourceResolver serves location-based sources: the credentials
// live directly on the provider connection row.
type locationSourceResolver struct {
	repo repository.ConnectionRepository
}

func (l *locationSourceResolver) SourceType() string { return models.SourceTypeLocation }

func (l *locationSourceResolver) Resolve(ctx context.Context, orgID, sourceID uint) (*Credentials, error) {
	_ = ctx
	conn, err := l.repo.GetByID(sourceID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}
	if conn.OrganizationID != orgID {
		return nil, ErrSourceNotFound
	}
	if !conn.IsActive() {
		return nil, &NotActiveError{Status: conn.Status}
	}
	return &Credentials{
		AccessToken: conn.AccessToken,
		Provider:    conn.Provider,
		AccountID:   conn.AccountID,
		LocationID:  conn.LocationID,
	}, nil
}

// pageSourceResolver serves page-based sources: the page row carries a
// page-scoped token, while the parent connection's user token is kept
// fresh through the manager so expiry is caught here rather than at the
// provider.
type pageSourceResolver struct {
	pages   repository.PageConnectionRepository
	manager *Manager
}

func (p *pageSourceResolver) SourceType() string { return models.SourceTypePage }

func (p *pageSourceResolver) Resolve(ctx context.Context, orgID, sourceID uint) (*Credentials, error) {
	page, err := p.pages.GetByID(sourceID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}
	if page.OrganizationID != orgID {
		return nil, ErrSourceNotFound
	}

	// Validates the parent grant and refreshes it when expiring; the
	// page-scoped token tracks the user token's validity.
	if _, err := p.manager.GetValidAccessToken(ctx, orgID, models.ProviderFacebook); err != nil {
		return nil, err
	}

	return &Credentials{
		AccessToken:        page.PageAccessToken,
		Provider:           models.ProviderFacebook,
		PageID:             page.PageID,
		InstagramAccountID: page.InstagramAccountID,
	}, nil
}
