package connections

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/repository"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/metrics/counter"
)

// SyncResult reports what a reconciliation pass changed.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Reconciler mirrors the provider-specific connection tables into the
// unified platform_connections listing. A pass is a full re-derivation,
// not a diff: idempotent by construction and safe to re-run on every OAuth
// completion or manual sync. Sub-accounts removed at the provider simply
// stop being refreshed.
type Reconciler struct {
	connRepo     repository.ConnectionRepository
	pageRepo     repository.PageConnectionRepository
	platformRepo repository.PlatformConnectionRepository
}

// NewReconciler creates a sync reconciler over the given repositories.
func NewReconciler(repos *repository.Repositories) *Reconciler {
	return &Reconciler{
		connRepo:     repos.Connection,
		pageRepo:     repos.PageConnection,
		platformRepo: repos.PlatformConnection,
	}
}

// SyncFromProvider re-derives the unified listing of one organization from
// every active source row: location-based provider connections map 1:1,
// each page connection yields a facebook row plus an instagram row when a
// linked business account exists.
func (r *Reconciler) SyncFromProvider(ctx context.Context, orgID uint) (SyncResult, error) {
	_ = ctx
	var result SyncResult

	conns, err := r.connRepo.ListByOrg(orgID)
	if err != nil {
		return result, err
	}
	for i := range conns {
		conn := &conns[i]
		if !conn.IsActive() || conn.Provider == models.ProviderFacebook {
			continue
		}
		if err := r.upsert(&result, &models.PlatformConnection{
			OrganizationID:    orgID,
			Platform:          conn.Provider,
			ExternalAccountID: externalAccountID(conn),
			DisplayName:       conn.DisplayName,
			SourceType:        models.SourceTypeLocation,
			SourceID:          conn.ID,
			Status:            models.ConnectionStatusActive,
		}); err != nil {
			return result, err
		}
	}

	pages, err := r.pageRepo.ListActiveByOrg(orgID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return result, err
	}
	for i := range pages {
		page := &pages[i]
		if err := r.upsert(&result, &models.PlatformConnection{
			OrganizationID:    orgID,
			Platform:          models.PlatformFacebook,
			ExternalAccountID: page.PageID,
			DisplayName:       page.PageName,
			SourceType:        models.SourceTypePage,
			SourceID:          page.ID,
			Status:            models.ConnectionStatusActive,
		}); err != nil {
			return result, err
		}

		if page.InstagramAccountID == "" {
			continue
		}
		if err := r.upsert(&result, &models.PlatformConnection{
			OrganizationID:    orgID,
			Platform:          models.PlatformInstagram,
			ExternalAccountID: page.InstagramAccountID,
			DisplayName:       page.PageName,
			Handle:            page.InstagramUsername,
			SourceType:        models.SourceTypePage,
			SourceID:          page.ID,
			Status:            models.ConnectionStatusActive,
		}); err != nil {
			return result, err
		}
	}

	counter.AddSyncRun(orgID)
	log.Infof("[Connections] org=%d: reconciled unified listing (created=%d updated=%d)", orgID, result.Created, result.Updated)
	return result, nil
}

// upsert writes one derived row; existing rows get their display fields
// overwritten and any stale error status cleared.
func (r *Reconciler) upsert(result *SyncResult, row *models.PlatformConnection) error {
	created, err := r.platformRepo.Upsert(row)
	if err != nil {
		return err
	}
	if created {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}

// externalAccountID picks the provider-assigned identifier that names the
// bound sub-resource in the unified listing.
func externalAccountID(conn *models.ProviderConnection) string {
	if conn.LocationID != "" {
		return conn.LocationID
	}
	if conn.AccountID != "" {
		return conn.AccountID
	}
	return conn.UUID
}
