package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
)

// pageConnectionRepository implements the PageConnectionRepository interface
type pageConnectionRepository struct {
	db *gorm.DB
}

// NewPageConnectionRepository creates a new page connection repository instance
func NewPageConnectionRepository(db *gorm.DB) PageConnectionRepository {
	return &pageConnectionRepository{db: db}
}

// Upsert creates or overwrites the row for (organization, page)
func (r *pageConnectionRepository) Upsert(page *models.PageConnection) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
			{Name: "page_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_connection_id",
			"page_name",
			"page_access_token",
			"instagram_account_id",
			"instagram_username",
			"status",
			"last_synced_at",
			"updated_at",
		}),
	}).Create(page).Error; err != nil {
		return err
	}

	return r.db.Where("organization_id = ? AND page_id = ?", page.OrganizationID, page.PageID).
		First(page).Error
}

// GetByID retrieves a page connection by primary key
func (r *pageConnectionRepository) GetByID(id uint) (*models.PageConnection, error) {
	var page models.PageConnection
	err := r.db.First(&page, id).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListActiveByOrg returns the active page connections of an organization
func (r *pageConnectionRepository) ListActiveByOrg(orgID uint) ([]models.PageConnection, error) {
	var pages []models.PageConnection
	err := r.db.Where("organization_id = ? AND status = ?", orgID, models.ConnectionStatusActive).
		Find(&pages).Error
	return pages, err
}

// DeleteByConnectionID removes all pages that belonged to a provider connection
func (r *pageConnectionRepository) DeleteByConnectionID(connectionID uint) error {
	return r.db.Where("provider_connection_id = ?", connectionID).
		Delete(&models.PageConnection{}).Error
}
