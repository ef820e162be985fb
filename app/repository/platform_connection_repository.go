package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
)

// platformConnectionRepository implements the PlatformConnectionRepository interface
type platformConnectionRepository struct {
	db *gorm.DB
}

// NewPlatformConnectionRepository creates a new platform connection repository instance
func NewPlatformConnectionRepository(db *gorm.DB) PlatformConnectionRepository {
	return &platformConnectionRepository{db: db}
}

// Upsert creates or overwrites the row for (organization, platform,
// external account) and reports whether it was newly created. RowsAffected
// is 1 for an insert and 2 for a MySQL duplicate-key update, which is what
// lets the reconciler count created vs updated without a prior read.
func (r *platformConnectionRepository) Upsert(row *models.PlatformConnection) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
			{Name: "platform"},
			{Name: "external_account_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name",
			"handle",
			"image_url",
			"source_type",
			"source_id",
			"status",
			"updated_at",
		}),
	}).Create(row)
	if tx.Error != nil {
		return false, tx.Error
	}

	created := tx.RowsAffected == 1

	err := r.db.Where("organization_id = ? AND platform = ? AND external_account_id = ?",
		row.OrganizationID, row.Platform, row.ExternalAccountID).
		First(row).Error
	return created, err
}

// GetByID returns one unified connection row
func (r *platformConnectionRepository) GetByID(id uint) (*models.PlatformConnection, error) {
	var row models.PlatformConnection
	err := r.db.First(&row, id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByOrg returns the unified listing of an organization
func (r *platformConnectionRepository) ListByOrg(orgID uint) ([]models.PlatformConnection, error) {
	var rows []models.PlatformConnection
	err := r.db.Where("organization_id = ?", orgID).Order("platform asc").Find(&rows).Error
	return rows, err
}

// DeleteBySource removes the derived rows of one source row, used when a
// provider connection is disconnected.
func (r *platformConnectionRepository) DeleteBySource(orgID uint, sourceType string, sourceID uint) error {
	return r.db.Where("organization_id = ? AND source_type = ? AND source_id = ?", orgID, sourceType, sourceID).
		Delete(&models.PlatformConnection{}).Error
}
