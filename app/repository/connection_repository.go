package repository

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
)

// connectionRepository implements the ConnectionRepository interface
type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new connection repository instance
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Upsert creates or overwrites the connection for (organization, provider)
// in one statement. The unique index carries the race: a duplicate OAuth
// callback lands on the same row instead of inserting a second one.
func (r *connectionRepository) Upsert(input ConnectionUpsertInput) (*models.ProviderConnection, error) {
	conn := &models.ProviderConnection{
		UUID:                 input.UUID,
		OrganizationID:       input.OrganizationID,
		Provider:             input.Provider,
		AccessToken:          input.AccessToken,
		RefreshToken:         input.RefreshToken,
		AccessTokenExpiresAt: input.AccessTokenExpiresAt,
		Scope:                input.Scope,
		AccountID:            input.AccountID,
		LocationID:           input.LocationID,
		DisplayName:          input.DisplayName,
		Status:               input.Status,
		LastError:            "",
		ConnectedByUserID:    input.ConnectedByUserID,
		PendingExpiresAt:     input.PendingExpiresAt,
	}

	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
			{Name: "provider"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"uuid",
			"access_token",
			"refresh_token",
			"access_token_expires_at",
			"scope",
			"account_id",
			"location_id",
			"display_name",
			"status",
			"last_error",
			"connected_by_user_id",
			"pending_expires_at",
			"updated_at",
		}),
	}).Create(conn).Error; err != nil {
		return nil, err
	}

	// Ensure ID and timestamps are populated after upsert.
	var stored models.ProviderConnection
	if err := r.db.Where("organization_id = ? AND provider = ?", input.OrganizationID, input.Provider).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetByID retrieves a connection by primary key
func (r *connectionRepository) GetByID(id uint) (*models.ProviderConnection, error) {
	var conn models.ProviderConnection
	err := r.db.First(&conn, id).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetByOrgAndProvider retrieves the connection for one provider of an organization
func (r *connectionRepository) GetByOrgAndProvider(orgID uint, provider string) (*models.ProviderConnection, error) {
	var conn models.ProviderConnection
	err := r.db.Where("organization_id = ? AND provider = ?", orgID, provider).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetByUUID retrieves a connection by its opaque setup code
func (r *connectionRepository) GetByUUID(uuid string) (*models.ProviderConnection, error) {
	var conn models.ProviderConnection
	err := r.db.Where("uuid = ?", uuid).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// ListByOrg returns every connection of an organization
func (r *connectionRepository) ListByOrg(orgID uint) ([]models.ProviderConnection, error) {
	var conns []models.ProviderConnection
	err := r.db.Where("organization_id = ?", orgID).Find(&conns).Error
	return conns, err
}

// UpdateTokens stores a freshly refreshed access token and clears the last
// error in the same update. Providers rotate the refresh credential on
// some refreshes; an empty refreshToken keeps the stored one.
func (r *connectionRepository) UpdateTokens(id uint, accessToken, refreshToken string, expiresAt *time.Time) error {
	updates := map[string]interface{}{
		"access_token":            accessToken,
		"access_token_expires_at": expiresAt,
		"last_error":              "",
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return r.db.Model(&models.ProviderConnection{}).Where("id = ?", id).Updates(updates).Error
}

// SetStatus transitions a connection and records why. The persisted error
// text is what the dashboard shows when re-authentication is needed.
func (r *connectionRepository) SetStatus(id uint, status, lastError string) error {
	return r.db.Model(&models.ProviderConnection{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"last_error": lastError,
	}).Error
}

// SetLastError records a diagnostic without touching the status
func (r *connectionRepository) SetLastError(id uint, lastError string) error {
	return r.db.Model(&models.ProviderConnection{}).Where("id = ?", id).
		Update("last_error", lastError).Error
}

// SaveProviderData persists a fresh detail snapshot with its fetch time
func (r *connectionRepository) SaveProviderData(id uint, data datatypes.JSON, syncedAt time.Time) error {
	return r.db.Model(&models.ProviderConnection{}).Where("id = ?", id).Updates(map[string]interface{}{
		"provider_data":  data,
		"last_synced_at": &syncedAt,
	}).Error
}

// CompletePending binds the chosen sub-resource and activates the row.
// The pending expiry is cleared so the sweeper never touches a completed
// connection.
func (r *connectionRepository) CompletePending(id uint, accountID, locationID, displayName string, syncedAt time.Time) error {
	return r.db.Model(&models.ProviderConnection{}).Where("id = ?", id).Updates(map[string]interface{}{
		"account_id":         accountID,
		"location_id":        locationID,
		"display_name":       displayName,
		"status":             models.ConnectionStatusActive,
		"last_error":         "",
		"last_synced_at":     &syncedAt,
		"pending_expires_at": nil,
	}).Error
}

// Delete removes the connection unconditionally. No soft delete;
// reconnection starts from a clean slate.
func (r *connectionRepository) Delete(orgID uint, provider string) error {
	return r.db.Where("organization_id = ? AND provider = ?", orgID, provider).
		Delete(&models.ProviderConnection{}).Error
}

// DeleteExpiredPending removes pending rows whose setup window has closed
func (r *connectionRepository) DeleteExpiredPending(before time.Time) (int64, error) {
	tx := r.db.Where("status = ? AND pending_expires_at IS NOT NULL AND pending_expires_at < ?",
		models.ConnectionStatusPending, before).
		Delete(&models.ProviderConnection{})
	return tx.RowsAffected, tx.Error
}
