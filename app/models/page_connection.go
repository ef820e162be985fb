package models

import "time"

// PageConnection is the page-based connection table: one row per Facebook
// page an organization has bound, carrying the page-scoped token and the
// linked Instagram business account when the page has one. Rows belong to
// the organization's facebook ProviderConnection.
type PageConnection struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	OrganizationID       uint       `gorm:"index:org_page,unique" json:"organization_id"`
	ProviderConnectionID uint       `gorm:"index" json:"provider_connection_id"`
	PageID               string     `gorm:"index:org_page,unique;type:varchar(191)" json:"page_id"`
	PageName             string     `gorm:"type:varchar(255)" json:"page_name"`
	PageAccessToken      string     `gorm:"type:text" json:"-"`
	InstagramAccountID   string     `gorm:"type:varchar(191)" json:"instagram_account_id,omitempty"`
	InstagramUsername    string     `gorm:"type:varchar(191)" json:"instagram_username,omitempty"`
	Status               string     `gorm:"type:varchar(20);default:'active'" json:"status"`
	LastSyncedAt         *time.Time `gorm:"type:timestamp;default:null" json:"last_synced_at"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
