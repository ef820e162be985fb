package models

import "time"

// Platform tags used in the unified listing. Instagram never has its own
// ProviderConnection; it is reconciled from the linked account on a
// facebook page. TikTok is reserved and not resolvable yet.
const (
	PlatformGoogleBusiness = "google_business"
	PlatformFacebook       = "facebook"
	PlatformInstagram      = "instagram"
	PlatformSearchConsole  = "search_console"
	PlatformYouTube        = "youtube"
	PlatformTikTok         = "tiktok"
)

// Source types the credential resolver can dispatch on.
const (
	SourceTypeLocation = "location"
	SourceTypePage     = "page"
)

// PlatformConnection is the provider-agnostic projection used for the
// cross-provider dashboard listing. It is a derived cache of the
// provider-specific tables: only the sync reconciler writes it, and it is
// safe to delete and fully regenerate.
type PlatformConnection struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	OrganizationID    uint      `gorm:"index:org_platform_account,unique" json:"organization_id"`
	Platform          string    `gorm:"index:org_platform_account,unique;type:varchar(50)" json:"platform"`
	ExternalAccountID string    `gorm:"index:org_platform_account,unique;type:varchar(191)" json:"external_account_id"`
	DisplayName       string    `gorm:"type:varchar(255)" json:"display_name"`
	Handle            string    `gorm:"type:varchar(191)" json:"handle,omitempty"`
	ImageURL          string    `gorm:"type:varchar(512)" json:"image_url,omitempty"`
	SourceType        string    `gorm:"type:varchar(20)" json:"source_type"`
	SourceID          uint      `gorm:"index" json:"source_id"`
	Status            string    `gorm:"type:varchar(20);default:'active'" json:"status"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
