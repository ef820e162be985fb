package models

import (
	"time"

	"gorm.io/datatypes"
)

// Supported provider keys. Google Business Profile, Search Console and
// YouTube all authenticate against the Google token endpoint but are kept
// as separate connections because they bind different sub-resources.
const (
	ProviderGoogleBusiness = "google_business"
	ProviderFacebook       = "facebook"
	ProviderSearchConsole  = "search_console"
	ProviderYouTube        = "youtube"
)

// Connection lifecycle. A record is created as pending by the OAuth
// callback, becomes active once the user picks a sub-resource, drops to
// error when a refresh or provider call fails, and is deleted on
// disconnect.
const (
	ConnectionStatusPending      = "pending"
	ConnectionStatusActive       = "active"
	ConnectionStatusError        = "error"
	ConnectionStatusDisconnected = "disconnected"
)

// ProviderConnection stores the OAuth credentials an organization holds for
// one provider. At most one row exists per (organization, provider); the
// UUID doubles as the setup code handed to the browser while the row is
// still pending, so raw tokens never travel through a redirect URL.
type ProviderConnection struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	UUID                 string         `gorm:"uniqueIndex;type:varchar(36)" json:"-"`
	OrganizationID       uint           `gorm:"index:org_provider,unique" json:"organization_id"`
	Provider             string         `gorm:"index:org_provider,unique;type:varchar(50)" json:"provider"`
	AccessToken          string         `gorm:"type:text" json:"-"`
	RefreshToken         string         `gorm:"type:text" json:"-"`
	AccessTokenExpiresAt *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	Scope                string         `gorm:"type:text" json:"scope"`
	AccountID            string         `gorm:"type:varchar(191)" json:"account_id"`
	LocationID           string         `gorm:"type:varchar(191)" json:"location_id"`
	DisplayName          string         `gorm:"type:varchar(255)" json:"display_name"`
	ProviderData         datatypes.JSON `json:"provider_data,omitempty"`
	LastSyncedAt         *time.Time     `gorm:"type:timestamp;default:null" json:"last_synced_at"`
	Status               string         `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	LastError            string         `gorm:"type:text" json:"last_error,omitempty"`
	ConnectedByUserID    uint           `gorm:"index" json:"connected_by_user_id"`
	PendingExpiresAt     *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	RefreshCount         uint64         `gorm:"default:0" json:"-"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the connection may serve credentials.
func (c *ProviderConnection) IsActive() bool {
	return c.Status == ConnectionStatusActive
}

// KnownProvider reports whether p is one of the providers this backend can
// complete an OAuth flow for.
func KnownProvider(p string) bool {
	switch p {
	case ProviderGoogleBusiness, ProviderFacebook, ProviderSearchConsole, ProviderYouTube:
		return true
	default:
		return false
	}
}
