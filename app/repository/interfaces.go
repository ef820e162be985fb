package repository

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
)

// ConnectionUpsertInput carries every mutable field of a provider
// connection for the atomic upsert. The repository never merges; on
// conflict all of these overwrite the existing row.
type ConnectionUpsertInput struct {
	OrganizationID       uint
	Provider             string
	UUID                 string
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt *time.Time
	Scope                string
	AccountID            string
	LocationID           string
	DisplayName          string
	Status               string
	ConnectedByUserID    uint
	PendingExpiresAt     *time.Time
}

// ConnectionRepository defines the database operations for the
// per-(organization, provider) connection table. Upsert is the only
// primitive guaranteed atomic against concurrent writers for the same key;
// callbacks can arrive twice (duplicate tab, back button) and must not
// produce duplicate rows.
type ConnectionRepository interface {
	Upsert(input ConnectionUpsertInput) (*models.ProviderConnection, error)
	GetByID(id uint) (*models.ProviderConnection, error)
	GetByOrgAndProvider(orgID uint, provider string) (*models.ProviderConnection, error)
	GetByUUID(uuid string) (*models.ProviderConnection, error)
	ListByOrg(orgID uint) ([]models.ProviderConnection, error)
	UpdateTokens(id uint, accessToken, refreshToken string, expiresAt *time.Time) error
	SetStatus(id uint, status, lastError string) error
	SetLastError(id uint, lastError string) error
	SaveProviderData(id uint, data datatypes.JSON, syncedAt time.Time) error
	CompletePending(id uint, accountID, locationID, displayName string, syncedAt time.Time) error
	Delete(orgID uint, provider string) error
	DeleteExpiredPending(before time.Time) (int64, error)
}

// PageConnectionRepository defines operations for page-based connections
// (facebook pages plus their linked Instagram business accounts).
type PageConnectionRepository interface {
	Upsert(page *models.PageConnection) error
	GetByID(id uint) (*models.PageConnection, error)
	ListActiveByOrg(orgID uint) ([]models.PageConnection, error)
	DeleteByConnectionID(connectionID uint) error
}

// PlatformConnectionRepository defines operations for the unified listing.
// Upsert reports whether a row was created so the reconciler can return
// created/updated counts.
type PlatformConnectionRepository interface {
	Upsert(row *models.PlatformConnection) (created bool, err error)
	GetByID(id uint) (*models.PlatformConnection, error)
	ListByOrg(orgID uint) ([]models.PlatformConnection, error)
	DeleteBySource(orgID uint, sourceType string, sourceID uint) error
}

// UserRepository defines the user operations the session login and audit
// trail need.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
}

// OrganizationRepository defines minimal tenant operations.
type OrganizationRepository interface {
	Create(org *models.Organization) error
	GetByID(id uint) (*models.Organization, error)
	GetBySlug(slug string) (*models.Organization, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Connection         ConnectionRepository
	PageConnection     PageConnectionRepository
	PlatformConnection PlatformConnectionRepository
	User               UserRepository
	Organization       OrganizationRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Connection:         NewConnectionRepository(db),
		PageConnection:     NewPageConnectionRepository(db),
		PlatformConnection: NewPlatformConnectionRepository(db),
		User:               NewUserRepository(db),
		Organization:       NewOrganizationRepository(db),
	}
}
