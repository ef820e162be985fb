package repository

import (
	"sync"

	"gorm.io/gorm"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/database"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetConnectionRepository returns the provider connection repository instance
func (f *Factory) GetConnectionRepository() ConnectionRepository {
	return f.GetRepositories().Connection
}

// GetPageConnectionRepository returns the page connection repository instance
func (f *Factory) GetPageConnectionRepository() PageConnectionRepository {
	return f.GetRepositories().PageConnection
}

// GetPlatformConnectionRepository returns the platform connection repository instance
func (f *Factory) GetPlatformConnectionRepository() PlatformConnectionRepository {
	return f.GetRepositories().PlatformConnection
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetOrganizationRepository returns the organization repository instance
func (f *Factory) GetOrganizationRepository() OrganizationRepository {
	return f.GetRepositories().Organization
}

var (
	globalFactory     *Factory
	globalFactoryOnce sync.Once
)

// GetGlobalFactory returns the application-wide repository factory backed by
// the default database connection
func GetGlobalFactory() *Factory {
	globalFactoryOnce.Do(func() {
		globalFactory = NewFactory(database.GetDB())
	})
	return globalFactory
}
