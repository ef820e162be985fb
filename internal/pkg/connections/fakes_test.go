package connections

import (
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/repository"
)

// fakeConnRepo is an in-memory ConnectionRepository mirroring the
// overwrite semantics of the MySQL upsert.
type fakeConnRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*models.ProviderConnection
}

func newFakeConnRepo() *fakeConnRepo {
	return &fakeConnRepo{rows: map[uint]*models.ProviderConnection{}}
}

func (f *fakeConnRepo) findByOrgProvider(orgID uint, provider string) *models.ProviderConnection {
	for _, row := range f.rows {
		if row.OrganizationID == orgID && row.Provider == provider {
			return row
		}
	}
	return nil
}

func copyConn(row *models.ProviderConnection) *models.ProviderConnection {
	cp := *row
	return &cp
}

func (f *fakeConnRepo) Upsert(input repository.ConnectionUpsertInput) (*models.ProviderConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row := f.findByOrgProvider(input.OrganizationID, input.Provider)
	if row == nil {
		f.nextID++
		row = &models.ProviderConnection{ID: f.nextID, OrganizationID: input.OrganizationID, Provider: input.Provider, CreatedAt: time.Now()}
		f.rows[row.ID] = row
	}
	row.UUID = input.UUID
	row.AccessToken = input.AccessToken
	row.RefreshToken = input.RefreshToken
	row.AccessTokenExpiresAt = input.AccessTokenExpiresAt
	row.Scope = input.Scope
	row.AccountID = input.AccountID
	row.LocationID = input.LocationID
	row.DisplayName = input.DisplayName
	row.Status = input.Status
	row.LastError = ""
	row.ConnectedByUserID = input.ConnectedByUserID
	row.PendingExpiresAt = input.PendingExpiresAt
	row.UpdatedAt = time.Now()
	return copyConn(row), nil
}

func (f *fakeConnRepo) GetByID(id uint) (*models.ProviderConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyConn(row), nil
}

func (f *fakeConnRepo) GetByOrgAndProvider(orgID uint, provider string) (*models.ProviderConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.findByOrgProvider(orgID, provider)
	if row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return copyConn(row), nil
}

func (f *fakeConnRepo) GetByUUID(uuid string) (*models.ProviderConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.UUID == uuid {
			return copyConn(row), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeConnRepo) ListByOrg(orgID uint) ([]models.ProviderConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ProviderConnection
	for _, row := range f.rows {
		if row.OrganizationID == orgID {
			out = append(out, *copyConn(row))
		}
	}
	return out, nil
}

func (f *fakeConnRepo) UpdateTokens(id uint, accessToken, refreshToken string, expiresAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.AccessToken = accessToken
	if refreshToken != "" {
		row.RefreshToken = refreshToken
	}
	row.AccessTokenExpiresAt = expiresAt
	row.LastError = ""
	return nil
}

func (f *fakeConnRepo) SetStatus(id uint, status, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.Status = status
	row.LastError = lastError
	return nil
}

func (f *fakeConnRepo) SetLastError(id uint, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.LastError = lastError
	return nil
}

func (f *fakeConnRepo) SaveProviderData(id uint, data datatypes.JSON, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.ProviderData = data
	at := syncedAt
	row.LastSyncedAt = &at
	return nil
}

func (f *fakeConnRepo) CompletePending(id uint, accountID, locationID, displayName string, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.AccountID = accountID
	row.LocationID = locationID
	row.DisplayName = displayName
	row.Status = models.ConnectionStatusActive
	row.LastError = ""
	at := syncedAt
	row.LastSyncedAt = &at
	row.PendingExpiresAt = nil
	return nil
}

func (f *fakeConnRepo) Delete(orgID uint, provider string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, row := range f.rows {
		if row.OrganizationID == orgID && row.Provider == provider {
			delete(f.rows, id)
		}
	}
	return nil
}

func (f *fakeConnRepo) DeleteExpiredPending(before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, row := range f.rows {
		if row.Status == models.ConnectionStatusPending && row.PendingExpiresAt != nil && row.PendingExpiresAt.Before(before) {
			delete(f.rows, id)
			removed++
		}
	}
	return removed, nil
}

// fakePageRepo is an in-memory PageConnectionRepository.
type fakePageRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*models.PageConnection
}

func newFakePageRepo() *fakePageRepo {
	return &fakePageRepo{rows: map[uint]*models.PageConnection{}}
}

func (f *fakePageRepo) Upsert(page *models.PageConnection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.OrganizationID == page.OrganizationID && row.PageID == page.PageID {
			row.ProviderConnectionID = page.ProviderConnectionID
			row.PageName = page.PageName
			row.PageAccessToken = page.PageAccessToken
			row.InstagramAccountID = page.InstagramAccountID
			row.InstagramUsername = page.InstagramUsername
			row.Status = page.Status
			row.LastSyncedAt = page.LastSyncedAt
			*page = *row
			return nil
		}
	}
	f.nextID++
	page.ID = f.nextID
	cp := *page
	f.rows[cp.ID] = &cp
	return nil
}

func (f *fakePageRepo) GetByID(id uint) (*models.PageConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakePageRepo) ListActiveByOrg(orgID uint) ([]models.PageConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PageConnection
	for _, row := range f.rows {
		if row.OrganizationID == orgID && row.Status == models.ConnectionStatusActive {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakePageRepo) DeleteByConnectionID(connectionID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, row := range f.rows {
		if row.ProviderConnectionID == connectionID {
			delete(f.rows, id)
		}
	}
	return nil
}

// fakePlatformRepo is an in-memory PlatformConnectionRepository.
type fakePlatformRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*models.PlatformConnection
}

func newFakePlatformRepo() *fakePlatformRepo {
	return &fakePlatformRepo{rows: map[uint]*models.PlatformConnection{}}
}

func (f *fakePlatformRepo) Upsert(row *models.PlatformConnection) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.OrganizationID == row.OrganizationID && existing.Platform == row.Platform && existing.ExternalAccountID == row.ExternalAccountID {
			existing.DisplayName = row.DisplayName
			existing.Handle = row.Handle
			existing.ImageURL = row.ImageURL
			existing.SourceType = row.SourceType
			existing.SourceID = row.SourceID
			existing.Status = row.Status
			*row = *existing
			return false, nil
		}
	}
	f.nextID++
	row.ID = f.nextID
	cp := *row
	f.rows[cp.ID] = &cp
	return true, nil
}

func (f *fakePlatformRepo) GetByID(id uint) (*models.PlatformConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakePlatformRepo) ListByOrg(orgID uint) ([]models.PlatformConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PlatformConnection
	for _, row := range f.rows {
		if row.OrganizationID == orgID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakePlatformRepo) DeleteBySource(orgID uint, sourceType string, sourceID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, row := range f.rows {
		if row.OrganizationID == orgID && row.SourceType == sourceType && row.SourceID == sourceID {
			delete(f.rows, id)
		}
	}
	return nil
}

func newTestRepos() (*repository.Repositories, *fakeConnRepo, *fakePageRepo, *fakePlatformRepo) {
	conns := newFakeConnRepo()
	pages := newFakePageRepo()
	platforms := newFakePlatformRepo()
	repos := &repository.Repositories{
		Connection:         conns,
		PageConnection:     pages,
		PlatformConnection: platforms,
	}
	return repos, conns, pages, platforms
}
