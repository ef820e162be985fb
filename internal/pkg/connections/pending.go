package connections

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/repository"
)

// PendingTTL is how long a pending connection stays completable. Rows that
// outlive it are removed by SweepExpired.
const PendingTTL = time.Hour

// Broker handles the secure handoff between the server-side OAuth callback
// and the sub-resource selection step. Tokens are exchanged and persisted
// server-side; the browser only ever carries the opaque setup code.
type Broker struct {
	repo repository.ConnectionRepository
	now  func() time.Time
}

// NewBroker creates a pending-connection broker.
func NewBroker(repo repository.ConnectionRepository) *Broker {
	return &Broker{repo: repo, now: time.Now}
}

// PendingInput carries the outcome of a server-side code exchange.
type PendingInput struct {
	OrganizationID       uint
	Provider             string
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt *time.Time
	Scope                string
	ConnectedByUserID    uint
}

// CreatePending persists the exchanged tokens as a pending connection and
// returns the record whose UUID is the setup code for the redirect. The
// upsert lands duplicate callbacks for the same organization on the same
// row.
func (b *Broker) CreatePending(ctx context.Context, input PendingInput) (*models.ProviderConnection, error) {
	_ = ctx
	expiry := b.now().Add(PendingTTL)
	conn, err := b.repo.Upsert(repository.ConnectionUpsertInput{
		OrganizationID:       input.OrganizationID,
		Provider:             input.Provider,
		UUID:                 uuid.New().String(),
		AccessToken:          input.AccessToken,
		RefreshToken:         input.RefreshToken,
		AccessTokenExpiresAt: input.AccessTokenExpiresAt,
		Scope:                input.Scope,
		Status:               models.ConnectionStatusPending,
		ConnectedByUserID:    input.ConnectedByUserID,
		PendingExpiresAt:     &expiry,
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Connections] org=%d provider=%s: pending connection created", input.OrganizationID, input.Provider)
	return conn, nil
}

// ResolvePending returns the pending record only when the setup code is
// valid, unexpired, still pending, and owned by the requesting user. The
// ownership check keeps one user from completing another user's dangling
// connection with an observed code.
func (b *Broker) ResolvePending(ctx context.Context, setupCode string, userID uint) (*models.ProviderConnection, error) {
	_ = ctx
	conn, err := b.repo.GetByUUID(setupCode)
	if err != nil {
		return nil, ErrPendingNotFound
	}
	if conn.Status != models.ConnectionStatusPending {
		return nil, ErrPendingNotFound
	}
	if conn.ConnectedByUserID != userID {
		return nil, ErrPendingNotFound
	}
	if conn.PendingExpiresAt != nil && !b.now().Before(*conn.PendingExpiresAt) {
		return nil, ErrPendingNotFound
	}
	return conn, nil
}

// Selection is the user's choice of which provider-side object the
// connection should be bound to.
type Selection struct {
	AccountID   string
	ResourceID  string
	DisplayName string
}

// Complete binds the chosen sub-resource to the pending record and
// activates it in place. Ownership is re-validated; a stale or foreign
// setup code fails with ErrPendingNotFound.
func (b *Broker) Complete(ctx context.Context, setupCode string, userID uint, sel Selection) (*models.ProviderConnection, error) {
	conn, err := b.ResolvePending(ctx, setupCode, userID)
	if err != nil {
		return nil, err
	}

	if err := b.repo.CompletePending(conn.ID, sel.AccountID, sel.ResourceID, sel.DisplayName, b.now()); err != nil {
		return nil, err
	}

	updated, err := b.repo.GetByUUID(setupCode)
	if err != nil {
		return nil, err
	}
	log.Infof("[Connections] org=%d provider=%s: connection completed", updated.OrganizationID, updated.Provider)
	return updated, nil
}

// SweepExpired removes pending connections whose setup window has closed.
// Run periodically by the job queue manager.
func (b *Broker) SweepExpired(ctx context.Context) (int64, error) {
	_ = ctx
	removed, err := b.repo.DeleteExpiredPending(b.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Infof("[Connections] pending sweep removed %d expired connection(s)", removed)
	}
	return removed, nil
}
