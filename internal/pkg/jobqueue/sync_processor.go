package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/repository"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/connections"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/database"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/providers"
)

// processReconcileJob runs the connection reconciler for one organization.
// It rebuilds the platform connection rows from the current set of active
// provider and page connections.
func (q *Queue) processReconcileJob(ctx context.Context, job *Job) error {
	payload, err := ReconcileJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid reconcile payload: %w", err)
	}

	repos := repository.NewRepositories(database.GetDB())
	reconciler := connections.NewReconciler(repos)

	result, err := reconciler.SyncFromProvider(ctx, payload.OrganizationID)
	if err != nil {
		return fmt.Errorf("reconcile org %d: %w", payload.OrganizationID, err)
	}

	log.Infof("[JobQueue] Reconcile for org %d done (trigger=%s): %d created, %d updated",
		payload.OrganizationID, payload.Trigger, result.Created, result.Updated)
	return nil
}

// processDetailRefreshJob refreshes the cached location detail for one
// organization's business profile connection. A failing provider call is a
// job error; the stale snapshot stays in place for readers.
func (q *Queue) processDetailRefreshJob(ctx context.Context, job *Job) error {
	payload, err := DetailRefreshJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid detail refresh payload: %w", err)
	}

	repos := repository.NewRepositories(database.GetDB())
	manager := connections.NewManager(repos)
	details := connections.NewDetailService(repos.Connection, manager, providers.NewBusinessClient())

	if _, err := details.GetLocationDetail(ctx, payload.OrganizationID); err != nil {
		return fmt.Errorf("detail refresh org %d: %w", payload.OrganizationID, err)
	}
	return nil
}

// processPendingSweepJob removes pending connections whose setup window
// expired without the user ever completing resource selection.
func (q *Queue) processPendingSweepJob(ctx context.Context) error {
	repos := repository.NewRepositories(database.GetDB())
	broker := connections.NewBroker(repos.Connection)

	removed, err := broker.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("pending sweep: %w", err)
	}
	if removed > 0 {
		log.Infof("[JobQueue] Pending sweep removed %d expired connections", removed)
	}
	return nil
}
