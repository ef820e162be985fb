package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/repository"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/connections"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/jobqueue"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/metrics/counter"
)

// HandleJobStats reports queue depth and job status counters for the
// background workers.
func HandleJobStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().Queue()

	stats, err := queue.GetJobStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load job stats"})
	}
	pending, err := queue.GetQueueSize(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load queue size"})
	}
	processing, err := queue.GetProcessingSize(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load processing size"})
	}

	syncRuns, err := counter.SyncRuns()
	if err != nil {
		log.Warnf("[Internal] Failed to read sync counters: %v", err)
		syncRuns = map[uint]int64{}
	}

	return c.JSON(fiber.Map{
		"jobs":            stats,
		"queue_size":      pending,
		"processing_size": processing,
		"sync_runs":       syncRuns,
	})
}

// HandleGetJob returns one job record so callers of the async endpoints
// can poll the outcome of their 202.
func HandleGetJob(c *fiber.Ctx) error {
	job, err := jobqueue.GetManager().Queue().GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Job not found"})
	}
	return c.JSON(job)
}

// HandleResolveCredentials serves provider credentials for one unified
// connection row to the data-fetch services. This is the only surface that
// ever serializes a token, which is why it sits behind the internal key
// rather than the session.
func HandleResolveCredentials(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid connection id"})
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	row, err := repos.PlatformConnection.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "source_not_found", "message": "Source not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load connection"})
	}

	resolver := connections.NewResolver(repos, connections.NewManager(repos))
	creds, err := resolver.Resolve(c.Context(), row)
	if err != nil {
		return respondConnectionError(c, err)
	}

	return c.JSON(fiber.Map{
		"provider":             creds.Provider,
		"access_token":         creds.AccessToken,
		"account_id":           creds.AccountID,
		"location_id":          creds.LocationID,
		"page_id":              creds.PageID,
		"instagram_account_id": creds.InstagramAccountID,
	})
}

// HandleTriggerPendingSweep enqueues an immediate sweep of expired pending
// connections.
func HandleTriggerPendingSweep(c *fiber.Ctx) error {
	job, err := jobqueue.GetManager().Queue().EnqueueJob(jobqueue.JobTypePendingSweep, nil)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to enqueue sweep"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID})
}
