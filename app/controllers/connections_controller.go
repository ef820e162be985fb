package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/repository"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/connections"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/jobqueue"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/providers"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/usercontext"
)

// syncLimiter enforces the per-organization cooldown on manual syncs.
var syncLimiter = connections.NewCooldownLimiter(connections.SyncCooldown)

// connectableResource is one sub-resource the user can bind a pending
// connection to (a business location or a facebook page).
type connectableResource struct {
	AccountID          string `json:"account_id,omitempty"`
	ID                 string `json:"id"`
	Name               string `json:"name"`
	InstagramAccountID string `json:"instagram_account_id,omitempty"`
	InstagramUsername  string `json:"instagram_username,omitempty"`
}

// HandlePendingResources lists the sub-resources available for a pending
// connection, using the tokens stored server-side under the setup code.
func HandlePendingResources(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if _, ok := requireOrg(c); !ok {
		return nil
	}

	broker := connections.NewBroker(repository.GetGlobalFactory().GetConnectionRepository())
	conn, err := broker.ResolvePending(c.Context(), c.Params("setupCode"), userCtx.UserID)
	if err != nil {
		return respondConnectionError(c, err)
	}

	resources := make([]connectableResource, 0)
	switch conn.Provider {
	case models.ProviderFacebook:
		pages, err := providers.NewGraphClient().ListPages(c.Context(), conn.AccessToken)
		if err != nil {
			log.Errorf("[Connections] Page listing failed for org %d: %v", conn.OrganizationID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_error", "message": "Could not list pages"})
		}
		for _, p := range pages {
			resources = append(resources, connectableResource{
				ID:                 p.ID,
				Name:               p.Name,
				InstagramAccountID: p.InstagramAccountID,
				InstagramUsername:  p.InstagramUsername,
			})
		}
	case models.ProviderGoogleBusiness:
		client := providers.NewBusinessClient()
		accounts, err := client.ListAccounts(c.Context(), conn.AccessToken)
		if err != nil {
			log.Errorf("[Connections] Account listing failed for org %d: %v", conn.OrganizationID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_error", "message": "Could not list accounts"})
		}
		for _, acc := range accounts {
			locations, err := client.ListLocations(c.Context(), conn.AccessToken, acc.Name)
			if err != nil {
				log.Errorf("[Connections] Location listing failed for org %d: %v", conn.OrganizationID, err)
				return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_error", "message": "Could not list locations"})
			}
			for _, loc := range locations {
				resources = append(resources, connectableResource{
					AccountID: acc.Name,
					ID:        loc.Name,
					Name:      loc.Title,
				})
			}
		}
	default:
		// search_console and youtube bind to the whole grant; nothing to pick
	}

	return c.JSON(fiber.Map{
		"provider":  conn.Provider,
		"resources": resources,
	})
}

type completePendingRequest struct {
	AccountID   string `json:"account_id" validate:"max=191"`
	ResourceID  string `json:"resource_id" validate:"max=191"`
	DisplayName string `json:"display_name" validate:"max=255"`
}

// HandleCompletePending binds the chosen sub-resource to a pending
// connection and activates it. Facebook completions also persist the
// selected page with its page-scoped token.
func HandleCompletePending(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	orgID, ok := requireOrg(c)
	if !ok {
		return nil
	}

	var req completePendingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid selection"})
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	broker := connections.NewBroker(repos.Connection)
	conn, err := broker.Complete(c.Context(), c.Params("setupCode"), userCtx.UserID, connections.Selection{
		AccountID:   req.AccountID,
		ResourceID:  req.ResourceID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return respondConnectionError(c, err)
	}

	if conn.Provider == models.ProviderFacebook && req.ResourceID != "" {
		if err := bindFacebookPage(c, repos, conn, req.ResourceID); err != nil {
			log.Errorf("[Connections] Page binding failed for org %d: %v", orgID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_error", "message": "Could not bind page"})
		}
	}

	if _, err := jobqueue.GetManager().EnqueueReconcile(orgID, "connection_completed"); err != nil {
		log.Errorf("[Connections] Failed to enqueue reconcile for org %d: %v", orgID, err)
	}
	if conn.Provider == models.ProviderGoogleBusiness {
		// Warm the detail cache so the first dashboard read does not block
		// on the provider.
		if _, err := jobqueue.GetManager().EnqueueDetailRefresh(orgID); err != nil {
			log.Errorf("[Connections] Failed to enqueue detail refresh for org %d: %v", orgID, err)
		}
	}

	return c.JSON(conn)
}

// bindFacebookPage stores the selected page with its page-scoped token and
// Instagram link as a page connection row.
func bindFacebookPage(c *fiber.Ctx, repos *repository.Repositories, conn *models.ProviderConnection, pageID string) error {
	pages, err := providers.NewGraphClient().ListPages(c.Context(), conn.AccessToken)
	if err != nil {
		return err
	}
	for _, p := range pages {
		if p.ID != pageID {
			continue
		}
		return repos.PageConnection.Upsert(&models.PageConnection{
			OrganizationID:       conn.OrganizationID,
			ProviderConnectionID: conn.ID,
			PageID:               p.ID,
			PageName:             p.Name,
			PageAccessToken:      p.AccessToken,
			InstagramAccountID:   p.InstagramAccountID,
			InstagramUsername:    p.InstagramUsername,
			Status:               models.ConnectionStatusActive,
		})
	}
	return connections.ErrSourceNotFound
}

// HandleListConnections returns the organization's provider connections and
// the unified platform rows. Token columns never serialize.
func HandleListConnections(c *fiber.Ctx) error {
	orgID, ok := requireOrg(c)
	if !ok {
		return nil
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	conns, err := repos.Connection.ListByOrg(orgID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load connections"})
	}
	platforms, err := repos.PlatformConnection.ListByOrg(orgID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load platforms"})
	}

	return c.JSON(fiber.Map{
		"connections": conns,
		"platforms":   platforms,
	})
}

// HandleDisconnect removes one provider connection together with its
// derived page and platform rows.
func HandleDisconnect(c *fiber.Ctx) error {
	orgID, ok := requireOrg(c)
	if !ok {
		return nil
	}

	provider := c.Params("provider")
	if !models.KnownProvider(provider) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown provider"})
	}

	manager := connections.NewManager(repository.GetGlobalFactory().GetRepositories())
	if err := manager.Disconnect(c.Context(), orgID, provider); err != nil {
		return respondConnectionError(c, err)
	}

	log.Infof("[Connections] Disconnected %s for org %d", provider, orgID)
	return c.JSON(fiber.Map{"message": "disconnected"})
}

// HandleSyncConnections triggers a reconcile run for the organization,
// subject to the per-organization cooldown.
func HandleSyncConnections(c *fiber.Ctx) error {
	orgID, ok := requireOrg(c)
	if !ok {
		return nil
	}

	if !syncLimiter.TryAcquire(orgID) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       "rate_limited",
			"message":     "Sync already requested recently",
			"retry_after": int(connections.SyncCooldown.Seconds()),
		})
	}

	job, err := jobqueue.GetManager().EnqueueReconcile(orgID, "manual")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to enqueue sync"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID})
}

// HandleLocationDetail serves the cached Business Profile location detail,
// falling back to the stored snapshot when the provider is unreachable.
func HandleLocationDetail(c *fiber.Ctx) error {
	orgID, ok := requireOrg(c)
	if !ok {
		return nil
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	manager := connections.NewManager(repos)
	details := connections.NewDetailService(repos.Connection, manager, providers.NewBusinessClient())

	detail, err := details.GetLocationDetail(c.Context(), orgID)
	if err != nil {
		return respondConnectionError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(detail)
}

// respondConnectionError maps the connection error taxonomy onto HTTP
// responses.
func respondConnectionError(c *fiber.Ctx, err error) error {
	var notActive *connections.NotActiveError
	switch {
	case errors.Is(err, connections.ErrNotConnected):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_connected", "message": "Provider is not connected"})
	case errors.As(err, &notActive):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "connection_not_active", "message": "Connection is not active", "status": notActive.Status})
	case errors.Is(err, connections.ErrReauthRequired):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "reauth_required", "message": "Provider must be reconnected"})
	case errors.Is(err, connections.ErrRefreshFailed):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "refresh_failed", "message": "Token refresh failed"})
	case errors.Is(err, connections.ErrPendingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "pending_not_found", "message": "Setup code is invalid or expired"})
	case errors.Is(err, connections.ErrSourceNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "source_not_found", "message": "Source not found"})
	case errors.Is(err, connections.ErrNotImplemented):
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "not_implemented", "message": "Provider is not supported yet"})
	case errors.Is(err, connections.ErrRateLimited):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "Too many requests"})
	default:
		log.Errorf("[Connections] Unhandled error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Unexpected error"})
	}
}
