package controllers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/models"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/app/repository"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/connections"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/env"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/providers"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/security"
	"github.com/Monsoft-Solutions/adfluens-app-sub003/internal/pkg/usercontext"
)

const (
	// DefaultConnectRedirect is where the browser lands after the OAuth
	// round trip when the connect request did not name a redirect path.
	DefaultConnectRedirect = "/settings/connections"

	// StateTTL bounds how long a connect redirect may sit in the provider's
	// consent screen before the callback is rejected.
	StateTTL = 15 * time.Minute
)

func stateSecret() string {
	return env.GetEnv("STATE_TOKEN_SECRET", "")
}

// HandleProviderConnect starts the OAuth flow for one provider. The signed
// state blob carries the organization and user through the provider round
// trip so the callback needs no session.
func HandleProviderConnect(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.OrganizationID == 0 {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	provider := c.Params("provider")
	if !models.KnownProvider(provider) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown provider"})
	}

	redirectPath := c.Query("redirect", DefaultConnectRedirect)
	if !strings.HasPrefix(redirectPath, "/") {
		redirectPath = DefaultConnectRedirect
	}

	state, err := security.GenerateStateToken(userCtx.OrganizationID, userCtx.UserID, redirectPath, StateTTL, stateSecret())
	if err != nil {
		log.Errorf("[OAuth] Failed to generate state for org %d: %v", userCtx.OrganizationID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not start connect flow"})
	}

	authURL, err := providers.AuthCodeURL(provider, state)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Provider not configured"})
	}

	return c.Redirect(authURL, fiber.StatusFound)
}

// HandleProviderCallback finishes the OAuth flow. Every outcome is a
// redirect back into the dashboard; tokens are stored server-side and only
// the pending record's setup code travels through the URL.
func HandleProviderCallback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	if !models.KnownProvider(provider) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown provider"})
	}

	claims, err := security.VerifyStateToken(c.Query("state"), stateSecret())
	if err != nil {
		log.Warnf("[OAuth] Rejected %s callback with bad state: %v", provider, err)
		return redirectWithError(c, provider, DefaultConnectRedirect, "invalid or expired state")
	}

	redirectPath := claims.RedirectPath
	if redirectPath == "" {
		redirectPath = DefaultConnectRedirect
	}

	// Provider-side denial (user clicked cancel, consent revoked, ...)
	if provErr := c.Query("error"); provErr != "" {
		msg := provErr
		if desc := c.Query("error_description"); desc != "" {
			msg = desc
		}
		log.Infof("[OAuth] Provider %s returned error for org %d: %s", provider, claims.OrganizationID, msg)
		return redirectWithError(c, provider, redirectPath, msg)
	}

	code := c.Query("code")
	if code == "" {
		return redirectWithError(c, provider, redirectPath, "missing authorization code")
	}

	source, err := providers.NewTokenSource(provider)
	if err != nil {
		return redirectWithError(c, provider, redirectPath, "provider not configured")
	}

	token, err := source.ExchangeCode(c.Context(), code)
	if err != nil {
		log.Errorf("[OAuth] Code exchange failed for %s (org %d): %v", provider, claims.OrganizationID, err)
		return redirectWithError(c, provider, redirectPath, "token exchange failed")
	}

	broker := connections.NewBroker(repository.GetGlobalFactory().GetConnectionRepository())
	conn, err := broker.CreatePending(c.Context(), connections.PendingInput{
		OrganizationID:       claims.OrganizationID,
		Provider:             provider,
		AccessToken:          token.AccessToken,
		RefreshToken:         token.RefreshToken,
		AccessTokenExpiresAt: token.ExpiresAt,
		Scope:                token.Scope,
		ConnectedByUserID:    claims.UserID,
	})
	if err != nil {
		log.Errorf("[OAuth] Failed to store pending %s connection for org %d: %v", provider, claims.OrganizationID, err)
		return redirectWithError(c, provider, redirectPath, "could not store connection")
	}

	log.Infof("[OAuth] Stored pending %s connection for org %d", provider, claims.OrganizationID)
	return c.Redirect(appendQuery(redirectPath, provider+"_setup_code", conn.UUID), fiber.StatusFound)
}

func redirectWithError(c *fiber.Ctx, provider, redirectPath, msg string) error {
	return c.Redirect(appendQuery(redirectPath, provider+"_error", msg), fiber.StatusFound)
}

// appendQuery attaches one query parameter to a path that may already carry
// a query string.
func appendQuery(path, key, value string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%s", path, sep, key, url.QueryEscape(value))
}
