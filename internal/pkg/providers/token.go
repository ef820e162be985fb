package providers

import (
	"context"
	"time"
)

// Token is the provider-neutral result of a code exchange or refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scope        string
}

// TokenSource exchanges authorization codes and refresh tokens against one
// provider's token endpoint. Implementations are stateless; persistence is
// the connection manager's job.
type TokenSource interface {
	// ExchangeCode trades an authorization code for tokens.
	ExchangeCode(ctx context.Context, code string) (*Token, error)

	// Refresh trades a refresh token for a new access token. The returned
	// refresh token may be empty when the provider does not rotate it.
	Refresh(ctx context.Context, refreshToken string) (*Token, error)
}
