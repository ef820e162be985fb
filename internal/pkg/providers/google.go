package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// GoogleTokenSource implements TokenSource against the Google token
// endpoint. It serves google_business, search_console and youtube, which
// differ only in scopes.
type GoogleTokenSource struct {
	cfg *oauth2.Config
}

// NewGoogleTokenSource creates a token source over a prepared oauth2 config
func NewGoogleTokenSource(cfg *oauth2.Config) *GoogleTokenSource {
	return &GoogleTokenSource{cfg: cfg}
}

// ExchangeCode trades an authorization code for tokens
func (g *GoogleTokenSource) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("oauth code is required")
	}
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange failed: %w", err)
	}
	return fromOAuth2Token(tok), nil
}

// Refresh trades a refresh token for a fresh access token. Google keeps the
// refresh token stable unless the grant was revoked, in which case the
// token endpoint answers invalid_grant and the caller must re-authenticate.
func (g *GoogleTokenSource) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, errors.New("refresh token is required")
	}
	ts := g.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("google token refresh failed: %w", err)
	}
	return fromOAuth2Token(tok), nil
}

func fromOAuth2Token(tok *oauth2.Token) *Token {
	out := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		t := tok.Expiry
		out.ExpiresAt = &t
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	return out
}
