package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The connection listing serializes this struct as-is, so every secret
// field has to stay out of the JSON form: tokens, the pending setup code
// (the UUID), and its expiry.
func TestProviderConnectionJSONHidesSecrets(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	conn := ProviderConnection{
		ID:                   1,
		UUID:                 "3f1d2a9c-setup-code",
		OrganizationID:       1,
		Provider:             ProviderGoogleBusiness,
		AccessToken:          "access-secret",
		RefreshToken:         "refresh-secret",
		AccessTokenExpiresAt: &expiry,
		Status:               ConnectionStatusPending,
		PendingExpiresAt:     &expiry,
	}

	raw, err := json.Marshal(conn)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, hidden := range []string{"uuid", "access_token", "refresh_token", "access_token_expires_at", "pending_expires_at", "refresh_count"} {
		assert.NotContains(t, fields, hidden)
	}
	assert.NotContains(t, string(raw), "setup-code")
	assert.NotContains(t, string(raw), "secret")
}
