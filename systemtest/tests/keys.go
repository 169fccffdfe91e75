package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/EternisAI/silo-activation/internal/api/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLifecycle(t *testing.T, router *gin.Engine, adminAPIKey string) {
	token := loginAs(t, router, "keyoperator")
	bearer := map[string]string{"Authorization": "Bearer " + token}

	var issued dto.ActivationKeyResponse

	t.Run("issue", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/v1/activation-keys", nil, bearer)
		require.Equal(t, http.StatusCreated, rr.Code)

		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &issued))
		assert.NotEmpty(t, issued.ID)
		assert.Len(t, issued.Key, 39)
		assert.Len(t, strings.Split(issued.Key, "-"), 7)
		assert.False(t, issued.AgentDeployed)
	})

	var deployed dto.ActivationKeyResponse

	t.Run("deploy", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/v1/activation-keys/deploy",
			dto.KeyActionRequest{Key: issued.Key}, bearer)
		require.Equal(t, http.StatusOK, rr.Code)

		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &deployed))
		assert.Equal(t, issued.ID, deployed.ID)
		assert.True(t, deployed.AgentDeployed)
		assert.NotEqual(t, issued.Key, deployed.Key)
		assert.Equal(t, issued.CreatedAt, deployed.CreatedAt)
		assert.Equal(t, issued.ExpiresAt, deployed.ExpiresAt)
	})

	t.Run("deploy is idempotent", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/v1/activation-keys/deploy",
			dto.KeyActionRequest{Key: deployed.Key}, bearer)
		require.Equal(t, http.StatusOK, rr.Code)

		var again dto.ActivationKeyResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &again))
		assert.True(t, again.AgentDeployed)
		deployed = again
	})

	t.Run("validate deployed", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/v1/activation-keys/validate",
			dto.KeyActionRequest{Key: deployed.Key}, bearer)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ValidateKeyResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "deployed", resp.State)
		assert.Equal(t, issued.CreatedAt, resp.CreatedAt)
		assert.Equal(t, issued.ExpiresAt, resp.ExpiresAt)
	})

	t.Run("stop", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/v1/activation-keys/stop",
			dto.KeyActionRequest{Key: deployed.Key}, bearer)
		require.Equal(t, http.StatusOK, rr.Code)

		var stopped dto.ActivationKeyResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stopped))
		assert.False(t, stopped.AgentDeployed)
		deployed = stopped
	})

	t.Run("stale key rejected after re-stamp", func(t *testing.T) {
		// The original issued key was superseded twice; it no longer matches
		// any stored row, even though its signature is still valid.
		rr := doJSON(router, "POST", "/api/v1/activation-keys/deploy",
			dto.KeyActionRequest{Key: issued.Key}, bearer)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("tampered key rejected", func(t *testing.T) {
		tampered := []byte(deployed.Key)
		if tampered[0] == 'A' {
			tampered[0] = 'B'
		} else {
			tampered[0] = 'A'
		}
		rr := doJSON(router, "POST", "/api/v1/activation-keys/validate",
			dto.KeyActionRequest{Key: string(tampered)}, bearer)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	adminHeader := map[string]string{"X-API-Key": adminAPIKey}

	t.Run("admin list", func(t *testing.T) {
		rr := doJSON(router, "GET", "/api/v1/admin/activation-keys", nil, adminHeader)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListActivationKeysResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.GreaterOrEqual(t, resp.Total, int64(1))
	})

	t.Run("admin list requires key", func(t *testing.T) {
		rr := doJSON(router, "GET", "/api/v1/admin/activation-keys", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = doJSON(router, "GET", "/api/v1/admin/activation-keys", nil,
			map[string]string{"X-API-Key": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("admin delete", func(t *testing.T) {
		rr := doJSON(router, "DELETE", "/api/v1/admin/activation-keys/"+issued.ID, nil, adminHeader)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = doJSON(router, "DELETE", "/api/v1/admin/activation-keys/"+issued.ID, nil, adminHeader)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestKeyAuthRequired(t *testing.T, router *gin.Engine) {
	rr := doJSON(router, "POST", "/api/v1/activation-keys", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(router, "POST", "/api/v1/activation-keys/deploy",
		dto.KeyActionRequest{Key: "whatever"}, map[string]string{"Authorization": "Bearer bogus"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
