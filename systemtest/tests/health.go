package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/EternisAI/silo-activation/internal/api/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T, router *gin.Engine) {
	rr := doJSON(router, "GET", "/health", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
