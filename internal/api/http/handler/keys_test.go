package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/EternisAI/silo-activation/internal/actkey"
	"github.com/EternisAI/silo-activation/internal/api/http/dto"
	"github.com/EternisAI/silo-activation/internal/keys"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newKeysService(t *testing.T, opts ...actkey.Option) *keys.Service {
	t.Helper()
	kc, err := actkey.New([]byte("handler-test-secret"), opts...)
	require.NoError(t, err)
	return keys.NewService(kc, keys.NewMemoryStore())
}

func setupKeysRouter(h *KeysHandler) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/activation-keys", h.Generate)
	r.POST("/api/v1/activation-keys/deploy", h.Deploy)
	r.POST("/api/v1/activation-keys/stop", h.Stop)
	r.POST("/api/v1/activation-keys/validate", h.Validate)
	r.GET("/api/v1/admin/activation-keys", h.List)
	r.DELETE("/api/v1/admin/activation-keys/:id", h.Delete)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateKey(t *testing.T) {
	h := NewKeysHandler(newKeysService(t))
	r := setupKeysRouter(h)

	req, _ := http.NewRequest("POST", "/api/v1/activation-keys", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.ActivationKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Len(t, resp.Key, 39)
	assert.Len(t, strings.Split(resp.Key, "-"), 7)
	assert.False(t, resp.AgentDeployed)
	assert.Greater(t, resp.ExpiresAt, resp.CreatedAt)
}

func TestDeployKey(t *testing.T) {
	svc := newKeysService(t)
	h := NewKeysHandler(svc)
	r := setupKeysRouter(h)

	stored, err := svc.Generate(t.Context())
	require.NoError(t, err)

	w := postJSON(r, "/api/v1/activation-keys/deploy", dto.KeyActionRequest{Key: stored.Key})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.ActivationKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, stored.ID, resp.ID)
	assert.True(t, resp.AgentDeployed)
	assert.NotEqual(t, stored.Key, resp.Key)
	assert.Equal(t, stored.CreatedAt.Unix(), resp.CreatedAt)
	assert.Equal(t, stored.ExpiresAt.Unix(), resp.ExpiresAt)

	// Deploying the re-issued key again is an idempotent re-stamp.
	w = postJSON(r, "/api/v1/activation-keys/deploy", dto.KeyActionRequest{Key: resp.Key})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStopKey(t *testing.T) {
	svc := newKeysService(t)
	h := NewKeysHandler(svc)
	r := setupKeysRouter(h)

	stored, err := svc.Generate(t.Context())
	require.NoError(t, err)
	deployed, err := svc.Deploy(t.Context(), stored.Key)
	require.NoError(t, err)

	w := postJSON(r, "/api/v1/activation-keys/stop", dto.KeyActionRequest{Key: deployed.Key})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.ActivationKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.AgentDeployed)
}

func TestDeployUnknownKey(t *testing.T) {
	h := NewKeysHandler(newKeysService(t))
	r := setupKeysRouter(h)

	kc, err := actkey.New([]byte("handler-test-secret"))
	require.NoError(t, err)
	orphan, err := kc.Issue()
	require.NoError(t, err)

	w := postJSON(r, "/api/v1/activation-keys/deploy", dto.KeyActionRequest{Key: orphan})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeployMissingBody(t *testing.T) {
	h := NewKeysHandler(newKeysService(t))
	r := setupKeysRouter(h)

	w := postJSON(r, "/api/v1/activation-keys/deploy", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateKeyStates(t *testing.T) {
	svc := newKeysService(t)
	h := NewKeysHandler(svc)
	r := setupKeysRouter(h)

	stored, err := svc.Generate(t.Context())
	require.NoError(t, err)

	w := postJSON(r, "/api/v1/activation-keys/validate", dto.KeyActionRequest{Key: stored.Key})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.ValidateKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fresh", resp.State)
	assert.False(t, resp.AgentDeployed)

	deployed, err := svc.Deploy(t.Context(), stored.Key)
	require.NoError(t, err)

	w = postJSON(r, "/api/v1/activation-keys/validate", dto.KeyActionRequest{Key: deployed.Key})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "deployed", resp.State)
}

func TestValidateMalformedKey(t *testing.T) {
	h := NewKeysHandler(newKeysService(t))
	r := setupKeysRouter(h)

	w := postJSON(r, "/api/v1/activation-keys/validate", dto.KeyActionRequest{Key: "not-a-key"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateForeignKey(t *testing.T) {
	h := NewKeysHandler(newKeysService(t))
	r := setupKeysRouter(h)

	other, err := actkey.New([]byte("some-other-secret"))
	require.NoError(t, err)
	foreign, err := other.Issue()
	require.NoError(t, err)

	w := postJSON(r, "/api/v1/activation-keys/validate", dto.KeyActionRequest{Key: foreign})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateExpiredKey(t *testing.T) {
	clock := time.Unix(1700000000, 0).UTC()
	svc := newKeysService(t,
		actkey.WithClock(func() time.Time { return clock }),
		actkey.WithValidity(time.Hour))
	h := NewKeysHandler(svc)
	r := setupKeysRouter(h)

	stored, err := svc.Generate(t.Context())
	require.NoError(t, err)

	clock = clock.Add(2 * time.Hour)

	w := postJSON(r, "/api/v1/activation-keys/validate", dto.KeyActionRequest{Key: stored.Key})
	assert.Equal(t, http.StatusGone, w.Code)

	w = postJSON(r, "/api/v1/activation-keys/deploy", dto.KeyActionRequest{Key: stored.Key})
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestListKeys(t *testing.T) {
	svc := newKeysService(t)
	h := NewKeysHandler(svc)
	r := setupKeysRouter(h)

	_, err := svc.Generate(t.Context())
	require.NoError(t, err)
	_, err = svc.Generate(t.Context())
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/api/v1/admin/activation-keys", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.ListActivationKeysResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Total)
	assert.Len(t, resp.Keys, 2)
	assert.Equal(t, 1, resp.Page)
}

func TestDeleteKey(t *testing.T) {
	svc := newKeysService(t)
	h := NewKeysHandler(svc)
	r := setupKeysRouter(h)

	stored, err := svc.Generate(t.Context())
	require.NoError(t, err)

	req, _ := http.NewRequest("DELETE", "/api/v1/admin/activation-keys/"+stored.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest("DELETE", "/api/v1/admin/activation-keys/"+stored.ID, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
