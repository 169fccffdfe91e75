package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EternisAI/silo-activation/internal/api/http/dto"
	"github.com/EternisAI/silo-activation/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T, router *gin.Engine) {
	t.Run("success", func(t *testing.T) {
		body := dto.RegisterRequest{Username: "testoperator", Password: "password123"}
		rr := doJSON(router, "POST", "/api/v1/auth/register", body, nil)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.RegisterResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "testoperator", resp.Username)
		assert.Equal(t, auth.RoleOperator, resp.Role)
		assert.NotEmpty(t, resp.ID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		body := dto.RegisterRequest{Username: "dupoperator", Password: "password123"}
		rr := doJSON(router, "POST", "/api/v1/auth/register", body, nil)
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = doJSON(router, "POST", "/api/v1/auth/register", body, nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("missing username", func(t *testing.T) {
		body := dto.RegisterRequest{Password: "password123"}
		rr := doJSON(router, "POST", "/api/v1/auth/register", body, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("password too short", func(t *testing.T) {
		body := dto.RegisterRequest{Username: "shortpw", Password: "short"}
		rr := doJSON(router, "POST", "/api/v1/auth/register", body, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLogin(t *testing.T, router *gin.Engine, jwtSecret string) {
	regBody := dto.RegisterRequest{Username: "loginoperator", Password: "password123"}
	rr := doJSON(router, "POST", "/api/v1/auth/register", regBody, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("success", func(t *testing.T) {
		body := dto.LoginRequest{Username: "loginoperator", Password: "password123"}
		rr := doJSON(router, "POST", "/api/v1/auth/login", body, nil)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp dto.LoginResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)

		claims, err := auth.ValidateToken(jwtSecret, resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "loginoperator", claims.Username)
		assert.Equal(t, auth.RoleOperator, claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := dto.LoginRequest{Username: "loginoperator", Password: "wrongpassword"}
		rr := doJSON(router, "POST", "/api/v1/auth/login", body, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("nonexistent operator", func(t *testing.T) {
		body := dto.LoginRequest{Username: "nooperator", Password: "password123"}
		rr := doJSON(router, "POST", "/api/v1/auth/login", body, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

// loginAs registers a fresh operator and returns a bearer token for it.
func loginAs(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()

	rr := doJSON(router, "POST", "/api/v1/auth/register",
		dto.RegisterRequest{Username: username, Password: "password123"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(router, "POST", "/api/v1/auth/login",
		dto.LoginRequest{Username: username, Password: "password123"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Token
}

func doJSON(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewReader(b)
	} else {
		buf = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
