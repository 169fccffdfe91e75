package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/EternisAI/silo-activation/internal/actkey"
	"github.com/EternisAI/silo-activation/internal/api/http/dto"
	"github.com/EternisAI/silo-activation/internal/keys"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type KeysHandler struct {
	service *keys.Service
}

func NewKeysHandler(service *keys.Service) *KeysHandler {
	return &KeysHandler{service: service}
}

func (h *KeysHandler) Generate(c *gin.Context) {
	stored, err := h.service.Generate(c.Request.Context())
	if err != nil {
		slog.Error("Failed to generate activation key", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate activation key"})
		return
	}

	c.JSON(http.StatusCreated, toKeyResponse(stored))
}

func (h *KeysHandler) Deploy(c *gin.Context) {
	var req dto.KeyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := h.service.Deploy(c.Request.Context(), req.Key)
	if err != nil {
		writeKeyError(c, err)
		return
	}

	c.JSON(http.StatusOK, toKeyResponse(stored))
}

func (h *KeysHandler) Stop(c *gin.Context) {
	var req dto.KeyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored, err := h.service.Stop(c.Request.Context(), req.Key)
	if err != nil {
		writeKeyError(c, err)
		return
	}

	c.JSON(http.StatusOK, toKeyResponse(stored))
}

func (h *KeysHandler) Validate(c *gin.Context) {
	var req dto.KeyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.Inspect(req.Key)
	if err != nil {
		writeKeyError(c, err)
		return
	}

	state := "fresh"
	if rec.AgentDeployed {
		state = "deployed"
	}
	c.JSON(http.StatusOK, dto.ValidateKeyResponse{
		State:         state,
		CreatedAt:     rec.CreatedAt.Unix(),
		ExpiresAt:     rec.ExpiresAt.Unix(),
		AgentDeployed: rec.AgentDeployed,
	})
}

func (h *KeysHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	rows, total, err := h.service.List(c.Request.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		slog.Error("Failed to list activation keys", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list activation keys"})
		return
	}

	responses := make([]dto.ActivationKeyResponse, len(rows))
	for i, row := range rows {
		responses[i] = toKeyResponse(row)
	}

	c.JSON(http.StatusOK, dto.ListActivationKeysResponse{
		Keys:     responses,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *KeysHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, keys.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "activation key not found"})
			return
		}
		slog.Error("Failed to delete activation key", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete activation key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "activation key deleted"})
}

// writeKeyError maps core validation failures onto HTTP statuses. Signature
// mismatches get one opaque message: tampering and a wrong secret must be
// indistinguishable to the caller.
func writeKeyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, keys.ErrKeyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "activation key not found"})
	case errors.Is(err, actkey.ErrInvalidFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "activation key has invalid format"})
	case errors.Is(err, actkey.ErrSignatureMismatch):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid activation key"})
	case errors.Is(err, actkey.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": "activation key has expired"})
	default:
		slog.Error("Activation key operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func toKeyResponse(key keys.ActivationKey) dto.ActivationKeyResponse {
	return dto.ActivationKeyResponse{
		ID:            key.ID,
		Key:           key.Key,
		CreatedAt:     key.CreatedAt.Unix(),
		ExpiresAt:     key.ExpiresAt.Unix(),
		AgentDeployed: key.AgentDeployed,
	}
}
