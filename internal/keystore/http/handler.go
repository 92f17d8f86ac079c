// Package http exposes keystore administration over HTTP.
package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/robert/internal/errors"
	"github.com/allisson/robert/internal/httputil"
	"github.com/allisson/robert/internal/keystore/http/dto"
	keystoreService "github.com/allisson/robert/internal/keystore/service"
	keystoreUseCase "github.com/allisson/robert/internal/keystore/usecase"
	customValidation "github.com/allisson/robert/internal/validation"
)

// KeystoreHandler handles keystore administration requests.
type KeystoreHandler struct {
	reloadUseCase keystoreUseCase.ReloadUseCase
	logger        *slog.Logger
}

// NewKeystoreHandler creates a KeystoreHandler.
func NewKeystoreHandler(reloadUseCase keystoreUseCase.ReloadUseCase, logger *slog.Logger) *KeystoreHandler {
	return &KeystoreHandler{reloadUseCase: reloadUseCase, logger: logger}
}

// ReloadHandler rotates the live keystore.
// POST /v1/admin/keystore/reload
func (h *KeystoreHandler) ReloadHandler(c *gin.Context) {
	var req dto.ReloadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.reloadUseCase.Reload(c.Request.Context(), req.ToCredentials()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ReloadResponse{Status: "reloaded"})
}

// AdminTokenMiddleware requires a bearer token matching hashedToken.
func AdminTokenMiddleware(
	tokenService keystoreService.AdminTokenService,
	hashedToken string,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		const bearerPrefix = "bearer "
		header := c.GetHeader("Authorization")
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("admin authentication failed: missing bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !tokenService.Verify(header[len(bearerPrefix):], hashedToken) {
			logger.Warn("admin authentication failed: invalid token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
