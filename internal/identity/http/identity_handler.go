// Package http exposes the identity lifecycle over HTTP.
package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/robert/internal/errors"
	"github.com/allisson/robert/internal/httputil"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
	"github.com/allisson/robert/internal/identity/http/dto"
	identityUseCase "github.com/allisson/robert/internal/identity/usecase"
	customValidation "github.com/allisson/robert/internal/validation"
)

// IdentityHandler handles the registration and authenticated identity endpoints.
type IdentityHandler struct {
	useCase               identityUseCase.IdentityUseCase
	exposeUnknownIdentity bool
	logger                *slog.Logger
}

// NewIdentityHandler creates an IdentityHandler. When exposeUnknownIdentity is set,
// unknown identities are answered with 430 instead of the generic 401.
func NewIdentityHandler(
	useCase identityUseCase.IdentityUseCase,
	exposeUnknownIdentity bool,
	logger *slog.Logger,
) *IdentityHandler {
	return &IdentityHandler{
		useCase:               useCase,
		exposeUnknownIdentity: exposeUnknownIdentity,
		logger:                logger,
	}
}

// RegisterHandler creates a new anonymous identity.
// POST /v1/register
func (h *IdentityHandler) RegisterHandler(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.useCase.Register(c.Request.Context(), req.ToDomain())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapRegisterOutputToResponse(output))
}

// StatusHandler returns the risk status and a fresh tuple bundle.
// POST /v1/status
func (h *IdentityHandler) StatusHandler(c *gin.Context) {
	req, ok := h.bindAuthenticated(c, identityDomain.PurposeStatus)
	if !ok {
		return
	}

	output, err := h.useCase.Status(c.Request.Context(), req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatusOutputToResponse(output))
}

// UnregisterHandler deletes the identity.
// POST /v1/unregister
func (h *IdentityHandler) UnregisterHandler(c *gin.Context) {
	req, ok := h.bindAuthenticated(c, identityDomain.PurposeUnregister)
	if !ok {
		return
	}

	if err := h.useCase.Unregister(c.Request.Context(), req); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// DeleteHistoryHandler clears the exposure history of the identity.
// POST /v1/deleteExposureHistory
func (h *IdentityHandler) DeleteHistoryHandler(c *gin.Context) {
	req, ok := h.bindAuthenticated(c, identityDomain.PurposeDeleteHistory)
	if !ok {
		return
	}

	if err := h.useCase.DeleteHistory(c.Request.Context(), req); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *IdentityHandler) bindAuthenticated(
	c *gin.Context,
	purpose identityDomain.Purpose,
) (*identityDomain.AuthRequest, bool) {
	var req dto.AuthenticatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, false
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return nil, false
	}

	authReq, err := req.ToDomain(purpose)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return nil, false
	}
	return authReq, true
}

func (h *IdentityHandler) handleAuthError(c *gin.Context, err error) {
	if h.exposeUnknownIdentity && apperrors.Is(err, identityDomain.ErrUnknownIdentity) {
		httputil.HandleUnknownIdentityGin(c, err, h.logger)
		return
	}
	httputil.HandleErrorGin(c, err, h.logger)
}
