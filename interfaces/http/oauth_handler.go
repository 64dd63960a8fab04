package http

import (
	"errors"
	"fmt"
	"net/http"

	"social-scheduler/domain/dto"
	"social-scheduler/domain/model"
	"social-scheduler/infrastructure/logger"
	"social-scheduler/usecase"

	"github.com/gin-gonic/gin"
)

type IOAuthHandler interface {
	Authorize(c *gin.Context)
	Callback(c *gin.Context)
	Connections(c *gin.Context)
	Unlink(c *gin.Context)
}

type OAuthHandler struct {
	CredentialUsecase usecase.ICredentialUsecase
}

func NewOAuthHandler(credentialUsecase usecase.ICredentialUsecase) IOAuthHandler {
	return &OAuthHandler{CredentialUsecase: credentialUsecase}
}

// Authorize handles GET /api/oauth/:provider/authorize
func (h *OAuthHandler) Authorize(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	provider, err := model.ParseProviderID(c.Param("provider"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	authURL, err := h.CredentialUsecase.AuthorizationURL(c.Request.Context(), provider, owner)
	if err != nil {
		logger.GetLogger().WithField("provider", provider).WithField("error", err).Error("Failed to build authorization url")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AuthURLResponse{AuthURL: authURL})
}

// Callback handles GET /auth/:provider/callback. It always answers with a
// CallbackResponse, including when something below it panics.
func (h *OAuthHandler) Callback(c *gin.Context) {
	raw := c.Param("provider")
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithField("provider", raw).WithField("panic", fmt.Sprint(r)).Error("OAuth callback panicked")
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.CallbackResponse{
				Success:  false,
				Provider: raw,
				Error:    "internal_error",
				Message:  "unexpected error while linking account",
			})
		}
	}()

	if providerErr := c.Query("error"); providerErr != "" {
		msg := c.Query("error_description")
		if msg == "" {
			msg = "authorization was not granted"
		}
		c.JSON(http.StatusBadRequest, dto.CallbackResponse{Success: false, Provider: raw, Error: providerErr, Message: msg})
		return
	}

	provider, err := model.ParseProviderID(raw)
	if err != nil {
		callbackError(c, raw, err)
		return
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" {
		c.JSON(http.StatusBadRequest, dto.CallbackResponse{Success: false, Provider: raw, Error: "missing_code", Message: "authorization code missing"})
		return
	}
	if state == "" {
		callbackError(c, raw, fmt.Errorf("%w: state missing", model.ErrInvalidState))
		return
	}

	cred, err := h.CredentialUsecase.CompleteLink(c.Request.Context(), provider, code, state)
	if err != nil {
		logger.GetLogger().WithField("provider", provider).WithField("error", err).Warn("OAuth callback failed")
		callbackError(c, raw, err)
		return
	}
	c.JSON(http.StatusOK, dto.CallbackResponse{Success: true, Provider: string(provider), AccountName: cred.AccountName})
}

func callbackError(c *gin.Context, provider string, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "failed to link account"
	}
	c.JSON(status, dto.CallbackResponse{Success: false, Provider: provider, Error: code, Message: msg})
}

// Connections handles GET /api/oauth/connections
func (h *OAuthHandler) Connections(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	statuses, err := h.CredentialUsecase.Connections(c.Request.Context(), owner)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to list connections")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": statuses})
}

// Unlink handles DELETE /api/oauth/:provider
func (h *OAuthHandler) Unlink(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	provider, err := model.ParseProviderID(c.Param("provider"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.CredentialUsecase.Unlink(c.Request.Context(), owner, provider); err != nil {
		if !errors.Is(err, model.ErrCredentialNotFound) {
			logger.GetLogger().WithField("provider", provider).WithField("error", err).Error("Failed to unlink provider")
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "provider": provider})
}
