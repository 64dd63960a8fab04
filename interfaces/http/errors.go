package http

import (
	"errors"
	"net/http"

	"social-scheduler/domain/model"

	"github.com/gin-gonic/gin"
)

// errorStatus maps a domain error onto an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrUnsupportedProvider):
		return http.StatusBadRequest, "unsupported_provider"
	case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrVerifierNotFound):
		return http.StatusBadRequest, "invalid_state"
	case errors.Is(err, model.ErrStateCollision):
		return http.StatusConflict, "state_collision"
	case errors.Is(err, model.ErrTokenExchange):
		return http.StatusBadGateway, "token_exchange_failed"
	case errors.Is(err, model.ErrCredentialNotFound):
		return http.StatusNotFound, "credential_not_found"
	case errors.Is(err, model.ErrPostNotFound):
		return http.StatusNotFound, "post_not_found"
	case errors.Is(err, model.ErrPostNotEditable):
		return http.StatusConflict, "post_not_editable"
	case errors.Is(err, model.ErrInvalidPost):
		return http.StatusBadRequest, "invalid_post"
	case errors.Is(err, model.ErrSubscriptionInactive):
		return http.StatusPaymentRequired, "subscription_inactive"
	case errors.Is(err, model.ErrDecryption):
		return http.StatusInternalServerError, "decryption_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": msg})
}

func ownerID(c *gin.Context) (string, bool) {
	id := c.GetString("user_id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing owner"})
		return "", false
	}
	return id, true
}
