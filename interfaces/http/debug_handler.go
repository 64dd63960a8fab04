package http

import (
	"net/http"

	"social-scheduler/domain/dto"
	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/configuration"

	"github.com/gin-gonic/gin"
)

type IDebugHandler interface {
	OAuth(c *gin.Context)
}

type DebugHandler struct {
	Config    *configuration.Config
	providers map[model.ProviderID]repository.IProviderClient
}

func NewDebugHandler(cfg *configuration.Config, providers ...repository.IProviderClient) IDebugHandler {
	h := &DebugHandler{Config: cfg, providers: make(map[model.ProviderID]repository.IProviderClient, len(providers))}
	for _, p := range providers {
		h.providers[p.Provider()] = p
	}
	return h
}

// OAuth handles GET /debug/oauth. Only presence is reported; secret values never leave the process.
func (h *DebugHandler) OAuth(c *gin.Context) {
	res := dto.DebugOAuthResponse{
		EncryptionKeySet: h.Config.Encryption.Key != "",
		JWTSecretSet:     h.Config.App.SecretKey != "",
		VerifierBackend:  h.Config.VerifierStore.Backend,
		Providers:        make(map[string]dto.DebugProviderVM),
	}
	for _, id := range []model.ProviderID{model.ProviderTwitter, model.ProviderLinkedIn} {
		vm := dto.DebugProviderVM{
			CallbackURL: configuration.CallbackURL(string(id)),
			PKCE:        id == model.ProviderTwitter,
		}
		if pc, err := configuration.GetProviderConfig(string(id)); err == nil {
			vm.ClientIDSet = pc.ClientID != ""
			vm.ClientSecretSet = pc.ClientSecret != ""
			vm.CallbackURL = pc.RedirectURL
		}
		if p, ok := h.providers[id]; ok {
			vm.PKCE = p.Capabilities().PKCE
		}
		res.Providers[string(id)] = vm
	}
	c.JSON(http.StatusOK, res)
}
