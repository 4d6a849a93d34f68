package user

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/auth"
	"vastra_back_end/internal/handlers"
)

type Auth struct {
	Accounts *auth.Service
}

type registerInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Auth) Register(c *gin.Context) {
	var in registerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	sess, err := h.Accounts.Register(c.Request.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *Auth) Login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.Respond(c, handlers.BadBody(err))
		return
	}
	sess, err := h.Accounts.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// BeginSocial redirige vers le provider OAuth (google, facebook).
func (h *Auth) BeginSocial(c *gin.Context) {
	provider := c.Param("provider")
	if _, err := goth.GetProvider(provider); err != nil {
		apperr.Respond(c, apperr.NotFound("auth provider", provider))
		return
	}
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

func (h *Auth) SocialCallback(c *gin.Context) {
	provider := c.Param("provider")
	if _, err := goth.GetProvider(provider); err != nil {
		apperr.Respond(c, apperr.NotFound("auth provider", provider))
		return
	}
	gu, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Printf("❌ Callback OAuth %s: %v", provider, err)
		apperr.Respond(c, apperr.Unauthorized("social login failed"))
		return
	}
	sess, err := h.Accounts.CompleteSocial(c.Request.Context(), gu)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
