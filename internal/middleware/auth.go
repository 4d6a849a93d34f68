package middleware

import (
	"context"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/auth"
	"vastra_back_end/internal/models"
)

const principalKey = "principal"

type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

type PrincipalResolver interface {
	Resolve(ctx context.Context, claims *auth.Claims) (models.Principal, error)
}

// AuthRequired valide le jeton Bearer puis résout le principal une seule
// fois pour toute la requête.
func AuthRequired(tokens TokenParser, resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c)
		if err != nil {
			abort(c, err)
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			log.Printf("❌ Erreur parsing JWT: %v", err)
			abort(c, apperr.Unauthorized("invalid token"))
			return
		}
		p, err := resolver.Resolve(c.Request.Context(), claims)
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// bearerToken lit l'en-tête Authorization. L'API WebSocket des
// navigateurs ne pose pas d'en-tête : une requête d'upgrade peut passer le
// jeton dans ?token=.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if isWebSocketUpgrade(c) {
			if raw := c.Query("token"); raw != "" {
				return raw, nil
			}
		}
		return "", apperr.Unauthorized("missing token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", apperr.Unauthorized("malformed Authorization header")
	}
	return parts[1], nil
}

func isWebSocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

// PrincipalFrom retourne le principal posé par AuthRequired.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// SetPrincipal sert aux tests de handlers.
func SetPrincipal(c *gin.Context, p models.Principal) {
	c.Set(principalKey, p)
}

func abort(c *gin.Context, err error) {
	apperr.Respond(c, err)
	c.Abort()
}

// MustPrincipal répond 401 quand la route n'a pas de principal.
func MustPrincipal(c *gin.Context) (models.Principal, bool) {
	p, ok := PrincipalFrom(c)
	if !ok {
		abort(c, apperr.Unauthorized("missing token"))
	}
	return p, ok
}
