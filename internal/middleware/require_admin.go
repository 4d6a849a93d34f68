package middleware

import (
	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/apperr"
)

// RequireAdmin vérifie que le principal a le rôle "admin"
func RequireAdmin(c *gin.Context) {
	p, ok := PrincipalFrom(c)
	if !ok {
		abort(c, apperr.Unauthorized("missing token"))
		return
	}
	if !p.IsAdmin() {
		abort(c, apperr.Forbidden("admin access required"))
		return
	}
	c.Next()
}
