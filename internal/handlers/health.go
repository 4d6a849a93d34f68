package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger est une dépendance dont /health vérifie la disponibilité.
type Pinger func(ctx context.Context) error

// Health répond "ok" quand toutes les dépendances répondent, "degraded"
// sinon. Le code HTTP reste 200 tant que l'API elle-même tourne.
func Health(deps map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		checks := gin.H{}
		for name, ping := range deps {
			if err := ping(ctx); err != nil {
				checks[name] = err.Error()
				status = "degraded"
				continue
			}
			checks[name] = "ok"
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "checks": checks})
	}
}
