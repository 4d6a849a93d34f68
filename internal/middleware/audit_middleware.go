package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/models"
)

// AuditFailures enregistre les requêtes admin refusées ou en erreur. Les
// succès sont journalisés par les services eux-mêmes.
func AuditFailures(rec audit.Recorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 400 || rec == nil {
			return
		}
		entry := models.AuditLog{
			Action:     action,
			Resource:   resource,
			ResourceID: c.Param("id"),
			IPAddress:  c.ClientIP(),
			Success:    false,
			ErrorMsg:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.FullPath(), status),
			Timestamp:  time.Now().UTC(),
		}
		if p, ok := PrincipalFrom(c); ok {
			entry.UserID = p.UserID
		}
		rec.Record(entry)
	}
}
