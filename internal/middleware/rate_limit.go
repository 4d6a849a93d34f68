package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	LoginMaxAttempts = 5
	APIMaxRequests   = 100 // par minute et par IP

	LoginCooldown = 15 * time.Minute
	APIWindow     = 1 * time.Minute
)

// Limiter est la partie Redis utilisée par les limiteurs ; *cache.Cache
// la satisfait.
type Limiter interface {
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
	Cooldown(ctx context.Context, key string) (time.Duration, error)
	StartCooldown(ctx context.Context, key string, d time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// APIRateLimit limite le nombre de requêtes par IP. Redis indisponible
// laisse passer la requête.
func APIRateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		key := "api_requests:" + c.ClientIP()
		n, err := l.IncrementRateLimit(c.Request.Context(), key, APIWindow)
		if err != nil {
			log.Printf("⚠️ Rate limit indisponible: %v", err)
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", APIMaxRequests))
		if n > APIMaxRequests {
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests, retry in 1 minute",
				"retry_after": int(APIWindow.Seconds()),
			})
			return
		}
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", APIMaxRequests-n))
		c.Next()
	}
}

// LoginRateLimit limite les tentatives de connexion par email : après 5
// échecs l'email est bloqué 15 minutes.
func LoginRateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		// Lire le body sans le consommer
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var input struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(body, &input); err != nil || input.Email == "" {
			c.Next()
			return
		}
		email := strings.ToLower(strings.TrimSpace(input.Email))

		ctx := c.Request.Context()
		key := "login_attempts:" + email
		cooldownKey := "login_cooldown:" + email

		if ttl, err := l.Cooldown(ctx, cooldownKey); err == nil && ttl > 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("too many failed attempts, retry in %d minutes", int(ttl.Minutes())+1),
				"retry_after": int(ttl.Seconds()),
			})
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			n, err := l.IncrementRateLimit(ctx, key, LoginCooldown)
			if err != nil {
				log.Printf("⚠️ Compteur login %s: %v", email, err)
				return
			}
			if n >= LoginMaxAttempts {
				log.Printf("⚠️ Login bloqué pour %s (%d échecs)", email, n)
				_ = l.StartCooldown(ctx, cooldownKey, LoginCooldown)
				_ = l.Delete(ctx, key)
			}
		case http.StatusOK:
			_ = l.Delete(ctx, key, cooldownKey)
		}
	}
}
