package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/auth"
	"vastra_back_end/internal/cache"
	"vastra_back_end/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver struct {
	principal models.Principal
	err       error
}

func (s stubResolver) Resolve(context.Context, *auth.Claims) (models.Principal, error) {
	return s.principal, s.err
}

func tokenFor(t *testing.T, tokens *auth.Tokens, u *models.User) string {
	t.Helper()
	raw, err := tokens.Issue(u)
	require.NoError(t, err)
	return raw
}

func protectedRouter(tokens *auth.Tokens, r PrincipalResolver) *gin.Engine {
	router := gin.New()
	router.GET("/me", AuthRequired(tokens, r), func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"userId": p.UserID})
	})
	router.GET("/admin", AuthRequired(tokens, r), RequireAdmin, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthRequired(t *testing.T) {
	tokens := auth.NewTokens("test-secret")
	user := &models.User{ID: "u1", Email: "a@example.in", Role: models.RoleUser, Provider: models.ProviderLocal}
	valid := tokenFor(t, tokens, user)
	foreign := tokenFor(t, auth.NewTokens("other"), user)

	router := protectedRouter(tokens, stubResolver{principal: models.Principal{UserID: "u1", Role: models.RoleUser}})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Token " + valid, http.StatusUnauthorized},
		{"foreign signature", "Bearer " + foreign, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthRequiredQueryTokenOnlyForUpgrade(t *testing.T) {
	tokens := auth.NewTokens("test-secret")
	valid := tokenFor(t, tokens, &models.User{ID: "u1", Role: models.RoleUser, Provider: models.ProviderLocal})
	router := protectedRouter(tokens, stubResolver{principal: models.Principal{UserID: "u1", Role: models.RoleUser}})

	req := httptest.NewRequest(http.MethodGet, "/me?token="+valid, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me?token="+valid, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "plain requests need the header")

	req = httptest.NewRequest(http.MethodGet, "/me?token=garbage", nil)
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredUnknownUser(t *testing.T) {
	tokens := auth.NewTokens("test-secret")
	router := protectedRouter(tokens, stubResolver{err: apperr.Unauthorized("unknown user")})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, tokens, &models.User{ID: "ghost", Provider: models.ProviderLocal}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unknown user")
}

func TestRequireAdmin(t *testing.T) {
	tokens := auth.NewTokens("test-secret")
	raw := tokenFor(t, tokens, &models.User{ID: "u1", Provider: models.ProviderLocal})

	for role, want := range map[models.Role]int{
		models.RoleUser:  http.StatusForbidden,
		models.RoleAdmin: http.StatusNoContent,
	} {
		router := protectedRouter(tokens, stubResolver{principal: models.Principal{UserID: "u1", Role: role}})
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func newLimiter(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestAPIRateLimit(t *testing.T) {
	l, mr := newLimiter(t)
	router := gin.New()
	router.Use(APIRateLimit(l))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		return w.Code
	}
	for i := 0; i < APIMaxRequests; i++ {
		require.Equal(t, http.StatusOK, hit(), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit())

	mr.FastForward(APIWindow + time.Second)
	assert.Equal(t, http.StatusOK, hit())
}

func TestLoginRateLimit(t *testing.T) {
	l, mr := newLimiter(t)
	var mu sync.Mutex
	succeed := false

	router := gin.New()
	router.POST("/login", LoginRateLimit(l), func(c *gin.Context) {
		var body struct {
			Email string `json:"email"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		mu.Lock()
		defer mu.Unlock()
		if succeed {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusUnauthorized)
	})

	login := func(email string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"`+email+`"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < LoginMaxAttempts; i++ {
		assert.Equal(t, http.StatusUnauthorized, login("asha@example.in"))
	}
	assert.Equal(t, http.StatusTooManyRequests, login("ASHA@example.in"))
	assert.Equal(t, http.StatusUnauthorized, login("other@example.in"), "other emails are unaffected")

	mr.FastForward(LoginCooldown + time.Second)
	mu.Lock()
	succeed = true
	mu.Unlock()
	assert.Equal(t, http.StatusOK, login("asha@example.in"))
}

type captureRecorder struct {
	entries []models.AuditLog
}

func (c *captureRecorder) Record(e models.AuditLog) { c.entries = append(c.entries, e) }

func TestAuditFailures(t *testing.T) {
	rec := &captureRecorder{}
	router := gin.New()
	router.Use(AuditFailures(rec, "order.refund", "order"))
	router.POST("/orders/:id/refund", func(c *gin.Context) {
		if c.Param("id") == "bad" {
			c.Status(http.StatusConflict)
			return
		}
		c.Status(http.StatusOK)
	})

	for _, id := range []string{"ok", "bad"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/orders/"+id+"/refund", nil))
	}

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "bad", rec.entries[0].ResourceID)
	assert.False(t, rec.entries[0].Success)
	assert.Contains(t, rec.entries[0].ErrorMsg, "409")
}
