package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"

	"vastra_back_end/internal/config"
)

const sessionMaxAge = 86400 * 30

// InitOAuthProviders enregistre les providers configurés auprès de goth et
// retourne leurs noms. La session goth vit dans un cookie signé.
func InitOAuthProviders(cfg *config.Config) []string {
	secret := cfg.SessionSecret
	if secret == "" {
		log.Println("⚠️ SESSION_SECRET manquant, utilisation de JWT_SECRET pour les sessions OAuth")
		secret = cfg.JWTSecret
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(sessionMaxAge)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store
	gothic.GetProviderName = providerFromRequest

	var providers []goth.Provider
	var names []string
	if p := cfg.OAuth.Google; p.Enabled() {
		providers = append(providers, google.New(p.ClientID, p.ClientSecret, p.CallbackURL, "email", "profile"))
		names = append(names, "google")
		log.Println("✅ Google OAuth activé")
	}
	if p := cfg.OAuth.Facebook; p.Enabled() {
		providers = append(providers, facebook.New(p.ClientID, p.ClientSecret, p.CallbackURL, "email"))
		names = append(names, "facebook")
		log.Println("✅ Facebook OAuth activé")
	}
	if len(providers) == 0 {
		log.Println("⚠️ Aucun provider OAuth configuré")
		return nil
	}
	goth.UseProviders(providers...)
	log.Printf("✅ %d OAuth provider(s) initialisé(s)", len(providers))
	return names
}

// providerFromRequest lit le provider dans la query (?provider=) ou, à
// défaut, dans le chemin /api/auth/:provider[/callback].
func providerFromRequest(req *http.Request) (string, error) {
	if p := req.URL.Query().Get("provider"); p != "" {
		return p, nil
	}
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	for i, part := range parts {
		if part == "auth" && i+1 < len(parts) {
			return parts[i+1], nil
		}
	}
	return "", errors.New("provider not found")
}
