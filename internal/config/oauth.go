package config

import "os"

type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

func (p OAuthProvider) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type OAuthConfig struct {
	Google   OAuthProvider
	Facebook OAuthProvider
}

func loadOAuth(baseURL string) OAuthConfig {
	return OAuthConfig{
		Google: OAuthProvider{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  baseURL + "/api/auth/google/callback",
		},
		Facebook: OAuthProvider{
			ClientID:     os.Getenv("FACEBOOK_CLIENT_ID"),
			ClientSecret: os.Getenv("FACEBOOK_CLIENT_SECRET"),
			CallbackURL:  baseURL + "/api/auth/facebook/callback",
		},
	}
}
