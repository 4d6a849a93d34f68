package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vastra_back_end/internal/models"
)

const TokenTTL = 7 * 24 * time.Hour

// Claims porte soit user_id (comptes locaux) soit ext_id (comptes
// sociaux), jamais les deux.
type Claims struct {
	UserID string      `json:"user_id,omitempty"`
	ExtID  string      `json:"ext_id,omitempty"`
	Email  string      `json:"email,omitempty"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: TokenTTL, now: time.Now}
}

// Issue signe un jeton HS256 pour l'utilisateur.
func (t *Tokens) Issue(u *models.User) (string, error) {
	now := t.now()
	claims := Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	if u.Provider != models.ProviderLocal && u.ExternalAuthID != "" {
		claims.ExtID = u.ExternalAuthID
	} else {
		claims.UserID = u.ID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature inattendue: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalide")
	}
	if claims.UserID == "" && claims.ExtID == "" {
		return nil, errors.New("token sans identifiant")
	}
	return claims, nil
}
