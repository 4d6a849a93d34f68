package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/markbates/goth"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
	"vastra_back_end/internal/utils"
)

type Service struct {
	users  store.UserStore
	tokens *Tokens
	audit  audit.Recorder
	Now    func() time.Time
}

func NewService(users store.UserStore, tokens *Tokens, rec audit.Recorder) *Service {
	return &Service{users: users, tokens: tokens, audit: rec, Now: time.Now}
}

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name", "name is required")
	}
	if err := apperr.CheckVar("email", email, "required,email"); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, apperr.Validation("password", "password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.Now().UTC()
	u := &models.User{
		Email:     email,
		Provider:  models.ProviderLocal,
		Name:      name,
		Password:  hash,
		Role:      models.RoleUser,
		Addresses: []models.Address{},
		Wishlist:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.record(u.ID, audit.ActionUserCreate, true, "")
	log.Printf("✅ Nouvel utilisateur %s (%s)", u.ID, u.Email)
	return s.session(u)
}

// Login répond la même erreur pour un email inconnu et un mauvais mot
// de passe.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.record("", audit.ActionLoginFailed, false, email)
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if u.Password == "" {
		s.record(u.ID, audit.ActionLoginFailed, false, "compte social")
		return nil, apperr.Unauthorized("invalid email or password")
	}
	ok, err := utils.VerifyPassword(password, u.Password)
	if err != nil {
		log.Printf("❌ Hash illisible pour %s: %v", u.ID, err)
	}
	if !ok {
		s.record(u.ID, audit.ActionLoginFailed, false, "mot de passe")
		return nil, apperr.Unauthorized("invalid email or password")
	}
	s.record(u.ID, audit.ActionLoginSuccess, true, "")
	return s.session(u)
}

// CompleteSocial retrouve le compte par externalAuthId, sinon rattache un
// compte existant de même email, sinon crée un compte user.
func (s *Service) CompleteSocial(ctx context.Context, gu goth.User) (*Session, error) {
	if gu.UserID == "" {
		return nil, apperr.Unauthorized("provider returned no user id")
	}
	extID := gu.Provider + ":" + gu.UserID
	now := s.Now().UTC()

	u, err := s.users.GetByExternalID(ctx, extID)
	if err == nil {
		return s.session(u)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	email := normalizeEmail(gu.Email)
	if email == "" {
		return nil, apperr.Validation("email", "provider did not share an email address")
	}
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		u, err = s.users.LinkExternalID(ctx, existing.ID, extID, gu.Provider, now)
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", extID, err)
		}
		log.Printf("🔗 Compte %s rattaché à %s", u.ID, extID)
		s.record(u.ID, audit.ActionLoginSuccess, true, "liaison "+gu.Provider)
		return s.session(u)
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	name := strings.TrimSpace(gu.Name)
	if name == "" {
		name = strings.TrimSpace(gu.FirstName + " " + gu.LastName)
	}
	u = &models.User{
		Email:          email,
		ExternalAuthID: extID,
		Provider:       gu.Provider,
		Name:           name,
		Role:           models.RoleUser,
		Addresses:      []models.Address{},
		Wishlist:       []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create social user: %w", err)
	}
	log.Printf("✅ Compte %s créé via %s", u.ID, gu.Provider)
	s.record(u.ID, audit.ActionUserCreate, true, gu.Provider)
	return s.session(u)
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, User: u}, nil
}

func (s *Service) record(userID, action string, ok bool, detail string) {
	if s.audit == nil {
		return
	}
	entry := models.AuditLog{
		UserID:    userID,
		Action:    action,
		Resource:  audit.ResourceAuth,
		Detail:    detail,
		Success:   ok,
		Timestamp: s.Now().UTC(),
	}
	if !ok {
		entry.ErrorMsg = detail
	}
	s.audit.Record(entry)
}
