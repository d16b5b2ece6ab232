// Package auth registers users and exchanges credentials for session tokens.
package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"agromart/apperr"
	"agromart/middleware"
	"agromart/models"
	"agromart/utils"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type Service struct {
	store  UserStore
	tokens *middleware.Auth
	cost   int
	now    func() time.Time
}

func NewService(store UserStore, tokens *middleware.Auth) *Service {
	return &Service{store: store, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return models.User{}, apperr.Validation("name, email and password are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return models.User{}, apperr.Validation("invalid email address")
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		return models.User{}, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return models.User{}, apperr.Validation("role must be consumer or farmer")
	}
	if !role.SelfAssignable() {
		return models.User{}, apperr.Authorization("role %s cannot be self-assigned", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		// only fails for passwords over 72 bytes
		return models.User{}, apperr.Wrap(apperr.KindValidation, err, "password is too long")
	}

	now := s.now().UTC()
	u := models.User{
		ID:        utils.GetUUID(),
		Name:      in.Name,
		Email:     in.Email,
		Password:  string(hash),
		Role:      role,
		Phone:     strings.TrimSpace(in.Phone),
		Avatar:    strings.TrimSpace(in.Avatar),
		Cart:      []models.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Login returns a signed token for valid credentials. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", models.User{}, apperr.Validation("email and password are required")
	}

	u, err := s.store.ByEmail(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		return "", models.User{}, apperr.Authentication("invalid email or password")
	}
	if err != nil {
		return "", models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", models.User{}, apperr.Authentication("invalid email or password")
	}

	token, err := s.tokens.IssueToken(u)
	if err != nil {
		return "", models.User{}, apperr.Wrap(apperr.KindInternal, err, "failed to generate token")
	}
	return token, u, nil
}
