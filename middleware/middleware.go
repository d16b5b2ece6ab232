package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"agromart/apperr"
	"agromart/globals"
	"agromart/models"
	"agromart/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

// TokenCookie is the httpOnly cookie that may carry the session token.
const TokenCookie = "token"

// JWT claims
type Claims struct {
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
	Name   string      `json:"name"`
	Avatar string      `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Auth signs and verifies HS256 session tokens.
type Auth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuth(secret []byte, ttl time.Duration) *Auth {
	return &Auth{secret: secret, ttl: ttl, now: time.Now}
}

func (a *Auth) TTL() time.Duration { return a.ttl }

// IssueToken returns a signed token for u.
func (a *Auth) IssueToken(u models.User) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID: u.ID,
		Role:   u.Role,
		Name:   u.Name,
		Avatar: u.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateJWT parses and verifies a raw token string.
func (a *Auth) ValidateJWT(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperr.Authentication("missing token")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Wrap(apperr.KindAuthentication, err, "token expired")
		}
		return nil, apperr.Wrap(apperr.KindAuthentication, err, "invalid token")
	}
	if claims.UserID == "" {
		return nil, apperr.Authentication("invalid token")
	}
	if _, err := models.ParseRole(string(claims.Role)); err != nil {
		return nil, apperr.Authentication("invalid token")
	}
	return claims, nil
}

// tokenFromRequest prefers the Authorization header and falls back to the
// session cookie.
func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", apperr.Authentication("invalid token format")
		}
		return strings.TrimSpace(token), nil
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", apperr.Authentication("missing token")
}

// WithClaims stores the authenticated identity in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, globals.UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, globals.RoleKey, claims.Role)
	return context.WithValue(ctx, globals.ClaimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(globals.ClaimsKey).(*Claims)
	return c, ok
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString, err := tokenFromRequest(r)
		if err != nil {
			utils.RespondWithAppError(w, r, err)
			return
		}
		claims, err := a.ValidateJWT(tokenString)
		if err != nil {
			utils.RespondWithAppError(w, r, err)
			return
		}
		next(w, r.WithContext(WithClaims(r.Context(), claims)), ps)
	}
}

// RequireRole must run after Authenticate.
func RequireRole(allowed ...models.Role) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			role := utils.GetRoleFromRequest(r)
			for _, a := range allowed {
				if role == a {
					next(w, r, ps)
					return
				}
			}
			utils.RespondWithAppError(w, r, apperr.Authorization("%s role required", describe(allowed)))
		}
	}
}

func describe(roles []models.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " or ")
}
