package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"agromart/middleware"
	"agromart/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	svc          *Service
	ttl          time.Duration
	cookieSecure bool
}

func NewHandler(svc *Service, ttl time.Duration, cookieSecure bool) *Handler {
	return &Handler{svc: svc, ttl: ttl, cookieSecure: cookieSecure}
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in RegisterInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	user, err := h.svc.Register(ctx, in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	slog.InfoContext(ctx, "user registered", "userId", user.ID, "role", user.Role)
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success": true,
		"message": "Registration successful",
		"user":    user,
	})
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	token, user, err := h.svc.Login(ctx, in.Email, in.Password)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	h.setTokenCookie(w, token, int(h.ttl.Seconds()))
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.setTokenCookie(w, "", -1)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "message": "Logged out successfully"})
}
