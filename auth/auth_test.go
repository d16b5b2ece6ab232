package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"agromart/apperr"
	"agromart/middleware"
	"agromart/models"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]models.User
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byEmail == nil {
		m.byEmail = make(map[string]models.User)
	}
	if _, ok := m.byEmail[u.Email]; ok {
		return apperr.Conflict("email already registered")
	}
	m.byEmail[u.Email] = *u
	return nil
}

func (m *memUsers) ByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return models.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

var testSecret = []byte("test-secret")

func newTestService() (*Service, *memUsers) {
	store := &memUsers{}
	svc := NewService(store, middleware.NewAuth(testSecret, time.Hour))
	svc.cost = bcrypt.MinCost
	return svc, store
}

func TestRegister(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: " Ravi ", Email: "Ravi@Example.com", Password: "longenough", Role: "farmer"})
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == "" || u.Email != "ravi@example.com" || u.Role != models.RoleFarmer || u.Name != "Ravi" {
		t.Fatalf("user = %+v", u)
	}
	if u.Cart == nil {
		t.Fatal("cart must start as an empty array")
	}
	stored := store.byEmail["ravi@example.com"]
	if stored.Password == "longenough" || bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("longenough")) != nil {
		t.Fatal("password not hashed")
	}

	if _, err := svc.Register(ctx, RegisterInput{Name: "R", Email: "ravi@example.com", Password: "longenough"}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("duplicate email: %v", err)
	}
}

func TestRegisterRejects(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
		kind apperr.Kind
	}{
		{"missing name", RegisterInput{Email: "a@b.co", Password: "longenough"}, apperr.KindValidation},
		{"bad email", RegisterInput{Name: "A", Email: "nope", Password: "longenough"}, apperr.KindValidation},
		{"short password", RegisterInput{Name: "A", Email: "a@b.co", Password: "short"}, apperr.KindValidation},
		{"unknown role", RegisterInput{Name: "A", Email: "a@b.co", Password: "longenough", Role: "wizard"}, apperr.KindValidation},
		{"admin", RegisterInput{Name: "A", Email: "a@b.co", Password: "longenough", Role: "admin"}, apperr.KindAuthorization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			if _, err := svc.Register(context.Background(), tt.in); !apperr.Is(err, tt.kind) {
				t.Fatalf("got %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}

	token, u, err := svc.Login(ctx, "ASHA@example.com", "longenough")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := svc.tokens.ValidateJWT(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != u.ID || claims.Role != models.RoleConsumer || claims.Name != "Asha" {
		t.Fatalf("claims = %+v", claims)
	}

	for _, creds := range [][2]string{{"asha@example.com", "wrongpassword"}, {"ghost@example.com", "longenough"}} {
		if _, _, err := svc.Login(ctx, creds[0], creds[1]); !apperr.Is(err, apperr.KindAuthentication) {
			t.Fatalf("%v: got %v", creds, err)
		}
	}
}

func TestAuthEndpoints(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc, time.Hour, true)
	router := httprouter.New()
	router.POST("/api/auth/register", h.Register)
	router.POST("/api/auth/login", h.Login)
	router.POST("/api/auth/logout", h.Logout)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Asha","email":"asha@example.com","password":"longenough","role":"consumer"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password leaked: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"asha@example.com","password":"longenough"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Token == "" {
		t.Fatalf("token missing: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.TokenCookie || cookies[0].Value != body.Token || !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Fatalf("cookie = %+v", cookies)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"asha@example.com","password":"nottheone"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	cookies = rec.Result().Cookies()
	if rec.Code != http.StatusOK || len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("logout: %d %+v", rec.Code, cookies)
	}
}
