package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agromart/models"
	"agromart/utils"

	"github.com/julienschmidt/httprouter"
)

func newTestAuth() *Auth {
	return NewAuth([]byte("test-secret"), time.Hour)
}

func whoAmI(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"userId": utils.GetUserIDFromRequest(r),
		"role":   utils.GetRoleFromRequest(r),
	})
}

func serve(h httprouter.Handle, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	return rec
}

func TestAuthenticateBearerAndCookie(t *testing.T) {
	auth := newTestAuth()
	token, err := auth.IssueToken(models.User{ID: "u1", Role: models.RoleFarmer, Name: "Green Acres"})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := serve(auth.Authenticate(whoAmI), req); rec.Code != http.StatusOK {
		t.Fatalf("bearer: status %d body %s", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	if rec := serve(auth.Authenticate(whoAmI), req); rec.Code != http.StatusOK {
		t.Fatalf("cookie: status %d body %s", rec.Code, rec.Body)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	auth := newTestAuth()
	other := NewAuth([]byte("other-secret"), time.Hour)
	foreign, _ := other.IssueToken(models.User{ID: "u1", Role: models.RoleConsumer})

	expired := newTestAuth()
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _ := expired.IssueToken(models.User{ID: "u1", Role: models.RoleConsumer})

	cases := map[string]string{
		"missing":      "",
		"bad scheme":   "Basic abc",
		"wrong secret": "Bearer " + foreign,
		"expired":      "Bearer " + stale,
		"garbage":      "Bearer not.a.token",
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if rec := serve(auth.Authenticate(whoAmI), req); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status %d, want 401", name, rec.Code)
		}
	}
}

func TestRequireRole(t *testing.T) {
	auth := newTestAuth()
	farmerOnly := auth.Authenticate(RequireRole(models.RoleFarmer)(whoAmI))

	consumer, _ := auth.IssueToken(models.User{ID: "c1", Role: models.RoleConsumer})
	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	req.Header.Set("Authorization", "Bearer "+consumer)
	if rec := serve(farmerOnly, req); rec.Code != http.StatusForbidden {
		t.Fatalf("consumer on farmer route: status %d, want 403", rec.Code)
	}

	farmer, _ := auth.IssueToken(models.User{ID: "f1", Role: models.RoleFarmer})
	req = httptest.NewRequest(http.MethodPatch, "/", nil)
	req.Header.Set("Authorization", "Bearer "+farmer)
	if rec := serve(farmerOnly, req); rec.Code != http.StatusOK {
		t.Fatalf("farmer: status %d", rec.Code)
	}
}

func TestRecoverAndRequestID(t *testing.T) {
	h := RequestID(Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestCORSOnlyListedOrigins(t *testing.T) {
	h := CORS([]string{"https://shop.example"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		origin string
		want   string
	}{
		{"https://shop.example", "https://shop.example"},
		{"https://evil.example", ""},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/cart/get-cart", nil)
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
			t.Errorf("origin %s: Allow-Origin = %q, want %q", tc.origin, got, tc.want)
		}
	}

	none := CORS(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	none.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("empty list allowed %q", got)
	}
}
