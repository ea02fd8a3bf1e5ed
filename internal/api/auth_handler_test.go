package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spendwise-backend-go/internal/config"
	"spendwise-backend-go/internal/core"
	"spendwise-backend-go/internal/middleware"
	"spendwise-backend-go/internal/models"
)

// stubAuthService returns canned results for each operation.
type stubAuthService struct {
	signupUser  *models.User
	signupErr   error
	loginUser   *models.User
	loginErr    error
	resolveUser *models.User
	resolveErr  error
	getUser     *models.User
	getErr      error
	token       string

	lastSignup  models.SignupRequest
	lastProfile models.GoogleProfile
}

func (s *stubAuthService) Signup(_ context.Context, req models.SignupRequest) (*models.User, string, error) {
	s.lastSignup = req
	return s.signupUser, s.token, s.signupErr
}

func (s *stubAuthService) Login(_ context.Context, _ models.LoginRequest) (*models.User, string, error) {
	return s.loginUser, s.token, s.loginErr
}

func (s *stubAuthService) ResolveGoogleUser(_ context.Context, profile models.GoogleProfile) (*models.User, string, error) {
	s.lastProfile = profile
	return s.resolveUser, s.token, s.resolveErr
}

func (s *stubAuthService) GetByID(context.Context, string) (*models.User, error) {
	return s.getUser, s.getErr
}

// stubExchanger returns a canned profile for any code.
type stubExchanger struct {
	profile *models.GoogleProfile
	err     error
}

func (e *stubExchanger) AuthCodeURL(state string) string {
	return "https://accounts.example.com/consent?state=" + state
}

func (e *stubExchanger) Exchange(context.Context, string) (*models.GoogleProfile, error) {
	return e.profile, e.err
}

func testUser() *models.User {
	return &models.User{
		ID:           "u1",
		Email:        "a@x.com",
		Name:         "A",
		PasswordHash: "$2a$10$secret-hash",
		GoogleID:     "g1",
		Provider:     models.ProviderLocal,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, svc core.AuthService, exch *stubExchanger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	tokens, err := core.NewTokenService("this-is-a-32-character-secret!!!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exch == nil {
		SetupRoutes(router, cfg, zap.NewNop(), svc, tokens, nil)
	} else {
		SetupRoutes(router, cfg, zap.NewNop(), svc, tokens, exch)
	}
	return router
}

func devConfig() *config.Config {
	return &config.Config{AppEnv: "development", FrontendURL: "http://localhost:5173"}
}

func TestSignupHandler_Created(t *testing.T) {
	svc := &stubAuthService{signupUser: testUser(), token: "tok123"}
	router := newTestRouter(t, devConfig(), svc, nil)

	body := `{"name":"A","email":"A@x.com","password":"p","captchaToken":"valid"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error decoding response: %v", err)
	}
	if resp.Token != "tok123" {
		t.Errorf("expected token tok123, got %q", resp.Token)
	}
	if resp.User.ID != "u1" || resp.User.Email != "a@x.com" {
		t.Errorf("unexpected user projection: %+v", resp.User)
	}
	if strings.Contains(w.Body.String(), "secret-hash") || strings.Contains(w.Body.String(), "googleId") {
		t.Error("response must never leak passwordHash or googleId")
	}
	if svc.lastSignup.CaptchaToken != "valid" {
		t.Errorf("expected captcha token forwarded, got %q", svc.lastSignup.CaptchaToken)
	}
}

func TestSignupHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantSubstr string
	}{
		{"missing fields", core.ErrMissingFields, http.StatusBadRequest, "Missing required fields"},
		{"duplicate email", core.ErrEmailInUse, http.StatusBadRequest, "Email already in use"},
		{"captcha rejected", &core.CaptchaRejectedError{Codes: []string{"invalid-input-response"}}, http.StatusBadRequest, "invalid-input-response"},
		{"captcha not configured", core.ErrCaptchaNotConfigured, http.StatusInternalServerError, "reCAPTCHA secret key not configured"},
		{"captcha unreachable", &core.UpstreamError{Service: "recaptcha", Err: context.DeadlineExceeded}, http.StatusBadGateway, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubAuthService{signupErr: tt.err}
			router := newTestRouter(t, devConfig(), svc, nil)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
				strings.NewReader(`{"name":"A","email":"a@x.com","password":"p","captchaToken":"t"}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantSubstr) {
				t.Errorf("expected body to contain %q, got %s", tt.wantSubstr, w.Body.String())
			}
		})
	}
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	svc := &stubAuthService{loginErr: core.ErrInvalidCredentials}
	router := newTestRouter(t, devConfig(), svc, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"a@x.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid credentials") {
		t.Errorf("expected generic credentials message, got %s", w.Body.String())
	}
}

func TestLoginHandler_Success(t *testing.T) {
	svc := &stubAuthService{loginUser: testUser(), token: "tok123"}
	router := newTestRouter(t, devConfig(), svc, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"a@x.com","password":"p"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error decoding response: %v", err)
	}
	if resp.Token != "tok123" || resp.User.ID != "u1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGoogleLogin_RedirectsWithState(t *testing.T) {
	exch := &stubExchanger{}
	router := newTestRouter(t, devConfig(), &stubAuthService{}, exch)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "https://accounts.example.com/consent?state=") {
		t.Errorf("expected redirect to consent URL, got %q", location)
	}

	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == stateCookieName {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("expected a state cookie to be set")
	}
	if !stateCookie.HttpOnly {
		t.Error("expected the state cookie to be http-only")
	}
	if !strings.HasSuffix(location, stateCookie.Value) {
		t.Error("expected the consent URL state to match the cookie")
	}
}

func googleCallbackRequest(state, query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?"+query, nil)
	if state != "" {
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: state})
	}
	return req
}

func TestGoogleCallback_Success(t *testing.T) {
	user := testUser()
	user.Provider = models.ProviderGoogle
	svc := &stubAuthService{resolveUser: user, token: "tok123"}
	exch := &stubExchanger{profile: &models.GoogleProfile{ID: "g1", Email: "a@x.com", Name: "A"}}
	router := newTestRouter(t, devConfig(), svc, exch)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, googleCallbackRequest("st8", "code=authcode&state=st8"))

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}

	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "http://localhost:5173/?token=tok123&googleAuth=true&user=") {
		t.Errorf("unexpected redirect target %q", location)
	}
	parsed, err := url.Parse(location)
	if err != nil {
		t.Fatalf("unexpected error parsing redirect: %v", err)
	}
	var projected models.PublicUser
	if err := json.Unmarshal([]byte(parsed.Query().Get("user")), &projected); err != nil {
		t.Fatalf("unexpected error decoding user query param: %v", err)
	}
	if projected.ID != "u1" || projected.Provider != models.ProviderGoogle {
		t.Errorf("unexpected projected user: %+v", projected)
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value != "tok123" {
		t.Fatal("expected the session cookie to carry the token")
	}
	if !sessionCookie.HttpOnly {
		t.Error("expected an http-only session cookie")
	}
	if sessionCookie.Secure {
		t.Error("expected a non-secure cookie outside production")
	}
	if svc.lastProfile.ID != "g1" {
		t.Errorf("expected the exchanged profile forwarded to the reconciler, got %+v", svc.lastProfile)
	}
}

func TestGoogleCallback_TrailingSlashStripped(t *testing.T) {
	cfg := devConfig()
	cfg.FrontendURL = "http://localhost:5173/"
	svc := &stubAuthService{resolveUser: testUser(), token: "tok123"}
	exch := &stubExchanger{profile: &models.GoogleProfile{ID: "g1", Email: "a@x.com"}}
	router := newTestRouter(t, cfg, svc, exch)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, googleCallbackRequest("st8", "code=authcode&state=st8"))

	location := w.Header().Get("Location")
	if strings.Contains(location, "//?") {
		t.Errorf("expected trailing slash stripped before composing, got %q", location)
	}
}

func TestGoogleCallback_MissingFrontendURLInProduction(t *testing.T) {
	cfg := &config.Config{AppEnv: "production"}
	svc := &stubAuthService{resolveUser: testUser(), token: "tok123"}
	exch := &stubExchanger{profile: &models.GoogleProfile{ID: "g1", Email: "a@x.com"}}
	router := newTestRouter(t, cfg, svc, exch)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, googleCallbackRequest("st8", "code=authcode&state=st8"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "FRONTEND_URL not set") {
		t.Errorf("expected configuration error surfaced, got %s", w.Body.String())
	}
}

func TestGoogleCallback_StateMismatch(t *testing.T) {
	svc := &stubAuthService{resolveUser: testUser(), token: "tok123"}
	exch := &stubExchanger{profile: &models.GoogleProfile{ID: "g1", Email: "a@x.com"}}
	router := newTestRouter(t, devConfig(), svc, exch)

	tests := []struct {
		name   string
		cookie string
		query  string
	}{
		{"no cookie", "", "code=authcode&state=st8"},
		{"mismatch", "other", "code=authcode&state=st8"},
		{"no query state", "st8", "code=authcode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, googleCallbackRequest(tt.cookie, tt.query))
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestGoogleCallback_IncompleteProfile(t *testing.T) {
	svc := &stubAuthService{resolveErr: core.ErrProfileIncomplete}
	exch := &stubExchanger{profile: &models.GoogleProfile{ID: "g1"}}
	router := newTestRouter(t, devConfig(), svc, exch)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, googleCallbackRequest("st8", "code=authcode&state=st8"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "missing user data") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestGoogleCallback_ProviderError(t *testing.T) {
	router := newTestRouter(t, devConfig(), &stubAuthService{}, &stubExchanger{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, googleCallbackRequest("", "error=access_denied"))

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect to the failure endpoint, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/api/auth/google/failure?error=access_denied" {
		t.Errorf("unexpected redirect %q", got)
	}
}

func TestGoogleFailure(t *testing.T) {
	router := newTestRouter(t, devConfig(), &stubAuthService{}, &stubExchanger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/failure?error=access_denied", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var resp MessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error decoding response: %v", err)
	}
	if resp.Error != "access_denied" {
		t.Errorf("expected provider error echoed, got %q", resp.Error)
	}
}

func TestGoogleRoutes_NotRegisteredWithoutClient(t *testing.T) {
	router := newTestRouter(t, devConfig(), &stubAuthService{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 when the OAuth client is unconfigured, got %d", w.Code)
	}
}

func TestLogoutHandler_ClearsSessionCookie(t *testing.T) {
	router := newTestRouter(t, devConfig(), &stubAuthService{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			cleared = c
		}
	}
	if cleared == nil {
		t.Fatal("expected a Set-Cookie clearing the session")
	}
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Errorf("expected an expired empty cookie, got value=%q maxAge=%d", cleared.Value, cleared.MaxAge)
	}
	if !strings.Contains(w.Body.String(), "Logged out successfully") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestMeHandler(t *testing.T) {
	svc := &stubAuthService{getUser: testUser()}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	tokens, err := core.NewTokenService("this-is-a-32-character-secret!!!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	SetupRoutes(router, devConfig(), zap.NewNop(), svc, tokens, nil)

	t.Run("bearer token", func(t *testing.T) {
		token, err := tokens.Issue("u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if strings.Contains(w.Body.String(), "secret-hash") {
			t.Error("response must never leak the password hash")
		}
	})

	t.Run("session cookie", func(t *testing.T) {
		token, err := tokens.Issue("u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("no token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

func TestHealthAndRoot(t *testing.T) {
	router := newTestRouter(t, devConfig(), &stubAuthService{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"success":true`) {
		t.Errorf("unexpected health response %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "SpendWise API is running") {
		t.Errorf("unexpected root response %d: %s", w.Code, w.Body.String())
	}
}
