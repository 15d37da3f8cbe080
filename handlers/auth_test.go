package handlers

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/config"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/oidc"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/sessions"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/tokens"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/users"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/middleware"
)

const testSecret = "handlers-test-secret-32-bytes-xxxx"

type authFixture struct {
	router *gin.Engine
	users  *users.Service
	cfg    *config.Config
}

func newAuthFixture(t *testing.T, cfg *config.Config, idTokens middleware.Verifier) *authFixture {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.JWT.Secret = testSecret
	uSvc := users.NewService(users.NewMemoryUserRepository())
	h := NewAuthHandler(cfg, uSvc, sessions.NewService(sessions.NewMemoryRepository()), idTokens)

	r := gin.New()
	h.Register(r.Group("/"))
	api := r.Group("/api", middleware.AuthMiddleware(tokens.NewVerifier(testSecret), h.ProvisionFromClaims()))
	h.RegisterProtected(api)
	return &authFixture{router: r, users: uSvc, cfg: cfg}
}

func (f *authFixture) do(t *testing.T, method, path, body, bearer string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var got map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	return w, got
}

func TestSignUpLoginMe(t *testing.T) {
	f := newAuthFixture(t, nil, nil)

	w, got := f.do(t, http.MethodPost, "/auth/register", `{"username":"bob","password":"correct-horse","email":"bob@example.com"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "bob", got["username"])
	assert.NotContains(t, got, "passwordHash")

	w, _ = f.do(t, http.MethodPost, "/auth/register", `{"username":"bob","password":"another-pass"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = f.do(t, http.MethodPost, "/auth/register", `{"username":"b!","password":"another-pass"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/auth/login", `{"username":"bob","password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, got = f.do(t, http.MethodPost, "/auth/login", `{"username":"bob","password":"correct-horse"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	access, _ := got["accessToken"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, got["refreshToken"])

	w, got = f.do(t, http.MethodGet, "/api/v1/me", "", access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", got["username"])

	w, _ = f.do(t, http.MethodGet, "/api/v1/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnsupportedMode(t *testing.T) {
	f := newAuthFixture(t, nil, nil)
	w, _ := f.do(t, http.MethodPost, "/auth/login", `{"mode":"magic"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = f.do(t, http.MethodPost, "/auth/login", `{"mode":"auth_code","code":"x","redirect_uri":"y"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t, nil, nil)
	_, err := f.users.Register(context.Background(), "alice", "wonderland", "")
	require.NoError(t, err)

	_, got := f.do(t, http.MethodPost, "/auth/login", `{"username":"alice","password":"wonderland"}`, "")
	refresh, _ := got["refreshToken"].(string)
	require.NotEmpty(t, refresh)

	w, got := f.do(t, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	access, _ := got["access_token"].(string)
	rotated, _ := got["refresh_token"].(string)
	require.NotEmpty(t, rotated)
	assert.NotEqual(t, refresh, rotated)
	w, me := f.do(t, http.MethodGet, "/api/v1/me", "", access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", me["username"])

	// the spent token is gone, the rotated one works
	w, _ = f.do(t, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = f.do(t, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+rotated+`"}`, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodPost, "/auth/refresh", `{"refresh_token":"bogus"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = f.do(t, http.MethodPost, "/auth/refresh", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout_RevokesSessionAndBearer(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	sessions.SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer sessions.SetBlacklistClient(nil)

	f := newAuthFixture(t, nil, nil)
	_, err = f.users.Register(context.Background(), "bob", "correct-horse", "")
	require.NoError(t, err)
	_, got := f.do(t, http.MethodPost, "/auth/login", `{"username":"bob","password":"correct-horse"}`, "")
	access, _ := got["accessToken"].(string)
	refresh, _ := got["refreshToken"].(string)

	w, _ := f.do(t, http.MethodPost, "/auth/logout", `{"refresh_token":"`+refresh+`"}`, access)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/v1/me", "", access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = f.do(t, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginAuthCode(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var issuer string
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.URL.Path != "/realms/mutsasns/protocol/openid-connect/token" || r.PostForm.Get("code") != "abc" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":                issuer,
			"aud":                "cid",
			"sub":                "kc-42",
			"preferred_username": "carol",
			"email":              "carol@example.com",
			"exp":                time.Now().Add(time.Minute).Unix(),
			"iat":                time.Now().Unix(),
		}).SignedString(key)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "kc-at", "id_token": idToken})
	}))
	defer tokenSrv.Close()

	cfg := &config.Config{}
	cfg.Keycloak.URL = tokenSrv.URL
	cfg.Keycloak.Realm = "mutsasns"
	cfg.Keycloak.ClientID = "cid"
	cfg.Keycloak.ClientSecret = "csecret"
	issuer = cfg.Keycloak.Issuer()

	f := newAuthFixture(t, cfg, oidc.NewStaticVerifier(issuer, "cid", &key.PublicKey))

	w, got := f.do(t, http.MethodPost, "/auth/login", `{"mode":"auth_code","code":"abc","redirect_uri":"http://localhost/cb"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, got["accessToken"])
	assert.NotEmpty(t, got["refreshToken"])

	u, err := f.users.Resolve(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, "kc-42", u.Sub)

	w, _ = f.do(t, http.MethodPost, "/auth/login", `{"mode":"auth_code","code":"wrong","redirect_uri":"http://localhost/cb"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = f.do(t, http.MethodPost, "/auth/login", `{"mode":"auth_code"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProvisionFromClaims(t *testing.T) {
	cfg := &config.Config{}
	cfg.Keycloak.URL = "http://kc.local"
	cfg.Keycloak.Realm = "mutsasns"
	f := newAuthFixture(t, cfg, nil)
	h := NewAuthHandler(cfg, f.users, sessions.NewService(sessions.NewMemoryRepository()), nil)
	hook := h.ProvisionFromClaims()
	ctx := context.Background()

	// local tokens are left alone
	require.NoError(t, hook(ctx, map[string]interface{}{"iss": "mutsasns", "sub": "dave", "preferred_username": "dave"}))
	_, err := f.users.Resolve(ctx, "dave")
	require.ErrorIs(t, err, users.ErrNotFound)

	require.NoError(t, hook(ctx, map[string]interface{}{"iss": cfg.Keycloak.Issuer(), "sub": "kc-7", "preferred_username": "erin"}))
	u, err := f.users.Resolve(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, "kc-7", u.Sub)
}
