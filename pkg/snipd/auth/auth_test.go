package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipd-io/snipd/pkg/snipd/config"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("test-secret")

	token, err := svc.Issue("admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", username)
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewService("secret-a").Issue("admin")
	require.NoError(t, err)

	_, err = NewService("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	svc := NewService("test-secret")

	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.Verify(input)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", input)
	}
}

func TestVerifyExpired(t *testing.T) {
	svc := NewService("test-secret")

	claims := &Claims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Issuer:    "snipd",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	svc := NewService("test-secret")

	claims := &Claims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCheckPasswordPlain(t *testing.T) {
	assert.True(t, CheckPassword("hunter2", "hunter2"))
	assert.False(t, CheckPassword("hunter2", "other"))
	assert.False(t, CheckPassword("anything", ""))
}

func TestCheckPasswordBcrypt(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, CheckPassword("hunter2", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func setupLoginRouter(cfg *config.Config) (*gin.Engine, *Service) {
	gin.SetMode(gin.TestMode)
	tokens := NewService(cfg.TokenSecret)
	handler := NewHandler(cfg, tokens)

	r := gin.New()
	api := r.Group("/api")
	handler.RegisterRoutes(api)
	return r, tokens
}

func postLogin(router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	req, _ := http.NewRequest("POST", "/api/login", &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestLogin(t *testing.T) {
	cfg := &config.Config{
		AdminUsername: "admin",
		AdminPassword: "hunter2",
		TokenSecret:   "test-secret",
	}
	router, tokens := setupLoginRouter(cfg)

	resp := postLogin(router, LoginRequest{Username: "admin", Password: "hunter2"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body LoginResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "admin", body.Username)

	username, err := tokens.Verify(body.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", username)
}

func TestLoginHashedPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	cfg := &config.Config{
		AdminUsername: "admin",
		AdminPassword: hash,
		TokenSecret:   "test-secret",
	}
	router, _ := setupLoginRouter(cfg)

	resp := postLogin(router, LoginRequest{Username: "admin", Password: "hunter2"})
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestLoginBadCredentials(t *testing.T) {
	cfg := &config.Config{
		AdminUsername: "admin",
		AdminPassword: "hunter2",
		TokenSecret:   "test-secret",
	}
	router, _ := setupLoginRouter(cfg)

	cases := []LoginRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "someone", Password: "hunter2"},
	}
	for _, body := range cases {
		resp := postLogin(router, body)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)

		var out map[string]string
		json.Unmarshal(resp.Body.Bytes(), &out)
		assert.Equal(t, "Invalid credentials", out["error"])
	}
}

func TestLoginMissingFields(t *testing.T) {
	cfg := &config.Config{
		AdminUsername: "admin",
		AdminPassword: "hunter2",
		TokenSecret:   "test-secret",
	}
	router, _ := setupLoginRouter(cfg)

	resp := postLogin(router, map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func setupProtectedRouter(tokens *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Middleware(tokens), func(c *gin.Context) {
		username, _ := GetUsername(c)
		c.JSON(http.StatusOK, gin.H{"username": username})
	})
	return r
}

func TestMiddleware(t *testing.T) {
	tokens := NewService("test-secret")
	router := setupProtectedRouter(tokens)

	token, err := tokens.Issue("admin")
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]string
	json.Unmarshal(resp.Body.Bytes(), &body)
	assert.Equal(t, "admin", body["username"])
}

func TestMiddlewareRejects(t *testing.T) {
	tokens := NewService("test-secret")
	router := setupProtectedRouter(tokens)

	foreign, _ := NewService("other-secret").Issue("admin")

	cases := map[string]string{
		"missing header": "",
		"no scheme":      "sometoken",
		"wrong scheme":   "Basic dXNlcjpwYXNz",
		"invalid token":  "Bearer garbage",
		"wrong secret":   "Bearer " + foreign,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, http.StatusUnauthorized, resp.Code)

			var body map[string]string
			json.Unmarshal(resp.Body.Bytes(), &body)
			assert.Equal(t, "Unauthorized", body["error"])
		})
	}
}
