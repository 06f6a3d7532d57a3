package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/renzo-dev/accounts/internal/handler"
	"github.com/renzo-dev/accounts/internal/router"
	"github.com/renzo-dev/accounts/shared/config"
	"github.com/renzo-dev/accounts/shared/domain"
	internal_errors "github.com/renzo-dev/accounts/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockAuthService struct {
	RegisterFunc     func(reg domain.Registration) error
	ActivateFunc     func(code string) error
	AuthenticateFunc func(creds domain.Credentials) (string, error)
}

func (m *MockAuthService) Register(reg domain.Registration) error {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(reg)
	}
	return nil
}

func (m *MockAuthService) Activate(code string) error {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(code)
	}
	return nil
}

func (m *MockAuthService) Authenticate(creds domain.Credentials) (string, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(creds)
	}
	return "test_token", nil
}

type MockPinger struct {
	PingFunc func(ctx context.Context) error
}

func (m *MockPinger) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func newTestServer(auth *MockAuthService, pinger *MockPinger) http.Handler {
	cfg := &config.Config{Public: config.Public{AllowedOrigins: []string{"*"}}}
	h := handler.New(auth, pinger, cfg)
	return router.New(h, &cfg.Public)
}

func TestRegisterHandler(t *testing.T) {
	auth := &MockAuthService{}
	srv := newTestServer(auth, &MockPinger{})

	validBody := `{"email":"ada@example.com","password":"password123","firstname":"Ada","lastname":"Lovelace"}`

	t.Run("Valid registration returns 202", func(t *testing.T) {
		// Arrange
		var got domain.Registration
		auth.RegisterFunc = func(reg domain.Registration) error {
			got = reg
			return nil
		}
		defer func() { auth.RegisterFunc = nil }()

		// Act
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(validBody)))

		// Assert
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Equal(t, "Ada", got.FirstName)
		assert.Equal(t, "Lovelace", got.LastName)
	})

	t.Run("Invalid email returns 400", func(t *testing.T) {
		called := false
		auth.RegisterFunc = func(reg domain.Registration) error { called = true; return nil }
		defer func() { auth.RegisterFunc = nil }()

		body := `{"email":"not-an-email","password":"password123","firstname":"Ada","lastname":"Lovelace"}`
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called, "validation failure must not reach the service")
	})

	t.Run("Short password returns 400", func(t *testing.T) {
		body := `{"email":"ada@example.com","password":"short","firstname":"Ada","lastname":"Lovelace"}`
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Password")
	})

	t.Run("Missing names return 400", func(t *testing.T) {
		body := `{"email":"ada@example.com","password":"password123"}`
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Malformed json returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader("{not json")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Service error maps to its status code", func(t *testing.T) {
		auth.RegisterFunc = func(reg domain.Registration) error {
			return &internal_errors.ErrorWithStatusCode{Message: "Server is misconfigured", StatusCode: http.StatusInternalServerError, Kind: internal_errors.KindRoleNotFound}
		}
		defer func() { auth.RegisterFunc = nil }()

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/register", strings.NewReader(validBody)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "Server is misconfigured")
	})
}

func TestActivateHandler(t *testing.T) {
	auth := &MockAuthService{}
	srv := newTestServer(auth, &MockPinger{})

	t.Run("Valid code returns 200", func(t *testing.T) {
		var got string
		auth.ActivateFunc = func(code string) error {
			got = code
			return nil
		}
		defer func() { auth.ActivateFunc = nil }()

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/activate?code=123456", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "123456", got)
		assert.Contains(t, rec.Body.String(), "Account activated")
	})

	t.Run("Missing code returns 400", func(t *testing.T) {
		called := false
		auth.ActivateFunc = func(code string) error { called = true; return nil }
		defer func() { auth.ActivateFunc = nil }()

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/activate", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
	})

	t.Run("Service error statuses pass through", func(t *testing.T) {
		cases := []struct {
			name string
			err  *internal_errors.ErrorWithStatusCode
			want int
		}{
			{"unknown code", &internal_errors.ErrorWithStatusCode{Message: "Invalid activation code", StatusCode: http.StatusNotFound, Kind: internal_errors.KindTokenNotFound}, http.StatusNotFound},
			{"already used", &internal_errors.ErrorWithStatusCode{Message: "Activation code already used", StatusCode: http.StatusConflict, Kind: internal_errors.KindTokenAlreadyValidated}, http.StatusConflict},
			{"expired", &internal_errors.ErrorWithStatusCode{Message: "Activation code expired, a new one was sent", StatusCode: http.StatusGone, Kind: internal_errors.KindTokenExpired}, http.StatusGone},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				auth.ActivateFunc = func(code string) error { return tc.err }
				defer func() { auth.ActivateFunc = nil }()

				rec := httptest.NewRecorder()
				srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/activate?code=123456", nil))

				assert.Equal(t, tc.want, rec.Code)
				assert.Contains(t, rec.Body.String(), tc.err.Message)
			})
		}
	})
}

func TestAuthenticateHandler(t *testing.T) {
	auth := &MockAuthService{}
	srv := newTestServer(auth, &MockPinger{})

	validBody := `{"email":"ada@example.com","password":"password123"}`

	t.Run("Valid credentials return a token", func(t *testing.T) {
		auth.AuthenticateFunc = func(creds domain.Credentials) (string, error) {
			assert.Equal(t, "ada@example.com", creds.Email)
			return "signed_token", nil
		}
		defer func() { auth.AuthenticateFunc = nil }()

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/authenticate", strings.NewReader(validBody)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "signed_token", resp.Token)
	})

	t.Run("Bad credentials return 401", func(t *testing.T) {
		auth.AuthenticateFunc = func(creds domain.Credentials) (string, error) {
			return "", &internal_errors.ErrorWithStatusCode{Message: "Invalid credentials", StatusCode: http.StatusUnauthorized, Kind: internal_errors.KindBadCredentials}
		}
		defer func() { auth.AuthenticateFunc = nil }()

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/authenticate", strings.NewReader(validBody)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotContains(t, rec.Body.String(), "token")
	})

	t.Run("Missing password returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/authenticate", strings.NewReader(`{"email":"ada@example.com"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Unexpected service error returns 500", func(t *testing.T) {
		auth.AuthenticateFunc = func(creds domain.Credentials) (string, error) {
			return "", assert.AnError
		}
		defer func() { auth.AuthenticateFunc = nil }()

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/authenticate", strings.NewReader(validBody)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "Internal server error")
		assert.NotContains(t, rec.Body.String(), assert.AnError.Error(), "internal details stay out of the response")
	})
}
