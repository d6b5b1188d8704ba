package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/gdg-garage/wedding-rsvp-api/internal/config"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator(&config.Config{JWTSecret: testSecret}, logging.Discard())
	require.NoError(t, err)
	return a
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestNewAuthenticatorRequiresSecret(t *testing.T) {
	_, err := NewAuthenticator(&config.Config{}, nil)
	assert.Error(t, err)
}

func TestGenerateAndParse(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.GenerateToken("anna")
	require.NoError(t, err)

	organizer, exp, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "anna", organizer)
	assert.WithinDuration(t, time.Now().Add(TokenDuration), exp, 5*time.Second)

	_, err = a.GenerateToken("  ")
	assert.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	a := newTestAuthenticator(t)
	future := time.Now().Add(time.Hour).Unix()

	cases := map[string]string{
		"Expired":     signed(t, jwt.MapClaims{"sub": "anna", "role": "organizer", "exp": time.Now().Add(-time.Hour).Unix()}),
		"WrongRole":   signed(t, jwt.MapClaims{"sub": "anna", "role": "guest", "exp": future}),
		"NoSubject":   signed(t, jwt.MapClaims{"role": "organizer", "exp": future}),
		"NoExpiry":    signed(t, jwt.MapClaims{"sub": "anna", "role": "organizer"}),
		"Garbage":     "not-a-jwt",
		"OtherSecret": mustSign(t, "other", jwt.MapClaims{"sub": "anna", "role": "organizer", "exp": future}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := a.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func mustSign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

type whoAmIOutput struct {
	Body struct {
		Organizer string `json:"organizer"`
	}
}

func newTestAPI(t *testing.T, a *Authenticator) humatest.TestAPI {
	_, api := humatest.New(t)
	huma.Register(api, huma.Operation{
		OperationID: "who-am-i",
		Method:      http.MethodGet,
		Path:        "/whoami",
		Middlewares: huma.Middlewares{a.Middleware(api)},
	}, func(ctx context.Context, input *struct{}) (*whoAmIOutput, error) {
		out := &whoAmIOutput{}
		out.Body.Organizer, _ = OrganizerFromContext(ctx)
		return out, nil
	})
	return api
}

func TestMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)
	api := newTestAPI(t, a)

	t.Run("Bearer", func(t *testing.T) {
		token, err := a.GenerateToken("anna")
		require.NoError(t, err)

		resp := api.Get("/whoami", "Authorization: Bearer "+token)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"organizer":"anna"`)
	})

	t.Run("Cookie", func(t *testing.T) {
		token, err := a.GenerateToken("tom")
		require.NoError(t, err)

		resp := api.Get("/whoami", "Cookie: auth_token="+token)
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"organizer":"tom"`)
	})

	t.Run("Missing", func(t *testing.T) {
		resp := api.Get("/whoami")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("Invalid", func(t *testing.T) {
		resp := api.Get("/whoami", "Authorization: Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestMiddlewareSlidingSession(t *testing.T) {
	a := newTestAuthenticator(t)
	api := newTestAPI(t, a)

	findCookie := func(resp *http.Response) *http.Cookie {
		for _, c := range resp.Cookies() {
			if c.Name == CookieName {
				return c
			}
		}
		return nil
	}

	t.Run("TokenRenewed", func(t *testing.T) {
		token := signed(t, jwt.MapClaims{"sub": "anna", "role": "organizer", "exp": time.Now().Add(11 * time.Hour).Unix()})

		resp := api.Get("/whoami", "Authorization: Bearer "+token)
		require.Equal(t, http.StatusOK, resp.Code)

		cookie := findCookie(resp.Result())
		require.NotNil(t, cookie, "expected a refreshed auth_token cookie")
		assert.NotEqual(t, token, cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("TokenNotRenewed", func(t *testing.T) {
		token := signed(t, jwt.MapClaims{"sub": "anna", "role": "organizer", "exp": time.Now().Add(13 * time.Hour).Unix()})

		resp := api.Get("/whoami", "Authorization: Bearer "+token)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Nil(t, findCookie(resp.Result()))
	})
}
