package auth

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// Middleware guards organizer operations. The token comes from the
// Authorization header or the auth_token cookie.
func (a *Authenticator) Middleware(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		tokenString := bearerToken(ctx.Header("Authorization"))
		if tokenString == "" {
			if cookie, err := huma.ReadCookie(ctx, CookieName); err == nil {
				tokenString = cookie.Value
			}
		}
		if tokenString == "" {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized: no token found")
			return
		}

		organizer, expiresAt, err := a.Parse(tokenString)
		if err != nil {
			a.logger.LogSecurity("invalid_organizer_token", ctx.RemoteAddr(), map[string]interface{}{
				"path":  ctx.URL().Path,
				"error": err.Error(),
			})
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized: invalid token")
			return
		}

		// Sliding session: refresh once more than half the lifetime is used.
		if expiresAt.Sub(a.now()) < TokenDuration/2 {
			if fresh, err := a.GenerateToken(organizer); err == nil {
				cookie := &http.Cookie{
					Name:     CookieName,
					Value:    fresh,
					Expires:  a.now().Add(TokenDuration),
					HttpOnly: true,
					Path:     "/",
				}
				ctx.AppendHeader("Set-Cookie", cookie.String())
			}
		}

		next(huma.WithValue(ctx, OrganizerKey, organizer))
	}
}
