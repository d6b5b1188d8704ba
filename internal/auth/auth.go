package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdg-garage/wedding-rsvp-api/internal/config"
	"github.com/gdg-garage/wedding-rsvp-api/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName    = "auth_token"
	TokenDuration = 24 * time.Hour
	organizerRole = "organizer"
)

var ErrInvalidToken = errors.New("invalid organizer token")

type contextKey string

const OrganizerKey contextKey = "organizer"

// Authenticator issues and checks organizer JWTs.
type Authenticator struct {
	secret []byte
	logger *logging.Logger
	now    func() time.Time
}

func NewAuthenticator(cfg *config.Config, logger *logging.Logger) (*Authenticator, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not configured")
	}
	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		logger: logging.OrDefault(logger),
		now:    time.Now,
	}, nil
}

func (a *Authenticator) GenerateToken(organizer string) (string, error) {
	organizer = strings.TrimSpace(organizer)
	if organizer == "" {
		return "", fmt.Errorf("organizer name is required")
	}
	now := a.now()
	claims := jwt.MapClaims{
		"sub":  organizer,
		"role": organizerRole,
		"iat":  now.Unix(),
		"exp":  now.Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Parse validates a token and returns the organizer it was issued to along
// with its expiry.
func (a *Authenticator) Parse(tokenString string) (string, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}, ErrInvalidToken
	}
	if role, _ := claims["role"].(string); role != organizerRole {
		return "", time.Time{}, fmt.Errorf("%w: wrong role", ErrInvalidToken)
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", time.Time{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", time.Time{}, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}

	return subject, exp.Time, nil
}

func OrganizerFromContext(ctx context.Context) (string, bool) {
	organizer, ok := ctx.Value(OrganizerKey).(string)
	return organizer, ok && organizer != ""
}
