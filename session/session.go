// Package session carries the caller's credential explicitly instead of
// keeping it in process-wide state.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"taskboard/domain"
)

var (
	errBadToken  = errors.New("bad bearer token")
	errMissingID = errors.New("missing sub")
)

// Session is the authenticated context handed to API clients and push
// channels.
type Session struct {
	Token     string
	UserID    string
	Name      string
	ExpiresAt time.Time
}

// Authorization returns the Authorization header value.
func (s Session) Authorization() string {
	if s.Token == "" {
		return ""
	}
	return "Bearer " + s.Token
}

// Expired reports whether the token expiry lies before now. Tokens without
// an expiry never expire on the client side.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// FromToken decodes the claims of token without checking its signature. The
// client does not hold the signing keys; the server remains the authority.
func FromToken(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, errBadToken)
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return fromClaims(token, claims)
}

func fromClaims(token string, claims jwt.MapClaims) (Session, error) {
	s := Session{Token: token}
	for _, key := range []string{"sub", "_id", "id"} {
		if v, ok := claims[key].(string); ok && v != "" {
			s.UserID = v
			break
		}
	}
	if s.UserID == "" {
		return Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, errMissingID)
	}
	for _, key := range []string{"name", "username", "email"} {
		if v, ok := claims[key].(string); ok && v != "" {
			s.Name = v
			break
		}
	}
	if exp, ok := claims["exp"].(float64); ok && exp > 0 {
		s.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return s, nil
}
