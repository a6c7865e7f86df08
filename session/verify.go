package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"taskboard/domain"
)

// Verifier checks token signatures and standard claims before a stored
// session is trusted. It is optional; without one tokens are only decoded.
type Verifier struct {
	JWKS     *keyfunc.JWKS
	Audience string
	Issuer   string
	Secret   []byte

	parser *jwt.Parser
}

// NewJWKSVerifier verifies RS256 tokens against a JWKS.
func NewJWKSVerifier(jwks *keyfunc.JWKS, audience, issuer string) *Verifier {
	return &Verifier{
		JWKS:     jwks,
		Audience: audience,
		Issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// NewHMACVerifier verifies HS256 tokens signed with a shared secret.
func NewHMACVerifier(secret []byte) *Verifier {
	return &Verifier{
		Secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Verify validates token and returns the session it describes.
func (v *Verifier) Verify(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, errBadToken)
	}
	parsed, err := v.parser.Parse(token, v.key)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, fmt.Errorf("%w: invalid claims", domain.ErrUnauthorized)
	}

	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, false) {
		return Session{}, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	}
	if !claims.VerifyNotBefore(now, false) {
		return Session{}, fmt.Errorf("%w: token not valid yet", domain.ErrUnauthorized)
	}
	if v.Audience != "" && !claims.VerifyAudience(v.Audience, false) {
		return Session{}, fmt.Errorf("%w: invalid audience", domain.ErrUnauthorized)
	}
	if v.Issuer != "" && !claims.VerifyIssuer(v.Issuer, false) {
		return Session{}, fmt.Errorf("%w: invalid issuer", domain.ErrUnauthorized)
	}
	return fromClaims(token, claims)
}

func (v *Verifier) key(t *jwt.Token) (any, error) {
	if v.Secret != nil {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.Secret, nil
	}
	if v.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}
	return v.JWKS.Keyfunc(t)
}
