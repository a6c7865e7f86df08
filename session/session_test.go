package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"taskboard/domain"
)

func signed(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestFromTokenDecodesClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	token := signed(t, []byte("whatever"), jwt.MapClaims{"sub": "user-1", "email": "a@b.c", "exp": exp})

	s, err := FromToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.UserID != "user-1" || s.Name != "a@b.c" || s.ExpiresAt.Unix() != exp {
		t.Fatalf("unexpected session %+v", s)
	}
	if s.Authorization() != "Bearer "+token {
		t.Fatalf("unexpected header %q", s.Authorization())
	}
	if s.Expired(time.Now()) {
		t.Fatal("session must not be expired")
	}
}

func TestFromTokenRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "abc", "a.b", "a.b.c.d"} {
		if _, err := FromToken(tok); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("%q: expected unauthorized, got %v", tok, err)
		}
	}
	noSub := signed(t, []byte("k"), jwt.MapClaims{"email": "x"})
	if _, err := FromToken(noSub); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for token without subject, got %v", err)
	}
}

func TestHMACVerifier(t *testing.T) {
	secret := []byte("test-secret")
	v := NewHMACVerifier(secret)

	good := signed(t, secret, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(5 * time.Minute).Unix()})
	if s, err := v.Verify(good); err != nil || s.UserID != "u" {
		t.Fatalf("expected valid session, got %+v, %v", s, err)
	}

	forged := signed(t, []byte("other"), jwt.MapClaims{"sub": "u"})
	if _, err := v.Verify(forged); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for forged token, got %v", err)
	}

	expired := signed(t, secret, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()})
	if _, err := v.Verify(expired); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}

func TestVerifierChecksAudience(t *testing.T) {
	secret := []byte("s")
	v := NewHMACVerifier(secret)
	v.Audience = "taskboard"
	tok := signed(t, secret, jwt.MapClaims{"sub": "u", "aud": "other"})
	if _, err := v.Verify(tok); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected audience mismatch, got %v", err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	st := NewStore(path, nil)

	if _, err := st.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	token := signed(t, []byte("k"), jwt.MapClaims{"sub": "user-9"})
	if err := st.Save(Session{Token: token}); err != nil {
		t.Fatalf("save: %v", err)
	}
	s, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.UserID != "user-9" || s.Token != token {
		t.Fatalf("unexpected session %+v", s)
	}

	if err := st.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := st.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if _, err := st.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}

func TestStoreVerifiesWhenConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	token := signed(t, []byte("wrong"), jwt.MapClaims{"sub": "u"})
	if err := NewStore(path, nil).Save(Session{Token: token}); err != nil {
		t.Fatalf("save: %v", err)
	}
	st := NewStore(path, NewHMACVerifier([]byte("right")))
	if _, err := st.Load(); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected verification failure, got %v", err)
	}
}
