package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTokens(t *testing.T, secret string, leeway time.Duration, now time.Time) *Tokens {
	t.Helper()
	tokens, err := NewTokens(secret, leeway)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	tokens.WithClock(func() time.Time { return now })
	return tokens
}

func TestIssuedTokenVerifies(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tokens := newTokens(t, "secret", time.Second, now)

	token, err := tokens.Issue("viewer-7", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.Subject != "viewer-7" || !claims.ExpiresAt.Equal(now.Add(time.Minute)) || !claims.IssuedAt.Equal(now) {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Unix(1700000000, 0)
	issuer := newTokens(t, "secret", 0, now.Add(-time.Hour))
	token, err := issuer.Issue("viewer-7", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := newTokens(t, "secret", 0, now).Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token, err := newTokens(t, "other-secret", 0, now).Issue("viewer-7", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := newTokens(t, "secret", 0, now).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongAudienceAndMalformedTokens(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tokens := newTokens(t, "secret", 0, now)
	cases := map[string]string{
		"audience": handMade(t, "secret", `{"sub":"v","exp":%d,"aud":"broker"}`, now.Add(time.Minute)),
		"subject":  handMade(t, "secret", `{"sub":"","exp":%d,"aud":"sdfterm-spectator"}`, now.Add(time.Minute)),
		"parts":    "abc.def",
		"empty":    "",
	}
	for name, token := range cases {
		if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestIssueValidatesInput(t *testing.T) {
	tokens := newTokens(t, "secret", 0, time.Unix(1700000000, 0))
	if _, err := tokens.Issue(" ", time.Minute); err == nil {
		t.Fatal("expected empty subject to fail")
	}
	if _, err := tokens.Issue("viewer", 0); err == nil {
		t.Fatal("expected zero ttl to fail")
	}
	if _, err := NewTokens("  ", 0); err == nil {
		t.Fatal("expected empty secret to fail")
	}
}

func handMade(t *testing.T, secret, payloadFormat string, expires time.Time) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(payloadFormat, expires.Unix())))
	signingInput := header + "." + payload
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signingInput))
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
