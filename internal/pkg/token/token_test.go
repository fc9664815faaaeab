package token

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumiereluxe/site-backend/internal/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestService_IssueValidate_RoundTrip(t *testing.T) {
	clock := newClock()
	svc := New("secret", "site", time.Hour, WithClock(clock.Now))

	for _, u := range []string{"admin", "alice", "bob.smith", "üser"} {
		tok, err := svc.Issue(u)
		if err != nil {
			t.Fatalf("issue %q: %v", u, err)
		}
		got, err := svc.Validate(tok)
		if err != nil {
			t.Fatalf("validate %q: %v", u, err)
		}
		if got != u {
			t.Fatalf("expected %q, got %q", u, got)
		}
	}
}

func TestService_Validate_ExpiresAfterWindow(t *testing.T) {
	clock := newClock()
	svc := New("secret", "site", time.Hour, WithClock(clock.Now))

	tok, err := svc.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.Advance(time.Hour - time.Second)
	if _, err := svc.Validate(tok); err != nil {
		t.Fatalf("expected token valid just before expiry, got %v", err)
	}

	clock.Advance(time.Second)
	if _, err := svc.Validate(tok); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken at expiry, got %v", err)
	}
}

func TestService_Issue_ExpiryIsIssuedAtPlusTTL(t *testing.T) {
	clock := newClock()
	svc := New("secret", "", 0, WithClock(clock.Now))
	if svc.TTL() != DefaultTTL {
		t.Fatalf("expected default ttl, got %s", svc.TTL())
	}

	tok, err := svc.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != DefaultTTL {
		t.Fatalf("expected exp-iat = %s, got %s", DefaultTTL, got)
	}
	if claims.Subject != "admin" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestService_Validate_TamperedPayload(t *testing.T) {
	svc := New("secret", "site", time.Hour)
	tok, err := svc.Issue("admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", tok)
	}
	payload := parts[1]

	for i := 0; i < len(payload); i++ {
		b := []byte(payload)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		mutated := parts[0] + "." + string(b) + "." + parts[2]
		if _, err := svc.Validate(mutated); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("mutation at %d accepted: %v", i, err)
		}
	}
}

func TestService_Validate_Rejects(t *testing.T) {
	svc := New("secret", "site", time.Hour)
	other := New("other-secret", "site", time.Hour)
	otherIssuer := New("secret", "elsewhere", time.Hour)

	foreign, _ := other.Issue("admin")
	wrongIss, _ := otherIssuer.Issue("admin")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "admin",
		Issuer:    "site",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noneTok, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "admin", Issuer: "site"})
	noExpTok, _ := noExp.SignedString([]byte("secret"))

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "site",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noSubTok, _ := noSub.SignedString([]byte("secret"))

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "admin",
		Issuer:    "site",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	hs512Tok, _ := hs512.SignedString([]byte("secret"))

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"two segments":   "abc.def",
		"foreign secret": foreign,
		"wrong issuer":   wrongIss,
		"alg none":       noneTok,
		"missing exp":    noExpTok,
		"missing sub":    noSubTok,
		"other alg":      hs512Tok,
	}
	for name, tok := range cases {
		if got, err := svc.Validate(tok); !errors.Is(err, domain.ErrInvalidToken) || got != "" {
			t.Fatalf("%s: expected ErrInvalidToken, got %q / %v", name, got, err)
		}
	}
}

func TestService_Issue_EmptyUsername(t *testing.T) {
	svc := New("secret", "site", time.Hour)
	if _, err := svc.Issue(""); err == nil {
		t.Fatalf("expected error for empty username")
	}
}

func TestService_ConcurrentUse(t *testing.T) {
	svc := New("secret", "site", time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := svc.Issue("admin")
			if err != nil {
				errs <- err
				return
			}
			if _, err := svc.Validate(tok); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent use failed: %v", err)
	}
}
