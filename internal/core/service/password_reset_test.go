package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumiereluxe/site-backend/internal/core/domain"
	"github.com/lumiereluxe/site-backend/internal/core/ports"
	"github.com/lumiereluxe/site-backend/internal/pkg/password"
)

type stubMailer struct {
	mu   sync.Mutex
	sent []ports.ResetMail
	err  error
}

func (m *stubMailer) SendReset(_ context.Context, mail ports.ResetMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *stubMailer) last(t *testing.T) ports.ResetMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("no reset mail sent")
	}
	return m.sent[len(m.sent)-1]
}

type resetFixture struct {
	repo   *stubAdminRepo
	mailer *stubMailer
	svc    *PasswordResetService
	hasher *password.BcryptHasher
	now    time.Time
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	f := &resetFixture{
		repo:   newStubAdminRepo(),
		mailer: &stubMailer{},
		hasher: password.NewBcryptHasher(bcrypt.MinCost),
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewPasswordResetService(f.repo, f.hasher, f.mailer, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }

	hash, err := f.hasher.Hash("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	_, _ = f.repo.Create(context.Background(), &domain.Admin{
		Username:     "admin",
		Email:        "admin@slimming.com",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	return f
}

func (f *resetFixture) passwordIs(pw string) bool {
	return f.hasher.Verify(pw, f.repo.get("admin").PasswordHash)
}

func TestPasswordReset_RequestIssuesToken(t *testing.T) {
	f := newResetFixture(t)

	if err := f.svc.RequestReset(context.Background(), "admin"); err != nil {
		t.Fatalf("request reset: %v", err)
	}

	mail := f.mailer.last(t)
	if mail.Token == "" || mail.To != "admin@slimming.com" || mail.Username != "admin" {
		t.Fatalf("unexpected mail: %+v", mail)
	}
	stored := f.repo.get("admin")
	if stored.ResetTokenHash == mail.Token {
		t.Fatalf("reset token stored in clear")
	}
	if stored.ResetTokenHash != hashResetToken(mail.Token) {
		t.Fatalf("stored digest does not match token")
	}
	if stored.ResetTokenExpiry == nil || !stored.ResetTokenExpiry.Equal(f.now.Add(time.Hour)) {
		t.Fatalf("expected expiry one hour out, got %v", stored.ResetTokenExpiry)
	}
	if !mail.Expires.Equal(f.now.Add(time.Hour)) {
		t.Fatalf("mail expiry mismatch: %v", mail.Expires)
	}
}

func TestPasswordReset_UnknownUserLooksLikeSuccess(t *testing.T) {
	f := newResetFixture(t)

	if err := f.svc.RequestReset(context.Background(), "ghost"); err != nil {
		t.Fatalf("expected nil for unknown user, got %v", err)
	}
	if err := f.svc.RequestReset(context.Background(), "  "); err != nil {
		t.Fatalf("expected nil for blank user, got %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("mail sent for unknown user")
	}
}

func TestPasswordReset_MailFailureIsSwallowed(t *testing.T) {
	f := newResetFixture(t)
	f.mailer.err = errors.New("smtp down")

	if err := f.svc.RequestReset(context.Background(), "admin"); err != nil {
		t.Fatalf("mail failure surfaced: %v", err)
	}
	if f.repo.get("admin").ResetTokenHash == "" {
		t.Fatalf("token should still be stored")
	}
}

func TestPasswordReset_SingleUse(t *testing.T) {
	f := newResetFixture(t)
	_ = f.svc.RequestReset(context.Background(), "admin")
	tok := f.mailer.last(t).Token

	if err := f.svc.ResetPassword(context.Background(), tok, "newpass1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !f.passwordIs("newpass1") {
		t.Fatalf("password not updated")
	}
	stored := f.repo.get("admin")
	if stored.ResetTokenHash != "" || stored.ResetTokenExpiry != nil {
		t.Fatalf("reset fields not cleared: %+v", stored)
	}

	if err := f.svc.ResetPassword(context.Background(), tok, "newpass2"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected second use rejected, got %v", err)
	}
	if !f.passwordIs("newpass1") {
		t.Fatalf("second use changed the password")
	}
}

func TestPasswordReset_ExpiresAfterOneHour(t *testing.T) {
	f := newResetFixture(t)
	_ = f.svc.RequestReset(context.Background(), "admin")
	tok := f.mailer.last(t).Token

	f.now = f.now.Add(time.Hour + time.Second)
	if err := f.svc.ResetPassword(context.Background(), tok, "newpass1"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
	if !f.passwordIs("admin123") {
		t.Fatalf("expired token changed the password")
	}
}

func TestPasswordReset_ExactExpiryRejected(t *testing.T) {
	f := newResetFixture(t)
	_ = f.svc.RequestReset(context.Background(), "admin")
	tok := f.mailer.last(t).Token

	f.now = f.now.Add(time.Hour)
	if err := f.svc.ResetPassword(context.Background(), tok, "newpass1"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("expected token rejected at its expiry instant, got %v", err)
	}
}

func TestPasswordReset_WrongTokenSameErrorAsExpired(t *testing.T) {
	f := newResetFixture(t)
	_ = f.svc.RequestReset(context.Background(), "admin")

	wrong := f.svc.ResetPassword(context.Background(), "not-the-token", "newpass1")
	empty := f.svc.ResetPassword(context.Background(), "", "newpass1")
	if !errors.Is(wrong, domain.ErrInvalidResetToken) || wrong != empty {
		t.Fatalf("expected identical errors, got %v / %v", wrong, empty)
	}
}

func TestPasswordReset_WeakPasswordLeavesStateUnchanged(t *testing.T) {
	f := newResetFixture(t)
	_ = f.svc.RequestReset(context.Background(), "admin")
	tok := f.mailer.last(t).Token

	if err := f.svc.ResetPassword(context.Background(), tok, "12345"); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if !f.passwordIs("admin123") {
		t.Fatalf("weak password was stored")
	}
	if f.repo.get("admin").ResetTokenHash == "" {
		t.Fatalf("weak password attempt consumed the token")
	}

	if err := f.svc.ResetPassword(context.Background(), tok, "123456"); err != nil {
		t.Fatalf("six characters must be accepted: %v", err)
	}
}

func TestPasswordReset_NewRequestReplacesPending(t *testing.T) {
	f := newResetFixture(t)
	_ = f.svc.RequestReset(context.Background(), "admin")
	first := f.mailer.last(t).Token
	_ = f.svc.RequestReset(context.Background(), "admin")
	second := f.mailer.last(t).Token

	if first == second {
		t.Fatalf("expected fresh token")
	}
	if err := f.svc.ResetPassword(context.Background(), first, "newpass1"); !errors.Is(err, domain.ErrInvalidResetToken) {
		t.Fatalf("superseded token accepted: %v", err)
	}
	if err := f.svc.ResetPassword(context.Background(), second, "newpass1"); err != nil {
		t.Fatalf("current token rejected: %v", err)
	}
}

func TestPasswordReset_RandomSourceFailure(t *testing.T) {
	f := newResetFixture(t)
	f.svc.random = bytes.NewReader(nil)

	if err := f.svc.RequestReset(context.Background(), "admin"); err == nil {
		t.Fatalf("expected error when randomness is unavailable")
	}
	if f.repo.get("admin").ResetTokenHash != "" {
		t.Fatalf("token stored despite generation failure")
	}
}
