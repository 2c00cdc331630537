package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/authforge/identity-system/internal/core/domain"
	"github.com/authforge/identity-system/internal/core/ports"
)

type stubAccountStore struct {
	accounts  []*domain.Account
	createErr error
	findErr   error
	nextID    int
}

func newStubAccountStore() *stubAccountStore {
	return &stubAccountStore{}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

func (s *stubAccountStore) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return nil, &domain.DuplicateIdentityError{Field: "email"}
		}
		if existing.Username == account.Username {
			return nil, &domain.DuplicateIdentityError{Field: "username"}
		}
	}
	s.nextID++
	created := cloneAccount(account)
	created.ID = fmt.Sprintf("acc_%d", s.nextID)
	s.accounts = append(s.accounts, cloneAccount(created))
	return created, nil
}

func (s *stubAccountStore) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, a := range s.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *stubAccountStore) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, a := range s.accounts {
		if a.Username == username {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

type stubThrottle struct {
	failures map[string]int
	limit    int
}

func newStubThrottle(limit int) *stubThrottle {
	return &stubThrottle{failures: make(map[string]int), limit: limit}
}

func (t *stubThrottle) Allow(_ context.Context, email string) (bool, error) {
	return t.failures[email] < t.limit, nil
}

func (t *stubThrottle) RecordFailure(_ context.Context, email string) error {
	t.failures[email]++
	return nil
}

func (t *stubThrottle) Reset(_ context.Context, email string) error {
	delete(t.failures, email)
	return nil
}

func newTestCredentialService(t *testing.T, store ports.AccountStore, throttle LoginThrottle) ports.CredentialService {
	t.Helper()
	tokens, err := NewTokenService([]byte("test-secret"), time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService failed: %v", err)
	}
	hasher := NewBcryptHasher(bcrypt.MinCost, nil)
	return NewCredentialService(store, hasher, tokens, tokens, throttle, zerolog.Nop())
}

func registerInput() ports.RegisterInput {
	return ports.RegisterInput{Email: "a@x.com", Username: "alice", Password: "longenough1"}
}

func TestCredentialService_Register_Success(t *testing.T) {
	store := newStubAccountStore()
	svc := newTestCredentialService(t, store, nil)

	result, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.Identity.Username != "alice" || result.Identity.Email != "a@x.com" {
		t.Fatalf("unexpected identity: %+v", result.Identity)
	}
	if result.Identity.ID == "" {
		t.Fatalf("expected assigned account id")
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair")
	}

	stored, err := store.FindByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("stored account not found: %v", err)
	}
	if stored.PasswordHash == "longenough1" {
		t.Fatalf("password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longenough1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestCredentialService_Register_DuplicateEmail(t *testing.T) {
	store := newStubAccountStore()
	svc := newTestCredentialService(t, store, nil)

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), ports.RegisterInput{
		Email: "a@x.com", Username: "someone_else", Password: "longenough1",
	})
	var dup *domain.DuplicateIdentityError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIdentityError, got %v", err)
	}
	if dup.Field != "email" {
		t.Fatalf("expected conflicting field email, got %q", dup.Field)
	}
}

func TestCredentialService_Register_DuplicateUsername(t *testing.T) {
	store := newStubAccountStore()
	svc := newTestCredentialService(t, store, nil)

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), ports.RegisterInput{
		Email: "other@x.com", Username: "alice", Password: "longenough1",
	})
	var dup *domain.DuplicateIdentityError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIdentityError, got %v", err)
	}
	if dup.Field != "username" {
		t.Fatalf("expected conflicting field username, got %q", dup.Field)
	}
}

func TestCredentialService_Register_DuplicateBothReportsEmail(t *testing.T) {
	store := newStubAccountStore()
	svc := newTestCredentialService(t, store, nil)

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), registerInput())
	var dup *domain.DuplicateIdentityError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIdentityError, got %v", err)
	}
	if dup.Field != "email" {
		t.Fatalf("email is checked first, got %q", dup.Field)
	}
}

func TestCredentialService_Register_StoreFailure(t *testing.T) {
	store := newStubAccountStore()
	store.createErr = errors.New("connection reset")
	svc := newTestCredentialService(t, store, nil)

	if _, err := svc.Register(context.Background(), registerInput()); !errors.Is(err, domain.ErrAccountCreation) {
		t.Fatalf("expected ErrAccountCreation, got %v", err)
	}
}

func TestCredentialService_Login_Success(t *testing.T) {
	store := newStubAccountStore()
	svc := newTestCredentialService(t, store, nil)

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	result, err := svc.Login(context.Background(), ports.LoginInput{Email: "a@x.com", Password: "longenough1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Identity.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", result.Identity)
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair")
	}
}

func TestCredentialService_Login_WrongPassword(t *testing.T) {
	store := newStubAccountStore()
	svc := newTestCredentialService(t, store, nil)

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := svc.Login(context.Background(), ports.LoginInput{Email: "a@x.com", Password: "wrong0000"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCredentialService_Login_UnknownEmailSameError(t *testing.T) {
	store := newStubAccountStore()
	svc := newTestCredentialService(t, store, nil)

	// Unknown account and wrong password must be indistinguishable by kind.
	_, err := svc.Login(context.Background(), ports.LoginInput{Email: "ghost@x.com", Password: "whatever1"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCredentialService_Login_Throttled(t *testing.T) {
	store := newStubAccountStore()
	throttle := newStubThrottle(2)
	svc := newTestCredentialService(t, store, throttle)

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	bad := ports.LoginInput{Email: "a@x.com", Password: "wrong0000"}
	for i := 0; i < 2; i++ {
		if _, err := svc.Login(context.Background(), bad); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	if _, err := svc.Login(context.Background(), bad); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestCredentialService_Login_SuccessResetsThrottle(t *testing.T) {
	store := newStubAccountStore()
	throttle := newStubThrottle(3)
	svc := newTestCredentialService(t, store, throttle)

	if _, err := svc.Register(context.Background(), registerInput()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, _ = svc.Login(context.Background(), ports.LoginInput{Email: "a@x.com", Password: "wrong0000"})
	if _, err := svc.Login(context.Background(), ports.LoginInput{Email: "a@x.com", Password: "longenough1"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if throttle.failures["a@x.com"] != 0 {
		t.Fatalf("expected throttle reset after success, got %d failures", throttle.failures["a@x.com"])
	}
}

func TestCredentialService_Refresh(t *testing.T) {
	store := newStubAccountStore()
	svc := newTestCredentialService(t, store, nil)

	result, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), result.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.Identity != result.Identity {
		t.Fatalf("refresh changed identity: %+v vs %+v", refreshed.Identity, result.Identity)
	}
	if refreshed.Tokens.AccessToken == "" || refreshed.Tokens.RefreshToken == "" {
		t.Fatalf("expected a fresh token pair")
	}
}

func TestCredentialService_Refresh_RejectsAccessToken(t *testing.T) {
	store := newStubAccountStore()
	svc := newTestCredentialService(t, store, nil)

	result, err := svc.Register(context.Background(), registerInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), result.Tokens.AccessToken); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for access token, got %v", err)
	}
}
