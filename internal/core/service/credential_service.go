package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/authforge/identity-system/internal/api/metrics"
	"github.com/authforge/identity-system/internal/core/domain"
	"github.com/authforge/identity-system/internal/core/ports"
)

// LoginThrottle abstracts the failed-attempt limiter (Redis). A nil throttle
// disables throttling entirely.
type LoginThrottle interface {
	Allow(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type credentialService struct {
	store     ports.AccountStore
	hasher    ports.PasswordHasher
	issuer    ports.TokenIssuer
	validator ports.TokenValidator
	throttle  LoginThrottle
	log       zerolog.Logger
}

// NewCredentialService returns a CredentialService implementation.
func NewCredentialService(
	store ports.AccountStore,
	hasher ports.PasswordHasher,
	issuer ports.TokenIssuer,
	validator ports.TokenValidator,
	throttle LoginThrottle,
	log zerolog.Logger,
) ports.CredentialService {
	return &credentialService{
		store:     store,
		hasher:    hasher,
		issuer:    issuer,
		validator: validator,
		throttle:  throttle,
		log:       log,
	}
}

// Register hashes the password, persists a new account, and issues a token
// pair for it. Conflicts are checked email-first so a registration colliding
// on both fields always reports the email.
func (s *credentialService) Register(ctx context.Context, in ports.RegisterInput) (*domain.AuthResult, error) {
	if dupErr, err := s.checkDuplicates(ctx, in); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	} else if dupErr != nil {
		metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		return nil, dupErr
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.store.Create(ctx, &domain.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// A concurrent registration can still win the race past the
		// pre-checks; the store reports it as the same typed conflict.
		var dup *domain.DuplicateIdentityError
		if errors.As(err, &dup) {
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("account persistence failed during registration")
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountCreation, err)
	}

	tokens, err := s.issuer.IssueTokenPair(created.Public())
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return &domain.AuthResult{Identity: created.Public(), Tokens: tokens}, nil
}

// Login verifies the supplied credentials and issues a token pair. An unknown
// email and a wrong password both surface as ErrInvalidCredentials; the
// distinction is only ever logged internally.
func (s *credentialService) Login(ctx context.Context, in ports.LoginInput) (*domain.AuthResult, error) {
	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, in.Email)
		if err != nil {
			s.log.Warn().Err(err).Msg("login throttle check failed, allowing attempt")
		} else if !allowed {
			metrics.LoginsTotal.WithLabelValues("throttled").Inc()
			return nil, domain.ErrTooManyAttempts
		}
	}

	account, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.log.Debug().Msg("login rejected: unknown email")
			s.recordFailure(ctx, in.Email)
			metrics.LoginsTotal.WithLabelValues("rejected").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, in.Password, account.PasswordHash)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("stored password digest unreadable")
		return nil, err
	}
	if !ok {
		s.log.Debug().Msg("login rejected: password mismatch")
		s.recordFailure(ctx, in.Email)
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, in.Email); err != nil {
			s.log.Warn().Err(err).Msg("failed to reset login throttle")
		}
	}

	tokens, err := s.issuer.IssueTokenPair(account.Public())
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return &domain.AuthResult{Identity: account.Public(), Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The account is
// re-fetched so the new pair reflects the current identity; the old refresh
// token stays valid until it expires (stateless model, no revocation).
func (s *credentialService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	claims, err := s.validator.Validate(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != domain.TokenKindRefresh {
		return nil, domain.ErrTokenInvalid
	}

	account, err := s.store.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	tokens, err := s.issuer.IssueTokenPair(account.Public())
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return &domain.AuthResult{Identity: account.Public(), Tokens: tokens}, nil
}

// checkDuplicates looks up email then username so conflict reporting is
// deterministic. The returned dupErr is nil when both fields are free.
func (s *credentialService) checkDuplicates(ctx context.Context, in ports.RegisterInput) (dupErr, err error) {
	if _, err := s.store.FindByEmail(ctx, in.Email); err == nil {
		return &domain.DuplicateIdentityError{Field: "email"}, nil
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		s.log.Error().Err(err).Msg("duplicate pre-check failed")
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountCreation, err)
	}

	if _, err := s.store.FindByUsername(ctx, in.Username); err == nil {
		return &domain.DuplicateIdentityError{Field: "username"}, nil
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		s.log.Error().Err(err).Msg("duplicate pre-check failed")
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountCreation, err)
	}

	return nil, nil
}

func (s *credentialService) recordFailure(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to record login failure")
	}
}
