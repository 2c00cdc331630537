package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/authforge/identity-system/internal/api/metrics"
	"github.com/authforge/identity-system/internal/core/domain"
)

// Runner bounds concurrent CPU-heavy work (the hashing worker pool). A nil
// Runner means the work executes inline on the calling goroutine.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// BcryptHasher implements ports.PasswordHasher using bcrypt. The salt is
// generated per call and travels inside the digest together with the cost, so
// verification needs no side-channel. Comparison is constant-time.
type BcryptHasher struct {
	cost   int
	runner Runner
}

// NewBcryptHasher returns a hasher with the given cost factor. Costs outside
// bcrypt's valid range fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int, runner Runner) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost, runner: runner}
}

// Hash produces a fresh salted digest for password.
func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("hash password: %w", domain.ErrInvalidInput)
	}

	var (
		digest  []byte
		hashErr error
	)
	if err := h.run(ctx, func() {
		digest, hashErr = bcrypt.GenerateFromPassword([]byte(password), h.cost)
	}); err != nil {
		return "", err
	}
	if hashErr != nil {
		if errors.Is(hashErr, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("hash password: %w", domain.ErrInvalidInput)
		}
		return "", fmt.Errorf("hash password: %w", hashErr)
	}
	return string(digest), nil
}

// Verify recomputes the hash using the salt and cost embedded in digest.
// A mismatch is not an error; only an unreadable digest is.
func (h *BcryptHasher) Verify(ctx context.Context, password, digest string) (bool, error) {
	var cmpErr error
	if err := h.run(ctx, func() {
		cmpErr = bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	}); err != nil {
		return false, err
	}

	switch {
	case cmpErr == nil:
		return true, nil
	case errors.Is(cmpErr, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s", domain.ErrCorruptDigest, cmpErr)
	}
}

func (h *BcryptHasher) run(ctx context.Context, fn func()) error {
	start := time.Now()
	defer func() {
		metrics.PasswordHashDuration.Observe(time.Since(start).Seconds())
	}()

	if h.runner == nil {
		fn()
		return nil
	}
	return h.runner.Do(ctx, fn)
}
