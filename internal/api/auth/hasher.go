package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost is 2^10 rounds, the work factor stored hashes are made with
// unless configuration says otherwise.
const DefaultBcryptCost = 10

// PasswordHasher turns plaintext passwords into salted one-way hashes and
// checks plaintexts against them.
type PasswordHasher interface {
	// Hash returns a hash with its salt and cost embedded.
	Hash(ctx context.Context, plaintext string) (string, error)
	// Verify reports whether plaintext matches hashed. A non-nil error means
	// the check could not be made; it is never a mismatch.
	Verify(ctx context.Context, plaintext, hashed string) (bool, error)
}

var _ PasswordHasher = (*BcryptHasher)(nil)

// BcryptHasher is a bcrypt PasswordHasher. A weighted semaphore caps how many
// hashes run at once so a burst of logins cannot pin every CPU.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewBcryptHasher returns a hasher with the given cost (0 means
// DefaultBcryptCost) and at most maxConcurrent simultaneous operations
// (0 means GOMAXPROCS).
func NewBcryptHasher(cost int, maxConcurrent int64) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = int64(runtime.GOMAXPROCS(0))
	}
	return &BcryptHasher{cost: cost, sem: semaphore.NewWeighted(maxConcurrent)}, nil
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", newError(KindStoreUnavailable, "Hash", err)
	}
	defer h.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", newError(KindInvalidInput, "Hash", err)
		}
		return "", newError(KindStoreUnavailable, "Hash", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hashed string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, newError(KindStoreUnavailable, "Verify", err)
	}
	defer h.sem.Release(1)

	// CompareHashAndPassword compares digests with subtle.ConstantTimeCompare.
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, newError(KindStoreUnavailable, "Verify", err)
	}
}
