package security

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// MinCost is the lowest bcrypt cost the hasher accepts.
const MinCost = 10

// Hasher hashes and verifies passwords with bcrypt. Work is admitted through
// a bounded pool so that a burst of logins cannot occupy every CPU.
type Hasher struct {
	cost    int
	workers *semaphore.Weighted
}

func NewHasher(cost, workers int) *Hasher {
	if cost < MinCost {
		cost = MinCost
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Hasher{
		cost:    cost,
		workers: semaphore.NewWeighted(int64(workers)),
	}
}

func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt digest of plaintext.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.workers.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.workers.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest is a
// mismatch, not an error; the only error is failing to get a worker.
func (h *Hasher) Verify(ctx context.Context, plaintext, digest string) (bool, error) {
	if err := h.workers.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.workers.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	return err == nil, nil
}
