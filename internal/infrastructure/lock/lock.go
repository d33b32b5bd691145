// Package lock provides the mutual exclusion held for the duration of a
// pipeline run, in process or shared through Redis.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/unify/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultTTL bounds how long a crashed holder can block other runs
const DefaultTTL = 30 * time.Minute

// Locker hands out named leases. Acquire fails with shared.ErrRunInProgress
// while another holder's lease is live.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, err error)
}

func held(name string) error {
	return fmt.Errorf("lock %q: %w", name, shared.ErrRunInProgress)
}

func newToken() string {
	return uuid.NewString()
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
