// Package retry applies a bounded fixed-delay retry policy to
// provider calls. The policy is an explicit value so it can be
// configured per provider and swapped out in tests.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/finqa-cli/internal/core/domain"
)

// Policy is a bounded fixed-delay retry policy.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the
	// first. Values below 1 mean a single attempt.
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// Default matches the ingestion pipeline's provider budget:
// three attempts, 20 seconds apart.
var Default = Policy{MaxAttempts: 3, Delay: 20 * time.Second}

// Do runs op under the policy. Input and authentication errors are
// never retried; everything else is treated as transient. The last
// error is returned after the attempt budget is exhausted.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrAuthInvalid) || errors.Is(err, domain.ErrInvalidInput) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	return backoff.Retry(wrapped, backoff.WithContext(bo, ctx))
}
