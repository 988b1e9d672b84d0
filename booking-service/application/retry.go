package application

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/draftea/booking-system/booking-service/domain"
)

// RetryPolicy bounds the local retries of store calls
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxTries:        3,
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

// withStoreRetry retries op while it fails with a PersistenceError. Any other
// error, such as not found, is returned at once.
func withStoreRetry[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval

	maxTries := policy.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !domain.IsPersistenceError(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxTries))
}
