package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/deliverydesk/internal/domain"
	"github.com/Domenick1991/deliverydesk/internal/logging"
	"github.com/Domenick1991/deliverydesk/internal/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseTimeout = 2 * time.Second

// Deletes the key only while it still holds our token, so a holder whose
// TTL ran out never removes a lock that someone else acquired since.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type LockOptions struct {
	// TTL bounds how long a crashed holder can block others. An operation
	// that outlives it is no longer protected.
	TTL        time.Duration
	RetryDelay time.Duration
	MaxRetries int
}

// Locker is a SET NX based mutual exclusion per resource key.
type Locker struct {
	client redis.UniversalClient
	opts   LockOptions
}

func NewLocker(client redis.UniversalClient, opts LockOptions) *Locker {
	return &Locker{client: client, opts: opts}
}

type Lock struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *Lock) Key() string {
	return l.key
}

// Release deletes the lock if this holder still owns it. Returns false when
// the lock had already expired or been taken over.
func (l *Lock) Release(ctx context.Context) (bool, error) {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return false, fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if n == 0 {
		metrics.LockReleaseMisses.Inc()
		return false, nil
	}
	return true, nil
}

// Acquire tries SET NX with a fresh owner token, sleeping RetryDelay between
// attempts. After MaxRetries failed retries it returns domain.ErrLockTimeout.
func (l *Locker) Acquire(ctx context.Context, resource string) (*Lock, error) {
	key := lockKey(resource)
	token := uuid.NewString()
	start := time.Now()

	for attempt := 0; ; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			metrics.LockWaitSeconds.WithLabelValues("error").Observe(time.Since(start).Seconds())
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			metrics.LockWaitSeconds.WithLabelValues("acquired").Observe(time.Since(start).Seconds())
			return &Lock{client: l.client, key: key, token: token}, nil
		}
		if attempt >= l.opts.MaxRetries {
			metrics.LockWaitSeconds.WithLabelValues("timeout").Observe(time.Since(start).Seconds())
			return nil, domain.NewDetailError(domain.ErrLockTimeout,
				map[string]any{"resource": resource, "attempts": attempt + 1},
				"resource %s is busy, try again", resource)
		}

		timer := time.NewTimer(l.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// WithLock runs fn while holding the lock for resource. Release happens even
// if ctx is cancelled while fn runs.
func (l *Locker) WithLock(ctx context.Context, resource string, fn func(ctx context.Context) error) error {
	lock, err := l.Acquire(ctx, resource)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		released, err := lock.Release(releaseCtx)
		switch {
		case err != nil:
			logging.Ctx(ctx).Error().Err(err).Str("lock", lock.Key()).Msg("lock release failed")
		case !released:
			logging.Ctx(ctx).Warn().Str("lock", lock.Key()).Msg("lock expired before release")
		}
	}()
	return fn(ctx)
}

func lockKey(resource string) string {
	return "lock:" + resource
}
