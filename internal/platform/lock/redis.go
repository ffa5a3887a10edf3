package lock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// ErrLockTimeout is returned when a distributed lock could not be taken within the wait budget.
var ErrLockTimeout = eris.New("timed out waiting for distributed lock")

const (
	defaultTTL           = 10 * time.Second
	defaultWait          = 5 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
	defaultPrefix        = "lock:"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisOptions configures a RedisLocker.
type RedisOptions struct {
	Client redis.Cmdable
	// TTL bounds how long a crashed holder can block others.
	TTL           time.Duration
	Wait          time.Duration
	RetryInterval time.Duration
	Prefix        string
	Logger        *logrus.Logger
}

// RedisLocker is a single-instance Redis lock (SET NX PX with a random token).
type RedisLocker struct {
	client        redis.Cmdable
	ttl           time.Duration
	wait          time.Duration
	retryInterval time.Duration
	prefix        string
	logger        *logrus.Logger
}

// NewRedisLocker validates options and applies defaults.
func NewRedisLocker(opts RedisOptions) (*RedisLocker, error) {
	if opts.Client == nil {
		return nil, eris.New("redis client is required")
	}

	locker := &RedisLocker{
		client:        opts.Client,
		ttl:           opts.TTL,
		wait:          opts.Wait,
		retryInterval: opts.RetryInterval,
		prefix:        opts.Prefix,
		logger:        opts.Logger,
	}
	if locker.ttl <= 0 {
		locker.ttl = defaultTTL
	}
	if locker.wait <= 0 {
		locker.wait = defaultWait
	}
	if locker.retryInterval <= 0 {
		locker.retryInterval = defaultRetryInterval
	}
	if locker.prefix == "" {
		locker.prefix = defaultPrefix
	}

	return locker, nil
}

// NewRedisClient parses a redis:// URL and verifies the server answers a PING.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, eris.New("redis URL is required")
	}

	redisOpts, err := redis.ParseURL(trimmed)
	if err != nil {
		return nil, eris.Wrap(err, "parsing redis URL")
	}

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "pinging redis")
	}

	return client, nil
}

// Lock polls SET NX until it owns key, the wait budget runs out, or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, eris.Wrapf(err, "acquiring redis lock %s", fullKey)
		}
		if acquired {
			return l.releaser(fullKey, token), nil
		}

		if !time.Now().Before(deadline) {
			return nil, eris.Wrapf(ErrLockTimeout, "lock %s held for more than %s", fullKey, l.wait)
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, eris.Wrapf(ctx.Err(), "waiting for redis lock %s", fullKey)
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be cancelled; releasing must still happen.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && l.logger != nil {
				l.logger.WithFields(logrus.Fields{
					"key":   key,
					"error": err.Error(),
				}).Warn("releasing redis lock failed")
			}
		})
	}
}
