package cache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const runLockKeyPrefix = "kpi:lock"

// unlockScript deletes the lock only while it still belongs to the caller.
var unlockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RunLock serializes engine runs that share a tenant and date.
type RunLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RunLockKey is the lock name of a tenant and date.
func RunLockKey(tenantID, asOfDate string) string {
	return tenantID + ":" + asOfDate
}

type redisRunLock struct {
	client *redis.Client
	owner  string
}

// NewRedisRunLock locks across instances with SET NX. The owner token is
// unique per process so one instance cannot release another's lock.
func NewRedisRunLock(client *redis.Client) RunLock {
	hostname, _ := os.Hostname()
	return &redisRunLock{
		client: client,
		owner:  fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()),
	}
}

func (l *redisRunLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, runLockKeyPrefix+":"+key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	return ok, nil
}

func (l *redisRunLock) Unlock(ctx context.Context, key string) error {
	released, err := unlockScript.Run(ctx, l.client, []string{runLockKeyPrefix + ":" + key}, l.owner).Int64()
	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	if released == 0 {
		log.Warn().Str("key", key).Msg("run lock expired or held by another instance")
	}
	return nil
}

type localRunLock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewLocalRunLock locks within this process only. It is used when Redis is
// not configured.
func NewLocalRunLock() RunLock {
	return &localRunLock{held: make(map[string]time.Time), clock: time.Now}
}

func (l *localRunLock) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *localRunLock) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.held, key)
	l.mu.Unlock()
	return nil
}
