package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "event_lock:"

// DefaultTTL bounds how long a crashed holder can keep an event locked.
const DefaultTTL = 30 * time.Second

// ErrNotHeld is returned by Unlock when the key is held by another owner.
var ErrNotHeld = errors.New("lock not held by owner")

// Locker serializes mutations of one event across service instances.
type Locker interface {
	Lock(ctx context.Context, event, owner string) (bool, error)
	Unlock(ctx context.Context, event, owner string) error
}

func Key(event string) string {
	return keyPrefix + event
}

type Redis struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{Client: client, TTL: ttl}
}

// Lock takes the event lock for owner. It does not wait: false means
// another owner holds it.
func (r *Redis) Lock(ctx context.Context, event, owner string) (bool, error) {
	return r.Client.SetNX(ctx, Key(event), owner, r.TTL).Result()
}

// Only delete the key if it still carries our owner token; the TTL may have
// handed it to someone else.
var unlockScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v == false then
	return 0
end
if v == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return -1
`)

func (r *Redis) Unlock(ctx context.Context, event, owner string) error {
	res, err := unlockScript.Run(ctx, r.Client, []string{Key(event)}, owner).Int()
	if err != nil {
		return err
	}
	if res < 0 {
		return ErrNotHeld
	}
	return nil
}

// Local is an in-process Locker for single-instance deployments and tests.
type Local struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewLocal() *Local {
	return &Local{owners: make(map[string]string)}
}

func (l *Local) Lock(_ context.Context, event, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.owners[event]; held {
		return false, nil
	}
	l.owners[event] = owner
	return true, nil
}

func (l *Local) Unlock(_ context.Context, event, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, held := l.owners[event]
	if !held {
		return nil
	}
	if current != owner {
		return ErrNotHeld
	}
	delete(l.owners, event)
	return nil
}
