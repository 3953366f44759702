package lock

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deletes the exclusive key only when it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Extends the exclusive key only when it still holds our token.
var renewExclusiveScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Moves a writer's expiry forward only when the writer is still registered.
var renewWriterScript = redis.NewScript(`
if redis.call("ZSCORE", KEYS[1], ARGV[1]) then
	redis.call("ZADD", KEYS[1], ARGV[2], ARGV[1])
	return 1
end
return 0
`)

// RedisGuard is a Guard shared by every process using the same Redis.
//
// Writers register a token in a sorted set scored by expiry and then check
// the exclusive key; the cascade sets the exclusive key and then waits for
// the set to drain. Each side writes before it reads, so one of them always
// sees the other. Both kinds of entry are renewed every ttl/3 while held.
type RedisGuard struct {
	client       redis.UniversalClient
	exclusiveKey string
	writersKey   string
	ttl          time.Duration
	poll         time.Duration
}

func NewRedisGuard(client redis.UniversalClient, prefix string, ttl, poll time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	return &RedisGuard{
		client:       client,
		exclusiveKey: prefix + ":cascade",
		writersKey:   prefix + ":writers",
		ttl:          ttl,
		poll:         poll,
	}
}

func (g *RedisGuard) Shared(ctx context.Context) (Release, error) {
	token := uuid.NewString()
	for {
		if err := g.client.ZAdd(ctx, g.writersKey, redis.Z{Score: g.expiry(), Member: token}).Err(); err != nil {
			return nil, fmt.Errorf("lock: register writer: %w", err)
		}
		n, err := g.client.Exists(ctx, g.exclusiveKey).Result()
		if err != nil {
			g.dropWriter(token)
			return nil, fmt.Errorf("lock: check cascade: %w", err)
		}
		if n == 0 {
			// the write may outlive a cancelled request context
			kctx, stop := context.WithCancel(context.WithoutCancel(ctx))
			done := g.keepAlive(kctx, stop, func(ctx context.Context) (int64, error) {
				return renewWriterScript.Run(ctx, g.client, []string{g.writersKey}, token, g.expiry()).Int64()
			})
			return once(func() {
				stop()
				<-done
				g.dropWriter(token)
			}), nil
		}
		g.dropWriter(token)
		if err := g.wait(ctx); err != nil {
			return nil, err
		}
	}
}

func (g *RedisGuard) Exclusive(ctx context.Context) (context.Context, Release, error) {
	token := uuid.NewString()
	for {
		ok, err := g.client.SetNX(ctx, g.exclusiveKey, token, g.ttl).Result()
		if err != nil {
			return nil, nil, fmt.Errorf("lock: acquire cascade: %w", err)
		}
		if ok {
			break
		}
		if err := g.wait(ctx); err != nil {
			return nil, nil, err
		}
	}

	lease, lost := context.WithCancel(ctx)
	done := g.keepAlive(lease, lost, func(ctx context.Context) (int64, error) {
		return renewExclusiveScript.Run(ctx, g.client, []string{g.exclusiveKey}, token, g.ttl.Milliseconds()).Int64()
	})
	release := once(func() {
		lost()
		<-done
		g.unlock(token)
	})

	for {
		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		if err := g.client.ZRemRangeByScore(lease, g.writersKey, "-inf", "("+now).Err(); err != nil {
			release()
			return nil, nil, fmt.Errorf("lock: prune writers: %w", err)
		}
		n, err := g.client.ZCard(lease, g.writersKey).Result()
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("lock: count writers: %w", err)
		}
		if n == 0 {
			return lease, release, nil
		}
		if err := g.wait(lease); err != nil {
			release()
			return nil, nil, err
		}
	}
}

// keepAlive calls renew every ttl/3 until ctx ends. A renewal that errors or
// finds the entry gone calls lost and stops.
func (g *RedisGuard) keepAlive(ctx context.Context, lost context.CancelFunc, renew func(context.Context) (int64, error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(g.ttl / 3)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			n, err := renew(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil || n == 0 {
				lost()
				return
			}
		}
	}()
	return done
}

func (g *RedisGuard) expiry() float64 {
	return float64(time.Now().Add(g.ttl).UnixMilli())
}

func (g *RedisGuard) wait(ctx context.Context) error {
	t := time.NewTimer(g.poll)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (g *RedisGuard) dropWriter(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g.client.ZRem(ctx, g.writersKey, token)
}

func (g *RedisGuard) unlock(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	unlockScript.Run(ctx, g.client, []string{g.exclusiveKey}, token)
}
