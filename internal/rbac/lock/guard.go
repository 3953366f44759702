package lock

import (
	"context"
	"sync"
)

// Release gives back a held lock. It is safe to call more than once.
type Release func()

// Guard serializes role deletion cascades against resource writes. Writers
// hold it shared; a cascade holds it exclusively so no write can bring back a
// role that is being removed.
//
// Exclusive returns a context derived from ctx that is cancelled when the
// lock is released or lost. Work done under the lock should use it.
type Guard interface {
	Shared(ctx context.Context) (Release, error)
	Exclusive(ctx context.Context) (context.Context, Release, error)
}

// LocalGuard is a Guard for a single process.
type LocalGuard struct {
	mu sync.RWMutex
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

func (g *LocalGuard) Shared(ctx context.Context) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	return once(g.mu.RUnlock), nil
}

func (g *LocalGuard) Exclusive(ctx context.Context) (context.Context, Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	g.mu.Lock()
	lease, cancel := context.WithCancel(ctx)
	return lease, once(func() {
		cancel()
		g.mu.Unlock()
	}), nil
}

func once(fn func()) Release {
	var o sync.Once
	return func() { o.Do(fn) }
}
