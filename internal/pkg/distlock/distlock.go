package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/netsuite-kpi/internal/config"
	"github.com/ignite/netsuite-kpi/internal/pkg/logger"
)

var (
	// ErrLockHeld is returned by Guard when another run owns the lock.
	ErrLockHeld = errors.New("another refresh run holds the lock")
	// ErrLockLost is returned by Guard when the lock expired or was taken
	// over while fn was running.
	ErrLockLost = errors.New("refresh run lost the lock")
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// expiringLock is a lock that lapses after TTL unless extended.
type expiringLock interface {
	TTL() time.Duration
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
}

// Open creates the lock described by cfg. Redis is preferred for
// cross-host locking; a PostgreSQL DSN selects an advisory lock; with
// neither, runs are not serialized. The returned close func releases
// backend connections and is always non-nil.
func Open(ctx context.Context, cfg config.LockConfig) (DistLock, func() error, error) {
	switch {
	case cfg.RedisURL != "":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, noClose, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		return NewRedisLock(client, cfg.Key, cfg.TTL()), client.Close, nil

	case cfg.PostgresDSN != "":
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, noClose, fmt.Errorf("failed to open lock database: %w", err)
		}
		return NewPGAdvisoryLock(db, cfg.Key), db.Close, nil

	default:
		return NopLock{}, noClose, nil
	}
}

func noClose() error { return nil }

// Guard runs fn while holding lock. It returns ErrLockHeld without calling
// fn when the lock is taken. An expiring lock is extended every third of its
// TTL; if an extension finds the lock gone, fn's context is cancelled and the
// error wraps ErrLockLost. Release errors are logged; fn's result wins.
func Guard(ctx context.Context, lock DistLock, fn func(context.Context) error) error {
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	defer func() {
		// The run may have been cancelled; release on a fresh context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			logger.Warn("failed to release run lock", "error", err)
		}
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if el, ok := lock.(expiringLock); ok && el.TTL() > 0 {
		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			keepAlive(runCtx, el, stop, cancel)
		}()
		defer func() {
			close(stop)
			<-done
		}()
	}

	err = fn(runCtx)
	if err != nil && errors.Is(context.Cause(runCtx), ErrLockLost) {
		return fmt.Errorf("%w: %w", ErrLockLost, err)
	}
	return err
}

// keepAlive extends lock until stop closes or ctx ends. Transient extend
// errors are retried on the next tick.
func keepAlive(ctx context.Context, lock expiringLock, stop <-chan struct{}, cancel context.CancelCauseFunc) {
	ttl := lock.TTL()
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := lock.Extend(ctx, ttl)
			if err != nil {
				logger.Warn("failed to extend run lock", "error", err)
				continue
			}
			if !ok {
				logger.Error("run lock expired or was taken over; cancelling run")
				cancel(ErrLockLost)
				return
			}
		}
	}
}

// NopLock always succeeds. It is used when no lock backend is configured.
type NopLock struct{}

// Acquire implements DistLock.
func (NopLock) Acquire(context.Context) (bool, error) { return true, nil }

// Release implements DistLock.
func (NopLock) Release(context.Context) error { return nil }

// =============================================================================
// PostgreSQL Advisory Lock
// =============================================================================
// pg_try_advisory_lock is session-scoped, so the lock pins one connection from
// the pool between Acquire and Release. If the process dies the server drops
// the session and the lock with it.

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock without blocking.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("failed to acquire advisory lock %d: %w", l.lockID, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release releases the advisory lock and returns the connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
