// Package lockservice implements the distributed indexing lock (spec §4.3,
// §6): one renewable lock per project, held for the duration of a pipeline
// run so two workers never index the same project concurrently.
package lockservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

// keyPrefix matches the originating implementation's Redis key namespace
// exactly ("lock:indexing:<project_id>").
const keyPrefix = "lock:indexing:"

// ErrNotHeld means the lock could not be acquired because another worker
// already holds it, or, from Extend, that the caller no longer owns it.
var ErrNotHeld = errors.New("lockservice: lock not held")

// Lock is a handle to an acquired lock. Extend and Release both require the
// same handle that Acquire returned, so a worker can never release or renew
// a lock it no longer owns.
type Lock struct {
	Key   string
	Token string
}

// Service acquires, extends, and releases project indexing locks against
// Valkey.
type Service struct {
	client valkey.Client
}

func New(client valkey.Client) *Service {
	return &Service{client: client}
}

func keyFor(projectID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, projectID)
}

// Acquire attempts a non-blocking lock acquisition for projectID with the
// given TTL. It returns ErrNotHeld if another worker already holds the lock,
// matching the originating scheduler's lock.acquire(blocking=False).
func (s *Service) Acquire(ctx context.Context, projectID int64, ttl time.Duration) (*Lock, error) {
	key := keyFor(projectID)
	token := uuid.NewString()

	resp := s.client.Do(ctx, s.client.B().Set().
		Key(key).Value(token).Nx().Px(ttl).Build())
	if err := resp.Error(); err != nil {
		if errors.Is(err, valkey.Nil) {
			return nil, ErrNotHeld
		}
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	ok, err := resp.ToString()
	if err != nil || ok == "" {
		return nil, ErrNotHeld
	}
	return &Lock{Key: key, Token: token}, nil
}

// releaseScript deletes the key only if it still holds the caller's token,
// so a lock that expired and was re-acquired by someone else is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// Release gives up ownership of lock, a no-op if the lock already expired
// and was reacquired by another worker.
func (s *Service) Release(ctx context.Context, lock *Lock) error {
	resp := s.client.Do(ctx, s.client.B().Eval().
		Script(releaseScript).Numkeys(1).Key(lock.Key).Arg(lock.Token).Build())
	return resp.Error()
}

// extendScript renews the TTL only if the caller still owns the key.
const extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`

// Extend renews lock's TTL, reporting ErrNotHeld if ownership was lost in
// the meantime (the key expired and someone else took it, or it vanished).
func (s *Service) Extend(ctx context.Context, lock *Lock, ttl time.Duration) error {
	resp := s.client.Do(ctx, s.client.B().Eval().
		Script(extendScript).Numkeys(1).Key(lock.Key).Arg(lock.Token, fmt.Sprintf("%d", ttl.Milliseconds())).Build())
	if err := resp.Error(); err != nil {
		return fmt.Errorf("extend lock %s: %w", lock.Key, err)
	}
	n, err := resp.ToInt64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", lock.Key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// Locked reports whether projectID currently has a live lock, used by the
// scheduler boundary to skip projects already being indexed.
func (s *Service) Locked(ctx context.Context, projectID int64) (bool, error) {
	resp := s.client.Do(ctx, s.client.B().Exists().Key(keyFor(projectID)).Build())
	n, err := resp.ToInt64()
	if err != nil {
		return false, fmt.Errorf("check lock %d: %w", projectID, err)
	}
	return n > 0, nil
}

// ComputeExtension is the pure decision at the core of lock renewal,
// grounded on the originating implementation's extend_lock: a lock is only
// extended once more than a quarter of its TTL has elapsed since it was last
// extended, so a long-running pipeline renews the lock a handful of times
// rather than on every batch.
func ComputeExtension(lastExtendedAt, now time.Time, ttl time.Duration) (newLastExtendedAt time.Time, shouldExtend bool) {
	if ttl <= 0 {
		return lastExtendedAt, false
	}
	if now.Sub(lastExtendedAt) > ttl/4 {
		return now, true
	}
	return lastExtendedAt, false
}
