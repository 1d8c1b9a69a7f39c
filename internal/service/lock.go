package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	customError "github.com/loop2cod/madin-fee-engine/pkg/errors"
)

// AssignmentLocker serializes writers for one student's assignment so the
// balance read by the order builder and the subsequent ledger append are
// atomic with respect to other payment attempts for the same student.
type AssignmentLocker interface {
	// Lock acquires the per-assignment lock and returns a release func.
	// Returns a CONCURRENCY_CONFLICT error when another writer holds it.
	Lock(ctx context.Context, assignmentID uuid.UUID) (func(), error)
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker builds an advisory lock keyed by assignment id. The TTL
// bounds how long a crashed writer can block the student.
func NewRedisLocker(client *redis.Client, ttl time.Duration) AssignmentLocker {
	return &redisLocker{client: client, ttl: ttl}
}

// releaseScript deletes the lock only if this process still owns it, so an
// expired-and-reacquired lock is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *redisLocker) Lock(ctx context.Context, assignmentID uuid.UUID) (func(), error) {
	key := fmt.Sprintf("feelock:assignment:%s", assignmentID)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, customError.NewBusinessError(customError.ErrCodeConcurrencyConflict, "lock acquisition failed", err)
	}
	if !acquired {
		return nil, customError.WrapConcurrencyConflict(assignmentID.String())
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}

	return release, nil
}
