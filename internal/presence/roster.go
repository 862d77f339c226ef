package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Roster is the set of users currently checked in. Apply ignores an update
// that is not newer than the last one applied for the same user, so
// events may arrive out of order.
type Roster interface {
	Apply(ctx context.Context, userID string, present bool, at time.Time) (bool, error)
	Members(ctx context.Context) ([]string, error)
}

// applyScript keeps the set and the per-user watermark (unix microseconds)
// in step. KEYS[1] set, KEYS[2] hash; ARGV user, micros, present.
var applyScript = redis.NewScript(`
local last = redis.call('HGET', KEYS[2], ARGV[1])
if last and tonumber(last) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
if ARGV[3] == '1' then
	redis.call('SADD', KEYS[1], ARGV[1])
else
	redis.call('SREM', KEYS[1], ARGV[1])
end
return 1
`)

// RedisRoster keeps the roster in a Redis set so the API and worker share it.
type RedisRoster struct {
	client  *redis.Client
	key     string
	seenKey string
}

// NewRedisRoster creates a roster stored under key, with the per-user
// watermarks under key+":seen".
func NewRedisRoster(client *redis.Client, key string) *RedisRoster {
	if key == "" {
		key = "timeclock:present"
	}
	return &RedisRoster{client: client, key: key, seenKey: key + ":seen"}
}

func (r *RedisRoster) Apply(ctx context.Context, userID string, present bool, at time.Time) (bool, error) {
	flag := "0"
	if present {
		flag = "1"
	}
	n, err := applyScript.Run(ctx, r.client, []string{r.key, r.seenKey}, userID, at.UnixMicro(), flag).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Members returns the roster sorted by user id.
func (r *RedisRoster) Members(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// MemoryRoster is a process-local Roster.
type MemoryRoster struct {
	mu   sync.RWMutex
	ids  map[string]struct{}
	seen map[string]time.Time
}

func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{
		ids:  make(map[string]struct{}),
		seen: make(map[string]time.Time),
	}
}

func (r *MemoryRoster) Apply(_ context.Context, userID string, present bool, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.seen[userID]; ok && !at.After(last) {
		return false, nil
	}
	r.seen[userID] = at
	if present {
		r.ids[userID] = struct{}{}
	} else {
		delete(r.ids, userID)
	}
	return true, nil
}

func (r *MemoryRoster) Members(context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
