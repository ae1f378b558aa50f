package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an untouched cart survives.
const DefaultTTL = 30 * 24 * time.Hour

// Store persists carts. Satisfied by *RedisStore.
type Store interface {
	Items(ctx context.Context, customer uuid.UUID) ([]Item, error)
	Get(ctx context.Context, customer uuid.UUID, key string) (Item, error)
	Put(ctx context.Context, customer uuid.UUID, item Item) error
	Delete(ctx context.Context, customer uuid.UUID, keys ...string) error
	Clear(ctx context.Context, customer uuid.UUID) error
	SetSelected(ctx context.Context, customer uuid.UUID, keys []string) error
	Deselect(ctx context.Context, customer uuid.UUID, keys ...string) error
	Selected(ctx context.Context, customer uuid.UUID) ([]string, error)
	// Lock holds the customer's cart until release is called.
	Lock(ctx context.Context, customer uuid.UUID) (release func() error, err error)
}

const (
	// lockTTL outlives one mutation including its upstream call.
	lockTTL      = 30 * time.Second
	lockAttempts = 10
	lockRetry    = 50 * time.Millisecond
)

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps each cart in a hash of key -> JSON item, plus a set of the
// keys selected for checkout.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func itemsKey(customer uuid.UUID) string    { return "cart:" + customer.String() + ":items" }
func selectedKey(customer uuid.UUID) string { return "cart:" + customer.String() + ":selected" }
func lockKey(customer uuid.UUID) string     { return "cart:" + customer.String() + ":lock" }

// Items returns the cart in the order items were first added.
func (s *RedisStore) Items(ctx context.Context, customer uuid.UUID) ([]Item, error) {
	raw, err := s.rdb.HGetAll(ctx, itemsKey(customer)).Result()
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	items := make([]Item, 0, len(raw))
	for field, v := range raw {
		var it Item
		if err := json.Unmarshal([]byte(v), &it); err != nil {
			return nil, fmt.Errorf("decode cart item %q: %w", field, err)
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].Key < items[j].Key
	})
	return items, nil
}

func (s *RedisStore) Get(ctx context.Context, customer uuid.UUID, key string) (Item, error) {
	v, err := s.rdb.HGet(ctx, itemsKey(customer), key).Result()
	if errors.Is(err, redis.Nil) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("load cart item: %w", err)
	}
	var it Item
	if err := json.Unmarshal([]byte(v), &it); err != nil {
		return Item{}, fmt.Errorf("decode cart item %q: %w", key, err)
	}
	return it, nil
}

func (s *RedisStore) Put(ctx context.Context, customer uuid.UUID, item Item) error {
	b, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode cart item: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, itemsKey(customer), item.Key, b)
		p.Expire(ctx, itemsKey(customer), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save cart item: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, customer uuid.UUID, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.HDel(ctx, itemsKey(customer), keys...).Err(); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, customer uuid.UUID) error {
	if err := s.rdb.Del(ctx, itemsKey(customer), selectedKey(customer)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// SetSelected replaces the selection with keys.
func (s *RedisStore) SetSelected(ctx context.Context, customer uuid.UUID, keys []string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, selectedKey(customer))
		if len(keys) > 0 {
			members := make([]any, len(keys))
			for i, k := range keys {
				members[i] = k
			}
			p.SAdd(ctx, selectedKey(customer), members...)
			p.Expire(ctx, selectedKey(customer), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

func (s *RedisStore) Deselect(ctx context.Context, customer uuid.UUID, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]any, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	if err := s.rdb.SRem(ctx, selectedKey(customer), members...).Err(); err != nil {
		return fmt.Errorf("update selection: %w", err)
	}
	return nil
}

func (s *RedisStore) Selected(ctx context.Context, customer uuid.UUID) ([]string, error) {
	keys, err := s.rdb.SMembers(ctx, selectedKey(customer)).Result()
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Lock takes a SET NX lock on the customer's cart so concurrent mutations,
// including from other instances, apply one at a time. It gives up with
// ErrCartBusy after a short wait.
func (s *RedisStore) Lock(ctx context.Context, customer uuid.UUID) (func() error, error) {
	key := lockKey(customer)
	token := uuid.NewString()
	for attempt := 1; ; attempt++ {
		ok, err := s.rdb.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock cart: %w", err)
		}
		if ok {
			break
		}
		if attempt == lockAttempts {
			return nil, ErrCartBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}

	release := func() error {
		if err := unlockScript.Run(context.WithoutCancel(ctx), s.rdb, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("unlock cart: %w", err)
		}
		return nil
	}
	return release, nil
}
