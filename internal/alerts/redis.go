package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each collection as a list of JSON entries plus a set of ids.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func listKey(identity string) string { return fmt.Sprintf("alerts:%s:list", identity) }
func idsKey(identity string) string  { return fmt.Sprintf("alerts:%s:ids", identity) }

func (s *RedisStore) Replace(ctx context.Context, identity string, list []Entry) error {
	values := make([]any, 0, len(list))
	ids := make([]any, 0, len(list))
	for _, e := range list {
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}
		values = append(values, raw)
		if e.ID != "" {
			ids = append(ids, e.ID.String())
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, listKey(identity), idsKey(identity))
		if len(values) > 0 {
			pipe.RPush(ctx, listKey(identity), values...)
			pipe.Expire(ctx, listKey(identity), s.ttl)
		}
		if len(ids) > 0 {
			pipe.SAdd(ctx, idsKey(identity), ids...)
			pipe.Expire(ctx, idsKey(identity), s.ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Prepend(ctx context.Context, identity string, entry Entry) (bool, error) {
	if entry.ID != "" {
		added, err := s.client.SAdd(ctx, idsKey(identity), entry.ID.String()).Result()
		if err != nil {
			return false, err
		}
		if added == 0 {
			return false, nil
		}
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, listKey(identity), raw)
		pipe.Expire(ctx, listKey(identity), s.ttl)
		pipe.Expire(ctx, idsKey(identity), s.ttl)
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Remove(ctx context.Context, identity, id string) error {
	raws, err := s.client.LRange(ctx, listKey(identity), 0, -1).Result()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, raw := range raws {
			var e Entry
			if json.Unmarshal([]byte(raw), &e) == nil && e.ID.String() == id {
				pipe.LRem(ctx, listKey(identity), 0, raw)
			}
		}
		pipe.SRem(ctx, idsKey(identity), id)
		return nil
	})
	return err
}

func (s *RedisStore) List(ctx context.Context, identity string) ([]Entry, error) {
	raws, err := s.client.LRange(ctx, listKey(identity), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
