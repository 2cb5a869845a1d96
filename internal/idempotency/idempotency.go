// Package idempotency replays stored responses for repeated POSTs carrying
// the same Idempotency-Key.
package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

type Response struct {
	Status int    `json:"status"`
	Result []byte `json:"result"`
}

// Get returns the stored response for the key, or nil when none exists.
func (s *Store) Get(ctx context.Context, key string) (*Response, error) {
	val, err := s.client.Get(ctx, "idemp:"+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Store) Set(ctx context.Context, key string, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, "idemp:"+key, data, s.ttl).Err()
}
