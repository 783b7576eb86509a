// Package keystore looks up the access keys callers sign their requests with.
// Key material is owned by an external provisioning flow; this package only
// reads it.
package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key types.
const (
	KeyTypeApp   = "app"
	KeyTypeAdmin = "admin"
)

// AccessKey is the registered record for one access key id.
type AccessKey struct {
	PublicKey string `json:"public_key"`
	KeyType   string `json:"key_type"`
}

// ErrNotFound is returned when no record exists for a key id.
var ErrNotFound = errors.New("access key not found")

// Store resolves an access key id to its registered record.
type Store interface {
	Lookup(ctx context.Context, keyID string) (*AccessKey, error)
	Close() error
}

// RedisStore reads access keys from Redis, where records are stored as JSON
// under a fixed key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client, prefix: "pushgate:access_key:"}
}

func (s *RedisStore) Lookup(ctx context.Context, keyID string) (*AccessKey, error) {
	raw, err := s.client.Get(ctx, s.prefix+keyID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error looking up access key: %w", err)
	}

	var key AccessKey
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return nil, fmt.Errorf("error decoding access key record: %w", err)
	}
	return &key, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
