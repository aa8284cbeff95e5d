package webhookledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AlexZinkM/joint-wallet/internal/crypto"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "jointwallet:delegation:"
	redisSaltKey   = "jointwallet:ledger:kdf_salt"
)

// RedisStore persists records in Redis. SET NX makes the first writer of
// an event id win across every process sharing the instance.
type RedisStore struct {
	client redis.UniversalClient
	sealer *crypto.Sealer
}

// NewRedisStore derives the sealing key from passphrase and the salt
// stored in Redis, creating the salt on first use.
func NewRedisStore(ctx context.Context, client redis.UniversalClient, passphrase []byte, params crypto.ScryptParams) (*RedisStore, error) {
	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, err
	}
	if err := client.SetNX(ctx, redisSaltKey, salt, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to store salt: %w", err)
	}
	salt, err = client.Get(ctx, redisSaltKey).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to load salt: %w", err)
	}

	sealer, err := crypto.NewSealer(passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: client, sealer: sealer}, nil
}

func (s *RedisStore) Get(ctx context.Context, eventID string) (*Record, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+eventID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load delegation record: %w", err)
	}

	var sr sealedRecord
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("failed to decode delegation record: %w", err)
	}
	return unseal(s.sealer, &sr)
}

func (s *RedisStore) InsertIfAbsent(ctx context.Context, rec *Record) (*Record, bool, error) {
	sr, err := seal(s.sealer, rec)
	if err != nil {
		return nil, false, err
	}
	data, err := json.Marshal(sr)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode delegation record: %w", err)
	}

	inserted, err := s.client.SetNX(ctx, redisKeyPrefix+rec.EventID, data, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert delegation record: %w", err)
	}
	if !inserted {
		existing, err := s.Get(ctx, rec.EventID)
		return existing, false, err
	}
	return rec.clone(), true, nil
}
