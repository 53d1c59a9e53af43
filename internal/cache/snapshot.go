package cache

import (
	"context"
	"errors"
	"fmt"

	"godrive/pkg/cache"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind identifies one class of cached snapshot. The store is partitioned
// per driver and per kind; writes are last-write-wins.
type Kind string

const (
	KindDriverState   Kind = "driver_state"
	KindRemainingTime Kind = "remaining_time"
	KindTripStatuses  Kind = "trip_statuses"
	KindActiveTrip    Kind = "active_trip"
)

var ErrNoSnapshot = errors.New("no snapshot")

// Store is the Local Cache Store contract. Only the coordinator that owns
// a driver's keys writes to them.
type Store interface {
	Write(ctx context.Context, driverID primitive.ObjectID, kind Kind, value interface{}) error
	Read(ctx context.Context, driverID primitive.ObjectID, kind Kind, dest interface{}) error
	Delete(ctx context.Context, driverID primitive.ObjectID, kinds ...Kind) error
}

type redisStore struct {
	cache *cache.RedisCache
}

func NewRedisStore(c *cache.RedisCache) Store {
	return &redisStore{cache: c}
}

func (s *redisStore) key(driverID primitive.ObjectID, kind Kind) string {
	return fmt.Sprintf("godrive:snapshot:%s:%s", driverID.Hex(), kind)
}

func (s *redisStore) Write(ctx context.Context, driverID primitive.ObjectID, kind Kind, value interface{}) error {
	if err := s.cache.Set(ctx, s.key(driverID, kind), value, 0); err != nil {
		return fmt.Errorf("failed to write %s snapshot: %w", kind, err)
	}
	return nil
}

func (s *redisStore) Read(ctx context.Context, driverID primitive.ObjectID, kind Kind, dest interface{}) error {
	err := s.cache.Get(ctx, s.key(driverID, kind), dest)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoSnapshot
		}
		return fmt.Errorf("failed to read %s snapshot: %w", kind, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, driverID primitive.ObjectID, kinds ...Kind) error {
	keys := make([]string, len(kinds))
	for i, kind := range kinds {
		keys[i] = s.key(driverID, kind)
	}
	return s.cache.Delete(ctx, keys...)
}
