package knowledge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	passageKeyPrefix = "manual:docs:"
	versionKeyPrefix = "manual:docs:ver:"
)

// PassageRepository persists raw manual passages per vehicle partition.
// The ingestion batch job writes here; the dialogue core only reads.
type PassageRepository interface {
	GetPassages(ctx context.Context, partition string) ([]string, error)
	GetVersion(ctx context.Context, partition string) (int64, error)
	ListPartitions(ctx context.Context) ([]string, error)
}

// RedisPassageRepository stores each partition's passages in a Redis list,
// with a companion version key bumped by the ingestion job on re-ingest.
type RedisPassageRepository struct {
	client *redis.Client
}

// NewRedisPassageRepository creates a Redis-backed passage repository.
func NewRedisPassageRepository(client *redis.Client) *RedisPassageRepository {
	if client == nil {
		panic("knowledge: redis client cannot be nil")
	}
	return &RedisPassageRepository{client: client}
}

// AppendPassages pushes passages onto the partition's list in ingestion order.
func (r *RedisPassageRepository) AppendPassages(ctx context.Context, partition string, passages []string) error {
	if len(passages) == 0 {
		return nil
	}
	args := make([]interface{}, len(passages))
	for i, p := range passages {
		args[i] = p
	}
	if err := r.client.RPush(ctx, passageKey(partition), args...).Err(); err != nil {
		return fmt.Errorf("knowledge: push passages: %w: %w", ErrRetrievalUnavailable, err)
	}
	return nil
}

// GetPassages returns all passages for a partition in ingestion order.
func (r *RedisPassageRepository) GetPassages(ctx context.Context, partition string) ([]string, error) {
	passages, err := r.client.LRange(ctx, passageKey(partition), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("knowledge: fetch passages %s: %w: %w", partition, ErrRetrievalUnavailable, err)
	}
	return passages, nil
}

// GetVersion returns the partition's ingestion version (0 when never set).
func (r *RedisPassageRepository) GetVersion(ctx context.Context, partition string) (int64, error) {
	val, err := r.client.Get(ctx, versionKey(partition)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("knowledge: get version %s: %w: %w", partition, ErrRetrievalUnavailable, err)
	}
	version, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("knowledge: parse version %s: %w", partition, err)
	}
	return version, nil
}

// SetVersion stamps the partition's ingestion version.
func (r *RedisPassageRepository) SetVersion(ctx context.Context, partition string, version int64) error {
	if err := r.client.Set(ctx, versionKey(partition), strconv.FormatInt(version, 10), 0).Err(); err != nil {
		return fmt.Errorf("knowledge: set version %s: %w", partition, err)
	}
	return nil
}

// ListPartitions scans for every partition with stored passages.
func (r *RedisPassageRepository) ListPartitions(ctx context.Context) ([]string, error) {
	var cursor uint64
	var partitions []string
	for {
		keys, next, err := r.client.Scan(ctx, cursor, passageKeyPrefix+"*", 50).Result()
		if err != nil {
			return nil, fmt.Errorf("knowledge: scan partitions: %w: %w", ErrRetrievalUnavailable, err)
		}
		for _, key := range keys {
			if strings.HasPrefix(key, versionKeyPrefix) {
				continue
			}
			partitions = append(partitions, strings.TrimPrefix(key, passageKeyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return partitions, nil
}

func passageKey(partition string) string {
	return passageKeyPrefix + partition
}

func versionKey(partition string) string {
	return versionKeyPrefix + partition
}
