package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"stock_signal/internal/models"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fundamental:"

// RedisStore 基于 Redis 的缓存存储，每个股票一个 JSON 键
type RedisStore struct {
	rdb *redis.Client
}

type redisRecord struct {
	Data       models.FundamentalFacts `json:"data"`
	DataSource string                  `json:"data_source"`
	CreatedAt  time.Time               `json:"created_at"`
	ExpiresAt  time.Time               `json:"expires_at"`
}

// NewRedisStore 创建 Redis 缓存存储
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// NewRedisClient 创建并测试 Redis 连接
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}
	return rdb, nil
}

func redisKey(stockCode string) string {
	return redisKeyPrefix + stockCode
}

// Get 读取未过期的缓存
func (s *RedisStore) Get(ctx context.Context, stockCode string, now time.Time) (*Entry, error) {
	data, err := s.rdb.Get(ctx, redisKey(stockCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取Redis缓存失败: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("解析缓存数据失败: %w", err)
	}
	if !now.Before(rec.ExpiresAt) {
		return nil, nil
	}
	return &Entry{
		StockCode:  stockCode,
		Facts:      rec.Data,
		DataSource: rec.DataSource,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
	}, nil
}

// Put 写入缓存，Redis 键的过期时间与条目一致
func (s *RedisStore) Put(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(redisRecord{
		Data:       entry.Facts,
		DataSource: entry.DataSource,
		CreatedAt:  entry.CreatedAt,
		ExpiresAt:  entry.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("序列化缓存数据失败: %w", err)
	}

	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.rdb.Set(ctx, redisKey(entry.StockCode), data, ttl).Err(); err != nil {
		return fmt.Errorf("写入Redis缓存失败: %w", err)
	}
	return nil
}

// DeleteExpired 扫描并删除已过期但 Redis 尚未淘汰的键
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var rec redisRecord
		if err := json.Unmarshal(data, &rec); err != nil || rec.ExpiresAt.Before(now) {
			n, err := s.rdb.Del(ctx, key).Result()
			if err != nil {
				return deleted, fmt.Errorf("删除Redis缓存失败: %w", err)
			}
			deleted += n
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("扫描Redis缓存失败: %w", err)
	}
	return deleted, nil
}
