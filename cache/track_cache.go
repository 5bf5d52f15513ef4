package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PlayFM/model"

	"github.com/go-redis/redis/v8"
)

// trackListKey 根据路径前缀生成缓存键
func trackListKey(prefix string) string {
	return fmt.Sprintf("playfm:tracks:%s", prefix)
}

// GetTrackList 读取某个前缀缓存的歌曲列表。
// 未命中时返回 (nil, false, nil)；缓存损坏按未命中处理。
func GetTrackList(ctx context.Context, prefix string) ([]model.Track, bool, error) {
	if RedisClient == nil {
		return nil, false, fmt.Errorf("Redis client not initialized")
	}

	data, err := RedisClient.Get(ctx, trackListKey(prefix)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached track list: %w", err)
	}

	var tracks []model.Track
	if err := json.Unmarshal([]byte(data), &tracks); err != nil {
		// 缓存内容损坏时当作未命中，让调用方重新加载
		return nil, false, nil
	}
	return tracks, true, nil
}

// SetTrackList 缓存某个前缀的歌曲列表。
// TTL 必须短于签名URL的有效期，否则会把过期URL发给客户端。
func SetTrackList(ctx context.Context, prefix string, tracks []model.Track, ttl time.Duration) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("failed to marshal track list: %w", err)
	}

	if err := RedisClient.Set(ctx, trackListKey(prefix), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache track list: %w", err)
	}
	return nil
}

// InvalidateTrackList 清掉某个前缀的缓存
func InvalidateTrackList(ctx context.Context, prefix string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Del(ctx, trackListKey(prefix)).Err()
}
