package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ReactionSetTTL      = 24 * time.Hour
	LockTTL             = 300 * time.Millisecond
	LikeSetKeyPrefix    = "react:like:msg"    // 某条群消息点赞用户集合
	DislikeSetKeyPrefix = "react:dislike:msg" // 某条群消息点踩用户集合
	LockKeyPrefix       = "lock:react:msg"
)

// ReactionCacheRepository 群消息表态缓存。MySQL 写成功后旁路更新，
// 失败不影响主流程，集合带 TTL 自动淘汰冷消息
type ReactionCacheRepository struct {
	setTTL time.Duration
}

type DistLock struct {
	RDB *redis.Client
}

func NewReactionCacheRepository() *ReactionCacheRepository {
	return &ReactionCacheRepository{setTTL: ReactionSetTTL}
}

func (r *ReactionCacheRepository) likeKey(msgID uint64) string {
	return fmt.Sprintf("%s:%d", LikeSetKeyPrefix, msgID)
}
func (r *ReactionCacheRepository) dislikeKey(msgID uint64) string {
	return fmt.Sprintf("%s:%d", DislikeSetKeyPrefix, msgID)
}

// SetReaction 进一个集合同时踢出另一个，和库里的互斥语义保持一致
func (r *ReactionCacheRepository) SetReaction(ctx context.Context, msgID, userID uint64, like bool) error {
	addKey, remKey := r.likeKey(msgID), r.dislikeKey(msgID)
	if !like {
		addKey, remKey = remKey, addKey
	}
	if err := Client.SAdd(ctx, addKey, userID).Err(); err != nil {
		return err
	}
	_ = Client.Expire(ctx, addKey, r.setTTL).Err()
	if err := Client.SRem(ctx, remKey, userID).Err(); err != nil {
		return err
	}
	return nil
}

// Counts 缓存命中时直接出数，miss 交给调用方回源
func (r *ReactionCacheRepository) Counts(ctx context.Context, msgID uint64) (likes, dislikes int64, hit bool, err error) {
	likeExists, err := Client.Exists(ctx, r.likeKey(msgID)).Result()
	if err != nil {
		return 0, 0, false, err
	}
	dislikeExists, err := Client.Exists(ctx, r.dislikeKey(msgID)).Result()
	if err != nil {
		return 0, 0, false, err
	}
	if likeExists == 0 && dislikeExists == 0 {
		return 0, 0, false, nil
	}
	if likes, err = Client.SCard(ctx, r.likeKey(msgID)).Result(); err != nil {
		return 0, 0, false, err
	}
	if dislikes, err = Client.SCard(ctx, r.dislikeKey(msgID)).Result(); err != nil {
		return 0, 0, false, err
	}
	return likes, dislikes, true, nil
}

// Warm 回源后回填两集合
func (r *ReactionCacheRepository) Warm(ctx context.Context, msgID uint64, likeIDs, dislikeIDs []uint64) {
	lk, dk := r.likeKey(msgID), r.dislikeKey(msgID)
	for _, id := range likeIDs {
		_ = Client.SAdd(ctx, lk, id).Err()
	}
	for _, id := range dislikeIDs {
		_ = Client.SAdd(ctx, dk, id).Err()
	}
	_ = Client.Expire(ctx, lk, r.setTTL).Err()
	_ = Client.Expire(ctx, dk, r.setTTL).Err()
}

// Invalidate 消息被删时清缓存
func (r *ReactionCacheRepository) Invalidate(ctx context.Context, msgID uint64) {
	_ = Client.Del(ctx, r.likeKey(msgID), r.dislikeKey(msgID)).Err()
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, msgID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, msgID)
	return l.RDB.SetNX(ctx, key, token, LockTTL).Result()
}

// Release 用lua保证原子性
func (l *DistLock) Release(ctx context.Context, msgID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, msgID)
	_, err := redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`).Run(ctx, l.RDB, []string{key}, token).Result()
	return err
}
