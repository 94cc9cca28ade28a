package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	RecentConvPrefix = "recent:conv" // 每用户一个 hash，field=chatID
	RecentConvTTL    = 30 * 24 * time.Hour
	RecentConvLimit  = 50
)

var (
	ErrRecentWriteFailed = errors.New("recent conversation write failed")
	ErrRecentReadFailed  = errors.New("recent conversation read failed")
)

// RecentConversation 最近会话投影条目，每个会话只留最后一条消息
type RecentConversation struct {
	ChatID       uint64 `json:"chat_id"`
	Counterpart  uint64 `json:"counterpart"`
	LastMessage  string `json:"last_message"`
	UpdatedAtRaw int64  `json:"updated_at"`
}

type RecentConvRepository struct{}

func (r *RecentConvRepository) key(userID uint64) string {
	return fmt.Sprintf("%s:%d", RecentConvPrefix, userID)
}

// Upsert 覆盖该会话的旧条目。hash field 就是 chatID，写入天然去重
func (r *RecentConvRepository) Upsert(ctx context.Context, userID uint64, entry RecentConversation) error {
	k := r.key(userID)
	payload, _ := json.Marshal(entry)
	if err := Client.HSet(ctx, k, fmt.Sprintf("%d", entry.ChatID), payload).Err(); err != nil {
		return ErrRecentWriteFailed
	}
	_ = Client.Expire(ctx, k, RecentConvTTL).Err()
	return nil
}

// List 按更新时间倒序取最近会话
func (r *RecentConvRepository) List(ctx context.Context, userID uint64) ([]RecentConversation, error) {
	vals, err := Client.HGetAll(ctx, r.key(userID)).Result()
	if err != nil {
		return nil, ErrRecentReadFailed
	}
	list := make([]RecentConversation, 0, len(vals))
	for _, v := range vals {
		var entry RecentConversation
		if json.Unmarshal([]byte(v), &entry) != nil {
			continue
		}
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UpdatedAtRaw > list[j].UpdatedAtRaw
	})
	if len(list) > RecentConvLimit {
		list = list[:RecentConvLimit]
	}
	return list, nil
}

// Remove 会话删除或退出时清条目（幂等）
func (r *RecentConvRepository) Remove(ctx context.Context, userID, chatID uint64) error {
	if err := Client.HDel(ctx, r.key(userID), fmt.Sprintf("%d", chatID)).Err(); err != nil {
		return ErrRecentWriteFailed
	}
	return nil
}
