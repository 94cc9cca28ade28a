package mysql

import (
	"context"
	"errors"
	"time"

	"Code_Connect/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	DB *gorm.DB
}

var (
	ErrChatNotFound  = errors.New("chat not found")
	ErrChatExhausted = errors.New("one-off chat already used")
)

// FindOrCreate 无序对查或建会话。唯一索引 uk_chat_pair 兜底：
// 插入撞冲突就回读已有会话，两边同时发起也只会建一条。
// oneOff 只在真正建新会话时生效，已有会话不改
func (r *ChatRepository) FindOrCreate(ctx context.Context, a, b uint64, oneOff bool) (*model.Chat, bool, error) {
	lo, hi := model.SortPair(a, b)
	chat := model.Chat{
		UserLo: lo,
		UserHi: hi,
		OneOff: oneOff,
	}
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_lo"}, {Name: "user_hi"}},
		DoNothing: true,
	}).Create(&chat)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &chat, true, nil
	}
	// 撞唯一索引，回读对方刚建的那条
	var existing model.Chat
	if err := r.DB.WithContext(ctx).
		Where("user_lo=? AND user_hi=?", lo, hi).
		First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// FindByPair 按无序对查会话
func (r *ChatRepository) FindByPair(ctx context.Context, a, b uint64) (*model.Chat, error) {
	lo, hi := model.SortPair(a, b)
	var chat model.Chat
	if err := r.DB.WithContext(ctx).
		Where("user_lo=? AND user_hi=?", lo, hi).
		First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) FindByID(ctx context.Context, id uint64) (*model.Chat, error) {
	var chat model.Chat
	if err := r.DB.WithContext(ctx).First(&chat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// Append 锁会话行后追加消息，串行化同会话的并发发送。
// one-off 的门禁和 oneOffUsed 翻转都在同一把锁里做
func (r *ChatRepository) Append(ctx context.Context, chatID uint64, msg *model.ChatMessage) (*model.Chat, error) {
	var chat model.Chat
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&chat, chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChatNotFound
			}
			return err
		}
		if chat.OneOff && chat.OneOffUsed {
			return ErrChatExhausted
		}
		msg.ChatID = chat.ID
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		updates := map[string]any{"updated_at": time.Now()}
		if chat.OneOff {
			updates["one_off_used"] = true
			chat.OneOffUsed = true
		}
		return tx.Model(&chat).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// Messages 全量按序取消息
func (r *ChatRepository) Messages(ctx context.Context, chatID uint64) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.DB.WithContext(ctx).
		Where("chat_id=?", chatID).
		Order("id ASC").
		Find(&msgs).Error
	return msgs, err
}

// ListForUser 按最近更新排用户的会话
func (r *ChatRepository) ListForUser(ctx context.Context, userID uint64, limit int) ([]model.Chat, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var chats []model.Chat
	err := r.DB.WithContext(ctx).
		Where("user_lo=? OR user_hi=?", userID, userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&chats).Error
	return chats, err
}
