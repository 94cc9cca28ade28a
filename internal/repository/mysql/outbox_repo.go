package mysql

import (
	"context"
	"encoding/json"
	"time"

	"Code_Connect/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// Insert 写出站事件，和业务写同事务
func (r *OutboxRepository) Insert(event string, actorID, targetID uint64) error {
	payload, _ := json.Marshal(map[string]any{
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"actor":      actorID,
		"target":     targetID,
	})
	ob := &model.SocialOutbox{
		EventType: event,
		ActorID:   actorID,
		TargetID:  targetID,
		Payload:   string(payload),
		Status:    0,
	}
	return r.DB.Create(ob).Error
}

// MaxOutboxRetry 投递失败重试上限，超限的事件留在表里人工排查
const MaxOutboxRetry = 5

// List 取待投递事件，失败未超限的一并捞回来重投
func (r *OutboxRepository) List(ctx context.Context, batchSize int) ([]model.SocialOutbox, error) {
	var list []model.SocialOutbox
	if err := r.DB.WithContext(ctx).
		Where("status=0 OR (status=2 AND retry < ?)", MaxOutboxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败计次
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id=?", id).
		Updates(map[string]any{"status": 2, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate 投递成功标记
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id=?", id).
		Update("status", 1).Error
}
