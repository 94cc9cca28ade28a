package mysql

import (
	"context"

	"Code_Connect/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FollowRepository struct {
	DB *gorm.DB
}

// Follow 插入关注边（幂等）。唯一索引兜底，真插入了才调计数、写 outbox，
// 返回 changed 表示这次是不是新边
func (r *FollowRepository) Follow(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		edge := model.Follow{
			FollowerID: followerID,
			FolloweeID: followeeID,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "followee_id"}},
			DoNothing: true,
		}).Create(&edge)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 边已存在，重复请求不重复计数
			changed = false
			return nil
		}
		changed = true
		profiles := &ProfileRepository{DB: tx}
		if err := profiles.AdjustFollowCounters(followerID, followeeID, +1); err != nil {
			return err
		}
		outbox := &OutboxRepository{DB: tx}
		return outbox.Insert("follow", followerID, followeeID)
	})
	return changed, err
}

// Unfollow 删边。边不存在是 no-op，不报错也不动计数
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id=? AND followee_id=?", followerID, followeeID).
			Delete(&model.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			changed = false
			return nil
		}
		changed = true
		profiles := &ProfileRepository{DB: tx}
		if err := profiles.AdjustFollowCounters(followerID, followeeID, -1); err != nil {
			return err
		}
		outbox := &OutboxRepository{DB: tx}
		return outbox.Insert("unfollow", followerID, followeeID)
	})
	return changed, err
}

// IsFollowing 判断 a 是否关注 b
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id=? AND followee_id=?", followerID, followeeID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListFollowings 获取关注列表
func (r *FollowRepository) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id=?", userID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []model.Follow
	// limit+1 探测下一页
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

// ListFollowers 获取粉丝列表
func (r *FollowRepository) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("followee_id=?", userID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []model.Follow
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

// Pair 对账用的计数快照
type Pair struct {
	ID             uint64
	FollowingCount int64
	FollowerCount  int64
}

type FollowCountReconcilerRepo struct {
	DB *gorm.DB
}

// ReconcileList 按 ID 游标批量取用户计数
func (r *FollowCountReconcilerRepo) ReconcileList(ctx context.Context, batchSize int, lastID uint64) ([]Pair, uint64, error) {
	var list []Pair
	if err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id", "following_count", "follower_count").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealFollowings 数边表里真实的关注数
func (r *FollowCountReconcilerRepo) RealFollowings(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id=?", userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// RealFollowers 数边表里真实的粉丝数
func (r *FollowCountReconcilerRepo) RealFollowers(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("followee_id=?", userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// ReconcileFollowings 修正关注计数
func (r *FollowCountReconcilerRepo) ReconcileFollowings(ctx context.Context, userID uint64, real int64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id=?", userID).
		UpdateColumn("following_count", real).Error
}

// ReconcileFollowers 修正粉丝计数
func (r *FollowCountReconcilerRepo) ReconcileFollowers(ctx context.Context, userID uint64, real int64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id=?", userID).
		UpdateColumn("follower_count", real).Error
}
