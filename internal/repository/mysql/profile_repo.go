package mysql

import (
	"Code_Connect/internal/model"

	"gorm.io/gorm"
)

// ProfileRepository 档案表只开两个口子给社交核心：计数增减和存在性检查
type ProfileRepository struct {
	DB *gorm.DB
}

// AdjustFollowCounters 原子增减关注/粉丝计数，GREATEST 防负数
func (r *ProfileRepository) AdjustFollowCounters(followerID, followeeID uint64, delta int64) error {
	if err := r.DB.Model(&model.User{}).
		Where("id=?", followerID).
		UpdateColumn("following_count", gorm.Expr("GREATEST(0, following_count + ?)", delta)).Error; err != nil {
		return err
	}
	if err := r.DB.Model(&model.User{}).
		Where("id=?", followeeID).
		UpdateColumn("follower_count", gorm.Expr("GREATEST(0, follower_count + ?)", delta)).Error; err != nil {
		return err
	}
	return nil
}

// Exists 用户存在性检查
func (r *ProfileRepository) Exists(id uint64) (bool, error) {
	var n int64
	err := r.DB.Model(&model.User{}).Where("id=?", id).Count(&n).Error
	return n > 0, err
}

func (r *ProfileRepository) FindByID(id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

// FindByIDs 批量取档案，回填昵称头像用
func (r *ProfileRepository) FindByIDs(ids []uint64) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&users).Error
	return users, err
}
