package model

import "time"

// User 档案表。社交核心只碰计数和头像，账号/密码归外部身份系统管
type User struct {
	ID             uint64 `gorm:"primaryKey"`
	Username       string `gorm:"uniqueIndex;size:32;not null"`
	AvatarURL      string `gorm:"size:255"`
	FollowerCount  int64  `gorm:"not null;default:0"`
	FollowingCount int64  `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
