package model

import "time"

// Follow 关注边。存在即关注，取关直接删行，(follower,followee) 唯一
type Follow struct {
	ID         uint64 `gorm:"primaryKey"`
	FollowerID uint64 `gorm:"not null;index:idx_follower_id;uniqueIndex:uk_follower_followee"`
	FolloweeID uint64 `gorm:"not null;index:idx_followee_id;uniqueIndex:uk_follower_followee"`
	CreatedAt  time.Time
}

// TableName sets table name for Follow
func (Follow) TableName() string {
	return "follow"
}

// SocialOutbox 社交事件出站表
type SocialOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:32;not null"` // follow / unfollow / friend_accepted
	ActorID   uint64 `gorm:"not null"`
	TargetID  uint64 `gorm:"not null"`
	Payload   string `gorm:"type:json;not null"`
	Status    int8   `gorm:"not null;default:0;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SocialOutbox) TableName() string { return "social_outbox" }
