package model

import "time"

// FriendRequestStatus 好友请求状态，accepted/rejected 为终态
type FriendRequestStatus string

const (
	RequestPending  FriendRequestStatus = "pending"
	RequestAccepted FriendRequestStatus = "accepted"
	RequestRejected FriendRequestStatus = "rejected"
)

// Terminal 终态不允许再流转
func (s FriendRequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// FriendRequest 好友请求表。同一对用户最多一条活跃(pending/accepted)记录，
// rejected 不占位，允许任一方重新发起。
// ActivePair 是库里算出来的无序对键：活跃行才有值，rejected 为 NULL 不撞唯一索引，
// 两边并发互发时靠 uk_active_pair 兜底而不是靠隔离级别
type FriendRequest struct {
	ID         uint64              `gorm:"primaryKey"`
	FromID     uint64              `gorm:"not null;index:idx_request_from"`
	ToID       uint64              `gorm:"not null;index:idx_request_to"`
	Status     FriendRequestStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	ActivePair *string             `gorm:"->;type:varchar(64) GENERATED ALWAYS AS (IF(status IN ('pending','accepted'), CONCAT(LEAST(from_id,to_id),':',GREATEST(from_id,to_id)), NULL)) STORED;uniqueIndex:uk_active_pair" json:"-"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}
