package model

import "time"

// Group 群聊。创建者永远在管理员和成员里，adminMode 开启时仅管理员可发言
type Group struct {
	ID           uint64 `gorm:"primaryKey"`
	Name         string `gorm:"size:64;not null"`
	ProfileImage string `gorm:"type:mediumtext"`
	CreatorID    uint64 `gorm:"not null;index"`
	AdminMode    bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	GroupRoleMember = 0
	GroupRoleAdmin  = 1
)

// GroupMember 群成员表。管理员就是 role=1 的成员，
// 成员被移出时管理员身份自然跟着没了
type GroupMember struct {
	ID        uint64 `gorm:"primaryKey"`
	GroupID   uint64 `gorm:"not null;index;uniqueIndex:uk_group_user"`
	UserID    uint64 `gorm:"not null;index;uniqueIndex:uk_group_user"`
	Role      int    `gorm:"not null;default:0"` // 0=member, 1=admin
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (GroupMember) TableName() string { return "group_members" }

// GroupMessage 群消息，按自增 ID 定序；删除按 ID，对外的"序号"由查询时的位置换算
type GroupMessage struct {
	ID        uint64 `gorm:"primaryKey"`
	GroupID   uint64 `gorm:"not null;index:idx_group_msg"`
	SenderID  uint64 `gorm:"not null"`
	Content   string `gorm:"type:text"`
	ImageURL  string `gorm:"type:mediumtext"`
	CreatedAt time.Time
}

func (GroupMessage) TableName() string { return "group_messages" }

const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// GroupReaction 消息表态。(message_id,user_id) 唯一，改表态时原地翻转 kind，
// 天然保证 like/dislike 互斥
type GroupReaction struct {
	ID        uint64 `gorm:"primaryKey"`
	MessageID uint64 `gorm:"not null;index;uniqueIndex:uk_message_user"`
	UserID    uint64 `gorm:"not null;uniqueIndex:uk_message_user"`
	Kind      string `gorm:"type:varchar(10);not null"` // like / dislike
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (GroupReaction) TableName() string { return "group_reactions" }
