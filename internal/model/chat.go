package model

import "time"

// Chat 单聊会话。参与者按 ID 排序存 (UserLo,UserHi)，无序对唯一。
// oneOff 建会话时一次定死，之后双方互关也不再改
type Chat struct {
	ID         uint64 `gorm:"primaryKey"`
	UserLo     uint64 `gorm:"not null;index:idx_chat_lo;uniqueIndex:uk_chat_pair"`
	UserHi     uint64 `gorm:"not null;index:idx_chat_hi;uniqueIndex:uk_chat_pair"`
	OneOff     bool   `gorm:"not null;default:false"`
	OneOffUsed bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time `gorm:"index:idx_chat_updated"`
}

func (Chat) TableName() string { return "chats" }

// Has 判断用户是否是会话参与者
func (c *Chat) Has(userID uint64) bool {
	return userID == c.UserLo || userID == c.UserHi
}

// Other 返回对端用户
func (c *Chat) Other(userID uint64) uint64 {
	if userID == c.UserLo {
		return c.UserHi
	}
	return c.UserLo
}

// ChatMessage 单聊消息，按自增 ID 即时间序追加，不改不删
type ChatMessage struct {
	ID        uint64 `gorm:"primaryKey"`
	ChatID    uint64 `gorm:"not null;index:idx_chat_msg"`
	SenderID  uint64 `gorm:"not null"`
	Content   string `gorm:"type:text"`
	ImageURL  string `gorm:"type:mediumtext"`
	CreatedAt time.Time
}

func (ChatMessage) TableName() string { return "chat_messages" }

// SortPair 归一化无序用户对
func SortPair(a, b uint64) (lo, hi uint64) {
	if a < b {
		return a, b
	}
	return b, a
}
