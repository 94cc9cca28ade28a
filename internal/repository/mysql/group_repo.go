package mysql

import (
	"context"
	"errors"

	"Code_Connect/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository struct {
	DB *gorm.DB
}

var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrMessageNotFound = errors.New("group message not found")
)

// Create 建群。创建者和初始成员在同一事务里入群，创建者 role=1
func (r *GroupRepository) Create(ctx context.Context, g *model.Group, memberIDs []uint64) (*model.Group, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		if err := r.join(tx, g.ID, g.CreatorID, model.GroupRoleAdmin); err != nil {
			return err
		}
		for _, id := range memberIDs {
			if id == g.CreatorID {
				continue
			}
			if err := r.join(tx, g.ID, id, model.GroupRoleMember); err != nil {
				return err
			}
		}
		return nil
	})
	return g, err
}

// join 幂等入群，已在群里就保持原角色
func (r *GroupRepository) join(tx *gorm.DB, groupID, userID uint64, role int) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&model.GroupMember{
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
	}).Error
}

func (r *GroupRepository) FindByID(ctx context.Context, id uint64) (*model.Group, error) {
	var g model.Group
	if err := r.DB.WithContext(ctx).First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Members 群成员列表
func (r *GroupRepository) Members(ctx context.Context, groupID uint64) ([]model.GroupMember, error) {
	var rows []model.GroupMember
	err := r.DB.WithContext(ctx).
		Where("group_id=?", groupID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// RoleOf 查成员角色，-1 表示不在群里
func (r *GroupRepository) RoleOf(ctx context.Context, groupID, userID uint64) (int, error) {
	var m model.GroupMember
	err := r.DB.WithContext(ctx).
		Where("group_id=? AND user_id=?", groupID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return m.Role, nil
}

// UpdateMeta 改名字/头像/adminMode
func (r *GroupRepository) UpdateMeta(ctx context.Context, groupID uint64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&model.Group{}).
		Where("id=?", groupID).
		Updates(updates).Error
}

// ReplaceMembers 整体替换成员表。创建者强制保留（role=1 不动），
// 不在新名单里的成员连行带管理员角色一起删；新进成员 role=0
func (r *GroupRepository) ReplaceMembers(ctx context.Context, groupID, creatorID uint64, memberIDs []uint64) error {
	keep := map[uint64]bool{creatorID: true}
	for _, id := range memberIDs {
		keep[id] = true
	}
	ids := make([]uint64, 0, len(keep))
	for id := range keep {
		ids = append(ids, id)
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id=? AND user_id NOT IN ?", groupID, ids).
			Delete(&model.GroupMember{}).Error; err != nil {
			return err
		}
		for _, id := range ids {
			role := model.GroupRoleMember
			if id == creatorID {
				role = model.GroupRoleAdmin
			}
			if err := r.join(tx, groupID, id, role); err != nil {
				return err
			}
		}
		// 创建者角色兜底，防止之前被降过级
		return tx.Model(&model.GroupMember{}).
			Where("group_id=? AND user_id=?", groupID, creatorID).
			Update("role", model.GroupRoleAdmin).Error
	})
}

// SetRole 升降管理员
func (r *GroupRepository) SetRole(ctx context.Context, groupID, userID uint64, role int) error {
	return r.DB.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id=? AND user_id=?", groupID, userID).
		Update("role", role).Error
}

// RemoveMember 退群，成员行一删管理员身份也没了
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID uint64) error {
	return r.DB.WithContext(ctx).
		Where("group_id=? AND user_id=?", groupID, userID).
		Delete(&model.GroupMember{}).Error
}

// ListForUser 用户所在的群
func (r *GroupRepository) ListForUser(ctx context.Context, userID uint64) ([]model.Group, error) {
	var groups []model.Group
	err := r.DB.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id=?", userID).
		Order("groups.updated_at DESC").
		Find(&groups).Error
	return groups, err
}

// AppendMessage 锁群行后追加，串行化同群并发发送
func (r *GroupRepository) AppendMessage(ctx context.Context, groupID uint64, msg *model.GroupMessage) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g model.Group
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&g, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		msg.GroupID = g.ID
		return tx.Create(msg).Error
	})
}

// Messages 按序取群消息
func (r *GroupRepository) Messages(ctx context.Context, groupID uint64) ([]model.GroupMessage, error) {
	var msgs []model.GroupMessage
	err := r.DB.WithContext(ctx).
		Where("group_id=?", groupID).
		Order("id ASC").
		Find(&msgs).Error
	return msgs, err
}

// MessageAt 把对外的序号换算成消息行。序号是查询时刻的位置，
// 删除会让后面的序号整体前移，换算必须和删除在同一事务里做
func (r *GroupRepository) messageAt(tx *gorm.DB, groupID uint64, index int) (*model.GroupMessage, error) {
	if index < 0 {
		return nil, ErrMessageNotFound
	}
	var msg model.GroupMessage
	err := tx.Where("group_id=?", groupID).
		Order("id ASC").
		Offset(index).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MessageAt 只读换算
func (r *GroupRepository) MessageAt(ctx context.Context, groupID uint64, index int) (*model.GroupMessage, error) {
	return r.messageAt(r.DB.WithContext(ctx), groupID, index)
}

// DeleteMessageAt 锁群行、序号换算、删消息和它的表态，一个事务。
// 返回被删的消息，调用方好去清缓存
func (r *GroupRepository) DeleteMessageAt(ctx context.Context, groupID uint64, index int) (*model.GroupMessage, error) {
	var deleted *model.GroupMessage
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g model.Group
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&g, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		msg, err := r.messageAt(tx, groupID, index)
		if err != nil {
			return err
		}
		if err := tx.Where("message_id=?", msg.ID).
			Delete(&model.GroupReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.GroupMessage{}, msg.ID).Error; err != nil {
			return err
		}
		deleted = msg
		return nil
	})
	return deleted, err
}

// React 表态 upsert。(message_id,user_id) 唯一，改 kind 原地翻转，
// 一个用户对一条消息永远只有一种表态
func (r *GroupRepository) React(ctx context.Context, messageID, userID uint64, kind string) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"kind": kind}),
	}).Create(&model.GroupReaction{
		MessageID: messageID,
		UserID:    userID,
		Kind:      kind,
	}).Error
}

// Reactions 某条消息的全部表态
func (r *GroupRepository) Reactions(ctx context.Context, messageID uint64) ([]model.GroupReaction, error) {
	var rows []model.GroupReaction
	err := r.DB.WithContext(ctx).
		Where("message_id=?", messageID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
