package mysql

import (
	"context"
	"errors"

	"Code_Connect/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FriendRequestRepository struct {
	DB *gorm.DB
}

var ErrRequestNotFound = errors.New("friend request not found")

// findActive 找一对用户间的活跃请求(pending/accepted)，方向分开查
func (r *FriendRequestRepository) findActive(tx *gorm.DB, fromID, toID uint64) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := tx.Where("from_id=? AND to_id=? AND status IN ?", fromID, toID,
		[]model.FriendRequestStatus{model.RequestPending, model.RequestAccepted}).
		First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// Send 发起请求。同向已有活跃请求原样返回；对方先发的 pending/accepted 也
// 原样返回不建新记录。先插再查：撞 uk_active_pair 说明活跃请求已存在，
// 回读取回，不依赖隔离级别挡并发双发
func (r *FriendRequestRepository) Send(ctx context.Context, fromID, toID uint64) (*model.FriendRequest, bool, error) {
	var (
		req     *model.FriendRequest
		created bool
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh := &model.FriendRequest{
			FromID: fromID,
			ToID:   toID,
			Status: model.RequestPending,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fresh)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			req = fresh
			created = true
			return nil
		}
		existing, err := r.findActive(tx, fromID, toID)
		if err != nil {
			return err
		}
		if existing != nil {
			req = existing
			return nil
		}
		reverse, err := r.findActive(tx, toID, fromID)
		if err != nil {
			return err
		}
		if reverse == nil {
			// 撞键的活跃行在插入和回读之间被流转掉了，按没找到处理让调用方重试
			return ErrRequestNotFound
		}
		req = reverse
		return nil
	})
	return req, created, err
}

// FindByID 按 ID 查请求
func (r *FriendRequestRepository) FindByID(ctx context.Context, id uint64) (*model.FriendRequest, error) {
	var req model.FriendRequest
	if err := r.DB.WithContext(ctx).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// Transition 锁行流转状态，只允许 pending 出发；终态重复操作报 ErrTerminal
var ErrTerminal = errors.New("request already settled")

func (r *FriendRequestRepository) Transition(ctx context.Context, id uint64, to model.FriendRequestStatus) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&req, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if req.Status.Terminal() {
			return ErrTerminal
		}
		if err := tx.Model(&req).Update("status", to).Error; err != nil {
			return err
		}
		req.Status = to
		if to == model.RequestAccepted {
			outbox := &OutboxRepository{DB: tx}
			return outbox.Insert("friend_accepted", req.FromID, req.ToID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListPending 入站/出站 pending 分开查
func (r *FriendRequestRepository) ListPending(ctx context.Context, userID uint64) (incoming, outgoing []model.FriendRequest, err error) {
	if err = r.DB.WithContext(ctx).
		Where("to_id=? AND status=?", userID, model.RequestPending).
		Order("id DESC").Find(&incoming).Error; err != nil {
		return
	}
	err = r.DB.WithContext(ctx).
		Where("from_id=? AND status=?", userID, model.RequestPending).
		Order("id DESC").Find(&outgoing).Error
	return
}

// AreFriends 无序对之间存在 accepted 即为好友
func (r *FriendRequestRepository) AreFriends(ctx context.Context, a, b uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.FriendRequest{}).
		Where("status=? AND ((from_id=? AND to_id=?) OR (from_id=? AND to_id=?))",
			model.RequestAccepted, a, b, b, a).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListFriends 取某用户全部 accepted 请求
func (r *FriendRequestRepository) ListFriends(ctx context.Context, userID uint64) ([]model.FriendRequest, error) {
	var rows []model.FriendRequest
	err := r.DB.WithContext(ctx).
		Where("status=? AND (from_id=? OR to_id=?)", model.RequestAccepted, userID, userID).
		Order("updated_at DESC").
		Find(&rows).Error
	return rows, err
}
