package service

import (
	"context"
	"errors"

	"Code_Connect/internal/model"
	"Code_Connect/internal/pkg"
	"Code_Connect/internal/repository/mysql"
)

// FriendStore 好友请求存储
type FriendStore interface {
	Send(ctx context.Context, fromID, toID uint64) (*model.FriendRequest, bool, error)
	FindByID(ctx context.Context, id uint64) (*model.FriendRequest, error)
	Transition(ctx context.Context, id uint64, to model.FriendRequestStatus) (*model.FriendRequest, error)
	ListPending(ctx context.Context, userID uint64) (incoming, outgoing []model.FriendRequest, err error)
	AreFriends(ctx context.Context, a, b uint64) (bool, error)
	ListFriends(ctx context.Context, userID uint64) ([]model.FriendRequest, error)
}

// ProfileStore 档案侧只用到存在性检查
type ProfileStore interface {
	Exists(id uint64) (bool, error)
}

type FriendService struct {
	repo     FriendStore
	profiles ProfileStore
}

func NewFriendService() *FriendService {
	return &FriendService{
		repo:     &mysql.FriendRequestRepository{DB: mysql.DB},
		profiles: &mysql.ProfileRepository{DB: mysql.DB},
	}
}

// SendRequest 发好友请求。同向活跃请求和反向请求都原样返回而不是报错，
// 调用方按 created 判断是不是新请求
func (s *FriendService) SendRequest(ctx context.Context, fromID, toID uint64) (*model.FriendRequest, bool, error) {
	if fromID == 0 || toID == 0 {
		return nil, false, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	if fromID == toID {
		return nil, false, pkg.NewError(pkg.KindInvalidInput, "cannot friend yourself")
	}
	ok, err := s.profiles.Exists(toID)
	if err != nil {
		return nil, false, pkg.WrapUpstream(err)
	}
	if !ok {
		return nil, false, pkg.NewError(pkg.KindNotFound, "user not found")
	}
	req, created, err := s.repo.Send(ctx, fromID, toID)
	if err != nil {
		return nil, false, pkg.WrapUpstream(err)
	}
	return req, created, nil
}

// Respond 只有收件方能 accept/reject，终态不允许再操作
func (s *FriendService) Respond(ctx context.Context, requestID, actingUser uint64, action string) (*model.FriendRequest, error) {
	var to model.FriendRequestStatus
	switch action {
	case "accept":
		to = model.RequestAccepted
	case "reject":
		to = model.RequestRejected
	default:
		return nil, pkg.NewError(pkg.KindInvalidInput, "invalid action")
	}

	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, mysql.ErrRequestNotFound) {
			return nil, pkg.NewError(pkg.KindNotFound, "request not found")
		}
		return nil, pkg.WrapUpstream(err)
	}
	if req.ToID != actingUser {
		return nil, pkg.NewError(pkg.KindNotAuthorized, "not authorized")
	}

	req, err = s.repo.Transition(ctx, requestID, to)
	if err != nil {
		switch {
		case errors.Is(err, mysql.ErrTerminal):
			return nil, pkg.NewError(pkg.KindConflict, "request already settled")
		case errors.Is(err, mysql.ErrRequestNotFound):
			return nil, pkg.NewError(pkg.KindNotFound, "request not found")
		default:
			return nil, pkg.WrapUpstream(err)
		}
	}
	return req, nil
}

// ListRequests 入站/出站 pending 分开返回
func (s *FriendService) ListRequests(ctx context.Context, userID uint64) (incoming, outgoing []model.FriendRequest, err error) {
	if userID == 0 {
		return nil, nil, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	incoming, outgoing, err = s.repo.ListPending(ctx, userID)
	if err != nil {
		return nil, nil, pkg.WrapUpstream(err)
	}
	return incoming, outgoing, nil
}

func (s *FriendService) AreFriends(ctx context.Context, a, b uint64) (bool, error) {
	if a == 0 || b == 0 {
		return false, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	ok, err := s.repo.AreFriends(ctx, a, b)
	if err != nil {
		return false, pkg.WrapUpstream(err)
	}
	return ok, nil
}

// Contact 好友列表条目，对端视角
type Contact struct {
	UserID uint64 `json:"user_id"`
}

// ListFriends accepted 请求翻成对端用户列表
func (s *FriendService) ListFriends(ctx context.Context, userID uint64) ([]Contact, error) {
	if userID == 0 {
		return nil, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	rows, err := s.repo.ListFriends(ctx, userID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	contacts := make([]Contact, 0, len(rows))
	for _, fr := range rows {
		other := fr.FromID
		if other == userID {
			other = fr.ToID
		}
		contacts = append(contacts, Contact{UserID: other})
	}
	return contacts, nil
}
