package service

import (
	"context"
	"errors"
	"log"
	"time"

	"Code_Connect/internal/model"
	"Code_Connect/internal/pkg"
	"Code_Connect/internal/repository/mysql"
	"Code_Connect/internal/repository/redis"
)

// ChatStore 单聊存储
type ChatStore interface {
	FindOrCreate(ctx context.Context, a, b uint64, oneOff bool) (*model.Chat, bool, error)
	FindByID(ctx context.Context, id uint64) (*model.Chat, error)
	Append(ctx context.Context, chatID uint64, msg *model.ChatMessage) (*model.Chat, error)
	Messages(ctx context.Context, chatID uint64) ([]model.ChatMessage, error)
	ListForUser(ctx context.Context, userID uint64, limit int) ([]model.Chat, error)
}

// FriendChecker / FollowChecker 决定会话语义的两个口子
type FriendChecker interface {
	AreFriends(ctx context.Context, a, b uint64) (bool, error)
}

type FollowChecker interface {
	IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error)
}

// RecentProjector 最近会话投影，写失败只记日志
type RecentProjector interface {
	Upsert(ctx context.Context, userID uint64, entry redis.RecentConversation) error
	List(ctx context.Context, userID uint64) ([]redis.RecentConversation, error)
}

type ChatService struct {
	repo     ChatStore
	friends  FriendChecker
	follows  FollowChecker
	profiles ProfileStore
	recent   RecentProjector
}

func NewChatService() *ChatService {
	return &ChatService{
		repo:     &mysql.ChatRepository{DB: mysql.DB},
		friends:  &mysql.FriendRequestRepository{DB: mysql.DB},
		follows:  &mysql.FollowRepository{DB: mysql.DB},
		profiles: &mysql.ProfileRepository{DB: mysql.DB},
		recent:   &redis.RecentConvRepository{},
	}
}

func (s *ChatService) validatePair(userID, otherID uint64) error {
	if userID == 0 || otherID == 0 {
		return pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	if userID == otherID {
		return pkg.NewError(pkg.KindInvalidInput, "cannot chat with yourself")
	}
	ok, err := s.profiles.Exists(otherID)
	if err != nil {
		return pkg.WrapUpstream(err)
	}
	if !ok {
		return pkg.NewError(pkg.KindNotFound, "user not found")
	}
	return nil
}

// OpenFriendChat 好友入口。必须已是好友，建出来永远是普通会话
func (s *ChatService) OpenFriendChat(ctx context.Context, userID, otherID uint64) (*model.Chat, error) {
	if err := s.validatePair(userID, otherID); err != nil {
		return nil, err
	}
	ok, err := s.friends.AreFriends(ctx, userID, otherID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	if !ok {
		return nil, pkg.NewError(pkg.KindNotAuthorized, "not friends")
	}
	chat, _, err := s.repo.FindOrCreate(ctx, userID, otherID, false)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	return chat, nil
}

// StartChat 关注图入口。双向关注才算 mutual，否则建成一次性会话；
// oneOff 建时定死，之后互关也不再回头改
func (s *ChatService) StartChat(ctx context.Context, userID, otherID uint64) (*model.Chat, error) {
	if err := s.validatePair(userID, otherID); err != nil {
		return nil, err
	}
	follows, err := s.follows.IsFollowing(ctx, userID, otherID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	followedBy, err := s.follows.IsFollowing(ctx, otherID, userID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	mutual := follows && followedBy
	chat, _, err := s.repo.FindOrCreate(ctx, userID, otherID, !mutual)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	return chat, nil
}

// SendMessage 文本消息
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID uint64, content string) (*model.Chat, error) {
	if content == "" {
		return nil, pkg.NewError(pkg.KindInvalidInput, "content required")
	}
	return s.send(ctx, chatID, senderID, &model.ChatMessage{
		SenderID: senderID,
		Content:  content,
	})
}

// SendImageMessage 图片消息，content 固定占位
func (s *ChatService) SendImageMessage(ctx context.Context, chatID, senderID uint64, imageURL string) (*model.Chat, error) {
	if imageURL == "" {
		return nil, pkg.NewError(pkg.KindInvalidInput, "image required")
	}
	return s.send(ctx, chatID, senderID, &model.ChatMessage{
		SenderID: senderID,
		Content:  "[Image]",
		ImageURL: imageURL,
	})
}

func (s *ChatService) send(ctx context.Context, chatID, senderID uint64, msg *model.ChatMessage) (*model.Chat, error) {
	chat, err := s.repo.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, mysql.ErrChatNotFound) {
			return nil, pkg.NewError(pkg.KindNotFound, "chat not found")
		}
		return nil, pkg.WrapUpstream(err)
	}
	if !chat.Has(senderID) {
		return nil, pkg.NewError(pkg.KindNotAuthorized, "not a participant")
	}
	chat, err = s.repo.Append(ctx, chatID, msg)
	if err != nil {
		switch {
		case errors.Is(err, mysql.ErrChatExhausted):
			return nil, pkg.NewError(pkg.KindConflict, "one-off chat already used")
		case errors.Is(err, mysql.ErrChatNotFound):
			return nil, pkg.NewError(pkg.KindNotFound, "chat not found")
		default:
			return nil, pkg.WrapUpstream(err)
		}
	}
	s.projectRecent(ctx, chat, senderID, msg.Content)
	return chat, nil
}

// projectRecent 给双方更新最近会话投影。尽力而为，失败不影响发送结果
func (s *ChatService) projectRecent(ctx context.Context, chat *model.Chat, senderID uint64, lastMessage string) {
	now := time.Now().UnixMilli()
	for _, uid := range []uint64{chat.UserLo, chat.UserHi} {
		entry := redis.RecentConversation{
			ChatID:       chat.ID,
			Counterpart:  chat.Other(uid),
			LastMessage:  lastMessage,
			UpdatedAtRaw: now,
		}
		if err := s.recent.Upsert(ctx, uid, entry); err != nil {
			log.Printf("recent conversation upsert err user=%d chat=%d: %v", uid, chat.ID, err)
		}
	}
}

// Messages 全量取消息，仅参与者可见
func (s *ChatService) Messages(ctx context.Context, chatID, userID uint64) ([]model.ChatMessage, error) {
	chat, err := s.repo.FindByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, mysql.ErrChatNotFound) {
			return nil, pkg.NewError(pkg.KindNotFound, "chat not found")
		}
		return nil, pkg.WrapUpstream(err)
	}
	if !chat.Has(userID) {
		return nil, pkg.NewError(pkg.KindNotAuthorized, "not a participant")
	}
	msgs, err := s.repo.Messages(ctx, chatID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	return msgs, nil
}

// ListChats 按最近更新排
func (s *ChatService) ListChats(ctx context.Context, userID uint64, limit int) ([]model.Chat, error) {
	if userID == 0 {
		return nil, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	chats, err := s.repo.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	return chats, nil
}

// RecentConversations 读 Redis 投影
func (s *ChatService) RecentConversations(ctx context.Context, userID uint64) ([]redis.RecentConversation, error) {
	if userID == 0 {
		return nil, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	list, err := s.recent.List(ctx, userID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	return list, nil
}
