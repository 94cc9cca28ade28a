package service

import (
	"context"
	"errors"

	"Code_Connect/internal/model"
	"Code_Connect/internal/pkg"
	"Code_Connect/internal/repository/mysql"
	"Code_Connect/internal/repository/redis"

	"github.com/google/uuid"
)

// GroupStore 群聊存储
type GroupStore interface {
	Create(ctx context.Context, g *model.Group, memberIDs []uint64) (*model.Group, error)
	FindByID(ctx context.Context, id uint64) (*model.Group, error)
	Members(ctx context.Context, groupID uint64) ([]model.GroupMember, error)
	RoleOf(ctx context.Context, groupID, userID uint64) (int, error)
	UpdateMeta(ctx context.Context, groupID uint64, updates map[string]any) error
	ReplaceMembers(ctx context.Context, groupID, creatorID uint64, memberIDs []uint64) error
	SetRole(ctx context.Context, groupID, userID uint64, role int) error
	RemoveMember(ctx context.Context, groupID, userID uint64) error
	ListForUser(ctx context.Context, userID uint64) ([]model.Group, error)
	AppendMessage(ctx context.Context, groupID uint64, msg *model.GroupMessage) error
	Messages(ctx context.Context, groupID uint64) ([]model.GroupMessage, error)
	MessageAt(ctx context.Context, groupID uint64, index int) (*model.GroupMessage, error)
	DeleteMessageAt(ctx context.Context, groupID uint64, index int) (*model.GroupMessage, error)
	React(ctx context.Context, messageID, userID uint64, kind string) error
	Reactions(ctx context.Context, messageID uint64) ([]model.GroupReaction, error)
}

// ReactionCache 表态缓存，全程尽力而为
type ReactionCache interface {
	SetReaction(ctx context.Context, msgID, userID uint64, like bool) error
	Counts(ctx context.Context, msgID uint64) (likes, dislikes int64, hit bool, err error)
	Warm(ctx context.Context, msgID uint64, likeIDs, dislikeIDs []uint64)
	Invalidate(ctx context.Context, msgID uint64)
}

// ReactionLock 并发改同一条消息表态时的缓存保护
type ReactionLock interface {
	Acquire(ctx context.Context, msgID uint64, token string) (bool, error)
	Release(ctx context.Context, msgID uint64, token string) error
}

type GroupService struct {
	repo  GroupStore
	cache ReactionCache
	lock  ReactionLock
}

func NewGroupService() *GroupService {
	return &GroupService{
		repo:  &mysql.GroupRepository{DB: mysql.DB},
		cache: redis.NewReactionCacheRepository(),
		lock:  &redis.DistLock{RDB: redis.Client},
	}
}

// GroupPatch UpdateGroup 的可选字段，nil 表示不动
type GroupPatch struct {
	Name         *string
	ProfileImage *string
	AdminMode    *bool
	Members      *[]uint64
}

// CreateGroup 建群，创建者自动成为管理员，初始成员去重
func (s *GroupService) CreateGroup(ctx context.Context, name string, creatorID uint64, memberIDs []uint64, profileImage string) (*model.Group, error) {
	if name == "" {
		return nil, pkg.NewError(pkg.KindInvalidInput, "group name required")
	}
	if creatorID == 0 {
		return nil, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	g := &model.Group{
		Name:         name,
		ProfileImage: profileImage,
		CreatorID:    creatorID,
	}
	if _, err := s.repo.Create(ctx, g, memberIDs); err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	return g, nil
}

// 取群并要求 actingUser 是管理员
func (s *GroupService) requireAdmin(ctx context.Context, groupID, userID uint64) (*model.Group, error) {
	g, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, mysql.ErrGroupNotFound) {
			return nil, pkg.NewError(pkg.KindNotFound, "group not found")
		}
		return nil, pkg.WrapUpstream(err)
	}
	role, err := s.repo.RoleOf(ctx, groupID, userID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	if role != model.GroupRoleAdmin {
		return nil, pkg.NewError(pkg.KindNotAuthorized, "not admin")
	}
	return g, nil
}

// UpdateGroup 管理员改群资料。替换成员名单时创建者强制保留，
// 被移出名单的管理员随成员行一起掉权，创建者除外
func (s *GroupService) UpdateGroup(ctx context.Context, groupID, actingAdmin uint64, patch GroupPatch) (*model.Group, error) {
	g, err := s.requireAdmin(ctx, groupID, actingAdmin)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, pkg.NewError(pkg.KindInvalidInput, "group name required")
		}
		updates["name"] = *patch.Name
	}
	if patch.ProfileImage != nil {
		updates["profile_image"] = *patch.ProfileImage
	}
	if patch.AdminMode != nil {
		updates["admin_mode"] = *patch.AdminMode
	}
	if err := s.repo.UpdateMeta(ctx, groupID, updates); err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	if patch.Members != nil {
		if err := s.repo.ReplaceMembers(ctx, groupID, g.CreatorID, *patch.Members); err != nil {
			return nil, pkg.WrapUpstream(err)
		}
	}
	g, err = s.repo.FindByID(ctx, groupID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	return g, nil
}

// AddAdmin 升管理员，目标必须已是成员
func (s *GroupService) AddAdmin(ctx context.Context, groupID, requesterID, targetID uint64) error {
	if _, err := s.requireAdmin(ctx, groupID, requesterID); err != nil {
		return err
	}
	role, err := s.repo.RoleOf(ctx, groupID, targetID)
	if err != nil {
		return pkg.WrapUpstream(err)
	}
	if role < 0 {
		return pkg.NewError(pkg.KindInvalidInput, "target not a member")
	}
	if role == model.GroupRoleAdmin {
		return nil
	}
	if err := s.repo.SetRole(ctx, groupID, targetID, model.GroupRoleAdmin); err != nil {
		return pkg.WrapUpstream(err)
	}
	return nil
}

// RemoveAdmin 降管理员，创建者动不得
func (s *GroupService) RemoveAdmin(ctx context.Context, groupID, requesterID, targetID uint64) error {
	g, err := s.requireAdmin(ctx, groupID, requesterID)
	if err != nil {
		return err
	}
	if targetID == g.CreatorID {
		return pkg.NewError(pkg.KindConflict, "cannot remove creator")
	}
	if err := s.repo.SetRole(ctx, groupID, targetID, model.GroupRoleMember); err != nil {
		return pkg.WrapUpstream(err)
	}
	return nil
}

// PostMessage 发群消息。adminMode 开着时只有管理员能发
func (s *GroupService) PostMessage(ctx context.Context, groupID, senderID uint64, content, imageURL string) error {
	if content == "" && imageURL == "" {
		return pkg.NewError(pkg.KindInvalidInput, "content or image required")
	}
	g, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, mysql.ErrGroupNotFound) {
			return pkg.NewError(pkg.KindNotFound, "group not found")
		}
		return pkg.WrapUpstream(err)
	}
	role, err := s.repo.RoleOf(ctx, groupID, senderID)
	if err != nil {
		return pkg.WrapUpstream(err)
	}
	if role < 0 {
		return pkg.NewError(pkg.KindNotAuthorized, "not a member")
	}
	if g.AdminMode && role != model.GroupRoleAdmin {
		return pkg.NewError(pkg.KindNotAuthorized, "admin only")
	}
	msg := &model.GroupMessage{
		SenderID: senderID,
		Content:  content,
		ImageURL: imageURL,
	}
	if err := s.repo.AppendMessage(ctx, groupID, msg); err != nil {
		return pkg.WrapUpstream(err)
	}
	return nil
}

// DeleteMessage 管理员按序号删消息，序号在删除事务里换算成消息 ID
func (s *GroupService) DeleteMessage(ctx context.Context, groupID, actingAdmin uint64, index int) error {
	if _, err := s.requireAdmin(ctx, groupID, actingAdmin); err != nil {
		return err
	}
	msg, err := s.repo.DeleteMessageAt(ctx, groupID, index)
	if err != nil {
		switch {
		case errors.Is(err, mysql.ErrMessageNotFound):
			return pkg.NewError(pkg.KindNotFound, "message not found")
		case errors.Is(err, mysql.ErrGroupNotFound):
			return pkg.NewError(pkg.KindNotFound, "group not found")
		default:
			return pkg.WrapUpstream(err)
		}
	}
	s.cache.Invalidate(ctx, msg.ID)
	return nil
}

// LeaveGroup 退群。创建者不能退，成员行一删管理员身份一起没
func (s *GroupService) LeaveGroup(ctx context.Context, groupID, userID uint64) error {
	g, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, mysql.ErrGroupNotFound) {
			return pkg.NewError(pkg.KindNotFound, "group not found")
		}
		return pkg.WrapUpstream(err)
	}
	if userID == g.CreatorID {
		return pkg.NewError(pkg.KindConflict, "creator cannot leave group")
	}
	if err := s.repo.RemoveMember(ctx, groupID, userID); err != nil {
		return pkg.WrapUpstream(err)
	}
	return nil
}

// ReactToMessage 只有图片消息可表态。库里 upsert 保证互斥，
// 缓存拿锁才强更新，拿不到直接删 Key 交给读侧重建
func (s *GroupService) ReactToMessage(ctx context.Context, groupID, userID uint64, index int, reaction string) (likes, dislikes int64, err error) {
	if reaction != model.ReactionLike && reaction != model.ReactionDislike {
		return 0, 0, pkg.NewError(pkg.KindInvalidInput, "invalid reaction")
	}
	if _, err = s.repo.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, mysql.ErrGroupNotFound) {
			return 0, 0, pkg.NewError(pkg.KindNotFound, "group not found")
		}
		return 0, 0, pkg.WrapUpstream(err)
	}
	msg, err := s.repo.MessageAt(ctx, groupID, index)
	if err != nil {
		if errors.Is(err, mysql.ErrMessageNotFound) {
			return 0, 0, pkg.NewError(pkg.KindNotFound, "message not found")
		}
		return 0, 0, pkg.WrapUpstream(err)
	}
	if msg.ImageURL == "" {
		return 0, 0, pkg.NewError(pkg.KindInvalidInput, "message is not an image")
	}
	if err := s.repo.React(ctx, msg.ID, userID, reaction); err != nil {
		return 0, 0, pkg.WrapUpstream(err)
	}

	token := uuid.NewString()
	if got, _ := s.lock.Acquire(ctx, msg.ID, token); got {
		_ = s.cache.SetReaction(ctx, msg.ID, userID, reaction == model.ReactionLike)
		_ = s.lock.Release(ctx, msg.ID, token)
	} else {
		s.cache.Invalidate(ctx, msg.ID)
	}
	return s.reactionCounts(ctx, msg.ID)
}

// reactionCounts 缓存优先，miss 回源并回填
func (s *GroupService) reactionCounts(ctx context.Context, msgID uint64) (likes, dislikes int64, err error) {
	if l, d, hit, cerr := s.cache.Counts(ctx, msgID); cerr == nil && hit {
		return l, d, nil
	}
	rows, err := s.repo.Reactions(ctx, msgID)
	if err != nil {
		return 0, 0, pkg.WrapUpstream(err)
	}
	var likeIDs, dislikeIDs []uint64
	for _, r := range rows {
		if r.Kind == model.ReactionLike {
			likes++
			likeIDs = append(likeIDs, r.UserID)
		} else {
			dislikes++
			dislikeIDs = append(dislikeIDs, r.UserID)
		}
	}
	s.cache.Warm(ctx, msgID, likeIDs, dislikeIDs)
	return likes, dislikes, nil
}

// Messages 群消息列表，非成员不可见
func (s *GroupService) Messages(ctx context.Context, groupID, userID uint64) ([]model.GroupMessage, error) {
	if _, err := s.repo.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, mysql.ErrGroupNotFound) {
			return nil, pkg.NewError(pkg.KindNotFound, "group not found")
		}
		return nil, pkg.WrapUpstream(err)
	}
	role, err := s.repo.RoleOf(ctx, groupID, userID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	if role < 0 {
		return nil, pkg.NewError(pkg.KindNotAuthorized, "not a member")
	}
	msgs, err := s.repo.Messages(ctx, groupID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	return msgs, nil
}

// Members 群成员列表
func (s *GroupService) Members(ctx context.Context, groupID uint64) ([]model.GroupMember, error) {
	if _, err := s.repo.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, mysql.ErrGroupNotFound) {
			return nil, pkg.NewError(pkg.KindNotFound, "group not found")
		}
		return nil, pkg.WrapUpstream(err)
	}
	rows, err := s.repo.Members(ctx, groupID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	return rows, nil
}

// ListGroups 用户所在群
func (s *GroupService) ListGroups(ctx context.Context, userID uint64) ([]model.Group, error) {
	if userID == 0 {
		return nil, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	groups, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkg.WrapUpstream(err)
	}
	return groups, nil
}
