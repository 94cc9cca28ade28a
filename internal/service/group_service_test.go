package service

import (
	"context"
	"testing"

	"Code_Connect/internal/model"
	"Code_Connect/internal/pkg"
	"Code_Connect/internal/repository/mysql"
)

type fakeGroupStore struct {
	nextID    uint64
	nextMsgID uint64
	groups    map[uint64]*model.Group
	members   map[uint64]map[uint64]int // groupID -> userID -> role
	messages  map[uint64][]*model.GroupMessage
	reactions map[uint64]map[uint64]string // messageID -> userID -> kind
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{
		nextID:    1,
		nextMsgID: 1,
		groups:    make(map[uint64]*model.Group),
		members:   make(map[uint64]map[uint64]int),
		messages:  make(map[uint64][]*model.GroupMessage),
		reactions: make(map[uint64]map[uint64]string),
	}
}

func (f *fakeGroupStore) Create(ctx context.Context, g *model.Group, memberIDs []uint64) (*model.Group, error) {
	g.ID = f.nextID
	f.nextID++
	f.groups[g.ID] = g
	f.members[g.ID] = map[uint64]int{g.CreatorID: model.GroupRoleAdmin}
	for _, id := range memberIDs {
		if id == g.CreatorID {
			continue
		}
		f.members[g.ID][id] = model.GroupRoleMember
	}
	return g, nil
}

func (f *fakeGroupStore) FindByID(ctx context.Context, id uint64) (*model.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, mysql.ErrGroupNotFound
	}
	return g, nil
}

func (f *fakeGroupStore) Members(ctx context.Context, groupID uint64) ([]model.GroupMember, error) {
	var out []model.GroupMember
	for uid, role := range f.members[groupID] {
		out = append(out, model.GroupMember{GroupID: groupID, UserID: uid, Role: role})
	}
	return out, nil
}

func (f *fakeGroupStore) RoleOf(ctx context.Context, groupID, userID uint64) (int, error) {
	role, ok := f.members[groupID][userID]
	if !ok {
		return -1, nil
	}
	return role, nil
}

func (f *fakeGroupStore) UpdateMeta(ctx context.Context, groupID uint64, updates map[string]any) error {
	g := f.groups[groupID]
	if v, ok := updates["name"]; ok {
		g.Name = v.(string)
	}
	if v, ok := updates["profile_image"]; ok {
		g.ProfileImage = v.(string)
	}
	if v, ok := updates["admin_mode"]; ok {
		g.AdminMode = v.(bool)
	}
	return nil
}

func (f *fakeGroupStore) ReplaceMembers(ctx context.Context, groupID, creatorID uint64, memberIDs []uint64) error {
	keep := map[uint64]bool{creatorID: true}
	for _, id := range memberIDs {
		keep[id] = true
	}
	current := f.members[groupID]
	for uid := range current {
		if !keep[uid] {
			delete(current, uid)
		}
	}
	for id := range keep {
		if _, ok := current[id]; !ok {
			current[id] = model.GroupRoleMember
		}
	}
	current[creatorID] = model.GroupRoleAdmin
	return nil
}

func (f *fakeGroupStore) SetRole(ctx context.Context, groupID, userID uint64, role int) error {
	if _, ok := f.members[groupID][userID]; ok {
		f.members[groupID][userID] = role
	}
	return nil
}

func (f *fakeGroupStore) RemoveMember(ctx context.Context, groupID, userID uint64) error {
	delete(f.members[groupID], userID)
	return nil
}

func (f *fakeGroupStore) ListForUser(ctx context.Context, userID uint64) ([]model.Group, error) {
	var out []model.Group
	for gid, members := range f.members {
		if _, ok := members[userID]; ok {
			out = append(out, *f.groups[gid])
		}
	}
	return out, nil
}

func (f *fakeGroupStore) AppendMessage(ctx context.Context, groupID uint64, msg *model.GroupMessage) error {
	if _, ok := f.groups[groupID]; !ok {
		return mysql.ErrGroupNotFound
	}
	msg.ID = f.nextMsgID
	f.nextMsgID++
	msg.GroupID = groupID
	f.messages[groupID] = append(f.messages[groupID], msg)
	return nil
}

func (f *fakeGroupStore) Messages(ctx context.Context, groupID uint64) ([]model.GroupMessage, error) {
	var out []model.GroupMessage
	for _, m := range f.messages[groupID] {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeGroupStore) MessageAt(ctx context.Context, groupID uint64, index int) (*model.GroupMessage, error) {
	msgs := f.messages[groupID]
	if index < 0 || index >= len(msgs) {
		return nil, mysql.ErrMessageNotFound
	}
	return msgs[index], nil
}

func (f *fakeGroupStore) DeleteMessageAt(ctx context.Context, groupID uint64, index int) (*model.GroupMessage, error) {
	msgs := f.messages[groupID]
	if index < 0 || index >= len(msgs) {
		return nil, mysql.ErrMessageNotFound
	}
	deleted := msgs[index]
	f.messages[groupID] = append(msgs[:index], msgs[index+1:]...)
	delete(f.reactions, deleted.ID)
	return deleted, nil
}

func (f *fakeGroupStore) React(ctx context.Context, messageID, userID uint64, kind string) error {
	if f.reactions[messageID] == nil {
		f.reactions[messageID] = make(map[uint64]string)
	}
	f.reactions[messageID][userID] = kind
	return nil
}

func (f *fakeGroupStore) Reactions(ctx context.Context, messageID uint64) ([]model.GroupReaction, error) {
	var out []model.GroupReaction
	for uid, kind := range f.reactions[messageID] {
		out = append(out, model.GroupReaction{MessageID: messageID, UserID: uid, Kind: kind})
	}
	return out, nil
}

type noopReactionCache struct{}

func (noopReactionCache) SetReaction(ctx context.Context, msgID, userID uint64, like bool) error {
	return nil
}
func (noopReactionCache) Counts(ctx context.Context, msgID uint64) (int64, int64, bool, error) {
	return 0, 0, false, nil
}
func (noopReactionCache) Warm(ctx context.Context, msgID uint64, likeIDs, dislikeIDs []uint64) {}
func (noopReactionCache) Invalidate(ctx context.Context, msgID uint64)                        {}

type noopLock struct{}

func (noopLock) Acquire(ctx context.Context, msgID uint64, token string) (bool, error) {
	return true, nil
}
func (noopLock) Release(ctx context.Context, msgID uint64, token string) error { return nil }

func newGroupService() (*GroupService, *fakeGroupStore) {
	store := newFakeGroupStore()
	return &GroupService{repo: store, cache: noopReactionCache{}, lock: noopLock{}}, store
}

func TestCreateGroupCreatorIsAdmin(t *testing.T) {
	svc, store := newGroupService()
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, "gophers", 1, []uint64{2, 3, 2, 1}, "")
	if err != nil {
		t.Fatal(err)
	}
	if role := store.members[g.ID][1]; role != model.GroupRoleAdmin {
		t.Fatalf("creator role: %d", role)
	}
	if len(store.members[g.ID]) != 3 {
		t.Fatalf("members must be deduped: %v", store.members[g.ID])
	}

	if _, err := svc.CreateGroup(ctx, "", 1, nil, ""); pkg.KindOf(err) != pkg.KindInvalidInput {
		t.Fatalf("empty name: want InvalidInput, got %v", err)
	}
}

func TestUpdateGroupAuthorizationAndMembers(t *testing.T) {
	svc, store := newGroupService()
	ctx := context.Background()

	g, _ := svc.CreateGroup(ctx, "gophers", 1, []uint64{2, 3}, "")
	svc.AddAdmin(ctx, g.ID, 1, 2)

	// 非管理员不能改
	if _, err := svc.UpdateGroup(ctx, g.ID, 3, GroupPatch{}); pkg.KindOf(err) != pkg.KindNotAuthorized {
		t.Fatalf("non-admin update: want NotAuthorized, got %v", err)
	}

	// 替换名单漏了创建者也会被强制保留；2 被移出名单，管理员身份一起掉
	newMembers := []uint64{3, 4}
	if _, err := svc.UpdateGroup(ctx, g.ID, 1, GroupPatch{Members: &newMembers}); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.members[g.ID][1]; !ok {
		t.Fatal("creator must survive member replacement")
	}
	if store.members[g.ID][1] != model.GroupRoleAdmin {
		t.Fatal("creator must stay admin")
	}
	if _, ok := store.members[g.ID][2]; ok {
		t.Fatal("user 2 must be removed")
	}
	if role, ok := store.members[g.ID][4]; !ok || role != model.GroupRoleMember {
		t.Fatalf("user 4 must join as plain member: %d", role)
	}
}

func TestAdminLifecycle(t *testing.T) {
	svc, store := newGroupService()
	ctx := context.Background()

	g, _ := svc.CreateGroup(ctx, "gophers", 1, []uint64{2}, "")

	// 升管理员要求目标已是成员
	if err := svc.AddAdmin(ctx, g.ID, 1, 99); pkg.KindOf(err) != pkg.KindInvalidInput {
		t.Fatalf("add non-member: want InvalidInput, got %v", err)
	}
	if err := svc.AddAdmin(ctx, g.ID, 2, 2); pkg.KindOf(err) != pkg.KindNotAuthorized {
		t.Fatalf("non-admin requester: want NotAuthorized, got %v", err)
	}
	if err := svc.AddAdmin(ctx, g.ID, 1, 2); err != nil {
		t.Fatal(err)
	}
	if store.members[g.ID][2] != model.GroupRoleAdmin {
		t.Fatal("user 2 must be admin")
	}

	// 创建者动不得
	if err := svc.RemoveAdmin(ctx, g.ID, 2, 1); pkg.KindOf(err) != pkg.KindConflict {
		t.Fatalf("remove creator: want Conflict, got %v", err)
	}
	if err := svc.RemoveAdmin(ctx, g.ID, 1, 2); err != nil {
		t.Fatal(err)
	}
	if store.members[g.ID][2] != model.GroupRoleMember {
		t.Fatal("user 2 must be demoted")
	}
}

func TestLeaveGroup(t *testing.T) {
	svc, store := newGroupService()
	ctx := context.Background()

	g, _ := svc.CreateGroup(ctx, "gophers", 1, []uint64{2}, "")

	if err := svc.LeaveGroup(ctx, g.ID, 1); pkg.KindOf(err) != pkg.KindConflict {
		t.Fatalf("creator leave: want Conflict, got %v", err)
	}
	if err := svc.LeaveGroup(ctx, g.ID, 2); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.members[g.ID][2]; ok {
		t.Fatal("user 2 must be gone")
	}
}

func TestReactionExclusivity(t *testing.T) {
	svc, store := newGroupService()
	ctx := context.Background()

	g, _ := svc.CreateGroup(ctx, "gophers", 1, []uint64{2}, "")
	svc.PostMessage(ctx, g.ID, 1, "", "data:image/png;base64,xxx")
	svc.PostMessage(ctx, g.ID, 1, "text only", "")

	// 文本消息不可表态
	if _, _, err := svc.ReactToMessage(ctx, g.ID, 2, 1, "like"); pkg.KindOf(err) != pkg.KindInvalidInput {
		t.Fatalf("react to text: want InvalidInput, got %v", err)
	}
	if _, _, err := svc.ReactToMessage(ctx, g.ID, 2, 9, "like"); pkg.KindOf(err) != pkg.KindNotFound {
		t.Fatalf("react out of range: want NotFound, got %v", err)
	}

	likes, dislikes, err := svc.ReactToMessage(ctx, g.ID, 2, 0, "like")
	if err != nil || likes != 1 || dislikes != 0 {
		t.Fatalf("like: %d/%d err=%v", likes, dislikes, err)
	}

	// 改踩，赞必须消失
	likes, dislikes, err = svc.ReactToMessage(ctx, g.ID, 2, 0, "dislike")
	if err != nil || likes != 0 || dislikes != 1 {
		t.Fatalf("flip to dislike: %d/%d err=%v", likes, dislikes, err)
	}

	msgID := store.messages[g.ID][0].ID
	if store.reactions[msgID][2] != model.ReactionDislike {
		t.Fatalf("stored kind: %s", store.reactions[msgID][2])
	}
}

func TestAdminModeScenario(t *testing.T) {
	svc, _ := newGroupService()
	ctx := context.Background()

	g, _ := svc.CreateGroup(ctx, "gophers", 1, []uint64{2}, "")

	on := true
	if _, err := svc.UpdateGroup(ctx, g.ID, 1, GroupPatch{AdminMode: &on}); err != nil {
		t.Fatal(err)
	}

	// adminMode 下普通成员发不了
	if err := svc.PostMessage(ctx, g.ID, 2, "hi", ""); pkg.KindOf(err) != pkg.KindNotAuthorized {
		t.Fatalf("member under adminMode: want NotAuthorized, got %v", err)
	}
	// 非成员任何时候都发不了
	if err := svc.PostMessage(ctx, g.ID, 9, "hi", ""); pkg.KindOf(err) != pkg.KindNotAuthorized {
		t.Fatalf("outsider: want NotAuthorized, got %v", err)
	}

	off := false
	svc.UpdateGroup(ctx, g.ID, 1, GroupPatch{AdminMode: &off})
	if err := svc.PostMessage(ctx, g.ID, 2, "hi", ""); err != nil {
		t.Fatalf("member after adminMode off: %v", err)
	}

	// 删 0 号消息后列表清空
	if err := svc.DeleteMessage(ctx, g.ID, 2, 0); pkg.KindOf(err) != pkg.KindNotAuthorized {
		t.Fatalf("non-admin delete: want NotAuthorized, got %v", err)
	}
	if err := svc.DeleteMessage(ctx, g.ID, 1, 0); err != nil {
		t.Fatal(err)
	}
	msgs, err := svc.Messages(ctx, g.ID, 1)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("messages after delete: %d err=%v", len(msgs), err)
	}
}

func TestDeleteShiftsIndices(t *testing.T) {
	svc, _ := newGroupService()
	ctx := context.Background()

	g, _ := svc.CreateGroup(ctx, "gophers", 1, nil, "")
	svc.PostMessage(ctx, g.ID, 1, "a", "")
	svc.PostMessage(ctx, g.ID, 1, "b", "")
	svc.PostMessage(ctx, g.ID, 1, "c", "")

	if err := svc.DeleteMessage(ctx, g.ID, 1, 1); err != nil {
		t.Fatal(err)
	}
	msgs, _ := svc.Messages(ctx, g.ID, 1)
	if len(msgs) != 2 || msgs[0].Content != "a" || msgs[1].Content != "c" {
		t.Fatalf("after delete: %+v", msgs)
	}
}
