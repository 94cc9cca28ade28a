package service

import (
	"context"
	"errors"
	"testing"

	"Code_Connect/internal/model"
	"Code_Connect/internal/pkg"
)

type fakeFollowStore struct {
	edges   map[[2]uint64]bool
	listErr error
}

func newFakeFollowStore() *fakeFollowStore {
	return &fakeFollowStore{edges: make(map[[2]uint64]bool)}
}

func (f *fakeFollowStore) Follow(ctx context.Context, follower, followee uint64) (bool, error) {
	k := [2]uint64{follower, followee}
	if f.edges[k] {
		return false, nil
	}
	f.edges[k] = true
	return true, nil
}

func (f *fakeFollowStore) Unfollow(ctx context.Context, follower, followee uint64) (bool, error) {
	k := [2]uint64{follower, followee}
	if !f.edges[k] {
		return false, nil
	}
	delete(f.edges, k)
	return true, nil
}

func (f *fakeFollowStore) IsFollowing(ctx context.Context, follower, followee uint64) (bool, error) {
	return f.edges[[2]uint64{follower, followee}], nil
}

func (f *fakeFollowStore) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	return nil, 0, f.listErr
}

func (f *fakeFollowStore) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	return nil, 0, f.listErr
}

func TestFollowRejectsSelf(t *testing.T) {
	svc := &FollowService{repo: newFakeFollowStore()}
	if _, err := svc.Follow(context.Background(), 7, 7); pkg.KindOf(err) != pkg.KindInvalidInput {
		t.Fatalf("self follow: want InvalidInput, got %v", err)
	}
	if _, err := svc.Unfollow(context.Background(), 7, 7); pkg.KindOf(err) != pkg.KindInvalidInput {
		t.Fatalf("self unfollow: want InvalidInput, got %v", err)
	}
	if _, err := svc.Follow(context.Background(), 0, 7); pkg.KindOf(err) != pkg.KindInvalidInput {
		t.Fatalf("zero id: want InvalidInput, got %v", err)
	}
}

func TestFollowIdempotent(t *testing.T) {
	svc := &FollowService{repo: newFakeFollowStore()}
	ctx := context.Background()

	changed, err := svc.Follow(ctx, 1, 2)
	if err != nil || !changed {
		t.Fatalf("first follow: changed=%v err=%v", changed, err)
	}
	changed, err = svc.Follow(ctx, 1, 2)
	if err != nil || changed {
		t.Fatalf("repeat follow must be a no-op: changed=%v err=%v", changed, err)
	}

	changed, err = svc.Unfollow(ctx, 1, 2)
	if err != nil || !changed {
		t.Fatalf("unfollow: changed=%v err=%v", changed, err)
	}
	changed, err = svc.Unfollow(ctx, 1, 2)
	if err != nil || changed {
		t.Fatalf("repeat unfollow must be a no-op: changed=%v err=%v", changed, err)
	}
}

func TestListFollowErrorMapping(t *testing.T) {
	store := newFakeFollowStore()
	svc := &FollowService{repo: store}
	ctx := context.Background()

	if _, _, err := svc.ListFollowings(ctx, 0, 0, 10); pkg.KindOf(err) != pkg.KindInvalidInput {
		t.Fatalf("zero user: want InvalidInput, got %v", err)
	}
	if _, _, err := svc.ListFollowers(ctx, 0, 0, 10); pkg.KindOf(err) != pkg.KindInvalidInput {
		t.Fatalf("zero user: want InvalidInput, got %v", err)
	}

	store.listErr = errors.New("connection reset")
	if _, _, err := svc.ListFollowings(ctx, 1, 0, 10); pkg.KindOf(err) != pkg.KindUpstream {
		t.Fatalf("storage error: want Upstream, got %v", err)
	}
	if _, _, err := svc.ListFollowers(ctx, 1, 0, 10); pkg.KindOf(err) != pkg.KindUpstream {
		t.Fatalf("storage error: want Upstream, got %v", err)
	}
}

type fakeOutboxStore struct {
	rows     map[uint64]*model.SocialOutbox
	maxRetry int
}

func (f *fakeOutboxStore) List(ctx context.Context, batchSize int) ([]model.SocialOutbox, error) {
	var out []model.SocialOutbox
	for _, r := range f.rows {
		if r.Status == 0 || (r.Status == 2 && r.Retry < f.maxRetry) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeOutboxStore) RetryUpdate(ctx context.Context, id uint64) error {
	f.rows[id].Status = 2
	f.rows[id].Retry++
	return nil
}

func (f *fakeOutboxStore) SuccessUpdate(ctx context.Context, id uint64) error {
	f.rows[id].Status = 1
	return nil
}

func TestOutboxRelayerRetriesFailedEvents(t *testing.T) {
	store := &fakeOutboxStore{
		rows:     map[uint64]*model.SocialOutbox{1: {ID: 1, EventType: "follow", Status: 0}},
		maxRetry: 3,
	}
	fail := true
	relayer := &OutboxRelayer{
		repo:      store,
		batchSize: 10,
		sender: func(ctx context.Context, ob *model.SocialOutbox) error {
			if fail {
				return errors.New("broker down")
			}
			return nil
		},
	}
	ctx := context.Background()

	// 首轮投递失败，事件计次但不能丢
	relayer.drainOnce(ctx)
	if store.rows[1].Status != 2 || store.rows[1].Retry != 1 {
		t.Fatalf("after failure: %+v", store.rows[1])
	}

	// broker 恢复后下一轮要把失败的事件补投出去
	fail = false
	relayer.drainOnce(ctx)
	if store.rows[1].Status != 1 {
		t.Fatalf("failed event must be redelivered: %+v", store.rows[1])
	}
}

func TestOutboxRelayerStopsAtRetryCap(t *testing.T) {
	store := &fakeOutboxStore{
		rows:     map[uint64]*model.SocialOutbox{1: {ID: 1, EventType: "unfollow", Status: 2, Retry: 3}},
		maxRetry: 3,
	}
	sent := 0
	relayer := &OutboxRelayer{
		repo:      store,
		batchSize: 10,
		sender: func(ctx context.Context, ob *model.SocialOutbox) error {
			sent++
			return nil
		},
	}

	relayer.drainOnce(context.Background())
	if sent != 0 {
		t.Fatalf("event past the cap must stay parked, sent=%d", sent)
	}
}

func TestFollowStatusMutual(t *testing.T) {
	svc := &FollowService{repo: newFakeFollowStore()}
	ctx := context.Background()

	st, err := svc.Status(ctx, 1, 2)
	if err != nil || st.Following || st.Mutual {
		t.Fatalf("empty graph: %+v err=%v", st, err)
	}

	svc.Follow(ctx, 1, 2)
	st, _ = svc.Status(ctx, 1, 2)
	if !st.Following || st.Mutual {
		t.Fatalf("one-way follow: %+v", st)
	}

	svc.Follow(ctx, 2, 1)
	st, _ = svc.Status(ctx, 1, 2)
	if !st.Following || !st.Mutual {
		t.Fatalf("mutual follow: %+v", st)
	}

	svc.Unfollow(ctx, 2, 1)
	st, _ = svc.Status(ctx, 1, 2)
	if !st.Following || st.Mutual {
		t.Fatalf("after unfollow mutual must drop: %+v", st)
	}
}
