package service

import (
	"context"
	"log"
	"time"

	"Code_Connect/internal/model"
	"Code_Connect/internal/pkg"
	"Code_Connect/internal/repository/mysql"
)

// FollowStore 关注边存储
type FollowStore interface {
	Follow(ctx context.Context, followerID, followeeID uint64) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID uint64) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error)
	ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error)
	ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error)
}

type FollowService struct {
	repo FollowStore
}

func NewFollowService() *FollowService {
	return &FollowService{
		repo: &mysql.FollowRepository{DB: mysql.DB},
	}
}

// FollowStatus a 对 b 的关系
type FollowStatus struct {
	Following bool `json:"following"`
	Mutual    bool `json:"mutual"`
}

func (s *FollowService) Follow(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	if followerID == 0 || followeeID == 0 {
		return false, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	if followerID == followeeID {
		return false, pkg.NewError(pkg.KindInvalidInput, "cannot follow self")
	}
	changed, err := s.repo.Follow(ctx, followerID, followeeID)
	if err != nil {
		return false, pkg.WrapUpstream(err)
	}
	return changed, nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	if followerID == 0 || followeeID == 0 {
		return false, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	if followerID == followeeID {
		return false, pkg.NewError(pkg.KindInvalidInput, "cannot unfollow self")
	}
	changed, err := s.repo.Unfollow(ctx, followerID, followeeID)
	if err != nil {
		return false, pkg.WrapUpstream(err)
	}
	return changed, nil
}

// Status following = a→b，mutual = 双向都有边
func (s *FollowService) Status(ctx context.Context, a, b uint64) (FollowStatus, error) {
	var st FollowStatus
	if a == 0 || b == 0 {
		return st, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	following, err := s.repo.IsFollowing(ctx, a, b)
	if err != nil {
		return st, pkg.WrapUpstream(err)
	}
	followedBy, err := s.repo.IsFollowing(ctx, b, a)
	if err != nil {
		return st, pkg.WrapUpstream(err)
	}
	st.Following = following
	st.Mutual = following && followedBy
	return st, nil
}

func (s *FollowService) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	if userID == 0 {
		return nil, 0, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	rows, next, err := s.repo.ListFollowings(ctx, userID, cursor, limit)
	if err != nil {
		return nil, 0, pkg.WrapUpstream(err)
	}
	return rows, next, nil
}

func (s *FollowService) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	if userID == 0 {
		return nil, 0, pkg.NewError(pkg.KindInvalidInput, "invalid user id")
	}
	rows, next, err := s.repo.ListFollowers(ctx, userID, cursor, limit)
	if err != nil {
		return nil, 0, pkg.WrapUpstream(err)
	}
	return rows, next, nil
}

type Sender func(ctx context.Context, ob *model.SocialOutbox) error

// OutboxStore 出站表的投递侧读写
type OutboxStore interface {
	List(ctx context.Context, batchSize int) ([]model.SocialOutbox, error)
	RetryUpdate(ctx context.Context, id uint64) error
	SuccessUpdate(ctx context.Context, id uint64) error
}

// OutboxRelayer 出站事件投递器
type OutboxRelayer struct {
	repo      OutboxStore
	batchSize int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(sender Sender) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: mysql.DB},
		batchSize: 200,
		interval:  time.Second,
		sender:    sender,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// 从出站表批量取事件投给 sender，失败记重试
func (r *OutboxRelayer) drainOnce(ctx context.Context) {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		log.Printf("outbox query err: %v", err)
		return
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			_ = r.repo.RetryUpdate(ctx, ob.ID)
			continue
		}
		_ = r.repo.SuccessUpdate(ctx, ob.ID)
	}
}

// LogSender 默认 sender（占位）：只打日志，生产环境换 Kafka Producer
func LogSender(ctx context.Context, ob *model.SocialOutbox) error {
	log.Printf("OUTBOX SEND type=%s actor=%d target=%d payload=%s", ob.EventType, ob.ActorID, ob.TargetID, ob.Payload)
	return nil
}

// FollowCountReconciler 关注计数对账器
type FollowCountReconciler struct {
	repo      *mysql.FollowCountReconcilerRepo
	batchSize int
	interval  time.Duration
}

func NewFollowCountReconciler() *FollowCountReconciler {
	return &FollowCountReconciler{
		repo:      &mysql.FollowCountReconcilerRepo{DB: mysql.DB},
		batchSize: 500,
		interval:  5 * time.Minute,
	}
}

// Run 对账定时任务启动器
func (r *FollowCountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	var lastID uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			lastID = r.reconcileOnce(ctx, lastID)
		}
	}
}

// 对账一次，返回下一批的游标；扫完一轮从头再来
func (r *FollowCountReconciler) reconcileOnce(ctx context.Context, lastID uint64) uint64 {
	users, next, err := r.repo.ReconcileList(ctx, r.batchSize, lastID)
	if err != nil {
		log.Printf("reconcile list err: %v", err)
		return lastID
	}
	if len(users) == 0 {
		return 0
	}
	for _, u := range users {
		// 先数边表真实值，再和档案计数比对修正
		realFollowing, err := r.repo.RealFollowings(ctx, u.ID)
		if err != nil {
			continue
		}
		realFollower, err := r.repo.RealFollowers(ctx, u.ID)
		if err != nil {
			continue
		}
		if realFollowing != u.FollowingCount {
			_ = r.repo.ReconcileFollowings(ctx, u.ID, realFollowing)
		}
		if realFollower != u.FollowerCount {
			_ = r.repo.ReconcileFollowers(ctx, u.ID, realFollower)
		}
	}
	return next
}
