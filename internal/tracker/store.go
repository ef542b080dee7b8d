package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChallengeUp/internal/model"
)

// Ref 定位一条参与记录
type Ref struct {
	ChallengeID int64
	UserID      int64
}

func (r Ref) String() string {
	return fmt.Sprintf("%d:%d", r.ChallengeID, r.UserID)
}

// 存储层返回的哨兵错误，由 Tracker 翻译为业务错误
var (
	ErrNotFound        = errors.New("participation not found")
	ErrDuplicate       = errors.New("participation already exists")
	ErrNotActive       = errors.New("participation is not active")
	ErrLockNotAcquired = errors.New("participation lock not acquired")
)

// Store 参与记录的持久化端口
type Store interface {
	// Insert 创建参与记录，同一事务内增加挑战参与人数。
	// 已存在 active/completed 记录时返回 ErrDuplicate，abandoned 记录会被替换。
	Insert(ctx context.Context, p *model.Participation) error
	// Find 读取参与记录及其打卡备注（按写入顺序）
	Find(ctx context.Context, ref Ref) (*model.Participation, error)
	// Replace 不比较版本号，覆盖打卡相关字段并追加备注。
	// 记录已不是 active 时返回 ErrNotActive，已删除时返回 ErrNotFound。
	Replace(ctx context.Context, p *model.Participation, note *model.CheckInNote) error
	// Remove 删除记录和备注，同一事务内减少参与人数
	Remove(ctx context.Context, ref Ref) error
	// Abandon 仅 active 可转为 abandoned，否则返回 ErrNotActive
	Abandon(ctx context.Context, ref Ref, at time.Time) (*model.Participation, error)
	ListByUser(ctx context.Context, userID int64, status model.ParticipationStatus) ([]model.Participation, error)
}

// ConditionalStore 支持按版本号条件更新的存储，具备该能力时使用原子后端
type ConditionalStore interface {
	Store
	// CompareAndSwap 仅当记录仍为 active 且版本号等于 expectedVersion 时写入，
	// 备注在同一事务内追加。返回 false 表示被其他写入者抢先。
	CompareAndSwap(ctx context.Context, expectedVersion int64, next *model.Participation, note *model.CheckInNote) (bool, error)
}

// Locker 按参与记录加互斥锁，读改写后端使用。
// 在 ctx 结束前拿不到锁返回 ErrLockNotAcquired。
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, err error)
}

// Notifier 提交成功后的变更通知
type Notifier interface {
	Notify(ctx context.Context, event model.ParticipationEvent) error
}
