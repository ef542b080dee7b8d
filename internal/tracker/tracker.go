package tracker

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"go.uber.org/zap"

	"ChallengeUp/internal/model"
	"ChallengeUp/pkg/clock"
	"ChallengeUp/pkg/errors"
	"ChallengeUp/pkg/logger"
	"ChallengeUp/pkg/metrics"
)

const (
	BackendAuto    = "auto"
	BackendAtomic  = "atomic"
	BackendLocking = "locking"

	LeaveDelete  = "delete"
	LeaveAbandon = "abandon"

	defaultStoreTimeout = 3 * time.Second
	defaultLockTTL      = 5 * time.Second
)

// Order 打卡历史的排列顺序
type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

// ParseOrder 空串视为 asc
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "asc":
		return OrderAsc, nil
	case "desc":
		return OrderDesc, nil
	}
	return OrderAsc, errors.InvalidRequest
}

type Options struct {
	Store        Store
	Locker       Locker   // locking 后端必需
	Notifier     Notifier // 可为空
	Clock        clock.Clock
	Location     *time.Location // 判定“同一天”的时区
	NextID       func() (int64, error)
	Backend      string // auto, atomic, locking
	LeavePolicy  string // delete, abandon
	StoreTimeout time.Duration
	LockTTL      time.Duration
}

// Tracker 管理参与记录的生命周期：加入、打卡、退出、历史
type Tracker struct {
	store        Store
	notifier     Notifier
	clock        clock.Clock
	loc          *time.Location
	nextID       func() (int64, error)
	backend      checkInBackend
	leavePolicy  string
	storeTimeout time.Duration
	lockTTL      time.Duration
}

// New 根据存储能力选择打卡后端
func New(opts Options) (*Tracker, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("tracker: store is required")
	}
	if opts.NextID == nil {
		return nil, fmt.Errorf("tracker: id generator is required")
	}

	t := &Tracker{
		store:        opts.Store,
		notifier:     opts.Notifier,
		clock:        opts.Clock,
		loc:          opts.Location,
		nextID:       opts.NextID,
		leavePolicy:  opts.LeavePolicy,
		storeTimeout: opts.StoreTimeout,
		lockTTL:      opts.LockTTL,
	}
	if t.clock == nil {
		t.clock = clock.SystemClock{}
	}
	if t.loc == nil {
		t.loc = time.UTC
	}
	if t.storeTimeout <= 0 {
		t.storeTimeout = defaultStoreTimeout
	}
	if t.lockTTL <= 0 {
		t.lockTTL = defaultLockTTL
	}

	switch t.leavePolicy {
	case "":
		t.leavePolicy = LeaveDelete
	case LeaveDelete, LeaveAbandon:
	default:
		return nil, fmt.Errorf("tracker: unknown leave policy %q", opts.LeavePolicy)
	}

	conditional, canSwap := opts.Store.(ConditionalStore)
	switch opts.Backend {
	case "", BackendAuto:
		switch {
		case canSwap:
			t.backend = &atomicBackend{t: t, store: conditional}
		case opts.Locker != nil:
			t.backend = &lockingBackend{t: t, locker: opts.Locker}
		default:
			return nil, fmt.Errorf("tracker: store has no conditional update and no locker is configured")
		}
	case BackendAtomic:
		if !canSwap {
			return nil, fmt.Errorf("tracker: atomic backend requires a conditional store, got %T", opts.Store)
		}
		t.backend = &atomicBackend{t: t, store: conditional}
	case BackendLocking:
		if opts.Locker == nil {
			return nil, fmt.Errorf("tracker: locking backend requires a locker")
		}
		t.backend = &lockingBackend{t: t, locker: opts.Locker}
	default:
		return nil, fmt.Errorf("tracker: unknown backend %q", opts.Backend)
	}

	return t, nil
}

// Backend 当前使用的打卡后端名称
func (t *Tracker) Backend() string {
	return t.backend.name()
}

func (t *Tracker) Location() *time.Location {
	return t.loc
}

// Join 加入挑战
func (t *Tracker) Join(ctx context.Context, challengeID, userID int64) (*model.Participation, error) {
	id, err := t.nextID()
	if err != nil {
		return nil, fmt.Errorf("generate participation id: %w", err)
	}

	now := t.clock.Now()
	p := &model.Participation{
		BaseModel: model.BaseModel{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ChallengeID: challengeID,
		UserID:      userID,
		Status:      model.ParticipationStatusActive,
		StartedAt:   now,
		Version:     1,
	}

	err = t.withTimeout(ctx, func(ctx context.Context) error {
		return t.store.Insert(ctx, p)
	})
	if err != nil {
		if stderrors.Is(err, ErrDuplicate) {
			metrics.RecordJoin(ctx, "duplicate")
			return nil, errors.DuplicateParticipation
		}
		metrics.RecordJoin(ctx, "failed")
		return nil, t.storeError("insert participation", Ref{challengeID, userID}, err)
	}

	metrics.RecordJoin(ctx, "accepted")
	t.notify(ctx, model.EventJoined, p)
	return p, nil
}

// CheckIn 每日打卡，durationDays 为挑战天数
func (t *Tracker) CheckIn(ctx context.Context, ref Ref, durationDays int, note string) (*model.Participation, error) {
	start := time.Now()
	p, err := t.backend.checkIn(ctx, ref, durationDays, note)
	metrics.RecordCheckIn(ctx, t.backend.name(), outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	t.notify(ctx, model.EventCheckedIn, p)
	if p.Status == model.ParticipationStatusCompleted {
		metrics.RecordCompletion(ctx)
		t.notify(ctx, model.EventCompleted, p)
	}
	return p, nil
}

// Leave 退出挑战，按配置删除记录或标记为 abandoned
func (t *Tracker) Leave(ctx context.Context, ref Ref) error {
	// 读改写后端下退出与打卡互斥
	if lb, ok := t.backend.(*lockingBackend); ok {
		release, err := lb.acquire(ctx, ref)
		if err != nil {
			metrics.RecordLeave(ctx, t.leavePolicy, outcomeOf(err))
			return err
		}
		defer release()
	}

	cur, err := t.find(ctx, ref)
	if err != nil {
		metrics.RecordLeave(ctx, t.leavePolicy, outcomeOf(err))
		return err
	}

	left := cur
	switch t.leavePolicy {
	case LeaveAbandon:
		if cur.Status != model.ParticipationStatusActive {
			err = errors.ParticipationNotActive
			break
		}
		err = t.withTimeout(ctx, func(ctx context.Context) error {
			abandoned, err := t.store.Abandon(ctx, ref, t.clock.Now())
			if err == nil {
				left = abandoned
			}
			return err
		})
	default:
		err = t.withTimeout(ctx, func(ctx context.Context) error {
			return t.store.Remove(ctx, ref)
		})
	}

	switch {
	case err == nil:
	case stderrors.Is(err, ErrNotFound):
		err = errors.ParticipationNotFound
	case stderrors.Is(err, ErrNotActive):
		err = errors.ParticipationNotActive
	default:
		var def errors.Definition
		if !stderrors.As(err, &def) {
			err = t.storeError("leave", ref, err)
		}
	}
	metrics.RecordLeave(ctx, t.leavePolicy, outcomeOf(err))
	if err != nil {
		return err
	}

	t.notify(ctx, model.EventLeft, left)
	return nil
}

// History 打卡备注序列，可重复遍历
func (t *Tracker) History(ctx context.Context, ref Ref, order Order) (iter.Seq[model.CheckInNote], error) {
	cur, err := t.find(ctx, ref)
	if err != nil {
		return nil, err
	}

	notes := slices.Clone(cur.CheckInNotes)
	return func(yield func(model.CheckInNote) bool) {
		if order == OrderDesc {
			for i := len(notes) - 1; i >= 0; i-- {
				if !yield(notes[i]) {
					return
				}
			}
			return
		}
		for _, n := range notes {
			if !yield(n) {
				return
			}
		}
	}, nil
}

// Get 读取当前参与记录
func (t *Tracker) Get(ctx context.Context, ref Ref) (*model.Participation, error) {
	return t.find(ctx, ref)
}

// List 用户的全部参与记录，status 为空表示不过滤
func (t *Tracker) List(ctx context.Context, userID int64, status model.ParticipationStatus) ([]model.Participation, error) {
	var out []model.Participation
	err := t.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		out, err = t.store.ListByUser(ctx, userID, status)
		return err
	})
	if err != nil {
		return nil, t.storeError("list participations", Ref{UserID: userID}, err)
	}
	return out, nil
}

func (t *Tracker) find(ctx context.Context, ref Ref) (*model.Participation, error) {
	var p *model.Participation
	err := t.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		p, err = t.store.Find(ctx, ref)
		return err
	})
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return nil, errors.ParticipationNotFound
		}
		return nil, t.storeError("find participation", ref, err)
	}
	return p, nil
}

// withTimeout 每次存储调用都有上限
func (t *Tracker) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	defer cancel()
	return fn(ctx)
}

func (t *Tracker) storeError(op string, ref Ref, err error) error {
	logger.Logger.Error("Participation store call failed",
		zap.String("op", op),
		zap.String("ref", ref.String()),
		zap.Error(err),
	)
	return errors.WithCause(errors.StoreUnavailable, err)
}

// notify 发布失败只记录日志，不回滚已提交的写入
func (t *Tracker) notify(ctx context.Context, kind model.ParticipationEventKind, p *model.Participation) {
	if t.notifier == nil {
		return
	}

	event := model.NewParticipationEvent(kind, p, t.clock.Now())
	if err := t.notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
		logger.Logger.Warn("Failed to publish participation event",
			zap.String("kind", string(kind)),
			zap.Int64("participation_id", p.ID),
			zap.Error(err),
		)
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "accepted"
	}
	var def errors.Definition
	if stderrors.As(err, &def) {
		return def.Code
	}
	return "error"
}
