package repository

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"ChallengeUp/internal/model"
	"ChallengeUp/internal/tracker"
)

// ParticipationRepository 参与记录的 gorm 实现，支持按版本号条件更新
type ParticipationRepository struct {
	db *gorm.DB
}

var _ tracker.ConditionalStore = (*ParticipationRepository)(nil)

func NewParticipationRepository(db *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// primary 打卡路径必须读主库，副本延迟会让版本号过期
func (r *ParticipationRepository) primary(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(dbresolver.Write)
}

func (r *ParticipationRepository) Insert(ctx context.Context, p *model.Participation) error {
	err := r.primary(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Participation
		err := lockByRef(tx, tracker.Ref{ChallengeID: p.ChallengeID, UserID: p.UserID}).Take(&existing).Error
		switch {
		case err == nil:
			if existing.Status != model.ParticipationStatusAbandoned {
				return tracker.ErrDuplicate
			}
			// 替换已退出的记录，人数在退出时已经减过
			if err := deleteNotes(tx, existing.ID).Error; err != nil {
				return err
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		case stderrors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		return adjustParticipantCount(tx, p.ChallengeID, 1).Error
	})
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return tracker.ErrDuplicate
	}
	return err
}

func (r *ParticipationRepository) Find(ctx context.Context, ref tracker.Ref) (*model.Participation, error) {
	var p model.Participation
	err := r.primary(ctx).
		Preload("CheckInNotes", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("challenge_id = ? AND user_id = ?", ref.ChallengeID, ref.UserID).
		Take(&p).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tracker.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ParticipationRepository) Replace(ctx context.Context, p *model.Participation, note *model.CheckInNote) error {
	return r.primary(ctx).Transaction(func(tx *gorm.DB) error {
		res := guardedCheckIn(tx, p, 0)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrInactive(tx, p.ID)
		}
		return appendNote(tx, p.ID, note)
	})
}

func (r *ParticipationRepository) CompareAndSwap(ctx context.Context, expectedVersion int64, next *model.Participation, note *model.CheckInNote) (bool, error) {
	swapped := false
	err := r.primary(ctx).Transaction(func(tx *gorm.DB) error {
		res := guardedCheckIn(tx, next, expectedVersion)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		swapped = true
		return appendNote(tx, next.ID, note)
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func (r *ParticipationRepository) Remove(ctx context.Context, ref tracker.Ref) error {
	return r.primary(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Participation
		err := lockByRef(tx, ref).Take(&p).Error
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return tracker.ErrNotFound
			}
			return err
		}

		if err := deleteNotes(tx, p.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
		if p.Status == model.ParticipationStatusAbandoned {
			return nil
		}
		return adjustParticipantCount(tx, ref.ChallengeID, -1).Error
	})
}

func (r *ParticipationRepository) Abandon(ctx context.Context, ref tracker.Ref, at time.Time) (*model.Participation, error) {
	var p model.Participation
	err := r.primary(ctx).Transaction(func(tx *gorm.DB) error {
		err := lockByRef(tx, ref).Take(&p).Error
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return tracker.ErrNotFound
			}
			return err
		}
		if p.Status != model.ParticipationStatusActive {
			return tracker.ErrNotActive
		}

		p.Status = model.ParticipationStatusAbandoned
		p.AbandonedAt = &at
		p.UpdatedAt = at
		p.Version++
		if err := markAbandoned(tx, &p).Error; err != nil {
			return err
		}
		return adjustParticipantCount(tx, ref.ChallengeID, -1).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ParticipationRepository) ListByUser(ctx context.Context, userID int64, status model.ParticipationStatus) ([]model.Participation, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var out []model.Participation
	err := q.Order("id DESC").Find(&out).Error
	return out, err
}

// ResetBrokenStreaks 将上次打卡早于 beforeDay 的 active 记录连续天数清零
func (r *ParticipationRepository) ResetBrokenStreaks(ctx context.Context, beforeDay string) (int64, error) {
	res := resetBrokenStreaks(r.primary(ctx), beforeDay)
	return res.RowsAffected, res.Error
}

func resetBrokenStreaks(tx *gorm.DB, beforeDay string) *gorm.DB {
	return tx.Model(&model.Participation{}).
		Where("status = ? AND check_in_streak > 0 AND last_check_in_day <> '' AND last_check_in_day < ?",
			model.ParticipationStatusActive, beforeDay).
		Updates(map[string]interface{}{
			"check_in_streak": 0,
			"version":         gorm.Expr("version + 1"),
		})
}

func markAbandoned(tx *gorm.DB, p *model.Participation) *gorm.DB {
	return tx.Model(&model.Participation{}).
		Where("id = ? AND status = ?", p.ID, model.ParticipationStatusActive).
		Updates(map[string]interface{}{
			"status":       p.Status,
			"abandoned_at": p.AbandonedAt,
			"updated_at":   p.UpdatedAt,
			"version":      p.Version,
		})
}

// lockByRef 按 (challenge_id, user_id) 加行锁
func lockByRef(tx *gorm.DB, ref tracker.Ref) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("challenge_id = ? AND user_id = ?", ref.ChallengeID, ref.UserID)
}

// guardedCheckIn 只写仍为 active 的记录，expectedVersion 大于 0 时同时比较版本号
func guardedCheckIn(tx *gorm.DB, next *model.Participation, expectedVersion int64) *gorm.DB {
	q := tx.Model(&model.Participation{}).
		Where("id = ? AND status = ?", next.ID, model.ParticipationStatusActive)
	if expectedVersion > 0 {
		q = q.Where("version = ?", expectedVersion)
	}
	return q.Updates(checkInColumns(next))
}

// missingOrInactive 区分无条件写入失败的原因：记录已删除还是已退出
func missingOrInactive(tx *gorm.DB, id int64) error {
	var n int64
	if err := tx.Model(&model.Participation{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return tracker.ErrNotFound
	}
	return tracker.ErrNotActive
}

// checkInColumns 打卡写入的列，map 形式保证零值也会写入
func checkInColumns(p *model.Participation) map[string]interface{} {
	return map[string]interface{}{
		"status":            p.Status,
		"progress":          p.Progress,
		"last_check_in":     p.LastCheckIn,
		"last_check_in_day": p.LastCheckInDay,
		"check_in_streak":   p.CheckInStreak,
		"longest_streak":    p.LongestStreak,
		"check_in_count":    p.CheckInCount,
		"completed_at":      p.CompletedAt,
		"updated_at":        p.UpdatedAt,
		"version":           p.Version,
	}
}

func deleteNotes(tx *gorm.DB, participationID int64) *gorm.DB {
	return tx.Where("participation_id = ?", participationID).Delete(&model.CheckInNote{})
}

func appendNote(tx *gorm.DB, participationID int64, note *model.CheckInNote) error {
	if note == nil {
		return nil
	}
	note.ParticipationID = participationID
	return tx.Create(note).Error
}

func adjustParticipantCount(tx *gorm.DB, challengeID int64, delta int) *gorm.DB {
	return tx.Model(&model.Challenge{}).
		Where("id = ?", challengeID).
		UpdateColumn("participant_count", gorm.Expr("GREATEST(participant_count + ?, 0)", delta))
}
