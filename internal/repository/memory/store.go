package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"ChallengeUp/internal/model"
	"ChallengeUp/internal/tracker"
)

// Store 进程内存储，实现 tracker.ConditionalStore 和挑战存储，
// 用于测试和 TRACKER_STORE=memory
type Store struct {
	mu             sync.RWMutex
	challenges     map[int64]*model.Challenge
	participations map[tracker.Ref]*model.Participation
	noteSeq        int64
}

func NewStore() *Store {
	return &Store{
		challenges:     make(map[int64]*model.Challenge),
		participations: make(map[tracker.Ref]*model.Participation),
	}
}

func refOf(p *model.Participation) tracker.Ref {
	return tracker.Ref{ChallengeID: p.ChallengeID, UserID: p.UserID}
}

func (s *Store) Insert(ctx context.Context, p *model.Participation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := refOf(p)
	if existing, ok := s.participations[ref]; ok && existing.Status != model.ParticipationStatusAbandoned {
		return tracker.ErrDuplicate
	}

	stored := p.Clone()
	stored.CheckInNotes = nil
	s.participations[ref] = &stored
	s.adjustCount(p.ChallengeID, 1)
	return nil
}

func (s *Store) Find(ctx context.Context, ref tracker.Ref) (*model.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participations[ref]
	if !ok {
		return nil, tracker.ErrNotFound
	}
	out := p.Clone()
	return &out, nil
}

func (s *Store) Replace(ctx context.Context, p *model.Participation, note *model.CheckInNote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.participations[refOf(p)]
	if !ok || cur.ID != p.ID {
		return tracker.ErrNotFound
	}
	if cur.Status != model.ParticipationStatusActive {
		return tracker.ErrNotActive
	}
	s.write(cur, p, note)
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, expectedVersion int64, next *model.Participation, note *model.CheckInNote) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.participations[refOf(next)]
	if !ok || cur.ID != next.ID || cur.Version != expectedVersion || cur.Status != model.ParticipationStatusActive {
		return false, nil
	}
	s.write(cur, next, note)
	return true, nil
}

// write 只覆盖打卡相关字段，备注追加
func (s *Store) write(cur, next *model.Participation, note *model.CheckInNote) {
	cur.Status = next.Status
	cur.Progress = next.Progress
	cur.LastCheckIn = next.LastCheckIn
	cur.LastCheckInDay = next.LastCheckInDay
	cur.CheckInStreak = next.CheckInStreak
	cur.LongestStreak = next.LongestStreak
	cur.CheckInCount = next.CheckInCount
	cur.CompletedAt = next.CompletedAt
	cur.UpdatedAt = next.UpdatedAt
	cur.Version = next.Version

	if note != nil {
		s.noteSeq++
		note.ID = s.noteSeq
		note.ParticipationID = cur.ID
		cur.CheckInNotes = append(cur.CheckInNotes, *note)
	}
}

func (s *Store) Remove(ctx context.Context, ref tracker.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participations[ref]
	if !ok {
		return tracker.ErrNotFound
	}
	delete(s.participations, ref)
	if p.Status != model.ParticipationStatusAbandoned {
		s.adjustCount(ref.ChallengeID, -1)
	}
	return nil
}

func (s *Store) Abandon(ctx context.Context, ref tracker.Ref, at time.Time) (*model.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participations[ref]
	if !ok {
		return nil, tracker.ErrNotFound
	}
	if p.Status != model.ParticipationStatusActive {
		return nil, tracker.ErrNotActive
	}

	p.Status = model.ParticipationStatusAbandoned
	p.AbandonedAt = &at
	p.UpdatedAt = at
	p.Version++
	s.adjustCount(ref.ChallengeID, -1)

	out := p.Clone()
	return &out, nil
}

func (s *Store) ListByUser(ctx context.Context, userID int64, status model.ParticipationStatus) ([]model.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Participation
	for ref, p := range s.participations {
		if ref.UserID != userID || (status != "" && p.Status != status) {
			continue
		}
		item := p.Clone()
		item.CheckInNotes = nil
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b model.Participation) int {
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

// ResetBrokenStreaks 将上次打卡早于 beforeDay 的 active 记录连续天数清零
func (s *Store) ResetBrokenStreaks(ctx context.Context, beforeDay string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, p := range s.participations {
		if p.Status != model.ParticipationStatusActive || p.CheckInStreak == 0 {
			continue
		}
		if p.LastCheckInDay == "" || p.LastCheckInDay >= beforeDay {
			continue
		}
		p.CheckInStreak = 0
		p.Version++
		n++
	}
	return n, nil
}

func (s *Store) adjustCount(challengeID int64, delta int64) {
	if c, ok := s.challenges[challengeID]; ok {
		c.ParticipantCount += delta
	}
}
