package service

import (
	"errors"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

type SweepResult struct {
	ForceClosed int64 `json:"forceClosed"`
	Synthesized int64 `json:"synthesized"`
}

// RunSweep 强制关闭过期的检查表，分两步：
//  1. 把今天之前仍在进行中的 session 全部置为已提交（开了头没做完的）；
//  2. 给今天之前有排班但从未打开过检查表的日期补一个空的已提交 session。
//
// 两步都可以重复、并发执行：第一步是条件更新，第二步靠 duty_date 的
// 唯一约束兜底，查询里的预检查只是少做无用功，不是正确性的依据。
func (s *Service) RunSweep() (*SweepResult, error) {
	result := &SweepResult{}
	today := s.clock.Today()
	now := s.clock.Now()

	closed, err := s.store.ForceCompleteStaleSessions(today, now)
	if err != nil {
		return result, err
	}
	result.ForceClosed = closed

	dates, err := s.store.GetDatesNeedingSession(today)
	if err != nil {
		return result, err
	}

	for _, date := range dates {
		submittedAt := now
		session := &domain.ChecklistSession{
			DutyDate:    date,
			Status:      domain.SessionCompleted,
			SubmittedAt: &submittedAt,
		}
		if err := s.store.CreateSession(session); err != nil {
			if errors.Is(err, domain.ErrDuplicateSession) {
				// 并发的另一次清理抢先建好了，跳过
				continue
			}
			return result, err
		}
		result.Synthesized++
	}

	return result, nil
}
