package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

type Permission struct {
	Allowed bool                   `json:"allowed"`
	Reason  domain.ForbiddenReason `json:"reason,omitempty"`
	Detail  string                 `json:"detail,omitempty"`
}

type PermissionInput struct {
	IsSuperAdmin    bool
	HasRoster       bool
	SessionStatus   domain.SessionStatus // 空串表示该日期还没有 session
	PendingPrevious string               // 更早的未完成值班日期，没有则为空串
	DutyDate        string
	Today           string
	EditWindowDays  int
}

// EvaluatePermission 按固定顺序求值，第一条命中的规则决定结果。
// 权限永远由当前状态现算，不落库缓存，避免历史 session 状态变化后出现脏标记。
// 超级管理员不受规则 1、3、4 约束，但已提交的检查表对所有人锁定（规则 2），
// 必须先撤销提交才能再编辑。
func EvaluatePermission(in PermissionInput) Permission {
	// 规则 1：不是当天的值班经理
	if !in.HasRoster && !in.IsSuperAdmin {
		return Permission{Reason: domain.ReasonNotAssigned}
	}

	// 规则 2：已提交的检查表锁定
	if in.SessionStatus == domain.SessionCompleted {
		return Permission{Reason: domain.ReasonLocked}
	}

	// 规则 3：更早的值班还没完成，必须先补完旧账（逐个经理判断，不是全局的）
	if !in.IsSuperAdmin && in.PendingPrevious != "" {
		return Permission{Reason: domain.ReasonPendingPrevious, Detail: in.PendingPrevious}
	}

	// 规则 4：距今超过编辑窗口的未来日期不开放
	if !in.IsSuperAdmin && beyondEditWindow(in.DutyDate, in.Today, in.EditWindowDays) {
		return Permission{Reason: domain.ReasonTooFarInFuture}
	}

	return Permission{Allowed: true}
}

func beyondEditWindow(dutyDate, today string, windowDays int) bool {
	t, err := time.Parse(DateLayout, today)
	if err != nil {
		return false
	}

	limit := t.AddDate(0, 0, windowDays).Format(DateLayout)
	return dutyDate > limit
}

// CanEdit 从当前排班和 session 状态组装输入并求值。
func (s *Service) CanEdit(actor *domain.User, dutyDate string) (Permission, error) {
	in := PermissionInput{
		IsSuperAdmin:   actor.IsSuperAdmin(),
		DutyDate:       dutyDate,
		Today:          s.clock.Today(),
		EditWindowDays: s.cfg.Duty.EditWindowDays,
	}

	hasRoster, err := s.store.HasRosterOnDate(actor.ID, dutyDate)
	if err != nil {
		return Permission{}, err
	}
	in.HasRoster = hasRoster

	session, err := s.store.GetSessionByDate(dutyDate)
	switch {
	case err == nil:
		in.SessionStatus = session.Status
	case errors.Is(err, sql.ErrNoRows):
		// 还没有 session，不影响判断
	default:
		return Permission{}, err
	}

	if !in.IsSuperAdmin {
		pending, err := s.store.GetEarliestPendingDutyDate(actor.ID, dutyDate)
		if err != nil {
			return Permission{}, err
		}
		in.PendingPrevious = pending
	}

	return EvaluatePermission(in), nil
}

func forbidden(perm Permission) error {
	return &domain.ForbiddenError{Reason: perm.Reason, Detail: perm.Detail}
}
