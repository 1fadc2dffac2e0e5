package domain

import (
	"errors"
	"fmt"
)

// 业务校验失败属于调用方可恢复的错误，统一用这里的类型返回，
// 不作为致命错误抛出。
var (
	ErrDuplicateAssignment = errors.New("该经理在此日期已有排班")
	ErrCapacityExceeded    = errors.New("该时段的排班人数已达上限")
	ErrDuplicateSession    = errors.New("该日期的检查表已存在")
	ErrNotFound            = errors.New("记录不存在")
	ErrNotOwner            = errors.New("不能修改他人的日历")
	ErrLimitExceeded       = errors.New("照片数量已达上限")
	ErrStorageFailure      = errors.New("存储服务暂时不可用")
)

type ForbiddenReason string

const (
	ReasonNotAssigned     ForbiddenReason = "not_assigned"
	ReasonLocked          ForbiddenReason = "locked"
	ReasonPendingPrevious ForbiddenReason = "pending_previous"
	ReasonTooFarInFuture  ForbiddenReason = "future_date"
)

// ForbiddenError 携带结构化的拒绝原因，调用方应把原因映射成可操作的提示，
// 而不是笼统的"无权限"。
type ForbiddenError struct {
	Reason ForbiddenReason
	Detail string // pending_previous 时为未完成的日期
}

func (e *ForbiddenError) Error() string {
	switch e.Reason {
	case ReasonNotAssigned:
		return "您不是该日期的值班经理"
	case ReasonLocked:
		return "检查表已提交，无法编辑"
	case ReasonPendingPrevious:
		return fmt.Sprintf("请先完成 %s 的检查表", e.Detail)
	case ReasonTooFarInFuture:
		return "该日期距今太远，暂不开放填写"
	default:
		return "没有编辑权限"
	}
}
