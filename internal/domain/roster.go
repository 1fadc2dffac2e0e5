package domain

import "time"

type Timeline string

const (
	TimelineDay   Timeline = "8:00AM - 5:00PM"
	TimelineNight Timeline = "8:00PM - 5:00AM"
)

// RosterEntry 表示某位经理在某个值班日期的一条排班记录。
// 同一位经理在同一天最多只能有一条记录，同一天同一时段最多三条。
type RosterEntry struct {
	ID          int64     `json:"id"`
	ManagerID   int64     `json:"managerID"`
	ManagerName string    `json:"managerName"`
	DutyDate    string    `json:"dutyDate"` // YYYY-MM-DD
	Timeline    Timeline  `json:"timeline"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RosterCascade 描述一次解除排班连带清理的结果。
// 当某个日期的最后一条排班被删除时，该日期的 session 及其照片一并删除，
// 对象存储里的照片文件由上层在事务提交后清理。
type RosterCascade struct {
	DutyDate       string
	RemovedCount   int64
	SessionDeleted bool
	PhotoKeys      []string
}
