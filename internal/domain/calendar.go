package domain

import "time"

type CalendarEntryType string

const (
	CalendarWork  CalendarEntryType = "WORK"
	CalendarLeave CalendarEntryType = "LEAVE"
)

// CalendarEntry 是经理的个人工作/请假日历，一人一天最多一条。
type CalendarEntry struct {
	ID        int64             `json:"id"`
	ManagerID int64             `json:"managerID"`
	EntryDate string            `json:"entryDate"` // YYYY-MM-DD
	EntryType CalendarEntryType `json:"entryType"`
	StartTime string            `json:"startTime"` // 形如 8:00 AM，仅 WORK 使用
	EndTime   string            `json:"endTime"`
	LeaveNote string            `json:"leaveNote"`
	UpdatedAt time.Time         `json:"updatedAt"`
	CreatedAt time.Time         `json:"createdAt"`
}
