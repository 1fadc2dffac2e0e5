package domain

import "time"

type SessionStatus string

const (
	SessionInProgress SessionStatus = "In Progress"
	SessionCompleted  SessionStatus = "Completed"
)

// ChecklistSession 是某个值班日期的巡检工作区。
// 一个日期只会存在一个 session，由当天排班的所有经理共用。
type ChecklistSession struct {
	ID          int64         `json:"id"`
	DutyDate    string        `json:"dutyDate"` // YYYY-MM-DD
	Status      SessionStatus `json:"status"`
	SubmittedAt *time.Time    `json:"submittedAt"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type ShiftSelection string

const (
	ShiftNone   ShiftSelection = ""
	ShiftFirst  ShiftSelection = "1st"
	ShiftSecond ShiftSelection = "2nd"
)

// ChecklistEntry 记录某个 session 中某个检查项的填写结果，
// 以 (sessionID, itemID) 为键做 upsert。
type ChecklistEntry struct {
	ID           int64          `json:"id"`
	SessionID    int64          `json:"sessionID"`
	ItemID       int64          `json:"itemID"`
	Shift        ShiftSelection `json:"shift"`
	Coordinated  bool           `json:"coordinated"`
	DeptInCharge string         `json:"deptInCharge"`
	RemarksFirst string         `json:"remarksFirst"`
	RemarksSec   string         `json:"remarksSecond"`
	Temperature  string         `json:"temperature"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type ChecklistPhoto struct {
	ID         int64     `json:"id"`
	SessionID  int64     `json:"sessionID"`
	ItemID     int64     `json:"itemID"`
	StorageKey string    `json:"-"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
}
