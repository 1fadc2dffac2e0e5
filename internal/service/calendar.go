package service

import (
	"database/sql"
	"errors"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

type CalendarFields struct {
	EntryType domain.CalendarEntryType
	StartTime string
	EndTime   string
	LeaveNote string
}

// SaveCalendarEntry 保存个人工作/请假日历，一人一天一条（upsert）。
// 只能写自己的日历，超级管理员可以代任何人保存。
func (s *Service) SaveCalendarEntry(actor *domain.User, targetManagerID int64, entryDate string, fields CalendarFields) (*domain.CalendarEntry, error) {
	managerID := actor.ID
	if targetManagerID != 0 && targetManagerID != actor.ID {
		if !actor.IsSuperAdmin() {
			return nil, domain.ErrNotOwner
		}
		managerID = targetManagerID
	}

	if fields.EntryType != domain.CalendarWork && fields.EntryType != domain.CalendarLeave {
		return nil, errors.New("无效的日历类型")
	}
	if fields.EntryType == domain.CalendarWork && (fields.StartTime == "" || fields.EndTime == "") {
		return nil, errors.New("工作日历必须填写开始和结束时间")
	}

	entry := &domain.CalendarEntry{
		ManagerID: managerID,
		EntryDate: entryDate,
		EntryType: fields.EntryType,
		StartTime: fields.StartTime,
		EndTime:   fields.EndTime,
		LeaveNote: fields.LeaveNote,
	}
	if err := s.store.UpsertCalendarEntry(entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// BatchSaveCalendar 对一组日期套用同样的内容，每个日期独立成败。
func (s *Service) BatchSaveCalendar(actor *domain.User, targetManagerID int64, dates []string, fields CalendarFields) []BatchOutcome {
	outcomes := make([]BatchOutcome, 0, len(dates))

	for _, date := range dates {
		outcome := BatchOutcome{DutyDate: date, OK: true}
		if _, err := s.SaveCalendarEntry(actor, targetManagerID, date, fields); err != nil {
			outcome.OK = false
			outcome.Message = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (s *Service) DeleteCalendarEntry(actor *domain.User, id int64) error {
	entry, err := s.store.GetCalendarEntryByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	if entry.ManagerID != actor.ID && !actor.IsSuperAdmin() {
		return domain.ErrNotOwner
	}

	return s.store.DeleteCalendarEntry(id)
}

func (s *Service) BatchDeleteCalendar(actor *domain.User, targetManagerID int64, dates []string) (int64, error) {
	managerID := actor.ID
	if targetManagerID != 0 && targetManagerID != actor.ID {
		if !actor.IsSuperAdmin() {
			return 0, domain.ErrNotOwner
		}
		managerID = targetManagerID
	}

	return s.store.DeleteCalendarEntriesByDates(managerID, dates)
}

// GetCalendar 查询日历，managerID 为 0 时返回全员视图（团队日历页面）。
func (s *Service) GetCalendar(managerID int64, from, to string) ([]*domain.CalendarEntry, error) {
	return s.store.GetCalendarEntriesInRange(managerID, from, to)
}
