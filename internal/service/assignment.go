package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/mozillazg/go-pinyin"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

// Assign 给某位经理在某个日期排班。
// 同一天重复排班和时段满员分别返回 ErrDuplicateAssignment 和 ErrCapacityExceeded，
// 两个约束都在存储层兜底（唯一索引 + 事务内计数）。
func (s *Service) Assign(managerID int64, dutyDate string, timeline domain.Timeline, requestedBy string) (*domain.RosterEntry, error) {
	entry := &domain.RosterEntry{
		ManagerID: managerID,
		DutyDate:  dutyDate,
		Timeline:  timeline,
		CreatedBy: requestedBy,
	}

	if err := s.store.CreateRosterEntry(entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// Unassign 删除一条排班记录。如果该日期由此不再有任何排班，
// 该日期的 session 连同条目、照片记录一起级联删除；
// 对象存储里的照片文件在事务提交后尽力清理，失败只记日志。
func (s *Service) Unassign(rosterEntryID int64) (*domain.RosterCascade, error) {
	cascade, err := s.store.DeleteRosterEntryCascade(rosterEntryID)
	if err != nil {
		return nil, err
	}

	s.cleanupPhotoObjects(cascade.PhotoKeys)

	return cascade, nil
}

type BatchOutcome struct {
	DutyDate  string `json:"dutyDate"`
	ManagerID int64  `json:"managerID,omitempty"`
	OK        bool   `json:"ok"`
	Message   string `json:"message,omitempty"`
}

// BulkAssign 批量排班。每个 (日期, 经理) 独立判定，
// 某一天失败不回滚其他天的成功结果。
func (s *Service) BulkAssign(managerIDs []int64, dates []string, timeline domain.Timeline, requestedBy string) []BatchOutcome {
	outcomes := make([]BatchOutcome, 0, len(dates)*len(managerIDs))

	for _, date := range dates {
		for _, managerID := range managerIDs {
			outcome := BatchOutcome{DutyDate: date, ManagerID: managerID, OK: true}
			if _, err := s.Assign(managerID, date, timeline, requestedBy); err != nil {
				outcome.OK = false
				outcome.Message = err.Error()
			}
			outcomes = append(outcomes, outcome)
		}
	}

	return outcomes
}

// BulkUnassign 按日期清空排班，每个日期独立处理。
func (s *Service) BulkUnassign(dates []string) []BatchOutcome {
	outcomes := make([]BatchOutcome, 0, len(dates))

	for _, date := range dates {
		outcome := BatchOutcome{DutyDate: date, OK: true}

		cascade, err := s.store.DeleteRosterEntriesByDate(date)
		if err != nil {
			outcome.OK = false
			outcome.Message = err.Error()
		} else {
			s.cleanupPhotoObjects(cascade.PhotoKeys)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// ListForDate 返回某天的排班，按经理姓名的拼音排序。
func (s *Service) ListForDate(dutyDate string) ([]*domain.RosterEntry, error) {
	entries, err := s.store.GetRosterEntriesByDate(dutyDate)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return collateName(entries[i].ManagerName) < collateName(entries[j].ManagerName)
	})

	return entries, nil
}

// collateName 把姓名转成拼音做排序键，非中文字符保持原样。
func collateName(name string) string {
	args := pinyin.NewArgs()
	args.Fallback = func(r rune, a pinyin.Args) []string {
		return []string{string(r)}
	}

	parts := pinyin.LazyPinyin(name, args)
	return strings.ToLower(strings.Join(parts, ""))
}

func (s *Service) cleanupPhotoObjects(keys []string) {
	for _, key := range keys {
		if err := s.photos.Delete(context.Background(), key); err != nil {
			slog.Warn("清理照片文件失败", "key", key, "error", err)
		}
	}
}
