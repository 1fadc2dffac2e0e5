package service

import (
	"errors"
	"testing"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

func TestSaveCalendarEntryOwnership(t *testing.T) {
	svc, _, _, _ := newTestService("2026-03-10")
	mgr := manager(1)
	other := manager(2)

	work := CalendarFields{EntryType: domain.CalendarWork, StartTime: "8:00 AM", EndTime: "5:00 PM"}

	// 自己的日历可以写
	if _, err := svc.SaveCalendarEntry(mgr, 0, "2026-03-12", work); err != nil {
		t.Fatalf("SaveCalendarEntry: %v", err)
	}

	// 不能替别人写
	if _, err := svc.SaveCalendarEntry(mgr, other.ID, "2026-03-12", work); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("want ErrNotOwner, got %v", err)
	}

	// 管理员可以替任何人写
	entry, err := svc.SaveCalendarEntry(admin(), other.ID, "2026-03-12", work)
	if err != nil {
		t.Fatalf("管理员代写日历失败: %v", err)
	}
	if entry.ManagerID != other.ID {
		t.Fatalf("ManagerID = %d, want %d", entry.ManagerID, other.ID)
	}
}

func TestSaveCalendarEntryValidatesFields(t *testing.T) {
	svc, _, _, _ := newTestService("2026-03-10")
	mgr := manager(1)

	// WORK 必须有起止时间
	if _, err := svc.SaveCalendarEntry(mgr, 0, "2026-03-12", CalendarFields{EntryType: domain.CalendarWork}); err == nil {
		t.Fatal("缺起止时间的 WORK 日历应被拒绝")
	}

	// LEAVE 不需要起止时间
	if _, err := svc.SaveCalendarEntry(mgr, 0, "2026-03-12", CalendarFields{EntryType: domain.CalendarLeave, LeaveNote: "年假"}); err != nil {
		t.Fatalf("LEAVE 日历保存失败: %v", err)
	}

	if _, err := svc.SaveCalendarEntry(mgr, 0, "2026-03-12", CalendarFields{EntryType: "HOLIDAY"}); err == nil {
		t.Fatal("未知日历类型应被拒绝")
	}
}

func TestSaveCalendarEntryUpsertsPerDay(t *testing.T) {
	svc, store, _, _ := newTestService("2026-03-10")
	mgr := manager(1)

	if _, err := svc.SaveCalendarEntry(mgr, 0, "2026-03-12", CalendarFields{EntryType: domain.CalendarWork, StartTime: "8:00 AM", EndTime: "5:00 PM"}); err != nil {
		t.Fatalf("SaveCalendarEntry: %v", err)
	}
	// 同一天改成请假，覆盖而不是新增
	if _, err := svc.SaveCalendarEntry(mgr, 0, "2026-03-12", CalendarFields{EntryType: domain.CalendarLeave, LeaveNote: "调休"}); err != nil {
		t.Fatalf("SaveCalendarEntry: %v", err)
	}

	entries, err := store.GetCalendarEntriesInRange(mgr.ID, "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("GetCalendarEntriesInRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("一人一天应只有一条日历，got %d", len(entries))
	}
	if entries[0].EntryType != domain.CalendarLeave {
		t.Fatalf("EntryType = %q, want %q", entries[0].EntryType, domain.CalendarLeave)
	}
}

func TestDeleteCalendarEntryOwnership(t *testing.T) {
	svc, _, _, _ := newTestService("2026-03-10")
	mgr := manager(1)
	other := manager(2)

	entry, err := svc.SaveCalendarEntry(mgr, 0, "2026-03-12", CalendarFields{EntryType: domain.CalendarLeave})
	if err != nil {
		t.Fatalf("SaveCalendarEntry: %v", err)
	}

	if err := svc.DeleteCalendarEntry(other, entry.ID); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("want ErrNotOwner, got %v", err)
	}
	if err := svc.DeleteCalendarEntry(mgr, entry.ID); err != nil {
		t.Fatalf("DeleteCalendarEntry: %v", err)
	}
	if err := svc.DeleteCalendarEntry(mgr, entry.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("重复删除 want ErrNotFound, got %v", err)
	}
}

func TestGetCalendarTeamView(t *testing.T) {
	svc, _, _, _ := newTestService("2026-03-10")
	mgr := manager(1)
	other := manager(2)

	if _, err := svc.SaveCalendarEntry(mgr, 0, "2026-03-12", CalendarFields{EntryType: domain.CalendarLeave}); err != nil {
		t.Fatalf("SaveCalendarEntry: %v", err)
	}
	if _, err := svc.SaveCalendarEntry(other, 0, "2026-03-13", CalendarFields{EntryType: domain.CalendarWork, StartTime: "8:00 AM", EndTime: "5:00 PM"}); err != nil {
		t.Fatalf("SaveCalendarEntry: %v", err)
	}

	own, err := svc.GetCalendar(mgr.ID, "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("GetCalendar: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("个人视图 = %d 条, want 1", len(own))
	}

	team, err := svc.GetCalendar(0, "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("GetCalendar: %v", err)
	}
	if len(team) != 2 {
		t.Fatalf("全员视图 = %d 条, want 2", len(team))
	}
}
