package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

func TestAssignRejectsDuplicateAndOverCapacity(t *testing.T) {
	svc, _, _, _ := newTestService("2026-03-10")

	mustAssign(t, svc, 1, "2026-03-10")

	// 同一经理同一天不能排两次，换时段也不行
	if _, err := svc.Assign(1, "2026-03-10", domain.TimelineNight, "test"); !errors.Is(err, domain.ErrDuplicateAssignment) {
		t.Fatalf("want ErrDuplicateAssignment, got %v", err)
	}

	// 同一时段最多 3 人
	mustAssign(t, svc, 2, "2026-03-10")
	mustAssign(t, svc, 3, "2026-03-10")
	if _, err := svc.Assign(4, "2026-03-10", domain.TimelineDay, "test"); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("want ErrCapacityExceeded, got %v", err)
	}

	// 另一个时段仍然可以排
	if _, err := svc.Assign(4, "2026-03-10", domain.TimelineNight, "test"); err != nil {
		t.Fatalf("夜班时段应仍有空位: %v", err)
	}
}

func TestBulkAssignOutcomesAreIndependent(t *testing.T) {
	svc, _, _, _ := newTestService("2026-03-10")

	// 经理 1 在 3 月 10 日已有排班，批量里这一项会失败
	mustAssign(t, svc, 1, "2026-03-10")

	outcomes := svc.BulkAssign([]int64{1, 2}, []string{"2026-03-10", "2026-03-11"}, domain.TimelineDay, "test")
	if len(outcomes) != 4 {
		t.Fatalf("len(outcomes) = %d, want 4", len(outcomes))
	}

	failed := 0
	for _, outcome := range outcomes {
		if !outcome.OK {
			failed++
			if outcome.DutyDate != "2026-03-10" || outcome.ManagerID != 1 {
				t.Fatalf("失败的应是 (2026-03-10, 1)，got (%s, %d)", outcome.DutyDate, outcome.ManagerID)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("失败数量 = %d, want 1", failed)
	}

	// 其余三项应已生效
	entries, err := svc.ListForDate("2026-03-11")
	if err != nil {
		t.Fatalf("ListForDate: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("2026-03-11 的排班 = %d, want 2", len(entries))
	}
}

func TestUnassignLastEntryCascadesSession(t *testing.T) {
	svc, store, photos, _ := newTestService("2026-03-10")
	mgr := manager(1)
	other := manager(2)

	first := mustAssign(t, svc, mgr.ID, "2026-03-10")
	second, err := svc.Assign(other.ID, "2026-03-10", domain.TimelineNight, "test")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	session := mustOpen(t, svc, "2026-03-10", mgr)
	data := strings.NewReader("fake image data")
	photo, err := svc.AddPhoto(context.Background(), mgr, session.ID, 1, data, int64(data.Len()), "image/jpeg", "jpg")
	if err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}

	// 还有其他人排班，session 不应被级联
	cascade, err := svc.Unassign(first.ID)
	if err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if cascade.SessionDeleted {
		t.Fatal("日期上还有排班时不应级联删除 session")
	}
	if _, err := store.GetSessionByDate("2026-03-10"); err != nil {
		t.Fatalf("session 不应消失: %v", err)
	}

	// 删除最后一条排班，session、条目、照片一起消失
	cascade, err = svc.Unassign(second.ID)
	if err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if !cascade.SessionDeleted {
		t.Fatal("最后一条排班删除后应级联删除 session")
	}
	if _, err := store.GetSessionByDate("2026-03-10"); err == nil {
		t.Fatal("session 应已删除")
	}
	if photos.Has(photo.StorageKey) {
		t.Fatal("级联后对象存储中的照片文件应被清理")
	}
}

func TestUnassignMissingEntry(t *testing.T) {
	svc, _, _, _ := newTestService("2026-03-10")

	if _, err := svc.Unassign(42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestBulkUnassignClearsDates(t *testing.T) {
	svc, store, _, _ := newTestService("2026-03-10")

	mustAssign(t, svc, 1, "2026-03-10")
	mustAssign(t, svc, 2, "2026-03-10")
	mustAssign(t, svc, 1, "2026-03-11")

	outcomes := svc.BulkUnassign([]string{"2026-03-10", "2026-03-11", "2026-03-12"})
	if len(outcomes) != 3 {
		t.Fatalf("len(outcomes) = %d, want 3", len(outcomes))
	}
	for _, outcome := range outcomes {
		if !outcome.OK {
			t.Fatalf("清空 %s 失败: %s", outcome.DutyDate, outcome.Message)
		}
	}

	remaining, err := store.GetRosterEntriesInRange("2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("GetRosterEntriesInRange: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("清空后还剩 %d 条排班", len(remaining))
	}
}

func TestListForDateSortsByPinyin(t *testing.T) {
	svc, store, _, _ := newTestService("2026-03-10")

	names := map[int64]string{1: "张三", 2: "陈一", 3: "李四"}
	for id, name := range names {
		entry := &domain.RosterEntry{
			ManagerID:   id,
			ManagerName: name,
			DutyDate:    "2026-03-10",
			Timeline:    domain.TimelineDay,
			CreatedBy:   "test",
		}
		if err := store.CreateRosterEntry(entry); err != nil {
			t.Fatalf("CreateRosterEntry: %v", err)
		}
	}

	entries, err := svc.ListForDate("2026-03-10")
	if err != nil {
		t.Fatalf("ListForDate: %v", err)
	}

	got := []string{}
	for _, entry := range entries {
		got = append(got, entry.ManagerName)
	}
	want := []string{"陈一", "李四", "张三"} // chenyi < lisi < zhangsan
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("排序结果 = %v, want %v", got, want)
		}
	}
}
