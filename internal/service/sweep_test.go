package service

import (
	"testing"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

func TestRunSweepClosesStaleAndSynthesizes(t *testing.T) {
	svc, store, _, clock := newTestService("2026-03-08")
	mgr := manager(1)

	// 3 月 8 日：开了头没做完
	mustAssign(t, svc, mgr.ID, "2026-03-08")
	opened := mustOpen(t, svc, "2026-03-08", mgr)

	// 3 月 9 日：有排班但从未打开过检查表
	mustAssign(t, svc, mgr.ID, "2026-03-09")

	// 3 月 10 日：今天，不应被清理
	mustAssign(t, svc, mgr.ID, "2026-03-10")
	today := mustOpen(t, svc, "2026-03-10", mgr)
	_ = today

	// 时间推进到 3 月 10 日再清理
	clock.today = "2026-03-10"

	result, err := svc.RunSweep()
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if result.ForceClosed != 1 {
		t.Fatalf("ForceClosed = %d, want 1", result.ForceClosed)
	}
	if result.Synthesized != 1 {
		t.Fatalf("Synthesized = %d, want 1", result.Synthesized)
	}

	// 3 月 8 日被强制关闭
	stale, err := store.GetSessionByID(opened.ID)
	if err != nil {
		t.Fatalf("GetSessionByID: %v", err)
	}
	if stale.Status != domain.SessionCompleted {
		t.Fatalf("过期 session 状态 = %q, want %q", stale.Status, domain.SessionCompleted)
	}
	if stale.SubmittedAt == nil {
		t.Fatal("强制关闭的 session 应有提交时间")
	}

	// 3 月 9 日补了一个已提交的空 session
	synthesized, err := store.GetSessionByDate("2026-03-09")
	if err != nil {
		t.Fatalf("GetSessionByDate: %v", err)
	}
	if synthesized.Status != domain.SessionCompleted {
		t.Fatalf("补建 session 状态 = %q, want %q", synthesized.Status, domain.SessionCompleted)
	}

	// 今天的 session 不受影响
	current, err := store.GetSessionByDate("2026-03-10")
	if err != nil {
		t.Fatalf("GetSessionByDate: %v", err)
	}
	if current.Status != domain.SessionInProgress {
		t.Fatalf("今天的 session 状态 = %q, 不应被清理", current.Status)
	}
}

func TestRunSweepIsIdempotent(t *testing.T) {
	svc, store, _, clock := newTestService("2026-03-08")
	mgr := manager(1)

	mustAssign(t, svc, mgr.ID, "2026-03-08")
	mustOpen(t, svc, "2026-03-08", mgr)
	mustAssign(t, svc, mgr.ID, "2026-03-09")

	clock.today = "2026-03-10"

	if _, err := svc.RunSweep(); err != nil {
		t.Fatalf("RunSweep: %v", err)
	}

	// 第二次清理应无事可做
	result, err := svc.RunSweep()
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if result.ForceClosed != 0 || result.Synthesized != 0 {
		t.Fatalf("重复清理应无事可做，got forceClosed=%d synthesized=%d", result.ForceClosed, result.Synthesized)
	}

	// 不应产生重复 session
	sessions, err := store.GetSessionsInRange("2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("GetSessionsInRange: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("session 数量 = %d, want 2", len(sessions))
	}
}

func TestRunSweepUnblocksNextDuty(t *testing.T) {
	svc, _, _, clock := newTestService("2026-03-08")
	mgr := manager(1)

	// 场景：3 月 8 日值班没完成，3 月 10 日再值班时本应被旧账挡住
	mustAssign(t, svc, mgr.ID, "2026-03-08")
	mustAssign(t, svc, mgr.ID, "2026-03-10")

	clock.today = "2026-03-10"

	perm, err := svc.CanEdit(mgr, "2026-03-10")
	if err != nil {
		t.Fatalf("CanEdit: %v", err)
	}
	if perm.Allowed {
		t.Fatal("清理前旧账应挡住编辑")
	}

	if _, err := svc.RunSweep(); err != nil {
		t.Fatalf("RunSweep: %v", err)
	}

	perm, err = svc.CanEdit(mgr, "2026-03-10")
	if err != nil {
		t.Fatalf("CanEdit: %v", err)
	}
	if !perm.Allowed {
		t.Fatalf("清理后旧账应解除：reason %q detail %q", perm.Reason, perm.Detail)
	}
}
