package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/lrn-ops/duty-manager/backend/internal/config"
	"github.com/lrn-ops/duty-manager/backend/internal/domain"
	"github.com/lrn-ops/duty-manager/backend/internal/photostore"
	"github.com/lrn-ops/duty-manager/backend/internal/service"
)

// sweepCountingStore 只实现清理用到的两个方法，其余方法不会被调用。
type sweepCountingStore struct {
	service.Store
	sweeps int
}

func (s *sweepCountingStore) ForceCompleteStaleSessions(before string, now time.Time) (int64, error) {
	s.sweeps++
	return 0, nil
}

func (s *sweepCountingStore) GetDatesNeedingSession(before string) ([]string, error) {
	return nil, nil
}

func testHandlerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600
	cfg.Sweep.ThrottleInterval = 60
	cfg.Redis.OperationExpiration = 5
	cfg.Duty.Timezone = "UTC"
	cfg.Duty.EditWindowDays = 7
	return cfg
}

func newTestHandler(t *testing.T, store service.Store, rdb *redis.Client) *Handler {
	t.Helper()

	cfg := testHandlerConfig()
	clock, err := service.NewZoneClock(cfg.Duty.Timezone)
	if err != nil {
		t.Fatalf("NewZoneClock: %v", err)
	}
	svc := service.NewService(cfg, store, photostore.NewMemoryStore(), clock)

	h, err := NewHandler(cfg, nil, svc, nil, rdb)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	return resp
}

func TestAutoSweepThrottledByLease(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := &sweepCountingStore{}
	h := newTestHandler(t, store, rdb)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := h.autoSweep(next)

	// 租约期内的多次请求只触发一次清理
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}
	if store.sweeps != 1 {
		t.Fatalf("sweeps = %d, want 1", store.sweeps)
	}

	// 租约到期后下一次请求再触发
	mr.FastForward(61 * time.Second)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if store.sweeps != 2 {
		t.Fatalf("sweeps = %d, want 2", store.sweeps)
	}
}

func TestAutoSweepToleratesRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := &sweepCountingStore{}
	h := newTestHandler(t, store, rdb)

	// redis 挂掉时请求本身必须照常处理
	mr.Close()

	wrapped := h.autoSweep(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.sweeps != 0 {
		t.Fatalf("redis 不可用时不应触发清理，sweeps = %d", store.sweeps)
	}
}

func TestAuthRejectsMissingCookie(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := newTestHandler(t, &sweepCountingStore{}, rdb)

	wrapped := h.auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("未登录的请求不应到达业务 handler")
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Fatal("未登录请求应返回 success=false")
	}
	if resp.Message != "用户未登录" {
		t.Fatalf("Message = %q, want 用户未登录", resp.Message)
	}
}

func TestServiceErrorForbiddenCarriesReason(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := newTestHandler(t, &sweepCountingStore{}, rdb)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/", nil)
	h.serviceError(rec, req, &domain.ForbiddenError{
		Reason: domain.ReasonPendingPrevious,
		Detail: "2026-03-08",
	})

	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Fatal("Forbidden 应返回 success=false")
	}

	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data 应为结构化原因，got %T", resp.Data)
	}
	if data["reason"] != string(domain.ReasonPendingPrevious) {
		t.Fatalf("reason = %v, want %s", data["reason"], domain.ReasonPendingPrevious)
	}
	if data["detail"] != "2026-03-08" {
		t.Fatalf("detail = %v, want 2026-03-08", data["detail"])
	}
}

func TestDutyDateMiddlewareValidatesFormat(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := newTestHandler(t, &sweepCountingStore{}, rdb)

	mux := chi.NewRouter()
	mux.Route("/checklist/{date}", func(r chi.Router) {
		r.Use(h.dutyDate)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			date := r.Context().Value(DutyDateCtx).(string)
			h.successResponse(w, r, "ok", date)
		})
	})

	// 合法日期放行并附在 context 中
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checklist/2026-03-10/", nil))
	resp := decodeResponse(t, rec)
	if !resp.Success || resp.Data != "2026-03-10" {
		t.Fatalf("合法日期应放行，got success=%v data=%v", resp.Success, resp.Data)
	}

	// 非法日期被拦截
	for _, bad := range []string{"2026-3-10", "20260310", "不是日期"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checklist/"+bad+"/", nil))
		resp := decodeResponse(t, rec)
		if resp.Success {
			t.Fatalf("日期 %q 应被拒绝", bad)
		}
	}
}
