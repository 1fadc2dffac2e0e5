package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
	"github.com/lrn-ops/duty-manager/backend/internal/service"
)

func parseTimeline(raw string) (domain.Timeline, error) {
	timeline := domain.Timeline(raw)
	if timeline != domain.TimelineDay && timeline != domain.TimelineNight {
		return "", errors.New("无效的值班时段")
	}
	return timeline, nil
}

func validDate(raw string) error {
	if _, err := time.Parse(service.DateLayout, raw); err != nil {
		return errors.New("日期格式无效，应为 YYYY-MM-DD")
	}
	return nil
}

// GetDutySchedules 按 ?date= 返回单日排班，按 ?from=&to= 返回一段时间的
// 排班和检查表状态（历史页面）。
func (h *Handler) GetDutySchedules(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	switch {
	case date != "":
		if err := validDate(date); err != nil {
			h.errorResponse(w, r, err.Error())
			return
		}

		entries, err := h.service.ListForDate(date)
		if err != nil {
			h.serviceError(w, r, err)
			return
		}

		h.successResponse(w, r, "获取排班成功", entries)
	case from != "" && to != "":
		if err := validDate(from); err != nil {
			h.errorResponse(w, r, err.Error())
			return
		}
		if err := validDate(to); err != nil {
			h.errorResponse(w, r, err.Error())
			return
		}

		history, err := h.service.GetHistory(from, to)
		if err != nil {
			h.serviceError(w, r, err)
			return
		}

		h.successResponse(w, r, "获取排班历史成功", history)
	default:
		h.errorResponse(w, r, "请提供 date 或 from/to 查询参数")
	}
}

func (h *Handler) CreateDutySchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ManagerID int64  `json:"managerID" validate:"required"`
		DutyDate  string `json:"dutyDate" validate:"required"`
		Timeline  string `json:"timeline" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := validDate(req.DutyDate); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	timeline, err := parseTimeline(req.Timeline)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	entry, err := h.service.Assign(req.ManagerID, req.DutyDate, timeline, myInfo.Username)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "排班成功", entry)
}

// DeleteDutySchedule 删除一条排班。如果该日期由此不再有排班，
// 当天的检查表会被一并清理，响应里会说明级联结果。
func (h *Handler) DeleteDutySchedule(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "排班ID无效")
		return
	}

	cascade, err := h.service.Unassign(id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除排班成功", cascade)
}

func (h *Handler) BatchCreateDutySchedules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ManagerIDs []int64  `json:"managerIDs" validate:"required,min=1"`
		Dates      []string `json:"dates" validate:"required,min=1"`
		Timeline   string   `json:"timeline" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	for _, date := range req.Dates {
		if err := validDate(date); err != nil {
			h.errorResponse(w, r, err.Error())
			return
		}
	}

	timeline, err := parseTimeline(req.Timeline)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	outcomes := h.service.BulkAssign(req.ManagerIDs, req.Dates, timeline, myInfo.Username)
	h.successResponse(w, r, "批量排班完成", outcomes)
}

func (h *Handler) BatchDeleteDutySchedules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dates []string `json:"dates" validate:"required,min=1"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	for _, date := range req.Dates {
		if err := validDate(date); err != nil {
			h.errorResponse(w, r, err.Error())
			return
		}
	}

	outcomes := h.service.BulkUnassign(req.Dates)
	h.successResponse(w, r, "批量删除排班完成", outcomes)
}
