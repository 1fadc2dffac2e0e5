package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
	"github.com/lrn-ops/duty-manager/backend/internal/service"
)

// GetCalendar 返回 from/to 范围内的工作/请假日历。
// 默认只看自己的，managerID=all 返回全员视图（团队日历页面）。
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if err := validDate(from); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}
	if err := validDate(to); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	managerID := myInfo.ID
	switch managerIDParam := r.URL.Query().Get("managerID"); managerIDParam {
	case "":
	case "all":
		managerID = 0
	default:
		id, err := strconv.ParseInt(managerIDParam, 10, 64)
		if err != nil {
			h.errorResponse(w, r, "经理ID无效")
			return
		}
		managerID = id
	}

	entries, err := h.service.GetCalendar(managerID, from, to)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取日历成功", entries)
}

func (h *Handler) SaveCalendarEntry(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		ManagerID int64  `json:"managerID"`
		EntryDate string `json:"entryDate" validate:"required"`
		EntryType string `json:"entryType" validate:"required,oneof=WORK LEAVE"`
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
		LeaveNote string `json:"leaveNote"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := validDate(req.EntryDate); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	entry, err := h.service.SaveCalendarEntry(myInfo, req.ManagerID, req.EntryDate, service.CalendarFields{
		EntryType: domain.CalendarEntryType(req.EntryType),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		LeaveNote: req.LeaveNote,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "保存日历成功", entry)
}

func (h *Handler) BatchSaveCalendar(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		ManagerID int64    `json:"managerID"`
		Dates     []string `json:"dates" validate:"required,min=1"`
		EntryType string   `json:"entryType" validate:"required,oneof=WORK LEAVE"`
		StartTime string   `json:"startTime"`
		EndTime   string   `json:"endTime"`
		LeaveNote string   `json:"leaveNote"`
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

	outcomes := h.service.BatchSaveCalendar(myInfo, req.ManagerID, req.Dates, service.CalendarFields{
		EntryType: domain.CalendarEntryType(req.EntryType),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		LeaveNote: req.LeaveNote,
	})

	h.successResponse(w, r, "批量保存日历完成", outcomes)
}

func (h *Handler) DeleteCalendarEntry(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "日历ID无效")
		return
	}

	if err := h.service.DeleteCalendarEntry(myInfo, id); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除日历成功", nil)
}

func (h *Handler) BatchDeleteCalendar(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		ManagerID int64    `json:"managerID"`
		Dates     []string `json:"dates" validate:"required,min=1"`
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

	removed, err := h.service.BatchDeleteCalendar(myInfo, req.ManagerID, req.Dates)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "批量删除日历完成", map[string]int64{"removed": removed})
}
