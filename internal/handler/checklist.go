package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
	"github.com/lrn-ops/duty-manager/backend/internal/service"
)

// GetChecklist 返回某天检查表的完整状态（排班、条目、照片和当前用户的编辑权限）。
func (h *Handler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	dutyDate := r.Context().Value(DutyDateCtx).(string)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	view, err := h.service.GetChecklistView(dutyDate, myInfo)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取检查表成功", view)
}

// GetChecklistPermission 只做权限探测，前端用它决定是否渲染编辑控件。
func (h *Handler) GetChecklistPermission(w http.ResponseWriter, r *http.Request) {
	dutyDate := r.Context().Value(DutyDateCtx).(string)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	perm, err := h.service.CanEdit(myInfo, dutyDate)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取编辑权限成功", perm)
}

func (h *Handler) UpsertChecklistEntry(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(ChecklistSessionCtx).(*domain.ChecklistSession)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	itemIDParam := chi.URLParam(r, "itemID")
	itemID, err := strconv.ParseInt(itemIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "检查项ID无效")
		return
	}

	var req struct {
		Shift         string `json:"shift" validate:"omitempty,oneof=1st 2nd"`
		Coordinated   bool   `json:"coordinated"`
		DeptInCharge  string `json:"deptInCharge"`
		RemarksFirst  string `json:"remarksFirst"`
		RemarksSecond string `json:"remarksSecond"`
		Temperature   string `json:"temperature"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	entry, err := h.service.UpsertEntry(myInfo, session.ID, itemID, service.EntryFields{
		Shift:         domain.ShiftSelection(req.Shift),
		Coordinated:   req.Coordinated,
		DeptInCharge:  req.DeptInCharge,
		RemarksFirst:  req.RemarksFirst,
		RemarksSecond: req.RemarksSecond,
		Temperature:   req.Temperature,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "保存检查项成功", entry)
}

// 允许上传的图片格式，键为扩展名，值为对应的 Content-Type
var allowedPhotoTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

func (h *Handler) UploadChecklistPhoto(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(ChecklistSessionCtx).(*domain.ChecklistSession)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	itemIDParam := chi.URLParam(r, "itemID")
	itemID, err := strconv.ParseInt(itemIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "检查项ID无效")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Duty.MaxPhotoBytes)
	if err := r.ParseMultipartForm(h.config.Duty.MaxPhotoBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorResponse(w, r, "照片大小超出限制")
			return
		}
		h.badRequest(w, r, err)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		h.errorResponse(w, r, "请上传名为 photo 的文件字段")
		return
	}
	defer file.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	mimeType, ok := allowedPhotoTypes[ext]
	if !ok {
		h.errorResponse(w, r, "不支持的图片格式")
		return
	}

	photo, err := h.service.AddPhoto(r.Context(), myInfo, session.ID, itemID, file, header.Size, mimeType, ext)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "上传照片成功", photo)
}

func (h *Handler) ServeChecklistPhoto(w http.ResponseWriter, r *http.Request) {
	photoIDParam := chi.URLParam(r, "photoID")
	photoID, err := strconv.ParseInt(photoIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "照片ID无效")
		return
	}

	photo, body, err := h.service.OpenPhoto(r.Context(), photoID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", photo.MimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, body); err != nil {
		// 响应头已经写出去了，只能记日志
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) DeleteChecklistPhoto(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	photoIDParam := chi.URLParam(r, "photoID")
	photoID, err := strconv.ParseInt(photoIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "照片ID无效")
		return
	}

	if err := h.service.RemovePhoto(r.Context(), myInfo, photoID); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除照片成功", nil)
}

func (h *Handler) FinalizeChecklist(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(ChecklistSessionCtx).(*domain.ChecklistSession)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	if err := h.service.Finalize(myInfo, session.ID); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "检查表已提交", nil)
}

func (h *Handler) ReopenChecklist(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(ChecklistSessionCtx).(*domain.ChecklistSession)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	if err := h.service.Reopen(myInfo, session.ID); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "检查表已重新打开", nil)
}
