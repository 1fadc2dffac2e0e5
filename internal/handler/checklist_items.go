package handler

import (
	"net/http"
)

// GetChecklistItems 返回启用中的检查项目录，按区域和排序号排好序。
func (h *Handler) GetChecklistItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.repository.GetActiveChecklistItems()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取检查项目录成功", items)
}
