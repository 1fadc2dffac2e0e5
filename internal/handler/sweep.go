package handler

import (
	"net/http"
)

// RunSweep 手动触发一次过期检查表清理，清理本身是幂等的。
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunSweep()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "清理完成", result)
}
