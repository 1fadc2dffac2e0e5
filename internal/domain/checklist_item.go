package domain

// ChecklistItem 是静态的检查项目录，按区域分组、按 SortOrder 排序。
// 核心逻辑只把 ItemID 当作外键引用，不校验目录项是否仍然有效。
type ChecklistItem struct {
	ID                  int64  `json:"id"`
	Area                string `json:"area"`
	TaskName            string `json:"taskName"`
	SortOrder           int32  `json:"sortOrder"`
	ACStatus            string `json:"acStatus"` // 期望的空调状态，如 ON / OFF
	RequiresTemperature bool   `json:"requiresTemperature"`
	IsActive            bool   `json:"isActive"`
}
