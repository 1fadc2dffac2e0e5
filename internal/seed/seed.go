package seed

import (
	"log/slog"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
	"github.com/lrn-ops/duty-manager/backend/internal/repository"
)

type catalogItem struct {
	task     string
	acStatus string
	needTemp bool
}

// 检查项目录按区域分组，每晚值班经理巡查时逐项确认。
// 空调状态和温度只有部分区域需要记录。
var catalog = map[string][]catalogItem{
	"大堂": {
		{task: "前台台面整洁、无杂物", acStatus: "ON"},
		{task: "大堂灯光全部正常", acStatus: "ON"},
		{task: "大堂空调温度适宜", acStatus: "ON", needTemp: true},
		{task: "背景音乐音量正常"},
	},
	"餐厅": {
		{task: "餐厅地面清洁、无积水"},
		{task: "自助餐台清理完毕", acStatus: "OFF"},
		{task: "餐厅空调已按时关闭", acStatus: "OFF", needTemp: true},
	},
	"厨房": {
		{task: "燃气总阀已关闭"},
		{task: "冷库温度在安全范围", needTemp: true},
		{task: "操作台清洁、无食材残留"},
		{task: "排风系统已关闭", acStatus: "OFF"},
	},
	"客房楼层": {
		{task: "走廊照明正常"},
		{task: "消防通道无堵塞"},
		{task: "布草间已上锁"},
	},
	"后勤区域": {
		{task: "员工通道门禁正常"},
		{task: "垃圾房清运完毕"},
		{task: "配电室门已上锁"},
	},
	"外围": {
		{task: "停车场照明正常"},
		{task: "外围监控无盲区告警"},
	},
}

// 区域的展示顺序，map 遍历顺序不稳定
var areaOrder = []string{"大堂", "餐厅", "厨房", "客房楼层", "后勤区域", "外围"}

// SeedChecklistCatalog 把内置的检查项目录写进数据库。
// 重复执行会产生重复目录项，只应在空库上执行一次。
func SeedChecklistCatalog(r *repository.Repository) {
	inserted := 0
	order := int32(1)

	for _, area := range areaOrder {
		for _, ci := range catalog[area] {
			item := &domain.ChecklistItem{
				Area:                area,
				TaskName:            ci.task,
				SortOrder:           order,
				ACStatus:            ci.acStatus,
				RequiresTemperature: ci.needTemp,
				IsActive:            true,
			}
			order++

			if err := r.CreateChecklistItem(item); err != nil {
				slog.Error("插入检查项失败", "area", area, "task", ci.task, "error", err)
				continue
			}
			inserted++
		}
	}

	slog.Info("检查项目录已写入", "count", inserted)
}
