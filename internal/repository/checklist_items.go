package repository

import (
	"context"
	"time"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

func (r *Repository) GetActiveChecklistItems() ([]*domain.ChecklistItem, error) {
	query := `
		SELECT id, area, task_name, sort_order, ac_status, requires_temperature, is_active
		FROM checklist_items
		WHERE is_active = TRUE
		ORDER BY sort_order ASC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.ChecklistItem, 0)
	for rows.Next() {
		item := &domain.ChecklistItem{}
		dst := []any{&item.ID, &item.Area, &item.TaskName, &item.SortOrder, &item.ACStatus, &item.RequiresTemperature, &item.IsActive}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *Repository) CreateChecklistItem(item *domain.ChecklistItem) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO checklist_items (area, task_name, sort_order, ac_status, requires_temperature)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active
	`

	args := []any{item.Area, item.TaskName, item.SortOrder, item.ACStatus, item.RequiresTemperature}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&item.ID, &item.IsActive); err != nil {
		return err
	}

	return nil
}
