package repository

import (
	"context"
	"time"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

// UpsertEntry 以 (session_id, item_id) 为键写入检查项结果。
// 并发写同一项时后写者覆盖（last-write-wins），这是沿用的既有语义。
func (r *Repository) UpsertEntry(entry *domain.ChecklistEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO checklist_entries (session_id, item_id, shift_selection, coordinated, dept_in_charge, remarks_first, remarks_second, temperature)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, item_id) DO UPDATE
		SET shift_selection = EXCLUDED.shift_selection,
			coordinated = EXCLUDED.coordinated,
			dept_in_charge = EXCLUDED.dept_in_charge,
			remarks_first = EXCLUDED.remarks_first,
			remarks_second = EXCLUDED.remarks_second,
			temperature = EXCLUDED.temperature,
			updated_at = NOW()
		RETURNING id, updated_at
	`

	args := []any{
		entry.SessionID,
		entry.ItemID,
		string(entry.Shift),
		entry.Coordinated,
		entry.DeptInCharge,
		entry.RemarksFirst,
		entry.RemarksSec,
		entry.Temperature,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.UpdatedAt); err != nil {
		return err
	}

	return nil
}

// EnsureEntry 保证 (session_id, item_id) 存在一条记录，已存在则不动。
// 上传照片后调用，让只传了照片的检查项也算"已填写"。
func (r *Repository) EnsureEntry(sessionID, itemID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO checklist_entries (session_id, item_id)
		VALUES ($1, $2)
		ON CONFLICT (session_id, item_id) DO NOTHING
	`

	if _, err := r.dbpool.ExecContext(ctx, query, sessionID, itemID); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetEntriesBySession(sessionID int64) ([]*domain.ChecklistEntry, error) {
	query := `
		SELECT id, item_id, shift_selection, coordinated, dept_in_charge, remarks_first, remarks_second, temperature, updated_at
		FROM checklist_entries WHERE session_id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.ChecklistEntry, 0)
	for rows.Next() {
		entry := &domain.ChecklistEntry{
			SessionID: sessionID,
		}
		dst := []any{&entry.ID, &entry.ItemID, &entry.Shift, &entry.Coordinated, &entry.DeptInCharge, &entry.RemarksFirst, &entry.RemarksSec, &entry.Temperature, &entry.UpdatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
