package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

// UpsertCalendarEntry 以 (manager_id, entry_date) 为键保存个人日历，
// 一人一天只保留一条记录。
func (r *Repository) UpsertCalendarEntry(entry *domain.CalendarEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO manager_calendar (manager_id, entry_date, entry_type, start_time, end_time, leave_note)
		VALUES ($1, $2::date, $3, $4, $5, $6)
		ON CONFLICT (manager_id, entry_date) DO UPDATE
		SET entry_type = EXCLUDED.entry_type,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			leave_note = EXCLUDED.leave_note,
			updated_at = NOW()
		RETURNING id, updated_at, created_at
	`

	args := []any{entry.ManagerID, entry.EntryDate, string(entry.EntryType), entry.StartTime, entry.EndTime, entry.LeaveNote}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.UpdatedAt, &entry.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetCalendarEntryByID(id int64) (*domain.CalendarEntry, error) {
	query := `
		SELECT manager_id, to_char(entry_date, 'YYYY-MM-DD'), entry_type, start_time, end_time, leave_note, updated_at, created_at
		FROM manager_calendar WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	entry := &domain.CalendarEntry{
		ID: id,
	}
	dst := []any{&entry.ManagerID, &entry.EntryDate, &entry.EntryType, &entry.StartTime, &entry.EndTime, &entry.LeaveNote, &entry.UpdatedAt, &entry.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetCalendarEntriesInRange 查询日历记录，managerID 为 0 时返回所有人的记录。
func (r *Repository) GetCalendarEntriesInRange(managerID int64, from, to string) ([]*domain.CalendarEntry, error) {
	query := `
		SELECT id, manager_id, to_char(entry_date, 'YYYY-MM-DD'), entry_type, start_time, end_time, leave_note, updated_at, created_at
		FROM manager_calendar
		WHERE entry_date BETWEEN $1::date AND $2::date
		  AND ($3 = 0 OR manager_id = $3)
		ORDER BY entry_date ASC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, from, to, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.CalendarEntry, 0)
	for rows.Next() {
		entry := &domain.CalendarEntry{}
		dst := []any{&entry.ID, &entry.ManagerID, &entry.EntryDate, &entry.EntryType, &entry.StartTime, &entry.EndTime, &entry.LeaveNote, &entry.UpdatedAt, &entry.CreatedAt}
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

func (r *Repository) DeleteCalendarEntry(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `DELETE FROM manager_calendar WHERE id = $1 RETURNING id`

	var returned int64
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&returned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}

func (r *Repository) DeleteCalendarEntriesByDates(managerID int64, dates []string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		DELETE FROM manager_calendar
		WHERE manager_id = $1 AND to_char(entry_date, 'YYYY-MM-DD') = ANY($2)
	`

	result, err := r.dbpool.ExecContext(ctx, query, managerID, dates)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
