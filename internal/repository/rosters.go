package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

// CreateRosterEntry 在一个事务里完成容量检查和插入。
// 容量检查必须和插入互斥，否则两个并发请求都会数到 2 然后都插入成功，
// 所以先对 (日期, 时段) 取 advisory lock 再计数。
// (manager_id, duty_date) 的唯一性交给唯一约束，冲突时返回 ErrDuplicateAssignment。
func (r *Repository) CreateRosterEntry(entry *domain.RosterEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT pg_advisory_xact_lock(hashtext($1 || '|' || $2))`
	if _, err := tx.ExecContext(ctx, query, entry.DutyDate, string(entry.Timeline)); err != nil {
		return err
	}

	var count int
	query = `SELECT COUNT(*) FROM duty_schedules WHERE duty_date = $1::date AND timeline = $2`
	if err := tx.QueryRowContext(ctx, query, entry.DutyDate, string(entry.Timeline)).Scan(&count); err != nil {
		return err
	}
	if count >= r.cfg.Duty.TimelineCapacity {
		return domain.ErrCapacityExceeded
	}

	query = `
		INSERT INTO duty_schedules (manager_id, duty_date, timeline, created_by)
		VALUES ($1, $2::date, $3, $4)
		RETURNING id, created_at
	`
	args := []any{entry.ManagerID, entry.DutyDate, string(entry.Timeline), entry.CreatedBy}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "duty_schedules_manager_id_duty_date_key" {
			return domain.ErrDuplicateAssignment
		}
		return err
	}

	return tx.Commit()
}

func (r *Repository) GetRosterEntryByID(id int64) (*domain.RosterEntry, error) {
	query := `
		SELECT s.manager_id, u.full_name, to_char(s.duty_date, 'YYYY-MM-DD'), s.timeline, s.created_by, s.created_at
		FROM duty_schedules s
		JOIN users u ON s.manager_id = u.id
		WHERE s.id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	entry := &domain.RosterEntry{
		ID: id,
	}

	dst := []any{&entry.ManagerID, &entry.ManagerName, &entry.DutyDate, &entry.Timeline, &entry.CreatedBy, &entry.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *Repository) GetRosterEntriesByDate(dutyDate string) ([]*domain.RosterEntry, error) {
	query := `
		SELECT s.id, s.manager_id, u.full_name, to_char(s.duty_date, 'YYYY-MM-DD'), s.timeline, s.created_by, s.created_at
		FROM duty_schedules s
		JOIN users u ON s.manager_id = u.id
		WHERE s.duty_date = $1::date
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, dutyDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.RosterEntry, 0)
	for rows.Next() {
		entry := &domain.RosterEntry{}
		dst := []any{&entry.ID, &entry.ManagerID, &entry.ManagerName, &entry.DutyDate, &entry.Timeline, &entry.CreatedBy, &entry.CreatedAt}
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

func (r *Repository) GetRosterEntriesInRange(from, to string) ([]*domain.RosterEntry, error) {
	query := `
		SELECT s.id, s.manager_id, u.full_name, to_char(s.duty_date, 'YYYY-MM-DD'), s.timeline, s.created_by, s.created_at
		FROM duty_schedules s
		JOIN users u ON s.manager_id = u.id
		WHERE s.duty_date BETWEEN $1::date AND $2::date
		ORDER BY s.duty_date ASC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.RosterEntry, 0)
	for rows.Next() {
		entry := &domain.RosterEntry{}
		dst := []any{&entry.ID, &entry.ManagerID, &entry.ManagerName, &entry.DutyDate, &entry.Timeline, &entry.CreatedBy, &entry.CreatedAt}
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

func (r *Repository) HasRosterOnDate(managerID int64, dutyDate string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM duty_schedules WHERE manager_id = $1 AND duty_date = $2::date)
	`

	var exists bool
	if err := r.dbpool.QueryRowContext(ctx, query, managerID, dutyDate).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// GetEarliestPendingDutyDate 返回该经理在 before 之前最早一个检查表
// 未完成（不存在 session 或 session 未提交）的值班日期，没有则返回空串。
func (r *Repository) GetEarliestPendingDutyDate(managerID int64, before string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT to_char(s.duty_date, 'YYYY-MM-DD')
		FROM duty_schedules s
		LEFT JOIN checklist_sessions cs ON cs.duty_date = s.duty_date
		WHERE s.manager_id = $1
		  AND s.duty_date < $2::date
		  AND (cs.status IS NULL OR cs.status != 'Completed')
		ORDER BY s.duty_date ASC
		LIMIT 1
	`

	var dutyDate string
	if err := r.dbpool.QueryRowContext(ctx, query, managerID, before).Scan(&dutyDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	return dutyDate, nil
}

// DeleteRosterEntryCascade 删除一条排班记录；如果删除后该日期不再有任何排班，
// 连带删除该日期的 session（条目和照片记录随外键级联删除）。
// 检查和删除必须在同一个事务里，否则中途失败会留下孤儿 session。
func (r *Repository) DeleteRosterEntryCascade(id int64) (*domain.RosterCascade, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	cascade := &domain.RosterCascade{}

	query := `DELETE FROM duty_schedules WHERE id = $1 RETURNING to_char(duty_date, 'YYYY-MM-DD')`
	if err := tx.QueryRowContext(ctx, query, id).Scan(&cascade.DutyDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	cascade.RemovedCount = 1

	if err := r.cascadeSessionIfUnrostered(ctx, tx, cascade); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return cascade, nil
}

// DeleteRosterEntriesByDate 删除某个日期的全部排班并连带删除该日期的 session。
func (r *Repository) DeleteRosterEntriesByDate(dutyDate string) (*domain.RosterCascade, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	cascade := &domain.RosterCascade{DutyDate: dutyDate}

	query := `DELETE FROM duty_schedules WHERE duty_date = $1::date`
	result, err := tx.ExecContext(ctx, query, dutyDate)
	if err != nil {
		return nil, err
	}
	if cascade.RemovedCount, err = result.RowsAffected(); err != nil {
		return nil, err
	}

	if err := r.cascadeSessionIfUnrostered(ctx, tx, cascade); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return cascade, nil
}

func (r *Repository) cascadeSessionIfUnrostered(ctx context.Context, tx *sql.Tx, cascade *domain.RosterCascade) error {
	var remaining int
	query := `SELECT COUNT(*) FROM duty_schedules WHERE duty_date = $1::date`
	if err := tx.QueryRowContext(ctx, query, cascade.DutyDate).Scan(&remaining); err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	// 先把照片的存储键取出来，行删掉之后就找不回了
	query = `
		SELECT p.storage_key
		FROM checklist_photos p
		JOIN checklist_sessions cs ON p.session_id = cs.id
		WHERE cs.duty_date = $1::date
	`
	rows, err := tx.QueryContext(ctx, query, cascade.DutyDate)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return err
		}
		cascade.PhotoKeys = append(cascade.PhotoKeys, key)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	query = `DELETE FROM checklist_sessions WHERE duty_date = $1::date`
	result, err := tx.ExecContext(ctx, query, cascade.DutyDate)
	if err != nil {
		return err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	cascade.SessionDeleted = deleted > 0

	return nil
}
