package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

// CreateSession 尝试为某个日期创建 session。
// duty_date 上的唯一约束是并发首开的最终裁决：冲突时返回 ErrDuplicateSession，
// 调用方应重新读取已存在的行，而不是把错误抛给用户。
func (r *Repository) CreateSession(session *domain.ChecklistSession) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO checklist_sessions (duty_date, status, submitted_at)
		VALUES ($1::date, $2, $3)
		ON CONFLICT (duty_date) DO NOTHING
		RETURNING id, created_at
	`

	args := []any{session.DutyDate, string(session.Status), session.SubmittedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&session.ID, &session.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrDuplicateSession
		}
		return err
	}

	return nil
}

func (r *Repository) GetSessionByDate(dutyDate string) (*domain.ChecklistSession, error) {
	query := `
		SELECT id, to_char(duty_date, 'YYYY-MM-DD'), status, submitted_at, created_at
		FROM checklist_sessions WHERE duty_date = $1::date
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	session := &domain.ChecklistSession{}
	dst := []any{&session.ID, &session.DutyDate, &session.Status, &session.SubmittedAt, &session.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, dutyDate).Scan(dst...); err != nil {
		return nil, err
	}

	return session, nil
}

func (r *Repository) GetSessionByID(id int64) (*domain.ChecklistSession, error) {
	query := `
		SELECT to_char(duty_date, 'YYYY-MM-DD'), status, submitted_at, created_at
		FROM checklist_sessions WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	session := &domain.ChecklistSession{
		ID: id,
	}
	dst := []any{&session.DutyDate, &session.Status, &session.SubmittedAt, &session.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return session, nil
}

func (r *Repository) UpdateSessionStatus(id int64, status domain.SessionStatus, submittedAt *time.Time) error {
	query := `
		UPDATE checklist_sessions SET status = $1, submitted_at = $2 WHERE id = $3
		RETURNING id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var returned int64
	if err := r.dbpool.QueryRowContext(ctx, query, string(status), submittedAt, id).Scan(&returned); err != nil {
		return err
	}

	return nil
}

// ForceCompleteStaleSessions 把某个日期之前仍在进行中的 session 全部改为已提交。
// 条件更新天然幂等，重复执行不会改变结果。
func (r *Repository) ForceCompleteStaleSessions(before string, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		UPDATE checklist_sessions
		SET status = 'Completed', submitted_at = $1
		WHERE status = 'In Progress' AND duty_date < $2::date
	`

	result, err := r.dbpool.ExecContext(ctx, query, now, before)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// GetDatesNeedingSession 返回 before 之前有排班但还没有 session 的日期。
func (r *Repository) GetDatesNeedingSession(before string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT DISTINCT to_char(s.duty_date, 'YYYY-MM-DD')
		FROM duty_schedules s
		WHERE s.duty_date < $1::date
		  AND NOT EXISTS (
			SELECT 1 FROM checklist_sessions cs WHERE cs.duty_date = s.duty_date
		  )
		ORDER BY 1 ASC
	`

	rows, err := r.dbpool.QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make([]string, 0)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dates, nil
}

func (r *Repository) GetSessionsInRange(from, to string) ([]*domain.ChecklistSession, error) {
	query := `
		SELECT id, to_char(duty_date, 'YYYY-MM-DD'), status, submitted_at, created_at
		FROM checklist_sessions
		WHERE duty_date BETWEEN $1::date AND $2::date
		ORDER BY duty_date DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*domain.ChecklistSession, 0)
	for rows.Next() {
		session := &domain.ChecklistSession{}
		dst := []any{&session.ID, &session.DutyDate, &session.Status, &session.SubmittedAt, &session.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}
