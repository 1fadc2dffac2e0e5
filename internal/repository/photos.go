package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

func (r *Repository) CountPhotos(sessionID, itemID int64) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT COUNT(*) FROM checklist_photos WHERE session_id = $1 AND item_id = $2`

	var count int
	if err := r.dbpool.QueryRowContext(ctx, query, sessionID, itemID).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// InsertPhoto 在一个事务里完成数量上限检查和插入。
// 上层虽然先查过数量，但两个并发上传可能都数到 4 然后都插入成功，
// 所以先对 (session, item) 取 advisory lock 再计数，超限返回 ErrLimitExceeded。
func (r *Repository) InsertPhoto(photo *domain.ChecklistPhoto) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT pg_advisory_xact_lock(hashtext('photo|' || $1::text || '|' || $2::text))`
	if _, err := tx.ExecContext(ctx, query, photo.SessionID, photo.ItemID); err != nil {
		return err
	}

	var count int
	query = `SELECT COUNT(*) FROM checklist_photos WHERE session_id = $1 AND item_id = $2`
	if err := tx.QueryRowContext(ctx, query, photo.SessionID, photo.ItemID).Scan(&count); err != nil {
		return err
	}
	if count >= r.cfg.Duty.PhotoLimit {
		return domain.ErrLimitExceeded
	}

	query = `
		INSERT INTO checklist_photos (session_id, item_id, storage_key, mime_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, uploaded_at
	`

	args := []any{photo.SessionID, photo.ItemID, photo.StorageKey, photo.MimeType}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&photo.ID, &photo.UploadedAt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) GetPhotoByID(id int64) (*domain.ChecklistPhoto, error) {
	query := `
		SELECT session_id, item_id, storage_key, mime_type, uploaded_at
		FROM checklist_photos WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	photo := &domain.ChecklistPhoto{
		ID: id,
	}
	dst := []any{&photo.SessionID, &photo.ItemID, &photo.StorageKey, &photo.MimeType, &photo.UploadedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return photo, nil
}

func (r *Repository) GetPhotosBySession(sessionID int64) ([]*domain.ChecklistPhoto, error) {
	query := `
		SELECT id, item_id, storage_key, mime_type, uploaded_at
		FROM checklist_photos WHERE session_id = $1
		ORDER BY uploaded_at ASC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := make([]*domain.ChecklistPhoto, 0)
	for rows.Next() {
		photo := &domain.ChecklistPhoto{
			SessionID: sessionID,
		}
		dst := []any{&photo.ID, &photo.ItemID, &photo.StorageKey, &photo.MimeType, &photo.UploadedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return photos, nil
}

func (r *Repository) DeletePhoto(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `DELETE FROM checklist_photos WHERE id = $1 RETURNING id`

	var returned int64
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&returned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}
