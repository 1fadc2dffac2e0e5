package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lrn-ops/duty-manager/backend/internal/domain"
)

// OpenOrGet 返回某个日期的检查表 session。
// 没有 session 时只有当天排班的经理才会真正落库；
// 其他人（包括超级管理员）看到的是一个未保存的虚拟 session（ID 为 0），
// 避免旁观者一打开页面就制造空记录。
// 并发首开由 duty_date 的唯一约束裁决，竞争失败方重新读取获胜方的行，
// 不把冲突暴露给调用方。
func (s *Service) OpenOrGet(dutyDate string, actor *domain.User) (*domain.ChecklistSession, error) {
	session, err := s.store.GetSessionByDate(dutyDate)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hasRoster, err := s.store.HasRosterOnDate(actor.ID, dutyDate)
	if err != nil {
		return nil, err
	}
	if !hasRoster {
		return &domain.ChecklistSession{
			DutyDate: dutyDate,
			Status:   domain.SessionInProgress,
		}, nil
	}

	session = &domain.ChecklistSession{
		DutyDate: dutyDate,
		Status:   domain.SessionInProgress,
	}
	if err := s.store.CreateSession(session); err != nil {
		if errors.Is(err, domain.ErrDuplicateSession) {
			return s.store.GetSessionByDate(dutyDate)
		}
		return nil, err
	}

	return session, nil
}

type EntryFields struct {
	Shift         domain.ShiftSelection
	Coordinated   bool
	DeptInCharge  string
	RemarksFirst  string
	RemarksSecond string
	Temperature   string
}

// UpsertEntry 写入某个检查项的填写结果，要求调用时刻仍有编辑权限。
// 同一项并发写入为 last-write-wins。
func (s *Service) UpsertEntry(actor *domain.User, sessionID, itemID int64, fields EntryFields) (*domain.ChecklistEntry, error) {
	session, err := s.store.GetSessionByID(sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	perm, err := s.CanEdit(actor, session.DutyDate)
	if err != nil {
		return nil, err
	}
	if !perm.Allowed {
		return nil, forbidden(perm)
	}

	entry := &domain.ChecklistEntry{
		SessionID:    sessionID,
		ItemID:       itemID,
		Shift:        fields.Shift,
		Coordinated:  fields.Coordinated,
		DeptInCharge: fields.DeptInCharge,
		RemarksFirst: fields.RemarksFirst,
		RemarksSec:   fields.RemarksSecond,
		Temperature:  fields.Temperature,
	}
	if err := s.store.UpsertEntry(entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// AddPhoto 给检查项追加一张照片，每项最多 cfg.Duty.PhotoLimit 张。
// 先写对象存储再写元数据：中途崩溃最多留下一个孤儿文件，
// 不会出现指向不存在文件的记录。元数据写失败时反向清理刚写入的文件。
func (s *Service) AddPhoto(ctx context.Context, actor *domain.User, sessionID, itemID int64, data io.Reader, size int64, mimeType, ext string) (*domain.ChecklistPhoto, error) {
	session, err := s.store.GetSessionByID(sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	perm, err := s.CanEdit(actor, session.DutyDate)
	if err != nil {
		return nil, err
	}
	if !perm.Allowed {
		return nil, forbidden(perm)
	}

	count, err := s.store.CountPhotos(sessionID, itemID)
	if err != nil {
		return nil, err
	}
	if count >= s.cfg.Duty.PhotoLimit {
		return nil, domain.ErrLimitExceeded
	}

	key := fmt.Sprintf("checklist-%d/images/item-%d-%d.%s", sessionID, itemID, s.clock.Now().UnixNano(), ext)
	if err := s.photos.Put(ctx, key, data, size, mimeType); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	photo := &domain.ChecklistPhoto{
		SessionID:  sessionID,
		ItemID:     itemID,
		StorageKey: key,
		MimeType:   mimeType,
	}
	if err := s.store.InsertPhoto(photo); err != nil {
		// 元数据没写进去，把刚传的文件删掉，别留孤儿
		if delErr := s.photos.Delete(ctx, key); delErr != nil {
			slog.Warn("补偿清理照片文件失败", "key", key, "error", delErr)
		}
		// 并发上传挤爆上限时插入会被存储层拒绝
		if errors.Is(err, domain.ErrLimitExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	// 只传照片没填表单的项也要算"已填写"。照片本身已经落库，
	// 这里失败不能让调用方重试（会重复上传），只记日志。
	if err := s.store.EnsureEntry(sessionID, itemID); err != nil {
		slog.Warn("标记检查项已填写失败", "sessionID", sessionID, "itemID", itemID, "error", err)
	}

	return photo, nil
}

// RemovePhoto 先删元数据再删文件，文件删除失败只记日志（最多留孤儿文件）。
func (s *Service) RemovePhoto(ctx context.Context, actor *domain.User, photoID int64) error {
	photo, err := s.store.GetPhotoByID(photoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	session, err := s.store.GetSessionByID(photo.SessionID)
	if err != nil {
		return err
	}

	perm, err := s.CanEdit(actor, session.DutyDate)
	if err != nil {
		return err
	}
	if !perm.Allowed {
		return forbidden(perm)
	}

	if err := s.store.DeletePhoto(photoID); err != nil {
		return err
	}

	if err := s.photos.Delete(ctx, photo.StorageKey); err != nil {
		slog.Warn("删除照片文件失败", "key", photo.StorageKey, "error", err)
	}

	return nil
}

// OpenPhoto 返回照片的元数据和内容流，调用方负责关闭流。
func (s *Service) OpenPhoto(ctx context.Context, photoID int64) (*domain.ChecklistPhoto, io.ReadCloser, error) {
	photo, err := s.store.GetPhotoByID(photoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}

	body, _, err := s.photos.Get(ctx, photo.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	return photo, body, nil
}

// Finalize 提交检查表。提交是最后一次允许的编辑，所以仍然要求编辑权限；
// 对已提交的 session 重复调用是无害的成功。
func (s *Service) Finalize(actor *domain.User, sessionID int64) error {
	session, err := s.store.GetSessionByID(sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	if session.Status == domain.SessionCompleted {
		return nil
	}

	perm, err := s.CanEdit(actor, session.DutyDate)
	if err != nil {
		return err
	}
	if !perm.Allowed {
		return forbidden(perm)
	}

	now := s.clock.Now()
	return s.store.UpdateSessionStatus(sessionID, domain.SessionCompleted, &now)
}

// Reopen 撤销提交，是唯一允许的逆向状态迁移。
// 只有该日期的值班经理或超级管理员可以撤销。
func (s *Service) Reopen(actor *domain.User, sessionID int64) error {
	session, err := s.store.GetSessionByID(sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	if !actor.IsSuperAdmin() {
		hasRoster, err := s.store.HasRosterOnDate(actor.ID, session.DutyDate)
		if err != nil {
			return err
		}
		if !hasRoster {
			return forbidden(Permission{Reason: domain.ReasonNotAssigned})
		}
	}

	return s.store.UpdateSessionStatus(sessionID, domain.SessionInProgress, nil)
}

// ChecklistView 是打开某天检查表时返回给前端的完整状态。
type ChecklistView struct {
	DutyDate   string                   `json:"dutyDate"`
	Roster     []*domain.RosterEntry    `json:"roster"`
	Session    *domain.ChecklistSession `json:"session"`
	Entries    []*domain.ChecklistEntry `json:"entries"`
	Photos     []*domain.ChecklistPhoto `json:"photos"`
	Permission Permission               `json:"permission"`
}

func (s *Service) GetChecklistView(dutyDate string, actor *domain.User) (*ChecklistView, error) {
	view := &ChecklistView{DutyDate: dutyDate}

	roster, err := s.ListForDate(dutyDate)
	if err != nil {
		return nil, err
	}
	view.Roster = roster

	session, err := s.OpenOrGet(dutyDate, actor)
	if err != nil {
		return nil, err
	}
	view.Session = session

	// 虚拟 session 还没有落库，也就不会有条目和照片
	if session.ID != 0 {
		if view.Entries, err = s.store.GetEntriesBySession(session.ID); err != nil {
			return nil, err
		}
		if view.Photos, err = s.store.GetPhotosBySession(session.ID); err != nil {
			return nil, err
		}
	} else {
		view.Entries = make([]*domain.ChecklistEntry, 0)
		view.Photos = make([]*domain.ChecklistPhoto, 0)
	}

	perm, err := s.CanEdit(actor, dutyDate)
	if err != nil {
		return nil, err
	}
	view.Permission = perm

	return view, nil
}

// History 返回一段日期范围内的排班和 session 状态，用于历史页面。
type History struct {
	Rosters  []*domain.RosterEntry      `json:"rosters"`
	Sessions []*domain.ChecklistSession `json:"sessions"`
}

func (s *Service) GetHistory(from, to string) (*History, error) {
	rosters, err := s.store.GetRosterEntriesInRange(from, to)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.GetSessionsInRange(from, to)
	if err != nil {
		return nil, err
	}

	return &History{Rosters: rosters, Sessions: sessions}, nil
}
