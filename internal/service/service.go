package service

import (
	"time"

	"github.com/lrn-ops/duty-manager/backend/internal/config"
	"github.com/lrn-ops/duty-manager/backend/internal/domain"
	"github.com/lrn-ops/duty-manager/backend/internal/photostore"
)

// Store 是排班与检查表所需的持久化边界，由 repository.Repository 实现。
// 查不到记录时沿用 database/sql 的约定返回 sql.ErrNoRows。
type Store interface {
	// 排班
	CreateRosterEntry(entry *domain.RosterEntry) error
	GetRosterEntryByID(id int64) (*domain.RosterEntry, error)
	GetRosterEntriesByDate(dutyDate string) ([]*domain.RosterEntry, error)
	GetRosterEntriesInRange(from, to string) ([]*domain.RosterEntry, error)
	HasRosterOnDate(managerID int64, dutyDate string) (bool, error)
	GetEarliestPendingDutyDate(managerID int64, before string) (string, error)
	DeleteRosterEntryCascade(id int64) (*domain.RosterCascade, error)
	DeleteRosterEntriesByDate(dutyDate string) (*domain.RosterCascade, error)

	// 检查表 session
	CreateSession(session *domain.ChecklistSession) error
	GetSessionByDate(dutyDate string) (*domain.ChecklistSession, error)
	GetSessionByID(id int64) (*domain.ChecklistSession, error)
	UpdateSessionStatus(id int64, status domain.SessionStatus, submittedAt *time.Time) error
	ForceCompleteStaleSessions(before string, now time.Time) (int64, error)
	GetDatesNeedingSession(before string) ([]string, error)
	GetSessionsInRange(from, to string) ([]*domain.ChecklistSession, error)

	// 检查项与照片
	UpsertEntry(entry *domain.ChecklistEntry) error
	EnsureEntry(sessionID, itemID int64) error
	GetEntriesBySession(sessionID int64) ([]*domain.ChecklistEntry, error)
	CountPhotos(sessionID, itemID int64) (int, error)
	InsertPhoto(photo *domain.ChecklistPhoto) error
	GetPhotoByID(id int64) (*domain.ChecklistPhoto, error)
	GetPhotosBySession(sessionID int64) ([]*domain.ChecklistPhoto, error)
	DeletePhoto(id int64) error

	// 个人日历
	UpsertCalendarEntry(entry *domain.CalendarEntry) error
	GetCalendarEntryByID(id int64) (*domain.CalendarEntry, error)
	GetCalendarEntriesInRange(managerID int64, from, to string) ([]*domain.CalendarEntry, error)
	DeleteCalendarEntry(id int64) error
	DeleteCalendarEntriesByDates(managerID int64, dates []string) (int64, error)
}

type Service struct {
	cfg    *config.Config
	store  Store
	photos photostore.Store
	clock  Clock
}

func NewService(cfg *config.Config, store Store, photos photostore.Store, clock Clock) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		photos: photos,
		clock:  clock,
	}
}
