package service

import (
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/lrn-ops/duty-manager/backend/internal/config"
	"github.com/lrn-ops/duty-manager/backend/internal/domain"
	"github.com/lrn-ops/duty-manager/backend/internal/photostore"
)

// fakeStore 按 repository 的约定实现 Store：查不到记录返回 sql.ErrNoRows，
// 业务约束冲突返回 domain 里的哨兵错误。
type fakeStore struct {
	nextID     int64
	capacity   int
	photoLimit int

	rosters  map[int64]*domain.RosterEntry
	sessions map[int64]*domain.ChecklistSession
	entries  map[string]*domain.ChecklistEntry
	photos   map[int64]*domain.ChecklistPhoto
	calendar map[int64]*domain.CalendarEntry
}

func newFakeStore(capacity, photoLimit int) *fakeStore {
	return &fakeStore{
		capacity:   capacity,
		photoLimit: photoLimit,
		rosters:  make(map[int64]*domain.RosterEntry),
		sessions: make(map[int64]*domain.ChecklistSession),
		entries:  make(map[string]*domain.ChecklistEntry),
		photos:   make(map[int64]*domain.ChecklistPhoto),
		calendar: make(map[int64]*domain.CalendarEntry),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func entryKey(sessionID, itemID int64) string {
	return fmt.Sprintf("%d-%d", sessionID, itemID)
}

func (f *fakeStore) CreateRosterEntry(entry *domain.RosterEntry) error {
	slots := 0
	for _, existing := range f.rosters {
		if existing.DutyDate == entry.DutyDate && existing.ManagerID == entry.ManagerID {
			return domain.ErrDuplicateAssignment
		}
		if existing.DutyDate == entry.DutyDate && existing.Timeline == entry.Timeline {
			slots++
		}
	}
	if slots >= f.capacity {
		return domain.ErrCapacityExceeded
	}

	entry.ID = f.id()
	if entry.ManagerName == "" {
		entry.ManagerName = fmt.Sprintf("经理%d", entry.ManagerID)
	}
	f.rosters[entry.ID] = entry
	return nil
}

func (f *fakeStore) GetRosterEntryByID(id int64) (*domain.RosterEntry, error) {
	entry, ok := f.rosters[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return entry, nil
}

func (f *fakeStore) GetRosterEntriesByDate(dutyDate string) ([]*domain.RosterEntry, error) {
	entries := []*domain.RosterEntry{}
	for _, entry := range f.rosters {
		if entry.DutyDate == dutyDate {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (f *fakeStore) GetRosterEntriesInRange(from, to string) ([]*domain.RosterEntry, error) {
	entries := []*domain.RosterEntry{}
	for _, entry := range f.rosters {
		if entry.DutyDate >= from && entry.DutyDate <= to {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (f *fakeStore) HasRosterOnDate(managerID int64, dutyDate string) (bool, error) {
	for _, entry := range f.rosters {
		if entry.ManagerID == managerID && entry.DutyDate == dutyDate {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetEarliestPendingDutyDate(managerID int64, before string) (string, error) {
	pending := ""
	for _, entry := range f.rosters {
		if entry.ManagerID != managerID || entry.DutyDate >= before {
			continue
		}

		completed := false
		for _, session := range f.sessions {
			if session.DutyDate == entry.DutyDate && session.Status == domain.SessionCompleted {
				completed = true
				break
			}
		}
		if completed {
			continue
		}

		if pending == "" || entry.DutyDate < pending {
			pending = entry.DutyDate
		}
	}
	return pending, nil
}

func (f *fakeStore) cascadeIfUnrostered(dutyDate string, cascade *domain.RosterCascade) {
	for _, entry := range f.rosters {
		if entry.DutyDate == dutyDate {
			return
		}
	}

	for id, session := range f.sessions {
		if session.DutyDate != dutyDate {
			continue
		}

		for photoID, photo := range f.photos {
			if photo.SessionID == session.ID {
				cascade.PhotoKeys = append(cascade.PhotoKeys, photo.StorageKey)
				delete(f.photos, photoID)
			}
		}
		for key, entry := range f.entries {
			if entry.SessionID == session.ID {
				delete(f.entries, key)
			}
		}
		delete(f.sessions, id)
		cascade.SessionDeleted = true
	}
}

func (f *fakeStore) DeleteRosterEntryCascade(id int64) (*domain.RosterCascade, error) {
	entry, ok := f.rosters[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(f.rosters, id)

	cascade := &domain.RosterCascade{DutyDate: entry.DutyDate, RemovedCount: 1}
	f.cascadeIfUnrostered(entry.DutyDate, cascade)
	return cascade, nil
}

func (f *fakeStore) DeleteRosterEntriesByDate(dutyDate string) (*domain.RosterCascade, error) {
	cascade := &domain.RosterCascade{DutyDate: dutyDate}
	for id, entry := range f.rosters {
		if entry.DutyDate == dutyDate {
			delete(f.rosters, id)
			cascade.RemovedCount++
		}
	}
	f.cascadeIfUnrostered(dutyDate, cascade)
	return cascade, nil
}

func (f *fakeStore) CreateSession(session *domain.ChecklistSession) error {
	for _, existing := range f.sessions {
		if existing.DutyDate == session.DutyDate {
			return domain.ErrDuplicateSession
		}
	}

	session.ID = f.id()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeStore) GetSessionByDate(dutyDate string) (*domain.ChecklistSession, error) {
	for _, session := range f.sessions {
		if session.DutyDate == dutyDate {
			return session, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetSessionByID(id int64) (*domain.ChecklistSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return session, nil
}

func (f *fakeStore) UpdateSessionStatus(id int64, status domain.SessionStatus, submittedAt *time.Time) error {
	session, ok := f.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	session.Status = status
	session.SubmittedAt = submittedAt
	return nil
}

func (f *fakeStore) ForceCompleteStaleSessions(before string, now time.Time) (int64, error) {
	var closed int64
	for _, session := range f.sessions {
		if session.DutyDate < before && session.Status != domain.SessionCompleted {
			session.Status = domain.SessionCompleted
			submittedAt := now
			session.SubmittedAt = &submittedAt
			closed++
		}
	}
	return closed, nil
}

func (f *fakeStore) GetDatesNeedingSession(before string) ([]string, error) {
	seen := map[string]bool{}
	for _, entry := range f.rosters {
		if entry.DutyDate >= before {
			continue
		}
		if _, err := f.GetSessionByDate(entry.DutyDate); err == nil {
			continue
		}
		seen[entry.DutyDate] = true
	}

	dates := []string{}
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

func (f *fakeStore) GetSessionsInRange(from, to string) ([]*domain.ChecklistSession, error) {
	sessions := []*domain.ChecklistSession{}
	for _, session := range f.sessions {
		if session.DutyDate >= from && session.DutyDate <= to {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (f *fakeStore) UpsertEntry(entry *domain.ChecklistEntry) error {
	key := entryKey(entry.SessionID, entry.ItemID)
	if existing, ok := f.entries[key]; ok {
		entry.ID = existing.ID
	} else {
		entry.ID = f.id()
	}
	f.entries[key] = entry
	return nil
}

func (f *fakeStore) EnsureEntry(sessionID, itemID int64) error {
	key := entryKey(sessionID, itemID)
	if _, ok := f.entries[key]; ok {
		return nil
	}
	f.entries[key] = &domain.ChecklistEntry{
		ID:        f.id(),
		SessionID: sessionID,
		ItemID:    itemID,
	}
	return nil
}

func (f *fakeStore) GetEntriesBySession(sessionID int64) ([]*domain.ChecklistEntry, error) {
	entries := []*domain.ChecklistEntry{}
	for _, entry := range f.entries {
		if entry.SessionID == sessionID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (f *fakeStore) CountPhotos(sessionID, itemID int64) (int, error) {
	count := 0
	for _, photo := range f.photos {
		if photo.SessionID == sessionID && photo.ItemID == itemID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) InsertPhoto(photo *domain.ChecklistPhoto) error {
	count, _ := f.CountPhotos(photo.SessionID, photo.ItemID)
	if count >= f.photoLimit {
		return domain.ErrLimitExceeded
	}

	photo.ID = f.id()
	f.photos[photo.ID] = photo
	return nil
}

func (f *fakeStore) GetPhotoByID(id int64) (*domain.ChecklistPhoto, error) {
	photo, ok := f.photos[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return photo, nil
}

func (f *fakeStore) GetPhotosBySession(sessionID int64) ([]*domain.ChecklistPhoto, error) {
	photos := []*domain.ChecklistPhoto{}
	for _, photo := range f.photos {
		if photo.SessionID == sessionID {
			photos = append(photos, photo)
		}
	}
	return photos, nil
}

func (f *fakeStore) DeletePhoto(id int64) error {
	if _, ok := f.photos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.photos, id)
	return nil
}

func (f *fakeStore) UpsertCalendarEntry(entry *domain.CalendarEntry) error {
	for _, existing := range f.calendar {
		if existing.ManagerID == entry.ManagerID && existing.EntryDate == entry.EntryDate {
			entry.ID = existing.ID
			f.calendar[entry.ID] = entry
			return nil
		}
	}
	entry.ID = f.id()
	f.calendar[entry.ID] = entry
	return nil
}

func (f *fakeStore) GetCalendarEntryByID(id int64) (*domain.CalendarEntry, error) {
	entry, ok := f.calendar[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return entry, nil
}

func (f *fakeStore) GetCalendarEntriesInRange(managerID int64, from, to string) ([]*domain.CalendarEntry, error) {
	entries := []*domain.CalendarEntry{}
	for _, entry := range f.calendar {
		if entry.EntryDate < from || entry.EntryDate > to {
			continue
		}
		if managerID != 0 && entry.ManagerID != managerID {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (f *fakeStore) DeleteCalendarEntry(id int64) error {
	if _, ok := f.calendar[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.calendar, id)
	return nil
}

func (f *fakeStore) DeleteCalendarEntriesByDates(managerID int64, dates []string) (int64, error) {
	var removed int64
	for id, entry := range f.calendar {
		if entry.ManagerID != managerID {
			continue
		}
		for _, date := range dates {
			if entry.EntryDate == date {
				delete(f.calendar, id)
				removed++
				break
			}
		}
	}
	return removed, nil
}

// fakeClock 固定在某一天的中午。
type fakeClock struct {
	today string
}

func (c *fakeClock) Now() time.Time {
	t, _ := time.Parse(DateLayout, c.today)
	return t.Add(12 * time.Hour)
}

func (c *fakeClock) Today() string {
	return c.today
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Duty.EditWindowDays = 7
	cfg.Duty.TimelineCapacity = 3
	cfg.Duty.PhotoLimit = 5
	return cfg
}

func newTestService(today string) (*Service, *fakeStore, *photostore.MemoryStore, *fakeClock) {
	cfg := testConfig()
	store := newFakeStore(cfg.Duty.TimelineCapacity, cfg.Duty.PhotoLimit)
	photos := photostore.NewMemoryStore()
	clock := &fakeClock{today: today}
	return NewService(cfg, store, photos, clock), store, photos, clock
}

func manager(id int64) *domain.User {
	return &domain.User{
		ID:       id,
		Username: fmt.Sprintf("manager%d", id),
		FullName: fmt.Sprintf("经理%d", id),
		Role:     domain.RoleDutyManager,
		IsActive: true,
	}
}

func admin() *domain.User {
	return &domain.User{
		ID:       999,
		Username: "admin",
		FullName: "超级管理员",
		Role:     domain.RoleSuperAdmin,
		IsActive: true,
	}
}

func mustAssign(t *testing.T, svc *Service, managerID int64, date string) *domain.RosterEntry {
	t.Helper()
	entry, err := svc.Assign(managerID, date, domain.TimelineDay, "test")
	if err != nil {
		t.Fatalf("Assign(%d, %s): %v", managerID, date, err)
	}
	return entry
}

func mustOpen(t *testing.T, svc *Service, date string, actor *domain.User) *domain.ChecklistSession {
	t.Helper()
	session, err := svc.OpenOrGet(date, actor)
	if err != nil {
		t.Fatalf("OpenOrGet(%s): %v", date, err)
	}
	return session
}
