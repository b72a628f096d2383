// Package store is the device-local durable record store. A successful Put
// is on disk before the call returns; SQLite runs in WAL mode with full
// synchronous writes so committed records survive abrupt termination.
package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"drillwatch.org/drillwatch/model"
)

type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the store at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, wrap("open", err)
	}

	// One writer at a time. The capture session and the reconciler share
	// this handle; SQLite serialises their writes.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, wrap("open", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Event{},
		&model.Media{},
		&model.Attendance{},
		&model.DailyReport{},
	); err != nil {
		return nil, wrap("migrate", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("close", err)
	}
	return wrap("close", sqlDB.Close())
}

func dsn(path string) string {
	params := "_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000&_foreign_keys=on"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

// Put inserts or overwrites a record by primary key. Overwrite preserves
// the row's insertion order (ON CONFLICT DO UPDATE keeps the rowid).
func (s *Store) Put(record any) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(record).Error
	return wrap("put", err)
}

func (s *Store) GetEvent(id model.ID) (*model.Event, error) {
	var ev model.Event
	if err := s.first(&ev, id); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *Store) GetReport(id model.ID) (*model.DailyReport, error) {
	var rep model.DailyReport
	if err := s.first(&rep, id); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (s *Store) GetAttendance(id model.ID) (*model.Attendance, error) {
	var att model.Attendance
	if err := s.first(&att, id); err != nil {
		return nil, err
	}
	return &att, nil
}

func (s *Store) GetMedia(id model.ID) (*model.Media, error) {
	var med model.Media
	if err := s.first(&med, id); err != nil {
		return nil, err
	}
	return &med, nil
}

func (s *Store) first(dest any, id model.ID) error {
	err := s.db.Where("id = ?", id).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return wrap("get", err)
}

// ReportForEventDay returns the report for event+day, or ErrNotFound.
func (s *Store) ReportForEventDay(eventID model.ID, day int) (*model.DailyReport, error) {
	var rep model.DailyReport
	err := s.db.Where("event_id = ? AND day_number = ?", eventID, day).First(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("get", err)
	}
	return &rep, nil
}

// The ListUnsynced methods return pending records in creation order
// (SQLite rowid order). Records terminally rejected by the authority
// (sync_failed) are excluded; they are never retried automatically.

func (s *Store) ListUnsyncedEvents() ([]model.Event, error) {
	var out []model.Event
	err := s.unsynced(&model.Event{}).Find(&out).Error
	return out, wrap("list", err)
}

func (s *Store) ListUnsyncedReports() ([]model.DailyReport, error) {
	var out []model.DailyReport
	err := s.unsynced(&model.DailyReport{}).Find(&out).Error
	return out, wrap("list", err)
}

func (s *Store) ListUnsyncedAttendance() ([]model.Attendance, error) {
	var out []model.Attendance
	err := s.unsynced(&model.Attendance{}).Find(&out).Error
	return out, wrap("list", err)
}

func (s *Store) ListUnsyncedMedia() ([]model.Media, error) {
	var out []model.Media
	err := s.unsynced(&model.Media{}).Find(&out).Error
	return out, wrap("list", err)
}

func (s *Store) unsynced(m any) *gorm.DB {
	return s.db.Model(m).Where("synced = ? AND sync_failed = ?", false, false).Order("rowid")
}

// UnsyncedCounts reports how many records of each kind still await sync.
func (s *Store) UnsyncedCounts() (map[model.Kind]int64, error) {
	counts := make(map[model.Kind]int64, len(model.SyncOrder))
	for kind, m := range map[model.Kind]any{
		model.KindEvent:      &model.Event{},
		model.KindReport:     &model.DailyReport{},
		model.KindAttendance: &model.Attendance{},
		model.KindMedia:      &model.Media{},
	} {
		var n int64
		if err := s.unsynced(m).Count(&n).Error; err != nil {
			return nil, wrap("count", err)
		}
		counts[kind] = n
	}
	return counts, nil
}

// CountsForEvent reports how many child records of each kind an event has
// accumulated, regardless of sync state. Drives the agent's status display.
func (s *Store) CountsForEvent(eventID model.ID) (map[model.Kind]int64, error) {
	counts := make(map[model.Kind]int64, 3)
	for kind, m := range map[model.Kind]any{
		model.KindReport:     &model.DailyReport{},
		model.KindAttendance: &model.Attendance{},
		model.KindMedia:      &model.Media{},
	} {
		var n int64
		if err := s.db.Model(m).Where("event_id = ?", eventID).Count(&n).Error; err != nil {
			return nil, wrap("count", err)
		}
		counts[kind] = n
	}
	return counts, nil
}

// MarkFailed records a terminal remote rejection. The record stays
// unsynced but is excluded from future passes until a user intervenes.
func (s *Store) MarkFailed(kind model.Kind, id model.ID, reason string) error {
	m, err := modelFor(kind)
	if err != nil {
		return err
	}
	err = setSyncState(s.db, m, id, map[string]any{
		"sync_failed": true,
		"sync_error":  reason,
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return wrap("mark", err)
}

func setSyncState(tx *gorm.DB, m any, id model.ID, fields map[string]any) error {
	res := tx.Model(m).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteSync finishes a successful upload: the record takes the
// server-assigned id (every dependent reference included) and flips to
// synced, in one transaction. A crash anywhere around this call leaves
// the record either fully local and pending, or fully renamed and
// synced; there is no half-renamed state for the next pass to re-upload
// under an identity the authority would not recognise as a replay.
func (s *Store) CompleteSync(kind model.Kind, oldID, newID model.ID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		m, err := modelFor(kind)
		if err != nil {
			return err
		}
		if oldID != newID {
			if err := remapID(tx, m, kind, oldID, newID); err != nil {
				return err
			}
		}
		return setSyncState(tx, m, newID, map[string]any{
			"synced":      true,
			"sync_failed": false,
			"sync_error":  "",
		})
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return wrap("complete", err)
}

// remapID renames a record's id and every foreign-key reference
// dependents hold to it. No child may reference the stale local id once
// the enclosing transaction commits.
func remapID(tx *gorm.DB, m any, kind model.Kind, oldID, newID model.ID) error {
	res := tx.Model(m).Where("id = ?", oldID).Update("id", newID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	switch kind {
	case model.KindEvent:
		for _, child := range []any{&model.DailyReport{}, &model.Attendance{}, &model.Media{}} {
			if err := tx.Model(child).Where("event_id = ?", oldID).
				Update("event_id", newID).Error; err != nil {
				return err
			}
		}
	case model.KindMedia:
		if err := remapPhotoRefs(tx, oldID, newID); err != nil {
			return err
		}
	}
	return nil
}

// remapPhotoRefs rewrites a media id inside daily_reports.photo_refs,
// which is a JSON-encoded id list. The LIKE prefilter narrows the scan;
// the authoritative match happens on the decoded list.
func remapPhotoRefs(tx *gorm.DB, oldID, newID model.ID) error {
	var reports []model.DailyReport
	if err := tx.Where("photo_refs LIKE ?", "%"+oldID.String()+"%").
		Find(&reports).Error; err != nil {
		return err
	}
	for i := range reports {
		if !reports[i].PhotoRefs.Contains(oldID) {
			continue
		}
		refs := make(model.IDList, len(reports[i].PhotoRefs))
		for j, ref := range reports[i].PhotoRefs {
			if ref == oldID {
				refs[j] = newID
			} else {
				refs[j] = ref
			}
		}
		if err := tx.Model(&model.DailyReport{}).Where("id = ?", reports[i].ID).
			Update("photo_refs", refs).Error; err != nil {
			return err
		}
	}
	return nil
}

func modelFor(kind model.Kind) (any, error) {
	switch kind {
	case model.KindEvent:
		return &model.Event{}, nil
	case model.KindReport:
		return &model.DailyReport{}, nil
	case model.KindAttendance:
		return &model.Attendance{}, nil
	case model.KindMedia:
		return &model.Media{}, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}
