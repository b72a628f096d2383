// Package capture creates field records: events, daily reports,
// attendance and media. Every successful creation writes exactly one
// record to the local store with synced=false; the reconciler alone moves
// records out of that state.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"drillwatch.org/drillwatch/geo"
	"drillwatch.org/drillwatch/infrastructure/filesystem"
	"drillwatch.org/drillwatch/model"
	"drillwatch.org/drillwatch/store"
	"drillwatch.org/drillwatch/utils"
)

// LocationSource abstracts the device's location service so capture logic
// is testable without real GPS hardware.
type LocationSource interface {
	Current(ctx context.Context) (geo.Sample, error)
}

// FixedLocation is a LocationSource pinned to one position. Used by the
// CLI (operator-entered coordinates) and by tests.
type FixedLocation geo.Sample

func (f FixedLocation) Current(context.Context) (geo.Sample, error) {
	return geo.Sample(f), nil
}

type Session struct {
	store    *store.Store
	blobs    filesystem.BlobStore
	location LocationSource
	now      func() time.Time
}

func NewSession(st *store.Store, blobs filesystem.BlobStore, location LocationSource) *Session {
	return &Session{
		store:    st,
		blobs:    blobs,
		location: location,
		now:      utils.DeviceNow,
	}
}

type EventInput struct {
	Name                 string
	Type                 string
	ScheduledDate        time.Time
	EndDate              *time.Time
	AllowedLat           float64
	AllowedLon           float64
	AllowedRadiusM       float64
	ExpectedParticipants int
}

func (s *Session) CreateEvent(in EventInput) (*model.Event, error) {
	if in.Name == "" {
		return nil, errValidation("name", "is required")
	}
	if in.AllowedRadiusM <= 0 {
		return nil, errValidation("allowedRadius", "must be positive")
	}
	if in.ScheduledDate.IsZero() {
		return nil, errValidation("scheduledDate", "is required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.ScheduledDate) {
		return nil, errValidation("endDate", "must not precede scheduledDate")
	}

	ev := &model.Event{
		ID:                   model.NewLocalID(),
		Name:                 in.Name,
		Type:                 in.Type,
		ScheduledDate:        in.ScheduledDate,
		EndDate:              in.EndDate,
		AllowedLat:           in.AllowedLat,
		AllowedLon:           in.AllowedLon,
		AllowedRadiusM:       in.AllowedRadiusM,
		ExpectedParticipants: in.ExpectedParticipants,
		Status:               model.EventActive,
		CreatedAt:            s.now(),
	}
	if err := s.store.Put(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// CompleteEvent transitions an event from active to completed. This is the
// only mutation allowed on a synced event, and it stays device-local once
// the event has uploaded: the push contract is create-only, so a status
// change after sync is not propagated to the authority.
func (s *Session) CompleteEvent(id model.ID) error {
	ev, err := s.store.GetEvent(id)
	if errors.Is(err, store.ErrNotFound) {
		return errValidation("eventId", "does not reference a known event")
	}
	if err != nil {
		return err
	}
	if ev.Status == model.EventCompleted {
		return nil
	}
	ev.Status = model.EventCompleted
	return s.store.Put(ev)
}

type ReportInput struct {
	EventID         model.ID
	DayNumber       int
	Date            time.Time
	AttendanceCount int
	Notes           string
	PhotoRefs       []model.ID
}

// SubmitDailyReport validates the report, samples the device location and
// computes the geofence outcome exactly once. A geofence miss is not an
// error: the report is stored with geofenceValid=false and flagged, never
// blocked.
func (s *Session) SubmitDailyReport(ctx context.Context, in ReportInput) (*model.DailyReport, error) {
	ev, err := s.store.GetEvent(in.EventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errValidation("eventId", "does not reference a known event")
	}
	if err != nil {
		return nil, err
	}

	if in.DayNumber < 1 {
		return nil, errValidation("dayNumber", "must be at least 1")
	}
	if _, err := s.store.ReportForEventDay(in.EventID, in.DayNumber); err == nil {
		return nil, errValidation("dayNumber",
			fmt.Sprintf("day %d already reported for this event", in.DayNumber))
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if in.AttendanceCount < 0 {
		return nil, errValidation("attendanceCount", "must not be negative")
	}

	sample, err := s.location.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read device location: %w", err)
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	rep := &model.DailyReport{
		ID:              model.NewLocalID(),
		EventID:         ev.ID,
		DayNumber:       in.DayNumber,
		Date:            date,
		AttendanceCount: in.AttendanceCount,
		Notes:           in.Notes,
		PhotoRefs:       in.PhotoRefs,
		SubmittedAt:     s.now(),
		SubmissionLat:   sample.Lat,
		SubmissionLon:   sample.Lon,
		AccuracyM:       sample.AccuracyM,
		GeofenceValid:   ev.Fence().Contains(sample.Point()),
	}
	if err := s.store.Put(rep); err != nil {
		return nil, err
	}
	return rep, nil
}

type AttendanceInput struct {
	EventID   model.ID
	TraineeID string
	Status    model.AttendanceStatus
	Method    model.AttendanceMethod
	// CapturedAt overrides the capture timestamp, for roster imports
	// carrying scanner times. Nil means now.
	CapturedAt *time.Time
}

func (s *Session) RecordAttendance(in AttendanceInput) (*model.Attendance, error) {
	if _, err := s.store.GetEvent(in.EventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errValidation("eventId", "does not reference a known event")
		}
		return nil, err
	}
	if in.TraineeID == "" {
		return nil, errValidation("traineeId", "is required")
	}
	if in.Status != model.Present && in.Status != model.Absent {
		return nil, errValidation("status", "must be present or absent")
	}
	if in.Method != model.MethodManual && in.Method != model.MethodQR {
		return nil, errValidation("method", "must be manual or qr")
	}

	capturedAt := s.now()
	if in.CapturedAt != nil {
		capturedAt = *in.CapturedAt
	}

	att := &model.Attendance{
		ID:         model.NewLocalID(),
		EventID:    in.EventID,
		TraineeID:  in.TraineeID,
		Status:     in.Status,
		CapturedAt: capturedAt,
		Method:     in.Method,
	}
	if err := s.store.Put(att); err != nil {
		return nil, err
	}
	return att, nil
}

type MediaInput struct {
	EventID model.ID
	Kind    model.MediaKind
	Content io.Reader
}

// AttachMedia writes the blob first, then the metadata record. The
// capture location is attached best-effort; a location failure never
// blocks a media capture.
func (s *Session) AttachMedia(ctx context.Context, in MediaInput) (*model.Media, error) {
	if _, err := s.store.GetEvent(in.EventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errValidation("eventId", "does not reference a known event")
		}
		return nil, err
	}
	if in.Kind != model.MediaPhoto && in.Kind != model.MediaVideo {
		return nil, errValidation("kind", "must be photo or video")
	}
	if in.Content == nil {
		return nil, errValidation("content", "is required")
	}

	id := model.NewLocalID()
	ref, err := s.blobs.Save(ctx, blobName(id, in.Kind), in.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to store media blob: %w", err)
	}

	med := &model.Media{
		ID:         id,
		EventID:    in.EventID,
		Kind:       in.Kind,
		BlobRef:    ref,
		CapturedAt: s.now(),
	}
	if sample, err := s.location.Current(ctx); err == nil {
		med.CapturedLat = utils.Ptr(sample.Lat)
		med.CapturedLon = utils.Ptr(sample.Lon)
	}

	if err := s.store.Put(med); err != nil {
		return nil, err
	}
	return med, nil
}

func blobName(id model.ID, kind model.MediaKind) string {
	ext := ".jpg"
	if kind == model.MediaVideo {
		ext = ".mp4"
	}
	return id.String() + ext
}
