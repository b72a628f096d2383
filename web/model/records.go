// Package model holds the authority-side record tables. Every table
// carries the submitting device's client id under a unique index: a
// replayed push hits the index instead of creating a second row.
package model

import "time"

type EventRecord struct {
	ID                   string    `json:"id" gorm:"primaryKey"`
	ClientID             string    `json:"clientId" gorm:"uniqueIndex;not null"`
	DeviceID             string    `json:"deviceId" gorm:"index"`
	Name                 string    `json:"name"`
	Type                 string    `json:"type"`
	ScheduledDate        string    `json:"scheduledDate"`
	EndDate              *string   `json:"endDate"`
	AllowedLat           float64   `json:"allowedLat"`
	AllowedLon           float64   `json:"allowedLon"`
	AllowedRadiusM       float64   `json:"allowedRadiusM"`
	ExpectedParticipants int       `json:"expectedParticipants"`
	Status               string    `json:"status"`
	CapturedAt           time.Time `json:"capturedAt"`
	ReceivedAt           time.Time `json:"receivedAt" gorm:"autoCreateTime"`
}

func (EventRecord) TableName() string {
	return "event_records"
}

type ReportRecord struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	ClientID        string    `json:"clientId" gorm:"uniqueIndex;not null"`
	DeviceID        string    `json:"deviceId" gorm:"index"`
	EventID         string    `json:"eventId" gorm:"index"`
	DayNumber       int       `json:"dayNumber"`
	Date            string    `json:"date"`
	AttendanceCount int       `json:"attendanceCount"`
	Notes           string    `json:"notes"`
	PhotoRefs       string    `json:"photoRefs"` // JSON array of media record ids
	SubmittedAt     time.Time `json:"submittedAt"`
	SubmissionLat   float64   `json:"submissionLat"`
	SubmissionLon   float64   `json:"submissionLon"`
	AccuracyM       float64   `json:"accuracyM"`
	GeofenceValid   bool      `json:"geofenceValid"`
	// GeofenceDistanceM is recomputed server-side from the event's fence
	// for audit, independent of the device's own verdict.
	GeofenceDistanceM float64   `json:"geofenceDistanceM"`
	ReceivedAt        time.Time `json:"receivedAt" gorm:"autoCreateTime"`
}

func (ReportRecord) TableName() string {
	return "report_records"
}

type AttendanceRecord struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	ClientID   string    `json:"clientId" gorm:"uniqueIndex;not null"`
	DeviceID   string    `json:"deviceId" gorm:"index"`
	EventID    string    `json:"eventId" gorm:"index"`
	TraineeID  string    `json:"traineeId"`
	Status     string    `json:"status"`
	Method     string    `json:"method"`
	CapturedAt time.Time `json:"capturedAt"`
	ReceivedAt time.Time `json:"receivedAt" gorm:"autoCreateTime"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

type MediaRecord struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ClientID    string    `json:"clientId" gorm:"uniqueIndex;not null"`
	DeviceID    string    `json:"deviceId" gorm:"index"`
	EventID     string    `json:"eventId" gorm:"index"`
	Kind        string    `json:"kind"`
	CapturedLat *float64  `json:"capturedLat"`
	CapturedLon *float64  `json:"capturedLon"`
	CapturedAt  time.Time `json:"capturedAt"`
	// BlobKey is empty until the device uploads the blob.
	BlobKey    string    `json:"blobKey"`
	ReceivedAt time.Time `json:"receivedAt" gorm:"autoCreateTime"`
}

func (MediaRecord) TableName() string {
	return "media_records"
}
