package model

import "time"

// DailyReport is one day's field report for an event. GeofenceValid is
// computed once at submission against the device's reported position and
// never recomputed; it reflects ground truth at capture time.
type DailyReport struct {
	ID              ID        `gorm:"primaryKey" json:"id"`
	EventID         ID        `gorm:"index" json:"event_id"`
	DayNumber       int       `json:"day_number"`
	Date            time.Time `json:"date"`
	AttendanceCount int       `json:"attendance_count"`
	Notes           string    `json:"notes,omitempty"`
	PhotoRefs       IDList    `json:"photo_refs,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
	SubmissionLat   float64   `json:"submission_lat"`
	SubmissionLon   float64   `json:"submission_lon"`
	AccuracyM       float64   `json:"accuracy_m"`
	GeofenceValid   bool      `json:"geofence_valid"`

	Synced     bool   `json:"synced"`
	SyncFailed bool   `json:"sync_failed"`
	SyncError  string `json:"sync_error,omitempty"`
}

func (DailyReport) TableName() string {
	return "daily_reports"
}
