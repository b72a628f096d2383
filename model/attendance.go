package model

import "time"

type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
)

type AttendanceMethod string

const (
	MethodManual AttendanceMethod = "manual"
	MethodQR     AttendanceMethod = "qr"
)

type Attendance struct {
	ID         ID               `gorm:"primaryKey" json:"id"`
	EventID    ID               `gorm:"index" json:"event_id"`
	TraineeID  string           `json:"trainee_id"`
	Status     AttendanceStatus `json:"status"`
	CapturedAt time.Time        `json:"captured_at"`
	Method     AttendanceMethod `json:"method"`

	Synced     bool   `json:"synced"`
	SyncFailed bool   `json:"sync_failed"`
	SyncError  string `json:"sync_error,omitempty"`
}

func (Attendance) TableName() string {
	return "attendance"
}
