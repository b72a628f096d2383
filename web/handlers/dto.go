package handlers

import (
	"time"

	"drillwatch.org/drillwatch/web/common"
)

// Push DTOs mirror the device sync payloads. Every record arrives keyed
// by its device-local id; that key drives the duplicate detection.

type FenceDTO struct {
	Latitude     float64 `json:"latitude" binding:"latitude"`
	Longitude    float64 `json:"longitude" binding:"longitude"`
	RadiusMeters float64 `json:"radiusMeters" binding:"gt=0"`
}

type SampleDTO struct {
	Latitude       float64 `json:"latitude" binding:"latitude"`
	Longitude      float64 `json:"longitude" binding:"longitude"`
	AccuracyMeters float64 `json:"accuracyMeters"`
}

type EventPush struct {
	LocalID              string           `json:"localId" binding:"required"`
	Name                 string           `json:"name" binding:"required"`
	Type                 string           `json:"type"`
	ScheduledDate        common.DateOnly  `json:"scheduledDate" binding:"required"`
	EndDate              *common.DateOnly `json:"endDate"`
	AllowedLocation      FenceDTO         `json:"allowedLocation" binding:"required"`
	ExpectedParticipants int              `json:"expectedParticipants" binding:"min=0"`
	Status               string           `json:"status" binding:"required,oneof=active completed"`
	CreatedAt            time.Time        `json:"createdAt"`
}

type ReportPush struct {
	LocalID            string          `json:"localId" binding:"required"`
	EventID            string          `json:"eventId" binding:"required"`
	DayNumber          int             `json:"dayNumber" binding:"min=1"`
	Date               common.DateOnly `json:"date" binding:"required"`
	AttendanceCount    int             `json:"attendanceCount" binding:"min=0"`
	Notes              string          `json:"notes"`
	PhotoRefs          []string        `json:"photoRefs"`
	SubmittedAt        time.Time       `json:"submittedAt"`
	SubmissionLocation SampleDTO       `json:"submissionLocation" binding:"required"`
	GeofenceValid      bool            `json:"geofenceValid"`
}

type AttendancePush struct {
	LocalID    string    `json:"localId" binding:"required"`
	EventID    string    `json:"eventId" binding:"required"`
	TraineeID  string    `json:"traineeId" binding:"required"`
	Status     string    `json:"status" binding:"required,oneof=present absent"`
	Method     string    `json:"method" binding:"required,oneof=manual qr"`
	CapturedAt time.Time `json:"capturedAt"`
}

type MediaPush struct {
	LocalID          string     `json:"localId" binding:"required"`
	EventID          string     `json:"eventId" binding:"required"`
	Kind             string     `json:"kind" binding:"required,oneof=photo video"`
	CapturedLocation *SampleDTO `json:"capturedLocation"`
	CapturedAt       time.Time  `json:"capturedAt"`
}

type PushResponse struct {
	ServerID string `json:"serverId"`
	Status   string `json:"status"` // created | duplicate
}
