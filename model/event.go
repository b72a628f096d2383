package model

import (
	"time"

	"drillwatch.org/drillwatch/geo"
)

type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
)

// Event is a registered training event. Immutable once synced except for
// the active -> completed status transition.
type Event struct {
	ID                   ID          `gorm:"primaryKey" json:"id"`
	Name                 string      `json:"name"`
	Type                 string      `json:"type"`
	ScheduledDate        time.Time   `json:"scheduled_date"`
	EndDate              *time.Time  `json:"end_date,omitempty"`
	AllowedLat           float64     `json:"allowed_lat"`
	AllowedLon           float64     `json:"allowed_lon"`
	AllowedRadiusM       float64     `json:"allowed_radius_m"`
	ExpectedParticipants int         `json:"expected_participants"`
	Status               EventStatus `json:"status"`
	CreatedAt            time.Time   `json:"created_at"`

	Synced     bool   `json:"synced"`
	SyncFailed bool   `json:"sync_failed"`
	SyncError  string `json:"sync_error,omitempty"`
}

func (Event) TableName() string {
	return "events"
}

// Fence is the allowed-zone daily reports are validated against.
func (e Event) Fence() geo.Fence {
	return geo.Fence{
		Center:  geo.Point{Lat: e.AllowedLat, Lon: e.AllowedLon},
		RadiusM: e.AllowedRadiusM,
	}
}
