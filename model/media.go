package model

import "time"

type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// Media is a captured photo or video. BlobRef is an opaque handle into the
// device blob store; the blob itself is written with relaxed durability
// since only the metadata row participates in the store's guarantees.
type Media struct {
	ID          ID        `gorm:"primaryKey" json:"id"`
	EventID     ID        `gorm:"index" json:"event_id"`
	Kind        MediaKind `json:"kind"`
	BlobRef     string    `json:"blob_ref"`
	CapturedLat *float64  `json:"captured_lat,omitempty"`
	CapturedLon *float64  `json:"captured_lon,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`

	Synced     bool   `json:"synced"`
	SyncFailed bool   `json:"sync_failed"`
	SyncError  string `json:"sync_error,omitempty"`
}

func (Media) TableName() string {
	return "media"
}
