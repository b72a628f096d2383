package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"drillwatch.org/drillwatch/model"
)

type PushStatus string

const (
	PushCreated   PushStatus = "created"
	PushDuplicate PushStatus = "duplicate"
)

// PushResult is the authority's answer to one record upload. Duplicate
// means the record was accepted on an earlier attempt; the server id it
// carries is the same one assigned back then, so the caller can finish a
// previously interrupted sync.
type PushResult struct {
	ServerID string     `json:"serverId"`
	Status   PushStatus `json:"status"`
}

type FenceDTO struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radiusMeters"`
}

type SampleDTO struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracyMeters"`
}

// Push payloads are keyed by the device-local id so the authority can
// deduplicate replays after a crash between remote accept and local mark.

type EventPayload struct {
	LocalID              string    `json:"localId"`
	Name                 string    `json:"name"`
	Type                 string    `json:"type"`
	ScheduledDate        string    `json:"scheduledDate"` // yyyy-MM-dd
	EndDate              *string   `json:"endDate,omitempty"`
	AllowedLocation      FenceDTO  `json:"allowedLocation"`
	ExpectedParticipants int       `json:"expectedParticipants"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"createdAt"`
}

type ReportPayload struct {
	LocalID            string    `json:"localId"`
	EventID            string    `json:"eventId"`
	DayNumber          int       `json:"dayNumber"`
	Date               string    `json:"date"` // yyyy-MM-dd
	AttendanceCount    int       `json:"attendanceCount"`
	Notes              string    `json:"notes,omitempty"`
	PhotoRefs          []string  `json:"photoRefs,omitempty"`
	SubmittedAt        time.Time `json:"submittedAt"`
	SubmissionLocation SampleDTO `json:"submissionLocation"`
	GeofenceValid      bool      `json:"geofenceValid"`
}

type AttendancePayload struct {
	LocalID    string    `json:"localId"`
	EventID    string    `json:"eventId"`
	TraineeID  string    `json:"traineeId"`
	Status     string    `json:"status"`
	CapturedAt time.Time `json:"capturedAt"`
	Method     string    `json:"method"`
}

type MediaPayload struct {
	LocalID          string     `json:"localId"`
	EventID          string     `json:"eventId"`
	Kind             string     `json:"kind"`
	CapturedLocation *SampleDTO `json:"capturedLocation,omitempty"`
	CapturedAt       time.Time  `json:"capturedAt"`
}

type SyncEndpoint struct {
	transport *Transport
}

// Push uploads one record to POST /api/v1/sync/{entity}.
func (e *SyncEndpoint) Push(ctx context.Context, kind model.Kind, payload any) (*PushResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	resp, err := e.transport.Post(ctx, fmt.Sprintf("/api/v1/sync/%s", kind), payload, nil)
	if err != nil {
		return nil, err
	}

	var result PushResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, err
	}
	if result.ServerID == "" {
		return nil, fmt.Errorf("sync response missing serverId")
	}

	return &result, nil
}

type MediaEndpoint struct {
	transport *Transport
}

// UploadBlob streams a media blob to the authority once the metadata row
// is synced and has a server id.
func (e *MediaEndpoint) UploadBlob(ctx context.Context, serverID string, filename string, r io.Reader) error {
	_, err := e.transport.Upload(ctx, fmt.Sprintf("/api/v1/media/%s/blob", serverID), "file", filename, r)
	return err
}
