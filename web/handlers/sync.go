package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"drillwatch.org/drillwatch/core"
	"drillwatch.org/drillwatch/geo"
	"drillwatch.org/drillwatch/utils"
	"drillwatch.org/drillwatch/web/common"
	"drillwatch.org/drillwatch/web/middlewares"
	"drillwatch.org/drillwatch/web/model"
)

const dateLayout = "2006-01-02"

// SyncPushHandler accepts one record from a device. Replays are answered
// with the originally-assigned server id and status "duplicate", so a
// device that crashed between our accept and its local bookkeeping can
// finish the transition on its next pass.
func SyncPushHandler(dm *core.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Param("entity") {
		case "events":
			pushEvent(c, dm)
		case "reports":
			pushReport(c, dm)
		case "attendance":
			pushAttendance(c, dm)
		case "media":
			pushMedia(c, dm)
		default:
			c.JSON(http.StatusNotFound,
				common.NewErrorResponse("unknown_entity", "no such sync entity"))
		}
	}
}

func pushEvent(c *gin.Context, dm *core.DatabaseManager) {
	var push EventPush
	if err := c.ShouldBindJSON(&push); err != nil {
		c.JSON(http.StatusBadRequest,
			common.NewErrorResponse("invalid_body", common.FormatBindingError(err)))
		return
	}

	record := model.EventRecord{
		ID:                   uuid.NewString(),
		ClientID:             push.LocalID,
		DeviceID:             deviceID(c),
		Name:                 push.Name,
		Type:                 push.Type,
		ScheduledDate:        push.ScheduledDate.Format(dateLayout),
		AllowedLat:           push.AllowedLocation.Latitude,
		AllowedLon:           push.AllowedLocation.Longitude,
		AllowedRadiusM:       push.AllowedLocation.RadiusMeters,
		ExpectedParticipants: push.ExpectedParticipants,
		Status:               push.Status,
		CapturedAt:           push.CreatedAt,
	}
	if push.EndDate != nil {
		record.EndDate = utils.Ptr(push.EndDate.Format(dateLayout))
	}
	respondPush(c, dm, push.LocalID, "event_records", &record)
}

func pushReport(c *gin.Context, dm *core.DatabaseManager) {
	var push ReportPush
	if err := c.ShouldBindJSON(&push); err != nil {
		c.JSON(http.StatusBadRequest,
			common.NewErrorResponse("invalid_body", common.FormatBindingError(err)))
		return
	}

	var ev model.EventRecord
	if !requireEvent(c, dm, push.EventID, &ev) {
		return
	}

	photoRefs, _ := json.Marshal(push.PhotoRefs)
	record := model.ReportRecord{
		ID:              uuid.NewString(),
		ClientID:        push.LocalID,
		DeviceID:        deviceID(c),
		EventID:         push.EventID,
		DayNumber:       push.DayNumber,
		Date:            push.Date.Format(dateLayout),
		AttendanceCount: push.AttendanceCount,
		Notes:           push.Notes,
		PhotoRefs:       string(photoRefs),
		SubmittedAt:     push.SubmittedAt,
		SubmissionLat:   push.SubmissionLocation.Latitude,
		SubmissionLon:   push.SubmissionLocation.Longitude,
		AccuracyM:       push.SubmissionLocation.AccuracyMeters,
		GeofenceValid:   push.GeofenceValid,
		GeofenceDistanceM: geo.Distance(
			geo.Point{Lat: ev.AllowedLat, Lon: ev.AllowedLon},
			geo.Point{Lat: push.SubmissionLocation.Latitude, Lon: push.SubmissionLocation.Longitude},
		),
	}
	respondPush(c, dm, push.LocalID, "report_records", &record)
}

func pushAttendance(c *gin.Context, dm *core.DatabaseManager) {
	var push AttendancePush
	if err := c.ShouldBindJSON(&push); err != nil {
		c.JSON(http.StatusBadRequest,
			common.NewErrorResponse("invalid_body", common.FormatBindingError(err)))
		return
	}

	var ev model.EventRecord
	if !requireEvent(c, dm, push.EventID, &ev) {
		return
	}

	record := model.AttendanceRecord{
		ID:         uuid.NewString(),
		ClientID:   push.LocalID,
		DeviceID:   deviceID(c),
		EventID:    push.EventID,
		TraineeID:  push.TraineeID,
		Status:     push.Status,
		Method:     push.Method,
		CapturedAt: push.CapturedAt,
	}
	respondPush(c, dm, push.LocalID, "attendance_records", &record)
}

func pushMedia(c *gin.Context, dm *core.DatabaseManager) {
	var push MediaPush
	if err := c.ShouldBindJSON(&push); err != nil {
		c.JSON(http.StatusBadRequest,
			common.NewErrorResponse("invalid_body", common.FormatBindingError(err)))
		return
	}

	var ev model.EventRecord
	if !requireEvent(c, dm, push.EventID, &ev) {
		return
	}

	record := model.MediaRecord{
		ID:         uuid.NewString(),
		ClientID:   push.LocalID,
		DeviceID:   deviceID(c),
		EventID:    push.EventID,
		Kind:       push.Kind,
		CapturedAt: push.CapturedAt,
	}
	if push.CapturedLocation != nil {
		record.CapturedLat = &push.CapturedLocation.Latitude
		record.CapturedLon = &push.CapturedLocation.Longitude
	}
	respondPush(c, dm, push.LocalID, "media_records", &record)
}

// respondPush creates the record unless its client id was seen before.
// The unique index on client_id closes the race between two identical
// concurrent pushes: the loser re-reads the winner's row.
func respondPush(c *gin.Context, dm *core.DatabaseManager, clientID, table string, record any) {
	var serverID string
	status := "created"

	if err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
		existing, err := existingServerID(db, table, clientID)
		if err != nil {
			return err
		}
		if existing != "" {
			serverID = existing
			status = "duplicate"
			return nil
		}

		if err := db.Create(record).Error; err != nil {
			if existing, lookupErr := existingServerID(db, table, clientID); lookupErr == nil && existing != "" {
				serverID = existing
				status = "duplicate"
				return nil
			}
			return err
		}
		serverID = recordID(record)
		return nil
	}); err != nil {
		c.JSON(http.StatusInternalServerError,
			common.NewErrorResponse("internal", err.Error()))
		return
	}

	code := http.StatusOK
	if status == "created" {
		code = http.StatusCreated
	}
	c.JSON(code, PushResponse{ServerID: serverID, Status: status})
}

// existingServerID resolves a replayed push to the row it created the
// first time. The localId matches either the client_id we stored, or —
// when the device already adopted our id before the replay — the row's
// own id.
func existingServerID(db *gorm.DB, table, clientID string) (string, error) {
	var ids []string
	err := db.Table(table).Where("client_id = ? OR id = ?", clientID, clientID).
		Limit(1).Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[0], nil
}

func recordID(record any) string {
	switch r := record.(type) {
	case *model.EventRecord:
		return r.ID
	case *model.ReportRecord:
		return r.ID
	case *model.AttendanceRecord:
		return r.ID
	case *model.MediaRecord:
		return r.ID
	}
	return ""
}

// requireEvent resolves the parent event or answers 422; children may
// only reference events the authority already knows.
func requireEvent(c *gin.Context, dm *core.DatabaseManager, eventID string, ev *model.EventRecord) bool {
	err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
		return db.Where("id = ?", eventID).Take(ev).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusUnprocessableEntity,
			common.NewErrorResponse("unknown_event", "eventId does not reference a known event"))
		return false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError,
			common.NewErrorResponse("internal", err.Error()))
		return false
	}
	return true
}

func deviceID(c *gin.Context) string {
	if claims := middlewares.DeviceClaims(c); claims != nil {
		return claims.DeviceID
	}
	return ""
}
