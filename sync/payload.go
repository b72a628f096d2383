package sync

import (
	"drillwatch.org/drillwatch/model"
	"drillwatch.org/drillwatch/utils"

	v1 "drillwatch.org/drillwatch/api/v1"
)

const dateLayout = "2006-01-02"

func eventPayload(ev model.Event) v1.EventPayload {
	p := v1.EventPayload{
		LocalID:       ev.ID.String(),
		Name:          ev.Name,
		Type:          ev.Type,
		ScheduledDate: ev.ScheduledDate.Format(dateLayout),
		AllowedLocation: v1.FenceDTO{
			Latitude:     ev.AllowedLat,
			Longitude:    ev.AllowedLon,
			RadiusMeters: ev.AllowedRadiusM,
		},
		ExpectedParticipants: ev.ExpectedParticipants,
		Status:               string(ev.Status),
		CreatedAt:            ev.CreatedAt,
	}
	if ev.EndDate != nil {
		p.EndDate = utils.Ptr(ev.EndDate.Format(dateLayout))
	}
	return p
}

func reportPayload(rep model.DailyReport) v1.ReportPayload {
	return v1.ReportPayload{
		LocalID:         rep.ID.String(),
		EventID:         rep.EventID.String(),
		DayNumber:       rep.DayNumber,
		Date:            rep.Date.Format(dateLayout),
		AttendanceCount: rep.AttendanceCount,
		Notes:           rep.Notes,
		PhotoRefs: utils.Map(rep.PhotoRefs, func(id model.ID) string {
			return id.String()
		}),
		SubmittedAt: rep.SubmittedAt,
		SubmissionLocation: v1.SampleDTO{
			Latitude:       rep.SubmissionLat,
			Longitude:      rep.SubmissionLon,
			AccuracyMeters: rep.AccuracyM,
		},
		GeofenceValid: rep.GeofenceValid,
	}
}

func attendancePayload(att model.Attendance) v1.AttendancePayload {
	return v1.AttendancePayload{
		LocalID:    att.ID.String(),
		EventID:    att.EventID.String(),
		TraineeID:  att.TraineeID,
		Status:     string(att.Status),
		CapturedAt: att.CapturedAt,
		Method:     string(att.Method),
	}
}

func mediaPayload(med model.Media) v1.MediaPayload {
	p := v1.MediaPayload{
		LocalID:    med.ID.String(),
		EventID:    med.EventID.String(),
		Kind:       string(med.Kind),
		CapturedAt: med.CapturedAt,
	}
	if med.CapturedLat != nil && med.CapturedLon != nil {
		p.CapturedLocation = &v1.SampleDTO{
			Latitude:  *med.CapturedLat,
			Longitude: *med.CapturedLon,
		}
	}
	return p
}
