package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"drillwatch.org/drillwatch/core"
	"drillwatch.org/drillwatch/utils"
	"drillwatch.org/drillwatch/web/common"
	"drillwatch.org/drillwatch/web/model"
)

// ExportEventHandler produces the XLSX workbook auditors receive for one
// event: a Daily Reports sheet and an Attendance sheet.
func ExportEventHandler(dm *core.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var event model.EventRecord
		var reports []model.ReportRecord
		var attendance []model.AttendanceRecord

		err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			if err := db.Where("id = ?", id).Take(&event).Error; err != nil {
				return err
			}
			if err := db.Where("event_id = ?", id).Order("day_number").Find(&reports).Error; err != nil {
				return err
			}
			return db.Where("event_id = ?", id).Order("captured_at").Find(&attendance).Error
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound,
				common.NewErrorResponse("unknown_event", "no event with that id"))
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError,
				common.NewErrorResponse("internal", err.Error()))
			return
		}

		f, err := buildEventWorkbook(event, reports, attendance)
		if err != nil {
			c.JSON(http.StatusInternalServerError,
				common.NewErrorResponse("internal", err.Error()))
			return
		}
		defer f.Close()

		c.Header("Content-Disposition",
			fmt.Sprintf(`attachment; filename="event-%s.xlsx"`, event.ID))
		c.Header("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := f.Write(c.Writer); err != nil {
			_ = c.Error(err)
		}
	}
}

func buildEventWorkbook(event model.EventRecord, reports []model.ReportRecord, attendance []model.AttendanceRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	byStatus := utils.GroupBy(attendance, func(a model.AttendanceRecord) string {
		return a.Status
	})

	const eventSheet = "Event"
	f.SetSheetName("Sheet1", eventSheet)
	summary := [][]any{
		{"Name", event.Name},
		{"Type", event.Type},
		{"Status", event.Status},
		{"Scheduled", event.ScheduledDate},
		{"Ends", utils.Format(event.EndDate)},
		{"Expected participants", event.ExpectedParticipants},
		{"Recorded present", len(byStatus["present"])},
		{"Recorded absent", len(byStatus["absent"])},
		{"Daily reports", len(reports)},
		{"Fence radius (m)", event.AllowedRadiusM},
		{"Submitted by device", event.DeviceID},
	}
	for i := range summary {
		if err := f.SetSheetRow(eventSheet, fmt.Sprintf("A%d", i+1), &summary[i]); err != nil {
			return nil, err
		}
	}

	const reportSheet = "Daily Reports"
	if _, err := f.NewSheet(reportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(reportSheet, "A1", &[]any{
		"Day", "Date", "Attendance", "Notes", "Geofence OK", "Distance (m)", "Submitted At",
	}); err != nil {
		return nil, err
	}
	for i, rep := range reports {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{
			rep.DayNumber,
			rep.Date,
			rep.AttendanceCount,
			rep.Notes,
			utils.FormatBoolean(rep.GeofenceValid, "Yes", "No"),
			rep.GeofenceDistanceM,
			rep.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	const attendanceSheet = "Attendance"
	if _, err := f.NewSheet(attendanceSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(attendanceSheet, "A1", &[]any{
		"Trainee", "Status", "Method", "Captured At", "Device",
	}); err != nil {
		return nil, err
	}
	for i, att := range attendance {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{
			att.TraineeID,
			att.Status,
			att.Method,
			att.CapturedAt.Format("2006-01-02 15:04:05"),
			att.DeviceID,
		}
		if err := f.SetSheetRow(attendanceSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f, nil
}
