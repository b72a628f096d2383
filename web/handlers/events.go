package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"drillwatch.org/drillwatch/core"
	"drillwatch.org/drillwatch/web/common"
	"drillwatch.org/drillwatch/web/model"
)

// ListEventsHandler serves the monitoring dashboards. Optional filters:
// status (active|completed) and deviceId.
func ListEventsHandler(dm *core.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var events []model.EventRecord
		var total int64

		if err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			q := db.Model(&model.EventRecord{})
			if status := c.Query("status"); status != "" {
				q = q.Where("status = ?", status)
			}
			if deviceID := c.Query("deviceId"); deviceID != "" {
				q = q.Where("device_id = ?", deviceID)
			}
			if err := q.Count(&total).Error; err != nil {
				return err
			}
			return q.Order("received_at DESC").Find(&events).Error
		}); err != nil {
			c.JSON(http.StatusInternalServerError,
				common.NewErrorResponse("internal", err.Error()))
			return
		}

		c.JSON(http.StatusOK, common.NewSearchResponse(events, total))
	}
}

// ListEventReportsHandler returns one event's daily reports in day order.
func ListEventReportsHandler(dm *core.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reports []model.ReportRecord
		if err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			return db.Where("event_id = ?", c.Param("id")).
				Order("day_number").Find(&reports).Error
		}); err != nil {
			c.JSON(http.StatusInternalServerError,
				common.NewErrorResponse("internal", err.Error()))
			return
		}
		c.JSON(http.StatusOK, common.NewSearchResponse(reports, int64(len(reports))))
	}
}

// ListEventAttendanceHandler returns one event's attendance rows in
// capture order.
func ListEventAttendanceHandler(dm *core.DatabaseManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rows []model.AttendanceRecord
		if err := dm.Exec(c.Request.Context(), func(db *gorm.DB) error {
			return db.Where("event_id = ?", c.Param("id")).
				Order("captured_at").Find(&rows).Error
		}); err != nil {
			c.JSON(http.StatusInternalServerError,
				common.NewErrorResponse("internal", err.Error()))
			return
		}
		c.JSON(http.StatusOK, common.NewSearchResponse(rows, int64(len(rows))))
	}
}
