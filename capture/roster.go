package capture

import (
	"fmt"
	"io"
	"strings"
	"time"

	"drillwatch.org/drillwatch/model"
	"drillwatch.org/drillwatch/utils"
)

// RosterRow is one line of a trainee roster CSV:
//
//	trainee_id[,status[,method[,captured_at]]]
//
// status defaults to present, method to qr (roster scans come from the QR
// check-in flow). captured_at carries the scanner's timestamp when the
// roster is a QR scan export; without it the import time is used.
type RosterRow struct {
	TraineeID  string
	Status     model.AttendanceStatus
	Method     model.AttendanceMethod
	CapturedAt *time.Time
}

// ImportAttendanceCSV bulk-captures attendance for an event from a roster
// CSV. The whole file is validated before any row is written, so a bad
// line never leaves a half-imported roster behind.
func (s *Session) ImportAttendanceCSV(eventID model.ID, r io.Reader) (int, error) {
	rows, err := utils.ParseCSV(r)
	if err != nil {
		return 0, errValidation("roster", fmt.Sprintf("unreadable CSV: %v", err))
	}

	parsed := make([]RosterRow, 0, len(rows))
	for i, row := range rows {
		if i == 0 && isRosterHeader(row) {
			continue
		}
		pr, err := parseRosterRow(i+1, row)
		if err != nil {
			return 0, err
		}
		if dup := utils.Find(parsed, func(p RosterRow) bool {
			return p.TraineeID == pr.TraineeID
		}); dup != nil {
			return 0, errValidation("roster",
				fmt.Sprintf("line %d: trainee %s appears twice", i+1, pr.TraineeID))
		}
		parsed = append(parsed, pr)
	}
	if len(parsed) == 0 {
		return 0, errValidation("roster", "contains no trainee rows")
	}

	for _, pr := range parsed {
		if _, err := s.RecordAttendance(AttendanceInput{
			EventID:    eventID,
			TraineeID:  pr.TraineeID,
			Status:     pr.Status,
			Method:     pr.Method,
			CapturedAt: pr.CapturedAt,
		}); err != nil {
			return 0, err
		}
	}
	return len(parsed), nil
}

func isRosterHeader(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "trainee_id")
}

func parseRosterRow(line int, row []string) (RosterRow, error) {
	pr := RosterRow{Status: model.Present, Method: model.MethodQR}

	if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
		return pr, errValidation("roster", fmt.Sprintf("line %d: trainee id is empty", line))
	}
	pr.TraineeID = strings.TrimSpace(row[0])

	if len(row) > 1 && strings.TrimSpace(row[1]) != "" {
		switch status := model.AttendanceStatus(strings.ToLower(strings.TrimSpace(row[1]))); status {
		case model.Present, model.Absent:
			pr.Status = status
		default:
			return pr, errValidation("roster", fmt.Sprintf("line %d: unknown status %q", line, row[1]))
		}
	}
	if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
		switch method := model.AttendanceMethod(strings.ToLower(strings.TrimSpace(row[2]))); method {
		case model.MethodManual, model.MethodQR:
			pr.Method = method
		default:
			return pr, errValidation("roster", fmt.Sprintf("line %d: unknown method %q", line, row[2]))
		}
	}
	if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
		t, err := utils.ParseISOTime(strings.TrimSpace(row[3]))
		if err != nil {
			return pr, errValidation("roster", fmt.Sprintf("line %d: bad timestamp %q", line, row[3]))
		}
		pr.CapturedAt = t
	}
	return pr, nil
}
