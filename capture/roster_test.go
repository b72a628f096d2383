package capture

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drillwatch.org/drillwatch/model"
)

func TestImportAttendanceCSV(t *testing.T) {
	s, st := newTestSession(t, insideFence)
	ev := createTestEvent(t, s)

	csvData := `trainee_id,status,method,captured_at
TR-1001
TR-1002,absent
TR-1003,present,manual,2026-02-10T09:15:00Z`

	n, err := s.ImportAttendanceCSV(ev.ID, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := st.ListUnsyncedAttendance()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "TR-1001", rows[0].TraineeID)
	assert.Equal(t, model.Present, rows[0].Status)
	assert.Equal(t, model.MethodQR, rows[0].Method)

	assert.Equal(t, model.Absent, rows[1].Status)
	assert.Equal(t, model.MethodManual, rows[2].Method)
	assert.Equal(t, time.Date(2026, 2, 10, 9, 15, 0, 0, time.UTC), rows[2].CapturedAt.UTC())
}

func TestImportAttendanceCSVRejectsDuplicateTrainee(t *testing.T) {
	s, st := newTestSession(t, insideFence)
	ev := createTestEvent(t, s)

	csvData := `TR-1001
TR-1002
TR-1001`

	_, err := s.ImportAttendanceCSV(ev.ID, strings.NewReader(csvData))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "TR-1001")

	rows, err := st.ListUnsyncedAttendance()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestImportAttendanceCSVRejectsBadRowBeforeWriting(t *testing.T) {
	s, st := newTestSession(t, insideFence)
	ev := createTestEvent(t, s)

	csvData := `TR-1001
TR-1002,loitering
TR-1003`

	_, err := s.ImportAttendanceCSV(ev.ID, strings.NewReader(csvData))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "line 2")

	rows, err := st.ListUnsyncedAttendance()
	require.NoError(t, err)
	assert.Empty(t, rows, "a bad line must not leave a partial import")
}

func TestImportAttendanceCSVEmpty(t *testing.T) {
	s, _ := newTestSession(t, insideFence)
	ev := createTestEvent(t, s)

	_, err := s.ImportAttendanceCSV(ev.ID, strings.NewReader("trainee_id\n"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}
