package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"classadmin/internal/attendance"
)

// WriteDayCSV writes one day's records as CSV. names maps attendee ids to
// display names; unknown ids fall back to the id itself.
func WriteDayCSV(w io.Writer, day attendance.Day, names map[string]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "attendee_id", "name", "status", "note"}); err != nil {
		return err
	}
	for _, id := range sortedKeys(day.Records) {
		rec := day.Records[id]
		name := names[id]
		if name == "" {
			name = id
		}
		if err := cw.Write([]string{day.Date, id, name, string(rec.Status), rec.Note}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRangeCSV writes per-student tallies across a date range as CSV.
func WriteRangeCSV(w io.Writer, days []attendance.Day, names map[string]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"attendee_id", "name", "present", "absent", "leave", "percentage"}); err != nil {
		return err
	}
	for _, st := range PerStudent(days) {
		name := names[st.AttendeeID]
		if name == "" {
			name = st.AttendeeID
		}
		row := []string{
			st.AttendeeID,
			name,
			fmt.Sprintf("%d", st.Summary.Present),
			fmt.Sprintf("%d", st.Summary.Absent),
			fmt.Sprintf("%d", st.Summary.Leave),
			fmt.Sprintf("%d", st.Percentage),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// MonthlyWorkbook builds an xlsx workbook with one summary sheet of monthly
// totals and one sheet of per-student tallies.
func MonthlyWorkbook(days []attendance.Day, names map[string]string) (*excelize.File, error) {
	f := excelize.NewFile()
	const monthSheet = "Monthly"
	idx, err := f.NewSheet(monthSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)

	headers := []any{"Month", "Days", "Present", "Absent", "Leave", "Percentage"}
	if err := f.SetSheetRow(monthSheet, "A1", &headers); err != nil {
		return nil, err
	}
	for i, m := range Monthly(days) {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{m.Month, m.Days, m.Summary.Present, m.Summary.Absent, m.Summary.Leave, Percentage(m.Summary)}
		if err := f.SetSheetRow(monthSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	const studentSheet = "Students"
	if _, err := f.NewSheet(studentSheet); err != nil {
		return nil, err
	}
	sHeaders := []any{"Attendee", "Present", "Absent", "Leave", "Percentage"}
	if err := f.SetSheetRow(studentSheet, "A1", &sHeaders); err != nil {
		return nil, err
	}
	for i, st := range PerStudent(days) {
		name := names[st.AttendeeID]
		if name == "" {
			name = st.AttendeeID
		}
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{name, st.Summary.Present, st.Summary.Absent, st.Summary.Leave, st.Percentage}
		if err := f.SetSheetRow(studentSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func sortedKeys(m map[string]attendance.Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
