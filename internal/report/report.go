// Package report derives display and export views from attendance ledgers.
// Everything here is a pure function over already-fetched data.
package report

import (
	"math"
	"sort"

	"classadmin/internal/attendance"
)

// Percentage returns the attendance rate as a whole number, rounded.
// An empty summary yields 0 rather than dividing by zero.
func Percentage(s attendance.Summary) int {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(s.Present) / float64(total) * 100))
}

// MonthSummary aggregates one calendar month of ledgers.
type MonthSummary struct {
	Month   string             `json:"month"` // YYYY-MM
	Days    int                `json:"days"`
	Summary attendance.Summary `json:"summary"`
}

// Monthly buckets days by calendar month of their date key, ascending.
func Monthly(days []attendance.Day) []MonthSummary {
	byMonth := map[string]*MonthSummary{}
	for _, d := range days {
		if len(d.Date) < 7 {
			continue
		}
		month := d.Date[:7]
		m, ok := byMonth[month]
		if !ok {
			m = &MonthSummary{Month: month}
			byMonth[month] = m
		}
		m.Days++
		m.Summary.Present += d.Summary.Present
		m.Summary.Absent += d.Summary.Absent
		m.Summary.Leave += d.Summary.Leave
	}
	res := make([]MonthSummary, 0, len(byMonth))
	for _, m := range byMonth {
		res = append(res, *m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Month < res[j].Month })
	return res
}

// StudentStats is one attendee's tally across a range of days.
type StudentStats struct {
	AttendeeID string             `json:"attendee_id"`
	Summary    attendance.Summary `json:"summary"`
	Percentage int                `json:"percentage"`
}

// PerStudent tallies each attendee's records across the given days,
// sorted by attendee id for stable output.
func PerStudent(days []attendance.Day) []StudentStats {
	byID := map[string]*attendance.Summary{}
	for _, d := range days {
		for id, rec := range d.Records {
			s, ok := byID[id]
			if !ok {
				s = &attendance.Summary{}
				byID[id] = s
			}
			switch rec.Status {
			case attendance.StatusPresent:
				s.Present++
			case attendance.StatusAbsent:
				s.Absent++
			case attendance.StatusLeave:
				s.Leave++
			}
		}
	}
	res := make([]StudentStats, 0, len(byID))
	for id, s := range byID {
		res = append(res, StudentStats{AttendeeID: id, Summary: *s, Percentage: Percentage(*s)})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].AttendeeID < res[j].AttendeeID })
	return res
}
