package attendance

import "time"

// Status is the per-day state of one attendee.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLeave   Status = "leave"
)

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLeave:
		return true
	default:
		return false
	}
}

// Record is one attendee's entry for one day.
type Record struct {
	AttendeeID string    `json:"attendee_id"`
	Status     Status    `json:"status"`
	Note       string    `json:"note,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary holds the per-status counts for a day. It is derived from the
// record set and must never be written independently of it.
type Summary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Leave   int `json:"leave"`
}

// Total returns the number of records behind the summary.
func (s Summary) Total() int { return s.Present + s.Absent + s.Leave }

// Day is the ledger document for one calendar date (key YYYY-MM-DD).
type Day struct {
	Date    string            `json:"date"`
	Records map[string]Record `json:"records"`
	Summary Summary           `json:"summary"`
}

// Merge lays edits over existing records. Existing records absent from edits
// are preserved; edits win on conflict. Neither input map is mutated.
func Merge(existing, edits map[string]Record) map[string]Record {
	merged := make(map[string]Record, len(existing)+len(edits))
	for id, rec := range existing {
		merged[id] = rec
	}
	for id, rec := range edits {
		merged[id] = rec
	}
	return merged
}

// Tally recounts the summary from a record set.
func Tally(records map[string]Record) Summary {
	var s Summary
	for _, rec := range records {
		switch rec.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLeave:
			s.Leave++
		}
	}
	return s
}
