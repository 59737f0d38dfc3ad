package attendance

import (
	"context"
	"errors"
	"testing"
)

func TestTally(t *testing.T) {
	tests := []struct {
		name    string
		records map[string]Record
		want    Summary
	}{
		{name: "empty", records: map[string]Record{}, want: Summary{}},
		{
			name: "mixed",
			records: map[string]Record{
				"s1": {Status: StatusPresent},
				"s2": {Status: StatusPresent},
				"s3": {Status: StatusAbsent},
				"s4": {Status: StatusLeave},
			},
			want: Summary{Present: 2, Absent: 1, Leave: 1},
		},
		{
			name: "all present",
			records: map[string]Record{
				"s1": {Status: StatusPresent},
				"s2": {Status: StatusPresent},
			},
			want: Summary{Present: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tally(tt.records)
			if got != tt.want {
				t.Errorf("Tally() = %+v, want %+v", got, tt.want)
			}
			if got.Total() != len(tt.records) {
				t.Errorf("Total() = %d, want %d", got.Total(), len(tt.records))
			}
		})
	}
}

func TestMerge(t *testing.T) {
	existing := map[string]Record{
		"s1": {AttendeeID: "s1", Status: StatusPresent},
		"s2": {AttendeeID: "s2", Status: StatusAbsent},
	}
	edits := map[string]Record{
		"s2": {AttendeeID: "s2", Status: StatusPresent},
		"s3": {AttendeeID: "s3", Status: StatusLeave},
	}

	merged := Merge(existing, edits)

	if len(merged) != 3 {
		t.Fatalf("merged size = %d, want 3", len(merged))
	}
	if merged["s1"].Status != StatusPresent {
		t.Errorf("s1 not preserved: %+v", merged["s1"])
	}
	if merged["s2"].Status != StatusPresent {
		t.Errorf("s2 edit did not win: %+v", merged["s2"])
	}
	if merged["s3"].Status != StatusLeave {
		t.Errorf("s3 not added: %+v", merged["s3"])
	}
	// inputs untouched
	if existing["s2"].Status != StatusAbsent {
		t.Errorf("existing map mutated")
	}
}

// fakeStore keeps day ledgers in memory with the same merge-then-recount
// write behavior as the Postgres repository.
type fakeStore struct {
	days map[string]Day
}

func newFakeStore() *fakeStore {
	return &fakeStore{days: map[string]Day{}}
}

func (f *fakeStore) LoadDay(_ context.Context, date string) (*Day, error) {
	d, ok := f.days[date]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeStore) SaveDay(_ context.Context, date string, edits map[string]Record) (Day, error) {
	var existing map[string]Record
	if d, ok := f.days[date]; ok {
		existing = d.Records
	}
	merged := Merge(existing, edits)
	day := Day{Date: date, Records: merged, Summary: Tally(merged)}
	f.days[date] = day
	return day, nil
}

func (f *fakeStore) ListRange(_ context.Context, from, to string) ([]Day, error) {
	var res []Day
	for date, d := range f.days {
		if date >= from && date <= to {
			res = append(res, d)
		}
	}
	return res, nil
}

func TestSaveDaySummaryInvariant(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	day, err := svc.SaveDay(ctx, "2026-03-02", map[string]Record{
		"s1": {Status: StatusPresent},
		"s2": {Status: StatusAbsent},
		"s3": {Status: StatusLeave},
	})
	if err != nil {
		t.Fatalf("SaveDay() error = %v", err)
	}

	if got, want := day.Summary, (Summary{Present: 1, Absent: 1, Leave: 1}); got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
	if day.Summary.Total() != len(day.Records) {
		t.Errorf("summary total %d != record count %d", day.Summary.Total(), len(day.Records))
	}
}

func TestSaveDayIdempotentResave(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	edits := map[string]Record{
		"s1": {Status: StatusPresent},
		"s2": {Status: StatusAbsent},
	}
	first, err := svc.SaveDay(ctx, "2026-03-02", edits)
	if err != nil {
		t.Fatalf("first SaveDay() error = %v", err)
	}
	second, err := svc.SaveDay(ctx, "2026-03-02", edits)
	if err != nil {
		t.Fatalf("second SaveDay() error = %v", err)
	}

	if first.Summary != second.Summary {
		t.Errorf("re-save changed summary: %+v vs %+v", first.Summary, second.Summary)
	}
	if len(first.Records) != len(second.Records) {
		t.Errorf("re-save changed record count: %d vs %d", len(first.Records), len(second.Records))
	}
}

func TestSaveDayMergePreservesOtherRecords(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	if _, err := svc.SaveDay(ctx, "2026-03-02", map[string]Record{
		"s1": {Status: StatusPresent},
		"s2": {Status: StatusPresent},
	}); err != nil {
		t.Fatalf("SaveDay() error = %v", err)
	}

	// a later partial edit must not drop s1
	day, err := svc.SaveDay(ctx, "2026-03-02", map[string]Record{
		"s2": {Status: StatusAbsent},
	})
	if err != nil {
		t.Fatalf("SaveDay() error = %v", err)
	}
	if len(day.Records) != 2 {
		t.Fatalf("record count = %d, want 2", len(day.Records))
	}
	if day.Records["s1"].Status != StatusPresent {
		t.Errorf("s1 record lost on partial save")
	}
	if got, want := day.Summary, (Summary{Present: 1, Absent: 1}); got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
}

func TestSaveDaySkipsRecordsWithoutStatus(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	day, err := svc.SaveDay(ctx, "2026-03-02", map[string]Record{
		"s1": {Status: StatusPresent},
		"s2": {}, // no status chosen, skipped rather than defaulted
	})
	if err != nil {
		t.Fatalf("SaveDay() error = %v", err)
	}
	if len(day.Records) != 1 {
		t.Fatalf("record count = %d, want 1", len(day.Records))
	}
	if _, ok := day.Records["s2"]; ok {
		t.Errorf("statusless record was written")
	}
}

func TestSaveDayValidation(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	if _, err := svc.SaveDay(ctx, "03/02/2026", map[string]Record{"s1": {Status: StatusPresent}}); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad date = %v, want ErrInvalid", err)
	}
	if _, err := svc.SaveDay(ctx, "2026-03-02", map[string]Record{"s1": {Status: "late"}}); err == nil {
		t.Errorf("unknown status accepted")
	}
	if _, err := svc.SaveDay(ctx, "2026-03-02", map[string]Record{"s1": {}}); err == nil {
		t.Errorf("save with no effective records accepted")
	}
}

func TestLoadDayEmpty(t *testing.T) {
	svc := NewService(newFakeStore())

	day, err := svc.LoadDay(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("LoadDay() error = %v", err)
	}
	if day.Date != "2026-03-02" || len(day.Records) != 0 {
		t.Errorf("empty day = %+v", day)
	}
}
