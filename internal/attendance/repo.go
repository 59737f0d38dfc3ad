package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Repository persists day ledgers in Postgres. Records are stored as one
// jsonb document per day alongside the summary counts.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// LoadDay returns the ledger for a date, nil when missing.
func (r *Repository) LoadDay(ctx context.Context, date string) (*Day, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT day, records, present, absent, leave
		FROM attendance_days WHERE day = $1
	`, date)
	return scanDay(row)
}

// SaveDay merges edits over the stored records and recomputes the summary in
// the same transaction. An empty row is inserted first so the locking read
// always finds one; without it, two first saves of a new date would lock
// nothing and the later upsert would replace the earlier records.
func (r *Repository) SaveDay(ctx context.Context, date string, edits map[string]Record) (Day, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Day{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO attendance_days (day, records, present, absent, leave, updated_at)
		VALUES ($1, '{}'::jsonb, 0, 0, 0, $2)
		ON CONFLICT (day) DO NOTHING
	`, date, time.Now().UTC()); err != nil {
		return Day{}, err
	}

	existing := map[string]Record{}
	var raw []byte
	if err := tx.QueryRowContext(ctx, `
		SELECT records FROM attendance_days WHERE day = $1 FOR UPDATE
	`, date).Scan(&raw); err != nil {
		return Day{}, err
	}
	if err := json.Unmarshal(raw, &existing); err != nil {
		return Day{}, err
	}

	merged := Merge(existing, edits)
	summary := Tally(merged)
	blob, err := json.Marshal(merged)
	if err != nil {
		return Day{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendance_days (day, records, present, absent, leave, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (day) DO UPDATE SET
			records = EXCLUDED.records,
			present = EXCLUDED.present,
			absent = EXCLUDED.absent,
			leave = EXCLUDED.leave,
			updated_at = EXCLUDED.updated_at
	`, date, blob, summary.Present, summary.Absent, summary.Leave, time.Now().UTC())
	if err != nil {
		return Day{}, err
	}
	if err := tx.Commit(); err != nil {
		return Day{}, err
	}
	return Day{Date: date, Records: merged, Summary: summary}, nil
}

// ListRange returns day ledgers with keys in [from, to], ascending. The key
// format sorts lexicographically, so plain string comparison works.
func (r *Repository) ListRange(ctx context.Context, from, to string) ([]Day, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, records, present, absent, leave
		FROM attendance_days
		WHERE day >= $1 AND day <= $2
		ORDER BY day
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Day
	for rows.Next() {
		day, err := scanDayRows(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, day)
	}
	return res, rows.Err()
}

func scanDay(row *sql.Row) (*Day, error) {
	var d Day
	var raw []byte
	if err := row.Scan(&d.Date, &raw, &d.Summary.Present, &d.Summary.Absent, &d.Summary.Leave); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &d.Records); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDayRows(rows *sql.Rows) (Day, error) {
	var d Day
	var raw []byte
	if err := rows.Scan(&d.Date, &raw, &d.Summary.Present, &d.Summary.Absent, &d.Summary.Leave); err != nil {
		return Day{}, err
	}
	if err := json.Unmarshal(raw, &d.Records); err != nil {
		return Day{}, err
	}
	return d, nil
}
