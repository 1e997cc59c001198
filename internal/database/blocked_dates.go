package database

import (
	"context"
	"fmt"

	"heyu/internal/models"
)

// ListBlockedDates returns every blocked date ordered by date.
func (db *DB) ListBlockedDates(ctx context.Context) ([]models.BlockedDate, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT d.date, d.full_day, COALESCE(t.time, '')
		FROM blocked_dates d
		LEFT JOIN blocked_times t ON t.date = d.date
		ORDER BY d.date, t.time`)
	if err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}
	defer rows.Close()

	var (
		out   []models.BlockedDate
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			date, slot string
			fullDay    bool
		)
		if err := rows.Scan(&date, &fullDay, &slot); err != nil {
			return nil, err
		}
		i, ok := index[date]
		if !ok {
			kind := models.BlockPartial
			if fullDay {
				kind = models.BlockFullDay
			}
			out = append(out, models.BlockedDate{Date: date, Kind: kind})
			i = len(out) - 1
			index[date] = i
		}
		if slot != "" && !out[i].IsFullDay() {
			out[i].Times = append(out[i].Times, slot)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// A partial record without times would read as a full day on the wire; keep it consistent.
	for i := range out {
		if !out[i].IsFullDay() && len(out[i].Times) == 0 {
			out[i].Kind = models.BlockFullDay
		}
	}
	return out, nil
}

// GetBlockedDate returns models.ErrNotFound when date has no record.
func (db *DB) GetBlockedDate(ctx context.Context, date string) (*models.BlockedDate, error) {
	all, err := db.ListBlockedDates(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Date == date {
			return &all[i], nil
		}
	}
	return nil, models.ErrNotFound
}

// SaveBlockedDate replaces the record for b.Date.
func (db *DB) SaveBlockedDate(ctx context.Context, b models.BlockedDate) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	fullDay := b.IsFullDay() || len(b.Times) == 0
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO blocked_dates (date, full_day, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET full_day = excluded.full_day, updated_at = CURRENT_TIMESTAMP`,
		b.Date, fullDay); err != nil {
		return fmt.Errorf("save blocked date %s: %w", b.Date, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM blocked_times WHERE date = ?`, b.Date); err != nil {
		return fmt.Errorf("clear blocked times %s: %w", b.Date, err)
	}
	if !fullDay {
		for _, slot := range b.Times {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO blocked_times (date, time) VALUES (?, ?)`, b.Date, slot); err != nil {
				return fmt.Errorf("save blocked time %s %s: %w", b.Date, slot, err)
			}
		}
	}
	return tx.Commit()
}

// DeleteBlockedDate returns models.ErrNotFound when date has no record.
func (db *DB) DeleteBlockedDate(ctx context.Context, date string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM blocked_dates WHERE date = ?`, date)
	if err != nil {
		return fmt.Errorf("delete blocked date %s: %w", date, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM blocked_times WHERE date = ?`, date); err != nil {
		return fmt.Errorf("delete blocked times %s: %w", date, err)
	}
	return tx.Commit()
}
