package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"heyu/internal/models"
)

const serviceColumns = `id, name_cn, name_en, category, duration, duration_en, duration_hours,
	price, description, description_cn, is_add_on`

// ListServices returns the catalog ordered by id.
func (db *DB) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []models.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetService returns models.ErrNotFound for unknown ids.
func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	row := db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id)
	s, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", id, err)
	}
	return &s, nil
}

// SaveService inserts or replaces a service. A zero ID gets max(id)+1.
func (db *DB) SaveService(ctx context.Context, s *models.Service) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if s.ID == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM services`).Scan(&s.ID); err != nil {
			return fmt.Errorf("next service id: %w", err)
		}
	}
	s.Normalize()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO services (`+serviceColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name_cn = excluded.name_cn,
			name_en = excluded.name_en,
			category = excluded.category,
			duration = excluded.duration,
			duration_en = excluded.duration_en,
			duration_hours = excluded.duration_hours,
			price = excluded.price,
			description = excluded.description,
			description_cn = excluded.description_cn,
			is_add_on = excluded.is_add_on,
			updated_at = CURRENT_TIMESTAMP`,
		s.ID, s.NameCn, s.NameEn, string(s.Category), s.Duration, s.DurationEn, s.DurationHours,
		s.Price, s.Description, s.DescriptionCn, s.IsAddOn)
	if err != nil {
		return fmt.Errorf("save service %d: %w", s.ID, err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(r rowScanner) (models.Service, error) {
	var (
		s        models.Service
		category string
	)
	err := r.Scan(&s.ID, &s.NameCn, &s.NameEn, &category, &s.Duration, &s.DurationEn, &s.DurationHours,
		&s.Price, &s.Description, &s.DescriptionCn, &s.IsAddOn)
	s.Category = models.Category(category)
	return s, err
}
