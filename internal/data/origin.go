package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/consolerelay/console-relay/internal/biz/domain"
	"github.com/consolerelay/console-relay/internal/biz/repo"
)

// originRepo implements the origin registry on SQLite
type originRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewOriginRepo creates an origin repository on an opened database
func NewOriginRepo(db *sql.DB) repo.OriginRepo {
	return &originRepo{db: db, now: time.Now}
}

// Upsert creates or refreshes one row per distinct app name
func (r *originRepo) Upsert(ctx context.Context, sightings []domain.OriginSighting) error {
	if len(sightings) == 0 {
		return nil
	}

	// Dedupe again so callers can pass raw sightings; last color wins
	latest := make(map[string]string, len(sightings))
	var order []string
	for _, s := range sightings {
		if _, ok := latest[s.AppName]; !ok {
			order = append(order, s.AppName)
		}
		latest[s.AppName] = s.Color
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PersistenceError("upsert origins", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	now := r.now().Unix()
	for _, name := range order {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO origins (app_name, color, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(app_name) DO UPDATE SET color = excluded.color, updated_at = excluded.updated_at
		`, name, latest[name], now, now)
		if err != nil {
			return domain.PersistenceError("upsert origins", fmt.Errorf("failed to upsert origin %s: %w", name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.PersistenceError("upsert origins", fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// Get gets an origin by app name
func (r *originRepo) Get(ctx context.Context, appName string) (*domain.Origin, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, app_name, color, login_url, url_checked_at, created_at, updated_at
		FROM origins
		WHERE app_name = ?
	`, appName)

	origin, err := scanOrigin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.PersistenceError("get origin", fmt.Errorf("failed to query origin: %w", err))
	}
	return origin, nil
}

// List lists all origins by app name
func (r *originRepo) List(ctx context.Context) ([]*domain.Origin, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, app_name, color, login_url, url_checked_at, created_at, updated_at
		FROM origins
		ORDER BY app_name ASC
	`)
	if err != nil {
		return nil, domain.PersistenceError("list origins", fmt.Errorf("failed to list origins: %w", err))
	}
	defer rows.Close()

	var origins []*domain.Origin
	for rows.Next() {
		origin, err := scanOrigin(rows)
		if err != nil {
			return nil, domain.PersistenceError("list origins", fmt.Errorf("failed to scan origin: %w", err))
		}
		origins = append(origins, origin)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("list origins", fmt.Errorf("failed to iterate origins: %w", err))
	}

	return origins, nil
}

// RecordCheck stores the result of one login URL crawl
func (r *originRepo) RecordCheck(ctx context.Context, appName, loginURL string, checkedAt time.Time) error {
	var url interface{}
	if loginURL != "" {
		url = loginURL
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE origins SET login_url = ?, url_checked_at = ?, updated_at = ? WHERE app_name = ?
	`, url, checkedAt.Unix(), r.now().Unix(), appName)
	if err != nil {
		return domain.PersistenceError("record check", fmt.Errorf("failed to update origin: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return domain.PersistenceError("record check", fmt.Errorf("failed to read affected rows: %w", err))
	}
	if affected == 0 {
		return domain.PersistenceError("record check", fmt.Errorf("origin %q not found", appName))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrigin(row rowScanner) (*domain.Origin, error) {
	var origin domain.Origin
	var loginURL sql.NullString
	var checkedAt sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(&origin.ID, &origin.AppName, &origin.Color, &loginURL, &checkedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	origin.LoginURL = loginURL.String
	if checkedAt.Valid {
		t := time.Unix(checkedAt.Int64, 0)
		origin.URLCheckedAt = &t
	}
	origin.CreatedAt = time.Unix(createdAt, 0)
	origin.UpdatedAt = time.Unix(updatedAt, 0)
	return &origin, nil
}
