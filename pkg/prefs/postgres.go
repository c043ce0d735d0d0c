package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Schema creates the preferences table.
const Schema = `
CREATE TABLE IF NOT EXISTS user_preferences (
	user_id            TEXT PRIMARY KEY,
	user_email         TEXT NOT NULL DEFAULT '',
	user_name          TEXT NOT NULL DEFAULT '',
	neurodivergencies  TEXT[] NOT NULL DEFAULT '{}',
	crowd_sensitivity  TEXT NOT NULL DEFAULT 'medium',
	sound_sensitivity  TEXT NOT NULL DEFAULT 'medium',
	light_sensitivity  TEXT NOT NULL DEFAULT 'medium',
	touch_avoidance    TEXT NOT NULL DEFAULT 'medium',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps preferences in a single upsert table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with dsn, pings, and creates the table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	s := &PostgresStore{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create user_preferences: %w", err)
	}
	return nil
}

const selectColumns = `user_id, user_email, user_name, neurodivergencies,
	crowd_sensitivity, sound_sensitivity, light_sensitivity, touch_avoidance,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPreferences(row scanner) (*Preferences, error) {
	var p Preferences
	err := row.Scan(
		&p.UserID,
		&p.UserEmail,
		&p.UserName,
		pq.Array(&p.Neurodivergencies),
		&p.CrowdSensitivity,
		&p.SoundSensitivity,
		&p.LightSensitivity,
		&p.TouchAvoidance,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Neurodivergencies == nil {
		p.Neurodivergencies = []string{}
	}
	return &p, nil
}

// Get returns a user's preferences.
func (s *PostgresStore) Get(ctx context.Context, userID string) (*Preferences, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM user_preferences WHERE user_id = $1`, userID)

	p, err := scanPreferences(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return p, nil
}

// Upsert saves p, keeping created_at on conflict.
func (s *PostgresStore) Upsert(ctx context.Context, p *Preferences) (*Preferences, error) {
	rec := *p
	if err := rec.Normalize(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO user_preferences (user_id, user_email, user_name, neurodivergencies,
			crowd_sensitivity, sound_sensitivity, light_sensitivity, touch_avoidance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE
		SET user_email = EXCLUDED.user_email,
		    user_name = EXCLUDED.user_name,
		    neurodivergencies = EXCLUDED.neurodivergencies,
		    crowd_sensitivity = EXCLUDED.crowd_sensitivity,
		    sound_sensitivity = EXCLUDED.sound_sensitivity,
		    light_sensitivity = EXCLUDED.light_sensitivity,
		    touch_avoidance = EXCLUDED.touch_avoidance,
		    updated_at = now()
		RETURNING ` + selectColumns

	row := s.db.QueryRowContext(ctx, query,
		rec.UserID,
		rec.UserEmail,
		rec.UserName,
		pq.Array(rec.Neurodivergencies),
		rec.CrowdSensitivity,
		rec.SoundSensitivity,
		rec.LightSensitivity,
		rec.TouchAvoidance,
	)
	saved, err := scanPreferences(row)
	if err != nil {
		return nil, fmt.Errorf("upsert preferences: %w", err)
	}
	return saved, nil
}

// List returns every user, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]*Preferences, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM user_preferences ORDER BY updated_at DESC, user_id`)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var out []*Preferences
	for rows.Next() {
		p, err := scanPreferences(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preferences: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Verify PostgresStore implements Store at compile time.
var _ Store = (*PostgresStore)(nil)
