// Package store keeps an optional on-disk snapshot of the dashboard state
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"convertit/internal/followup"
	"convertit/internal/leads"
)

// Message is a persisted support chat message.
type Message struct {
	ID        string
	Role      string
	Text      string
	CreatedAt time.Time
}

// Snapshot is everything that survives a restart.
type Snapshot struct {
	Leads     []leads.Lead
	FollowUps []followup.FollowUp
	Messages  []Message
	Settings  *followup.Settings // nil when never saved
}

// DB is a SQLite-backed snapshot store.
type DB struct {
	pool *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func (d *DB) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS leads (
		pos INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		uri TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS follow_ups (
		pos INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		lead_id TEXT NOT NULL,
		lead_name TEXT NOT NULL,
		due TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		alert_fired INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS support_messages (
		pos INTEGER NOT NULL,
		id TEXT NOT NULL,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		notifications_enabled INTEGER NOT NULL,
		sound_enabled INTEGER NOT NULL,
		lead_minutes INTEGER NOT NULL
	);
	`
	_, err := d.pool.ExecContext(ctx, schema)
	return err
}

// Save replaces the stored snapshot in one transaction.
func (d *DB) Save(ctx context.Context, snap Snapshot) error {
	tx, err := d.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"leads", "follow_ups", "support_messages"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, l := range snap.Leads {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO leads (pos, id, name, address, uri, details) VALUES (?, ?, ?, ?, ?, ?)`,
			i, l.ID, l.Name, l.Address, l.URI, l.Details); err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
	}

	for i, f := range snap.FollowUps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO follow_ups (pos, id, lead_id, lead_name, due, kind, status, alert_fired, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, f.ID, f.LeadID, f.LeadName, formatTime(f.Due), string(f.Kind), string(f.Status),
			boolToInt(f.AlertFired), formatTime(f.CreatedAt)); err != nil {
			return fmt.Errorf("insert follow-up: %w", err)
		}
	}

	for i, m := range snap.Messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO support_messages (pos, id, role, text, created_at) VALUES (?, ?, ?, ?, ?)`,
			i, m.ID, m.Role, m.Text, formatTime(m.CreatedAt)); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if s := snap.Settings; s != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (id, notifications_enabled, sound_enabled, lead_minutes) VALUES (1, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				notifications_enabled = excluded.notifications_enabled,
				sound_enabled = excluded.sound_enabled,
				lead_minutes = excluded.lead_minutes`,
			boolToInt(s.NotificationsEnabled), boolToInt(s.SoundEnabled), int(s.LeadTime/time.Minute)); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	return tx.Commit()
}

// Load reads the stored snapshot. An empty database yields an empty snapshot.
func (d *DB) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	rows, err := d.pool.QueryContext(ctx, `SELECT id, name, address, uri, details FROM leads ORDER BY pos`)
	if err != nil {
		return snap, fmt.Errorf("query leads: %w", err)
	}
	for rows.Next() {
		var l leads.Lead
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.URI, &l.Details); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Leads = append(snap.Leads, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, err
	}

	rows, err = d.pool.QueryContext(ctx,
		`SELECT id, lead_id, lead_name, due, kind, status, alert_fired, created_at FROM follow_ups ORDER BY pos`)
	if err != nil {
		return snap, fmt.Errorf("query follow-ups: %w", err)
	}
	for rows.Next() {
		var (
			f            followup.FollowUp
			due, created string
			kind, status string
			alertFired   int
		)
		if err := rows.Scan(&f.ID, &f.LeadID, &f.LeadName, &due, &kind, &status, &alertFired, &created); err != nil {
			rows.Close()
			return snap, err
		}
		f.Due = parseTime(due)
		f.CreatedAt = parseTime(created)
		f.Kind = followup.Kind(kind)
		f.Status = followup.Status(status)
		f.AlertFired = alertFired != 0
		snap.FollowUps = append(snap.FollowUps, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, err
	}

	rows, err = d.pool.QueryContext(ctx, `SELECT id, role, text, created_at FROM support_messages ORDER BY pos`)
	if err != nil {
		return snap, fmt.Errorf("query messages: %w", err)
	}
	for rows.Next() {
		var (
			m       Message
			created string
		)
		if err := rows.Scan(&m.ID, &m.Role, &m.Text, &created); err != nil {
			rows.Close()
			return snap, err
		}
		m.CreatedAt = parseTime(created)
		snap.Messages = append(snap.Messages, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, err
	}

	var notifications, sound, minutes int
	err = d.pool.QueryRowContext(ctx,
		`SELECT notifications_enabled, sound_enabled, lead_minutes FROM settings WHERE id = 1`).
		Scan(&notifications, &sound, &minutes)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return snap, fmt.Errorf("query settings: %w", err)
	default:
		snap.Settings = &followup.Settings{
			NotificationsEnabled: notifications != 0,
			SoundEnabled:         sound != 0,
			LeadTime:             time.Duration(minutes) * time.Minute,
		}
	}

	return snap, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d == nil || d.pool == nil {
		return nil
	}
	return d.pool.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.Local()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
