// Package db persists what the backend owns: users, their Google OAuth
// tokens and the per-event completion flags.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/oauth2"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrTokenNotFound = errors.New("no stored token for user")
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

type User struct {
	ID        string `json:"id"`
	GoogleSub string `json:"-"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Picture   string `json:"picture,omitempty"`
}

// Open creates the SQLite database at path (":memory:" works too) and runs
// the migrations.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn}, nil
}

func migrate(conn *sql.DB) (err error) {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			google_sub TEXT NOT NULL UNIQUE,
			email TEXT,
			name TEXT,
			picture TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS google_tokens (
			user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			token_type TEXT,
			expiry INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS event_status (
			user_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (user_id, event_id)
		)`,
	}
	for i, m := range migrations {
		if _, err = tx.Exec(m); err != nil {
			return fmt.Errorf("migration #%d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// UpsertUser inserts the user or refreshes the profile of an existing one,
// keyed by the Google subject. The stored id is returned.
func (d *DB) UpsertUser(ctx context.Context, u User) (User, error) {
	if u.GoogleSub == "" {
		return User{}, errors.New("upsert user: missing google subject")
	}
	row := d.QueryRowContext(ctx, `
		INSERT INTO users (id, google_sub, email, name, picture)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (google_sub) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			picture = excluded.picture
		RETURNING id`,
		uuid.NewString(), u.GoogleSub, nullable(u.Email), nullable(u.Name), nullable(u.Picture),
	)
	if err := row.Scan(&u.ID); err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (d *DB) User(ctx context.Context, id string) (User, error) {
	var (
		u                    User
		email, name, picture sql.NullString
	)
	err := d.QueryRowContext(ctx,
		`SELECT id, google_sub, email, name, picture FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.GoogleSub, &email, &name, &picture)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("load user: %w", err)
	}
	u.Email, u.Name, u.Picture = email.String, name.String, picture.String
	return u, nil
}

// SaveToken stores tok for the user. An empty refresh token keeps the one
// already stored, since Google only sends it on the first consent.
func (d *DB) SaveToken(ctx context.Context, userID string, tok *oauth2.Token) error {
	var expiry sql.NullInt64
	if !tok.Expiry.IsZero() {
		expiry = sql.NullInt64{Int64: tok.Expiry.UnixMilli(), Valid: true}
	}
	_, err := d.ExecContext(ctx, `
		INSERT INTO google_tokens (user_id, access_token, refresh_token, token_type, expiry)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = COALESCE(excluded.refresh_token, google_tokens.refresh_token),
			token_type = excluded.token_type,
			expiry = excluded.expiry`,
		userID, tok.AccessToken, nullable(tok.RefreshToken), nullable(tok.TokenType), expiry,
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (d *DB) Token(ctx context.Context, userID string) (*oauth2.Token, error) {
	var (
		tok                oauth2.Token
		refresh, tokenType sql.NullString
		expiry             sql.NullInt64
	)
	err := d.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, token_type, expiry FROM google_tokens WHERE user_id = ?`, userID,
	).Scan(&tok.AccessToken, &refresh, &tokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	tok.RefreshToken = refresh.String
	tok.TokenType = tokenType.String
	if expiry.Valid {
		tok.Expiry = time.UnixMilli(expiry.Int64)
	}
	return &tok, nil
}

// CompletionMap returns the completed flag of every listed event that has
// one stored. Missing ids are absent from the map.
func (d *DB) CompletionMap(ctx context.Context, userID string, eventIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(eventIDs)+1)
	args = append(args, userID)
	for _, id := range eventIDs {
		args = append(args, id)
	}
	query := `SELECT event_id, completed FROM event_status WHERE user_id = ? AND event_id IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(eventIDs)), ",") + `)`

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query event status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        string
			completed bool
		)
		if err := rows.Scan(&id, &completed); err != nil {
			return nil, fmt.Errorf("scan event status: %w", err)
		}
		out[id] = completed
	}
	return out, rows.Err()
}

func (d *DB) SetCompleted(ctx context.Context, userID, eventID string, completed bool) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO event_status (user_id, event_id, completed)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, event_id) DO UPDATE SET completed = excluded.completed`,
		userID, eventID, completed,
	)
	if err != nil {
		return fmt.Errorf("save event status: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
