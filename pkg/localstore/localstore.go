package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the durable per-profile mirror: cache snapshots for session
// continuity plus pending-payment markers that must survive the browser
// round-trip to the hosted checkout page. One SQLite file per data dir.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`

func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := "file:" + filepath.Join(dataDir, "eve.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM snapshots WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// PutJSON marshals value and stores it under key.
func (s *Store) PutJSON(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.Put(ctx, key, raw)
}

// GetJSON loads key into out. Returns false without touching out when the
// key is absent.
func (s *Store) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// --- Pending payment markers ---
//
// Key names are kept compatible with the web client's localStorage entries
// so a profile migrated from the browser keeps its in-flight sessions.

func checkoutURLKey(eventID string) string {
	return "activeStripeSession_" + eventID
}

func sessionIDKey(eventID string) string {
	return "paymentSessionId_" + eventID
}

// SavePendingSession records the marker for an initiated payment. At most
// one marker may be live per event; callers check PendingSession first.
func (s *Store) SavePendingSession(ctx context.Context, eventID, checkoutURL, sessionID string) error {
	if err := s.Put(ctx, checkoutURLKey(eventID), []byte(checkoutURL)); err != nil {
		return err
	}
	return s.Put(ctx, sessionIDKey(eventID), []byte(sessionID))
}

// PendingSession reports the live marker for eventID, if any. A marker
// missing either half is treated as absent.
func (s *Store) PendingSession(ctx context.Context, eventID string) (checkoutURL, sessionID string, ok bool, err error) {
	urlRaw, urlOK, err := s.Get(ctx, checkoutURLKey(eventID))
	if err != nil {
		return "", "", false, err
	}
	idRaw, idOK, err := s.Get(ctx, sessionIDKey(eventID))
	if err != nil {
		return "", "", false, err
	}
	if !urlOK || !idOK {
		return "", "", false, nil
	}
	return string(urlRaw), string(idRaw), true, nil
}

// ClearPendingSession removes both marker halves. Idempotent.
func (s *Store) ClearPendingSession(ctx context.Context, eventID string) error {
	if err := s.Delete(ctx, checkoutURLKey(eventID)); err != nil {
		return err
	}
	return s.Delete(ctx, sessionIDKey(eventID))
}
