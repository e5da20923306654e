package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/eldtechnologies/buzon/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/buzon.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/buzon.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS mailbox_counter (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_message_id INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS mailbox_slots (
		participant TEXT PRIMARY KEY,
		message_id INTEGER NOT NULL,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "init sqlite schema")
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads the counter row and every occupied slot.
func (s *SQLiteStore) Load(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{Slots: make(map[models.Participant]*models.Message)}

	err := s.db.QueryRowContext(ctx, `
		SELECT next_message_id FROM mailbox_counter WHERE id = 1
	`).Scan(&snap.NextMessageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "load counter")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT participant, message_id, sender, recipient, body, created_at
		FROM mailbox_slots
	`)
	if err != nil {
		return nil, errors.Wrap(err, "load slots")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			participant string
			msg         models.Message
			createdAt   time.Time
		)
		if err := rows.Scan(&participant, &msg.ID, &msg.From, &msg.To, &msg.Text, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan slot")
		}
		msg.CreatedAt = createdAt.UTC()
		snap.Slots[models.Participant(participant)] = &msg
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate slots")
	}

	return snap, nil
}

// Save writes the counter and all slots in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *models.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mailbox_counter (id, next_message_id, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE
		SET next_message_id = excluded.next_message_id, updated_at = excluded.updated_at
	`, snap.NextMessageID)
	if err != nil {
		return errors.Wrap(err, "save counter")
	}

	for participant, msg := range snap.Slots {
		if msg == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM mailbox_slots WHERE participant = ?`, string(participant))
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO mailbox_slots (participant, message_id, sender, recipient, body, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (participant) DO UPDATE
				SET message_id = excluded.message_id,
					sender = excluded.sender,
					recipient = excluded.recipient,
					body = excluded.body,
					created_at = excluded.created_at
			`, string(participant), msg.ID, string(msg.From), string(msg.To), msg.Text, msg.CreatedAt.UTC())
		}
		if err != nil {
			return errors.Wrapf(err, "save slot %s", participant)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}
