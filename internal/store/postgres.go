package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/eldtechnologies/buzon/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS mailbox_counter (
	id SMALLINT PRIMARY KEY CHECK (id = 1),
	next_message_id BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mailbox_slots (
	participant TEXT PRIMARY KEY,
	message_id BIGINT NOT NULL,
	sender TEXT NOT NULL,
	recipient TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// RunMigrations creates the mailbox tables if they don't exist.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect for migrations")
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, postgresSchema)
	return errors.Wrap(err, "apply schema")
}

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Load reads the counter row and every occupied slot.
func (s *PostgresStore) Load(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{Slots: make(map[models.Participant]*models.Message)}

	err := s.pool.QueryRow(ctx, `
		SELECT next_message_id FROM mailbox_counter WHERE id = 1
	`).Scan(&snap.NextMessageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "load counter")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT participant, message_id, sender, recipient, body, created_at
		FROM mailbox_slots
	`)
	if err != nil {
		return nil, errors.Wrap(err, "load slots")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			participant, sender, recipient string
			msg                            models.Message
			createdAt                      time.Time
		)
		if err := rows.Scan(&participant, &msg.ID, &sender, &recipient, &msg.Text, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan slot")
		}
		msg.From = models.Participant(sender)
		msg.To = models.Participant(recipient)
		msg.CreatedAt = createdAt.UTC()
		snap.Slots[models.Participant(participant)] = &msg
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate slots")
	}

	return snap, nil
}

// Save writes the counter and all slots in one transaction.
func (s *PostgresStore) Save(ctx context.Context, snap *models.Snapshot) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO mailbox_counter (id, next_message_id, updated_at)
			VALUES (1, $1, now())
			ON CONFLICT (id) DO UPDATE
			SET next_message_id = EXCLUDED.next_message_id, updated_at = EXCLUDED.updated_at
		`, snap.NextMessageID)
		if err != nil {
			return errors.Wrap(err, "save counter")
		}

		for participant, msg := range snap.Slots {
			if msg == nil {
				_, err = tx.Exec(ctx, `DELETE FROM mailbox_slots WHERE participant = $1`, string(participant))
			} else {
				_, err = tx.Exec(ctx, `
					INSERT INTO mailbox_slots (participant, message_id, sender, recipient, body, created_at)
					VALUES ($1, $2, $3, $4, $5, $6)
					ON CONFLICT (participant) DO UPDATE
					SET message_id = EXCLUDED.message_id,
						sender = EXCLUDED.sender,
						recipient = EXCLUDED.recipient,
						body = EXCLUDED.body,
						created_at = EXCLUDED.created_at
				`, string(participant), msg.ID, string(msg.From), string(msg.To), msg.Text, msg.CreatedAt.UTC())
			}
			if err != nil {
				return errors.Wrapf(err, "save slot %s", participant)
			}
		}
		return nil
	})
}
