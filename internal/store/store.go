package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/eldtechnologies/buzon/internal/metrics"
	"github.com/eldtechnologies/buzon/internal/models"
)

// SnapshotStore defines the interface for durable storage of the mailbox snapshot.
// FileStore, SQLiteStore, PostgresStore, RedisStore and MemoryStore implement it.
type SnapshotStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Load returns (nil, nil) when nothing has been saved yet.
	Load(ctx context.Context) (*models.Snapshot, error)
	// Save replaces the stored snapshot as a single atomic write.
	Save(ctx context.Context, snap *models.Snapshot) error
}

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config selects and locates a backend.
type Config struct {
	Backend     string
	StateFile   string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string

	// Redis, when set, is reused by the redis backend instead of dialing again.
	Redis *RedisStore
}

// Open connects to the configured backend and wraps it with latency metrics.
func Open(ctx context.Context, cfg Config) (SnapshotStore, error) {
	var (
		s   SnapshotStore
		err error
	)

	switch cfg.Backend {
	case "", BackendFile:
		s, err = NewFileStore(cfg.StateFile)
	case BackendSQLite:
		s, err = NewSQLiteStore(ctx, cfg.SQLitePath)
	case BackendPostgres:
		if err = RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		s, err = NewPostgresStore(ctx, cfg.DatabaseURL)
	case BackendRedis:
		if cfg.Redis != nil {
			s = cfg.Redis
		} else {
			s, err = NewRedisStore(ctx, cfg.RedisURL)
		}
	case BackendMemory:
		s = NewMemoryStore()
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s store", cfg.Backend)
	}

	name := cfg.Backend
	if name == "" {
		name = BackendFile
	}
	return &instrumented{
		SnapshotStore: s,
		backend:       name,
		shared:        cfg.Backend == BackendRedis && cfg.Redis != nil,
	}, nil
}

// instrumented records load/save latency per backend.
type instrumented struct {
	SnapshotStore
	backend string
	shared  bool
}

func (s *instrumented) Load(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.StoreLatency.WithLabelValues(s.backend, "load").Observe(time.Since(start).Seconds())
	}()
	return s.SnapshotStore.Load(ctx)
}

func (s *instrumented) Save(ctx context.Context, snap *models.Snapshot) error {
	start := time.Now()
	defer func() {
		metrics.StoreLatency.WithLabelValues(s.backend, "save").Observe(time.Since(start).Seconds())
	}()
	return s.SnapshotStore.Save(ctx, snap)
}

// Close is not forwarded for a shared Redis client; its owner closes it.
func (s *instrumented) Close() {
	if s.shared {
		return
	}
	s.SnapshotStore.Close()
}
