// Package mailbox holds one pending message per participant and the global message
// id counter, and persists both as a single snapshot on every send.
package mailbox

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/buzon/internal/apperrors"
	"github.com/eldtechnologies/buzon/internal/metrics"
	"github.com/eldtechnologies/buzon/internal/models"
)

// Persister loads and saves the durable mailbox snapshot.
// Load returns (nil, nil) when nothing has been stored yet.
type Persister interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error
}

// Mailbox is safe for concurrent use. Sends are serialized; slot reads are lock-free.
type Mailbox struct {
	pair      models.Pair
	persister Persister
	policy    PersistencePolicy
	logger    zerolog.Logger
	now       func() time.Time

	mu    sync.Mutex // held for the whole allocate/persist/publish cycle of a send
	next  atomic.Int64
	slots map[models.Participant]*atomic.Pointer[models.Message]
}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithPolicy sets how failed snapshot writes are handled. Defaults to BestEffort.
func WithPolicy(p PersistencePolicy) Option {
	return func(m *Mailbox) { m.policy = p }
}

// WithLogger sets the logger used for persistence problems.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Mailbox) { m.logger = logger }
}

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Mailbox) { m.now = now }
}

// New restores a mailbox from persister. A snapshot that cannot be loaded is replaced
// by an empty one under BestEffort and reported as an error under Strict.
func New(ctx context.Context, pair models.Pair, persister Persister, opts ...Option) (*Mailbox, error) {
	m := &Mailbox{
		pair:      pair,
		persister: persister,
		policy:    BestEffort,
		logger:    zerolog.Nop(),
		now:       time.Now,
		slots: map[models.Participant]*atomic.Pointer[models.Message]{
			pair.A: new(atomic.Pointer[models.Message]),
			pair.B: new(atomic.Pointer[models.Message]),
		},
	}
	for _, opt := range opts {
		opt(m)
	}

	snap, err := persister.Load(ctx)
	if err != nil {
		if m.policy == Strict {
			return nil, errors.Wrap(apperrors.ErrPersistence, "load mailbox state: "+err.Error())
		}
		m.logger.Error().Err(err).Msg("failed to load mailbox state, starting empty")
		snap = nil
	}
	if snap == nil {
		snap = models.NewSnapshot(pair)
	}
	m.restore(snap)

	m.logger.Info().
		Int64("next_message_id", m.next.Load()).
		Bool("slot_"+string(pair.A), m.slots[pair.A].Load() != nil).
		Bool("slot_"+string(pair.B), m.slots[pair.B].Load() != nil).
		Msg("mailbox state restored")

	return m, nil
}

// restore copies snap into the mailbox, dropping slots that do not belong to the pair
// and raising the counter above every stored id.
func (m *Mailbox) restore(snap *models.Snapshot) {
	next := snap.NextMessageID
	if next < 1 {
		next = 1
	}
	for _, p := range m.pair.Members() {
		msg := snap.Slots[p]
		if msg == nil || msg.ID < 1 {
			continue
		}
		cp := *msg
		cp.To = p
		m.slots[p].Store(&cp)
		if cp.ID >= next {
			m.logger.Warn().
				Int64("next_message_id", next).
				Int64("slot_message_id", cp.ID).
				Msg("stored counter behind slot message, raising it")
			next = cp.ID + 1
		}
	}
	m.next.Store(next)
}

// Send stores a new message from rawFrom in the other participant's slot, replacing
// whatever was there, and persists the new state before returning it.
func (m *Mailbox) Send(ctx context.Context, rawFrom, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, apperrors.ErrEmptyMessage
	}
	from, err := m.pair.Parse(rawFrom)
	if err != nil {
		return models.Message{}, err
	}
	to := m.pair.Other(from)

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.next.Load()
	slot := m.slots[to]
	if prev := slot.Load(); prev != nil && prev.ID >= id {
		panic("mailbox: counter is not ahead of the stored message id")
	}

	msg := &models.Message{
		ID:        id,
		Text:      text,
		From:      from,
		To:        to,
		CreatedAt: m.now().UTC(),
	}
	// The id is consumed even if the write below fails, so it is never handed out twice.
	m.next.Store(id + 1)

	if err := m.persister.Save(ctx, m.snapshotWith(msg)); err != nil {
		metrics.PersistenceFailures.Inc()
		if m.policy == Strict {
			m.logger.Error().Err(err).Int64("message_id", id).Msg("mailbox state not persisted, send rejected")
			return models.Message{}, errors.Wrap(apperrors.ErrPersistence, err.Error())
		}
		m.logger.Warn().Err(err).Int64("message_id", id).Msg("mailbox state not persisted, keeping it in memory")
	}

	slot.Store(msg)
	metrics.MessagesSent.WithLabelValues(string(to)).Inc()

	m.logger.Debug().
		Int64("message_id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("message stored")

	return *msg, nil
}

// snapshotWith returns the current state with msg placed in its recipient's slot.
// Callers must hold m.mu.
func (m *Mailbox) snapshotWith(msg *models.Message) *models.Snapshot {
	snap := &models.Snapshot{
		NextMessageID: m.next.Load(),
		Slots:         make(map[models.Participant]*models.Message, 2),
	}
	for p, slot := range m.slots {
		snap.Slots[p] = slot.Load()
	}
	if msg != nil {
		snap.Slots[msg.To] = msg
	}
	return snap
}

// GetSlot returns the message currently waiting for participant, if any.
func (m *Mailbox) GetSlot(participant models.Participant) (*models.Message, bool) {
	slot, ok := m.slots[participant]
	if !ok {
		return nil, false
	}
	msg := slot.Load()
	if msg == nil {
		return nil, false
	}
	cp := *msg
	return &cp, true
}

// Latest returns the most recently created message across both slots.
func (m *Mailbox) Latest() (*models.Message, bool) {
	var latest *models.Message
	for _, p := range m.pair.Members() {
		if msg, ok := m.GetSlot(p); ok && (latest == nil || msg.ID > latest.ID) {
			latest = msg
		}
	}
	return latest, latest != nil
}

// NextMessageID returns the id the next send will receive.
func (m *Mailbox) NextMessageID() int64 {
	return m.next.Load()
}

// Pair returns the participants sharing this mailbox.
func (m *Mailbox) Pair() models.Pair {
	return m.pair
}
