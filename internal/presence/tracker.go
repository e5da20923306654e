// Package presence tracks when each participant last polled and which messages they
// have acknowledged. Nothing here is persisted; a restart forgets presence.
package presence

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/buzon/internal/apperrors"
	"github.com/eldtechnologies/buzon/internal/metrics"
	"github.com/eldtechnologies/buzon/internal/models"
)

// DefaultLivenessWindow is how long after its last poll a participant counts as online.
const DefaultLivenessWindow = 30 * time.Second

// SlotReader is the part of the mailbox the tracker reads from.
type SlotReader interface {
	GetSlot(participant models.Participant) (*models.Message, bool)
	NextMessageID() int64
}

// AckPolicy decides whether an acknowledgement may move a watermark backwards.
type AckPolicy int

const (
	// AckMonotonic keeps the highest acknowledged id; stale acks are ignored.
	AckMonotonic AckPolicy = iota
	// AckUnconditional stores whatever id was acknowledged last, even a smaller one.
	AckUnconditional
)

// ParseAckPolicy accepts "monotonic" (or "") and "unconditional".
func ParseAckPolicy(s string) (AckPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monotonic":
		return AckMonotonic, nil
	case "unconditional":
		return AckUnconditional, nil
	}
	return AckMonotonic, errors.Errorf("unknown ack policy %q", s)
}

func (p AckPolicy) String() string {
	if p == AckUnconditional {
		return "unconditional"
	}
	return "monotonic"
}

// Record is a copy of one participant's presence state.
type Record struct {
	LastSeen          *time.Time
	LastSeenMessageID int64
}

// Status is the answer to a poll.
type Status struct {
	Device      models.Participant
	OtherDevice models.Participant
	OtherOnline bool
	HasUnread   bool
	Message     *models.Message
}

type record struct {
	mu        sync.Mutex
	lastSeen  time.Time // zero until the first poll
	watermark int64
}

// Tracker is safe for concurrent use; each participant's record has its own lock.
type Tracker struct {
	pair    models.Pair
	slots   SlotReader
	window  time.Duration
	now     func() time.Time
	ack     AckPolicy
	seed    bool
	logger  zerolog.Logger
	records map[models.Participant]*record
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithLivenessWindow(d time.Duration) Option {
	return func(t *Tracker) { t.window = d }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithAckPolicy(p AckPolicy) Option {
	return func(t *Tracker) { t.ack = p }
}

// WithSeedFromSlots controls whether messages already in the slots at startup count
// as acknowledged. Enabled by default.
func WithSeedFromSlots(seed bool) Option {
	return func(t *Tracker) { t.seed = seed }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// New creates a tracker over the given mailbox slots.
func New(pair models.Pair, slots SlotReader, opts ...Option) *Tracker {
	t := &Tracker{
		pair:   pair,
		slots:  slots,
		window: DefaultLivenessWindow,
		now:    time.Now,
		ack:    AckMonotonic,
		seed:   true,
		logger: zerolog.Nop(),
		records: map[models.Participant]*record{
			pair.A: {},
			pair.B: {},
		},
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.seed {
		for p, rec := range t.records {
			if msg, ok := slots.GetSlot(p); ok {
				rec.watermark = msg.ID
				t.logger.Info().
					Str("device", string(p)).
					Int64("last_seen_message_id", msg.ID).
					Msg("pending message treated as already seen")
			}
		}
	}

	return t
}

// Poll stamps the participant as seen now and reports its unread state and whether
// the other participant polled within the liveness window.
func (t *Tracker) Poll(raw string) (Status, error) {
	device, err := t.pair.Parse(raw)
	if err != nil {
		return Status{}, err
	}
	other := t.pair.Other(device)
	now := t.now()

	rec := t.records[device]
	rec.mu.Lock()
	rec.lastSeen = now
	watermark := rec.watermark
	rec.mu.Unlock()

	msg, _ := t.slots.GetSlot(device)

	otherRec := t.records[other]
	otherRec.mu.Lock()
	otherSeen := otherRec.lastSeen
	otherRec.mu.Unlock()

	metrics.Polls.WithLabelValues(string(device)).Inc()

	return Status{
		Device:      device,
		OtherDevice: other,
		OtherOnline: !otherSeen.IsZero() && now.Sub(otherSeen) <= t.window,
		HasUnread:   msg != nil && msg.ID > watermark,
		Message:     msg,
	}, nil
}

// Acknowledge records that the participant has displayed messages up to messageID
// and returns the resulting watermark. Ids beyond the mailbox counter are ignored.
func (t *Tracker) Acknowledge(raw string, messageID int64) (int64, error) {
	device, err := t.pair.Parse(raw)
	if err != nil {
		return 0, err
	}
	if messageID < 0 {
		return 0, errors.Wrapf(apperrors.ErrInvalidMessageID, "%d is negative", messageID)
	}

	rec := t.records[device]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	outcome := "unchanged"
	switch {
	case messageID > t.slots.NextMessageID():
		outcome = "ignored"
		t.logger.Warn().
			Str("device", string(device)).
			Int64("message_id", messageID).
			Int64("next_message_id", t.slots.NextMessageID()).
			Msg("acknowledgement for a future message ignored")
	case t.ack == AckUnconditional || messageID > rec.watermark:
		if messageID != rec.watermark {
			outcome = "advanced"
		}
		rec.watermark = messageID
	}
	metrics.Acknowledgements.WithLabelValues(string(device), outcome).Inc()

	return rec.watermark, nil
}

// Snapshot returns a copy of the participant's presence record.
func (t *Tracker) Snapshot(raw string) (Record, error) {
	device, err := t.pair.Parse(raw)
	if err != nil {
		return Record{}, err
	}

	rec := t.records[device]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	out := Record{LastSeenMessageID: rec.watermark}
	if !rec.lastSeen.IsZero() {
		seen := rec.lastSeen
		out.LastSeen = &seen
	}
	return out, nil
}

// LivenessWindow returns the configured online window.
func (t *Tracker) LivenessWindow() time.Duration {
	return t.window
}
