package presence

// State is where a participant's slot stands relative to their watermark.
type State int

const (
	NoMessage State = iota // slot empty
	Unread                 // slot id above the watermark
	Read                   // slot id at or below the watermark
)

func (s State) String() string {
	switch s {
	case Unread:
		return "unread"
	case Read:
		return "read"
	}
	return "no_message"
}

// State reports the participant's read state without stamping them as seen.
func (t *Tracker) State(raw string) (State, error) {
	device, err := t.pair.Parse(raw)
	if err != nil {
		return NoMessage, err
	}

	msg, ok := t.slots.GetSlot(device)
	if !ok {
		return NoMessage, nil
	}

	rec := t.records[device]
	rec.mu.Lock()
	watermark := rec.watermark
	rec.mu.Unlock()

	if msg.ID > watermark {
		return Unread, nil
	}
	return Read, nil
}
