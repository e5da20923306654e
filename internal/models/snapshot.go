package models

// Snapshot is the durable state of the mailbox: the id counter and one slot per
// participant. Presence is never part of it.
type Snapshot struct {
	NextMessageID int64                    `json:"next_message_id"`
	Slots         map[Participant]*Message `json:"messages_state"`
}

// NewSnapshot returns the initial state: counter at 1 and both slots empty.
func NewSnapshot(pair Pair) *Snapshot {
	return &Snapshot{
		NextMessageID: 1,
		Slots: map[Participant]*Message{
			pair.A: nil,
			pair.B: nil,
		},
	}
}
