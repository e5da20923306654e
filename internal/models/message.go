package models

import "time"

// Message is a single note addressed to one participant. Immutable once created.
type Message struct {
	ID        int64       `json:"id"`
	Text      string      `json:"text"`
	From      Participant `json:"from"`
	To        Participant `json:"to"`
	CreatedAt time.Time   `json:"timestamp"` // UTC
}
