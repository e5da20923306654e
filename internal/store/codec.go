package store

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/eldtechnologies/buzon/internal/models"
)

// ErrCorruptSnapshot is returned when stored data is not a mailbox snapshot.
var ErrCorruptSnapshot = errors.New("corrupt mailbox snapshot")

// encodeSnapshot renders the snapshot as indented JSON without HTML escaping, so
// accents and emoji in message texts stay readable in the file.
func encodeSnapshot(snap *models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, errors.Wrap(err, "encode snapshot")
	}
	return buf.Bytes(), nil
}

// decodeSnapshot requires both top-level keys to be present.
func decodeSnapshot(data []byte) (*models.Snapshot, error) {
	var raw struct {
		NextMessageID *int64                                 `json:"next_message_id"`
		Slots         map[models.Participant]*models.Message `json:"messages_state"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrCorruptSnapshot, err.Error())
	}
	if raw.NextMessageID == nil || raw.Slots == nil {
		return nil, errors.Wrap(ErrCorruptSnapshot, "missing next_message_id or messages_state")
	}
	return &models.Snapshot{NextMessageID: *raw.NextMessageID, Slots: raw.Slots}, nil
}

// cloneSnapshot copies the snapshot so callers cannot alias stored messages.
func cloneSnapshot(snap *models.Snapshot) *models.Snapshot {
	if snap == nil {
		return nil
	}
	out := &models.Snapshot{
		NextMessageID: snap.NextMessageID,
		Slots:         make(map[models.Participant]*models.Message, len(snap.Slots)),
	}
	for p, msg := range snap.Slots {
		if msg == nil {
			out.Slots[p] = nil
			continue
		}
		cp := *msg
		out.Slots[p] = &cp
	}
	return out
}
