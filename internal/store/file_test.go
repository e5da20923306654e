package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/buzon/internal/models"
)

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "state.json"))
	require.NoError(t, err)
	testSnapshotStore(t, s)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), models.NewSnapshot(models.Pair{A: "marti", B: "ella"})))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestFileStoreWritesReadableLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	snap := models.NewSnapshot(models.Pair{A: "marti", B: "ella"})
	snap.Slots["ella"] = &models.Message{ID: 1, Text: "<3 ñ", From: "marti", To: "ella"}
	snap.NextMessageID = 2
	require.NoError(t, s.Save(context.Background(), snap))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"next_message_id": 2`)
	assert.Contains(t, string(data), `"marti": null`)
	assert.Contains(t, string(data), `"text": "<3 ñ"`)
}

func TestFileStoreReadsLegacyStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	legacy := `{
  "next_message_id": 3,
  "messages_state": {
    "marti": null,
    "ella": {
      "id": 2,
      "text": "bon dia",
      "from": "marti",
      "to": "ella",
      "timestamp": "2024-02-14T08:00:00.123456+00:00"
    }
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.NextMessageID)
	require.NotNil(t, snap.Slots["ella"])
	assert.Equal(t, "bon dia", snap.Slots["ella"].Text)
	assert.Equal(t, 2024, snap.Slots["ella"].CreatedAt.Year())
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	for _, content := range []string{"{not json", `{"next_message_id": 4}`} {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		_, err = s.Load(context.Background())
		assert.True(t, errors.Is(err, ErrCorruptSnapshot), "content %q", content)
	}
}
