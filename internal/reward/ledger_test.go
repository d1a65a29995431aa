package reward

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "rewards.json"))
	require.NoError(t, err)
	require.Equal(t, 0, l.Get("alice"))
}

func TestCreditPersistsAndAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewards.json")
	l, err := Open(path)
	require.NoError(t, err)

	total, err := l.Credit("alice", 1)
	require.NoError(t, err)
	require.Equal(t, 1, total)

	total, err = l.Credit("alice", 1)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]int
	require.NoError(t, json.Unmarshal(buf, &onDisk))
	require.Equal(t, 2, onDisk["alice"])
}

func TestOpenReloadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewards.json")
	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.Credit("bob", 3)
	require.NoError(t, err)

	reloaded, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 3, reloaded.Get("bob"))
}

func TestSnapshotIsACopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewards.json")
	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.Credit("carol", 2)
	require.NoError(t, err)

	snap := l.Snapshot()
	snap["carol"] = 99
	require.Equal(t, 2, l.Get("carol"))
}
