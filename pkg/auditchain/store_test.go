package auditchain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func appendAll(t *testing.T, ch *Chain, store Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		env, err := ch.Append(testRecord("access.allowed"))
		require.NoError(t, err)
		require.NoError(t, store.Save(env))
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	ch := NewChain()
	store := NewMemoryStore()
	appendAll(t, ch, store, 4)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 4)
	require.Equal(t, ch.Envelopes(), loaded)

	ok, detail := VerifyEnvelopes(loaded)
	require.True(t, ok, detail)
}

func TestFileStore_RoundTripAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.jsonl")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	ch := NewChain()
	appendAll(t, ch, store, 3)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	ok, detail := VerifyEnvelopes(loaded)
	require.True(t, ok, detail)

	for i, env := range ch.Envelopes() {
		require.Equal(t, env.SelfHash, loaded[i].SelfHash)
		require.Equal(t, env.HashChainPrev, loaded[i].HashChainPrev)
	}
}

func TestFileStore_OwnerOnlyPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.jsonl")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	ch := NewChain()
	appendAll(t, ch, store, 1)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_DetectsOnDiskTamper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.jsonl")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	ch := NewChain()
	appendAll(t, ch, store, 2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"allowed":true`, `"allowed":false`, 1)
	require.NotEqual(t, string(data), tampered)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o600))

	loaded, err := store.Load()
	require.NoError(t, err)
	ok, _ := VerifyEnvelopes(loaded)
	require.False(t, ok)
}

func TestSQLiteStore_RoundTripAndVerify(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "chain.db"))
	require.NoError(t, err)
	defer store.Close()

	ch := NewChain()
	appendAll(t, ch, store, 3)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	ok, detail := VerifyEnvelopes(loaded)
	require.True(t, ok, detail)

	want := ch.Envelopes()
	for i := range want {
		require.Equal(t, want[i].EventID, loaded[i].EventID)
		require.Equal(t, want[i].SelfHash, loaded[i].SelfHash)
		require.Equal(t, want[i].Decision.DecisionID, loaded[i].Decision.DecisionID)
		require.Equal(t, want[i].Classification, loaded[i].Classification)
	}
}
