package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-io/fabrik/internal/ir"
)

func tempStatePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.json")
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := tempStatePath(t)

	store, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(&ir.Record{
		Kind: "sim.subnet",
		Name: "a",
		Attributes: map[string]any{
			"cidr":  "10.0.1.0/24",
			"count": float64(3),
			"vpc":   ir.Ref{Kind: "sim.vpc", Name: "main", Attribute: "id"},
		},
		Computed:     map[string]any{"arn": "arn:sim:sim.subnet:subnet-1"},
		Handle:       "subnet-1",
		Dependencies: []string{"sim.vpc.main"},
	}))
	require.NoError(t, store.Close())

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Get("sim.subnet.a")
	require.NoError(t, err)
	assert.Equal(t, "subnet-1", rec.Handle)
	assert.Equal(t, []string{"sim.vpc.main"}, rec.Dependencies)

	// Numbers come back as float64 and ref:// strings come back as Refs,
	// so records compare equal to freshly built attribute maps.
	assert.Equal(t, float64(3), rec.Attributes["count"])
	assert.Equal(t, ir.Ref{Kind: "sim.vpc", Name: "main", Attribute: "id"}, rec.Attributes["vpc"])
}

func TestFileStore_GetMissing(t *testing.T) {
	store, err := OpenFileStore(tempStatePath(t))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get("sim.vpc.absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_DeletePersists(t *testing.T) {
	path := tempStatePath(t)

	store, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(&ir.Record{Kind: "sim.vpc", Name: "main", Handle: "vpc-1"}))
	require.NoError(t, store.Delete("sim.vpc.main"))
	require.NoError(t, store.Close())

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileStore_SerialAndLineage(t *testing.T) {
	path := tempStatePath(t)

	store, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(&ir.Record{Kind: "sim.vpc", Name: "main"}))
	firstSerial := store.serial
	lineage := store.lineage
	require.NotEmpty(t, lineage)
	require.NoError(t, store.Close())

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, lineage, reopened.lineage)
	require.NoError(t, reopened.Put(&ir.Record{Kind: "sim.vpc", Name: "other"}))
	assert.Greater(t, reopened.serial, firstSerial)
}

func TestFileStore_LockConflict(t *testing.T) {
	path := tempStatePath(t)

	store, err := OpenFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = OpenFileStore(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestFileStore_StaleLockTakenOver(t *testing.T) {
	path := tempStatePath(t)
	lockPath := path + ".lock"
	require.NoError(t, os.WriteFile(lockPath, []byte("pid=1\n"), 0644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	store, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestFileStore_CloseReleasesLock(t *testing.T) {
	path := tempStatePath(t)

	store, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err))
}
