package database

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shishobooks/kino/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFileConfig points the database at a temp file so that reconnects see the same
// data.
func newFileConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewForTest()
	cfg.DatabaseFilePath = filepath.Join(t.TempDir(), "kino.db")
	cfg.DatabaseMaxRetries = 0
	cfg.DatabaseBusyTimeout = 1_000_000
	return cfg
}

func TestNew_EnablesForeignKeys(t *testing.T) {
	t.Parallel()

	db, err := New(newFileConfig(t))
	require.NoError(t, err)
	defer db.Close()

	var enabled int
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	assert.Equal(t, 1, enabled)

	_, err = db.Exec(`CREATE TABLE parents (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE children (id INTEGER PRIMARY KEY, parent_id INTEGER NOT NULL REFERENCES parents (id) ON DELETE CASCADE)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO parents (id) VALUES (1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO children (id, parent_id) VALUES (1, 1), (2, 1)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO children (id, parent_id) VALUES (3, 42)`)
	require.Error(t, err)

	_, err = db.Exec(`DELETE FROM parents WHERE id = 1`)
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM children").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCheckFTS5Support(t *testing.T) {
	t.Parallel()

	db, err := New(newFileConfig(t))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, CheckFTS5Support(db))
}

func TestConcurrentWrites(t *testing.T) {
	t.Parallel()

	db, err := New(newFileConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		worker_id INTEGER NOT NULL
	)`)
	require.NoError(t, err)

	const numWorkers = 10
	const writesPerWorker = 25

	var wg sync.WaitGroup
	var failures atomic.Int32
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < writesPerWorker; i++ {
				_, err := db.Exec(
					"INSERT INTO scans (path, worker_id) VALUES (?, ?) ON CONFLICT (path) DO NOTHING",
					fmt.Sprintf("/lib/show-%d/e%02d.mkv", workerID, i),
					workerID,
				)
				if err != nil {
					failures.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int32(0), failures.Load())

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM scans").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, numWorkers*writesPerWorker, count)
}
