package dataset

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSQLite(t *testing.T, path string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
	CREATE TABLE results (
		Constituency_No INTEGER,
		Party TEXT,
		Turnout_Percentage REAL,
		Sex TEXT
	);
	INSERT INTO results VALUES (1, 'BJP', 61.5, 'M');
	INSERT INTO results VALUES (2, 'INC', NULL, 'F');
	CREATE TABLE winners (Party TEXT);
	INSERT INTO winners VALUES ('SP');
	`)
	require.NoError(t, err)
}

func TestLoadSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcpd.sqlite")
	writeSQLite(t, path)

	d, err := LoadSQLite(path, "")
	require.NoError(t, err)
	require.Len(t, d, 2)
	assert.Equal(t, 1.0, d[0]["Constituency_No"])
	assert.Equal(t, "BJP", d[0]["Party"])
	assert.Equal(t, 61.5, d[0]["Turnout_Percentage"])
	assert.Nil(t, d[1]["Turnout_Percentage"])

	d, err = LoadSQLite(path, "winners")
	require.NoError(t, err)
	assert.Equal(t, Dataset{{"Party": "SP"}}, d)

	_, err = LoadSQLite(path, `results"; DROP TABLE results; --`)
	assert.Error(t, err)

	_, err = LoadSQLite(path, "absent")
	assert.Error(t, err)
}

func TestLoadSQLiteSpecialPath(t *testing.T) {
	root := t.TempDir()
	plain := filepath.Join(root, "tcpd.sqlite")
	writeSQLite(t, plain)

	dir := filepath.Join(root, "ge?17#final")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, "tcpd.sqlite")
	require.NoError(t, os.Rename(plain, path))

	d, err := LoadSQLite(path, "results")
	require.NoError(t, err)
	assert.Len(t, d, 2)
}

func TestReadOnlyDSN(t *testing.T) {
	dsn, err := readOnlyDSN("/srv/data/ge?17#a.db")
	require.NoError(t, err)
	assert.Equal(t, "file:///srv/data/ge%3F17%23a.db?mode=ro", dsn)
}

func TestStoreLoadSQLite(t *testing.T) {
	dir := t.TempDir()
	writeSQLite(t, filepath.Join(dir, "tcpd.db"))

	cache := newMapCache()
	store := NewStore(dir, []Source{{ID: "ge17", Path: "tcpd.db", Table: "results"}}, cache, nil)

	d, err := store.Load("ge17")
	require.NoError(t, err)
	assert.Len(t, d, 2)
	assert.Contains(t, cache.datasets, "ge17")
	assert.NotContains(t, cache.raw, "ge17")
}
