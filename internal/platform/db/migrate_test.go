package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingFilesSorted(t *testing.T) {
	files, err := pendingFiles(fstest.MapFS{
		"002_b.sql": {Data: []byte("SELECT 1")},
		"001_a.sql": {Data: []byte("SELECT 1")},
		"README.md": {Data: []byte("docs")},
		"sub/x.sql": {Data: []byte("SELECT 1")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, files)
}

func TestBundledMigrations(t *testing.T) {
	files, err := pendingFiles(Migrations())
	require.NoError(t, err)
	assert.Contains(t, files, "001_audit_events.sql")
}
