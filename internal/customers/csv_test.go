package customers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadCSVDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "service_records_2024.csv",
		"TAG,RO#,MAKE/MODEL,NAME,PHONE #,DESCRIPTION\n"+
			"T1,1001,CIVIC 25,JOHN DOE,(954) 123-4567,OIL CHANGE\n"+
			"T2,1002,PASSPORT 26,JANE ROE,305-555-1212,BRAKES\n")
	writeFile(t, dir, "service_records_2025.csv",
		"Tag,RO,Vehicle,Customer Name,Phone Number,Service\n"+
			"T3,1003,CIVIC 25,JOHN DOE,9541234567,TIRE ROTATION\n")

	rows, err := LoadCSVDir(dir, logging.Default())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Files load in sorted order, rows in file order.
	assert.Equal(t, "JOHN DOE", rows[0].Name)
	assert.Equal(t, "(954) 123-4567", rows[0].Phone)
	assert.Equal(t, "OIL CHANGE", rows[0].Service)
	assert.Equal(t, "TIRE ROTATION", rows[2].Service)
}

func TestLoadCSVDirToleratesRaggedRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "records.csv",
		"NAME,PHONE,VEHICLE\n"+
			"JOHN DOE,9541234567,CIVIC 25\n"+
			"SHORT ROW\n"+
			"JANE ROE,3055551212,RIDGELINE 25,EXTRA,COLUMNS\n")

	rows, err := LoadCSVDir(dir, logging.Default())
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "3055551212", rows[2].Phone)
}

func TestLoadCSVDirEmpty(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadCSVDir(dir, logging.Default())
	assert.ErrorIs(t, err, ErrNoRecords)
}
