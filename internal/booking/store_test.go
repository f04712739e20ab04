package booking

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointments.jsonl")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	draft := Draft{
		Name:    "John Doe",
		Phone:   "9541234567",
		Vehicle: "CIVIC 25",
		Service: "oil change",
		Date:    "tomorrow",
		Time:    "morning",
	}
	appt := NewAppointment(draft)
	appt.Returning = true
	appt.VisitCount = 3
	appt.LastService = "TIRE ROTATION"

	require.NoError(t, store.Append(ctx, appt))
	require.NoError(t, store.Append(ctx, NewAppointment(Draft{
		Name: "Jane Roe", Phone: "3055551212", Vehicle: "RIDGELINE 25",
		Service: "recall", Date: "next monday", Time: "2pm",
	})))

	appts, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, appts, 2)

	got := appts[0]
	assert.Equal(t, "John Doe", got.Name)
	assert.Equal(t, "9541234567", got.Phone)
	assert.Equal(t, "CIVIC 25", got.Vehicle)
	assert.Equal(t, "oil change", got.Service)
	assert.Equal(t, "tomorrow", got.Date)
	assert.Equal(t, "morning", got.Time)
	assert.True(t, got.Returning)
	assert.Equal(t, 3, got.VisitCount)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestFileStoreReadAllMissingFile(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "never-written.jsonl"))
	require.NoError(t, err)

	appts, err := store.ReadAll()
	require.NoError(t, err)
	assert.Nil(t, appts)
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
