package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmoran41/dealership-ai-assistant/internal/booking"
	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

func TestGetCreatesLazily(t *testing.T) {
	store := NewStore(time.Hour, logging.Default())
	assert.Equal(t, 0, store.Len())

	sess := store.Get("user-1")
	require.NotNil(t, sess)
	assert.Equal(t, ModeIdle, sess.Mode)
	assert.Equal(t, 1, store.Len())

	again := store.Get("user-1")
	assert.Same(t, sess, again)
	assert.Equal(t, 1, store.Len())
}

func TestStaleSessionResetsOnAccess(t *testing.T) {
	store := NewStore(10*time.Minute, logging.Default())
	now := time.Now()
	store.now = func() time.Time { return now }

	sess := store.Get("user-1")
	sess.Mode = ModeCollecting
	sess.Vehicle = "civic-2025"
	sess.Draft = booking.Draft{Service: "oil change"}
	sess.RememberTurn("hello")

	now = now.Add(11 * time.Minute)
	sess = store.Get("user-1")
	assert.Equal(t, ModeIdle, sess.Mode)
	assert.Empty(t, sess.Vehicle)
	assert.Empty(t, sess.Draft.Service)
	assert.Empty(t, sess.RecentTurns)
}

func TestFreshSessionSurvivesAccess(t *testing.T) {
	store := NewStore(10*time.Minute, logging.Default())
	sess := store.Get("user-1")
	sess.Mode = ModeConfirming
	sess.Draft.Set(booking.SlotService, "brakes")
	store.Touch("user-1")

	sess = store.Get("user-1")
	assert.Equal(t, ModeConfirming, sess.Mode)
	assert.Equal(t, "brakes", sess.Draft.Service)
}

func TestEvictStale(t *testing.T) {
	store := NewStore(10*time.Minute, logging.Default())
	now := time.Now()
	store.now = func() time.Time { return now }

	store.Get("stale")
	now = now.Add(5 * time.Minute)
	store.Get("fresh")
	now = now.Add(6 * time.Minute)

	store.evictStale()
	assert.Equal(t, 1, store.Len())

	// The fresh session is still the same object.
	sess := store.Get("fresh")
	assert.Equal(t, "fresh", sess.UserID)
}

func TestRememberTurnIsBounded(t *testing.T) {
	sess := &Session{}
	for i := 0; i < 10; i++ {
		sess.RememberTurn("turn")
	}
	assert.Len(t, sess.RecentTurns, maxRecentTurns)
}

func TestResetToIdleKeepsVehicle(t *testing.T) {
	sess := &Session{Vehicle: "civic-2025", Mode: ModeConfirming, Draft: booking.Draft{Name: "x"}}
	sess.ResetToIdle()
	assert.Equal(t, "civic-2025", sess.Vehicle)
	assert.Equal(t, ModeIdle, sess.Mode)
	assert.Empty(t, sess.Draft.Name)
}
