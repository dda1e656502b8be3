package lazy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRegistry_EnsureIsIdempotent(t *testing.T) {
	reg := NewStateRegistry()
	reg.Ensure("inventory")
	reg.Update("inventory", func(s *LoadState) {
		s.Attempts = 3
	})
	reg.Ensure("inventory")

	state, ok := reg.Status("inventory")
	require.True(t, ok)
	assert.Equal(t, 3, state.Attempts, "Ensure must not reset an existing entry")
	assert.Equal(t, StatusIdle, state.Status)
}

func TestStateRegistry_StatusReturnsSnapshot(t *testing.T) {
	reg := NewStateRegistry()
	reg.Ensure("billing")

	snapshot, ok := reg.Status("billing")
	require.True(t, ok)
	snapshot.FailCount = 99

	fresh, _ := reg.Status("billing")
	assert.Equal(t, 0, fresh.FailCount, "mutating a snapshot must not touch the entry")
}

func TestStateRegistry_StatusUnknownModule(t *testing.T) {
	reg := NewStateRegistry()
	_, ok := reg.Status("ghost")
	assert.False(t, ok)
}

func TestStateRegistry_UpdateCreatesEntry(t *testing.T) {
	reg := NewStateRegistry()
	reg.Update("crm", func(s *LoadState) {
		s.Status = StatusFailed
		s.CooldownUntil = time.Now().Add(time.Second)
	})
	state, ok := reg.Status("crm")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, state.Status)
}

func TestStateRegistry_Names(t *testing.T) {
	reg := NewStateRegistry()
	reg.Ensure("a")
	reg.Ensure("b")
	assert.ElementsMatch(t, []string{"a", "b"}, reg.Names())
}
