// internal/dialogue/slots/store_test.go
package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskbot-engine/internal/models"
)

func TestStore_SetGetOverwrite(t *testing.T) {
	store := NewStore()

	_, ok := store.Get(models.SlotUserID)
	assert.False(t, ok)

	store.Set(models.SlotUserID, "12345")
	v, ok := store.Get(models.SlotUserID)
	require.True(t, ok)
	assert.Equal(t, "12345", v)

	store.Set(models.SlotUserID, "67890")
	v, ok = store.Get(models.SlotUserID)
	require.True(t, ok)
	assert.Equal(t, "67890", v)
}

func TestStore_Clear(t *testing.T) {
	store := NewStore()
	store.Set(models.SlotRiskLevel, "high")

	store.Clear(models.SlotRiskLevel)
	_, ok := store.Get(models.SlotRiskLevel)
	assert.False(t, ok)

	// clearing an unset slot does not log a change
	before := len(store.Changes())
	store.Clear(models.SlotRiskLevel)
	assert.Len(t, store.Changes(), before)
}

func TestStore_ClearAll(t *testing.T) {
	store := NewStore()
	store.Set(models.SlotUserID, "12345")
	store.Set(models.SlotDateRange, "last month")

	store.ClearAll()

	assert.Empty(t, store.Snapshot())
}

func TestStore_ChangeLogStampsTurns(t *testing.T) {
	store := NewStore()

	turn := store.BeginTurn()
	assert.Equal(t, 1, turn)
	store.Set(models.SlotUserID, "12345")

	store.BeginTurn()
	store.Set(models.SlotUserID, "67890")
	store.Clear(models.SlotUserID)

	changes := store.Changes()
	require.Len(t, changes, 3)
	assert.Equal(t, Change{Turn: 1, Slot: models.SlotUserID, Value: "12345"}, changes[0])
	assert.Equal(t, Change{Turn: 2, Slot: models.SlotUserID, Value: "67890"}, changes[1])
	assert.Equal(t, Change{Turn: 2, Slot: models.SlotUserID, Clear: true}, changes[2])
	assert.Equal(t, 2, store.Turn())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.Set(models.SlotUserID, "12345")

	snapshot := store.Snapshot()
	snapshot[models.SlotUserID] = "mutated"

	v, _ := store.Get(models.SlotUserID)
	assert.Equal(t, "12345", v)
}

func TestStore_RestoreDoesNotLogChanges(t *testing.T) {
	store := NewStore()
	store.Restore(map[models.SlotName]string{
		models.SlotUserID:    "12345",
		models.SlotDateRange: "last month",
	})

	v, ok := store.Get(models.SlotUserID)
	require.True(t, ok)
	assert.Equal(t, "12345", v)
	assert.Empty(t, store.Changes())
}
