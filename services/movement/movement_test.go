package movement_test

import (
	"errors"
	"testing"

	"institution-manager/database/testdb"
	"institution-manager/models/ticket"
	"institution-manager/services/movement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRecordIsVisibleInsideTransactionOnly(t *testing.T) {
	db := testdb.Open(t)
	rollback := errors.New("rollback")

	err := db.Transaction(func(tx *gorm.DB) error {
		entry, err := movement.Record(tx, 5, 9, movement.ClaimDetails{NewAgent: 9})
		require.NoError(t, err)
		assert.NotZero(t, entry.ID)

		var seen int64
		require.NoError(t, tx.Model(&ticket.MovementLog{}).Where("id = ?", entry.ID).Count(&seen).Error)
		assert.Equal(t, int64(1), seen)
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	var after int64
	require.NoError(t, db.Model(&ticket.MovementLog{}).Count(&after).Error)
	assert.Zero(t, after)
}

func TestRecordAndDecodeEveryAction(t *testing.T) {
	db := testdb.Open(t)
	oldAgent := uint(3)
	oldQueue := uint(1)

	details := []movement.Details{
		movement.CreateDetails{QueueID: 1},
		movement.ClaimDetails{NewAgent: 3},
		movement.AssignDetails{OldAgent: &oldAgent, NewAgent: 4},
		movement.TransferDetails{OldQueue: &oldQueue, NewQueue: 2, Reason: "wrong team"},
		movement.StatusChangeDetails{OldStatus: "New", NewStatus: "Resolved"},
		movement.CommentDetails{CommentID: 11, IsInternal: true},
	}
	for _, d := range details {
		_, err := movement.Record(db, 1, 3, d)
		require.NoError(t, err)
	}

	var entries []ticket.MovementLog
	require.NoError(t, db.Order("id").Find(&entries).Error)
	require.Len(t, entries, len(details))

	for i, e := range entries {
		assert.Equal(t, string(details[i].Action()), e.ActionType)
		decoded, err := movement.Decode(e.ActionType, e.Details)
		require.NoError(t, err)
		assert.Equal(t, details[i].Action(), decoded.Action())
	}

	transfer, err := movement.Decode(entries[3].ActionType, entries[3].Details)
	require.NoError(t, err)
	td := transfer.(*movement.TransferDetails)
	assert.Equal(t, uint(2), td.NewQueue)
	require.NotNil(t, td.OldQueue)
	assert.Equal(t, uint(1), *td.OldQueue)
	assert.Equal(t, "wrong team", td.Reason)
}

func TestDecodeUnknownAction(t *testing.T) {
	_, err := movement.Decode("MERGE", nil)
	assert.Error(t, err)
}
