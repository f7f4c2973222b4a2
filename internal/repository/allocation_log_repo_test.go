package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashsale/internal/model"
)

func TestAllocationLogRepository_Record(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewAllocationLogRepository(db)

	entry := &model.AllocationLog{
		TicketID:   "tkt-0000000000000001",
		UserID:     100,
		ProductID:  1,
		Outcome:    model.TicketStatusSuccess,
		EnqueueSeq: 1,
		SuccessSeq: 1,
		OrderNo:    "FS1001",
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `allocation_logs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Record(context.Background(), entry)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationLogRepository_Record_DuplicateIsNoOp(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewAllocationLogRepository(db)

	// ON DUPLICATE KEY leaves the existing row untouched
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `allocation_logs`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Record(context.Background(), &model.AllocationLog{
		TicketID:  "tkt-0000000000000001",
		UserID:    100,
		ProductID: 1,
		Outcome:   model.TicketStatusSuccess,
	})
	assert.NoError(t, err)
}

func TestAllocationLogRepository_ListWinners(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewAllocationLogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "ticket_id", "user_id", "product_id", "outcome", "success_seq"}).
		AddRow(1, "tkt-a", 100, 1, model.TicketStatusSuccess, 1).
		AddRow(2, "tkt-b", 200, 1, model.TicketStatusSuccess, 2)

	mock.ExpectQuery("SELECT \\* FROM `allocation_logs`").
		WithArgs(uint64(1), string(model.TicketStatusSuccess)).
		WillReturnRows(rows)

	winners, err := repo.ListWinners(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, uint64(1), winners[0].SuccessSeq)
	assert.Equal(t, uint64(2), winners[1].SuccessSeq)
}
