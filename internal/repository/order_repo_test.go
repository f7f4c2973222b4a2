package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashsale/internal/model"
	"flashsale/pkg/utils"
)

func TestOrderRepository_Create(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db)

	order := &model.Order{
		OrderNo:   "FS1001",
		UserID:    100,
		ProductID: 1,
		TicketID:  "tkt-0000000000000001",
		Quantity:  1,
		Amount:    199.99,
		Status:    model.OrderStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `orders`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), order)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByTicketID(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db)

	rows := sqlmock.NewRows([]string{"id", "order_no", "user_id", "product_id", "ticket_id", "status"}).
		AddRow(1, "FS1001", 100, 1, "tkt-0000000000000001", model.OrderStatusPending)

	mock.ExpectQuery("SELECT \\* FROM `orders`").
		WithArgs("tkt-0000000000000001", 1).
		WillReturnRows(rows)

	order, err := repo.GetByTicketID(context.Background(), "tkt-0000000000000001")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "FS1001", order.OrderNo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByTicketID_NoOrderYet(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `orders`").
		WithArgs("tkt-0000000000000002", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	order, err := repo.GetByTicketID(context.Background(), "tkt-0000000000000002")
	require.NoError(t, err, "absence is not an error on the idempotency probe")
	assert.Nil(t, order)
}

func TestOrderRepository_GetByOrderNo_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `orders`").
		WithArgs("FS-missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByOrderNo(context.Background(), "FS-missing")
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `orders` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), "FS1001", model.OrderStatusPaid)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
