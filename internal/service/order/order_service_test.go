package order

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"flashsale/internal/model"
	"flashsale/internal/repository"
	"flashsale/pkg/snowflake"
	"flashsale/pkg/utils"
)

func setupService(t *testing.T) (OrderService, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	ids, err := snowflake.NewIDGenerator(1)
	require.NoError(t, err)

	svc := NewOrderService(db,
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		client, ids, 3*time.Second)
	return svc, mock, mr
}

func TestOrderService_Confirm_CreatesOrder(t *testing.T) {
	svc, mock, _ := setupService(t)

	ticket := &model.Ticket{
		TicketID:  "tkt-0000000000000001",
		UserID:    100,
		ProductID: 1,
	}

	// No order for this ticket yet
	mock.ExpectQuery("SELECT \\* FROM `orders`").
		WithArgs(ticket.TicketID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectQuery("SELECT \\* FROM `products`").
		WithArgs(uint64(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "status"}).
			AddRow(1, "Limited Sneaker", 199.99, 5, model.ProductStatusActive))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `products` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `orders`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	orderNo, err := svc.Confirm(context.Background(), ticket)
	require.NoError(t, err)
	assert.NotEmpty(t, orderNo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderService_Confirm_IdempotentOnRetry(t *testing.T) {
	svc, mock, _ := setupService(t)

	ticket := &model.Ticket{TicketID: "tkt-0000000000000001", UserID: 100, ProductID: 1}

	mock.ExpectQuery("SELECT \\* FROM `orders`").
		WithArgs(ticket.TicketID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_no", "ticket_id"}).
			AddRow(1, "FS42", ticket.TicketID))

	orderNo, err := svc.Confirm(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, "FS42", orderNo, "retry returns the original order, no second insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderService_Confirm_StockExhausted(t *testing.T) {
	svc, mock, _ := setupService(t)

	ticket := &model.Ticket{TicketID: "tkt-0000000000000002", UserID: 100, ProductID: 1}

	mock.ExpectQuery("SELECT \\* FROM `orders`").
		WithArgs(ticket.TicketID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectQuery("SELECT \\* FROM `products`").
		WithArgs(uint64(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "stock", "status"}).
			AddRow(1, 199.99, 0, model.ProductStatusActive))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `products` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Confirm(context.Background(), ticket)
	assert.ErrorIs(t, err, utils.ErrStockExhausted)
}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	svc, mock, _ := setupService(t)

	mock.ExpectQuery("SELECT \\* FROM `products`").
		WithArgs(uint64(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "stock", "status"}).
			AddRow(1, 50.0, 10, model.ProductStatusActive))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `products` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `orders`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	order, err := svc.CreateOrder(context.Background(), 100, &model.CreateOrderRequest{
		ProductID: 1,
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, order.Amount)
	assert.Equal(t, 2, order.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderService_CreateOrder_BusyWhenLocked(t *testing.T) {
	svc, mock, mr := setupService(t)

	mock.ExpectQuery("SELECT \\* FROM `products`").
		WithArgs(uint64(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "stock", "status"}).
			AddRow(1, 50.0, 10, model.ProductStatusActive))

	// Another buyer holds the product lock
	require.NoError(t, mr.Set("order:product:1", "someone-else"))

	_, err := svc.CreateOrder(context.Background(), 100, &model.CreateOrderRequest{
		ProductID: 1,
		Quantity:  1,
	})
	assert.ErrorIs(t, err, utils.ErrOrderBusy)
}

func TestOrderService_CreateOrder_OutOfStock(t *testing.T) {
	svc, mock, _ := setupService(t)

	mock.ExpectQuery("SELECT \\* FROM `products`").
		WithArgs(uint64(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "price", "stock", "status"}).
			AddRow(1, 50.0, 0, model.ProductStatusActive))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `products` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.CreateOrder(context.Background(), 100, &model.CreateOrderRequest{
		ProductID: 1,
		Quantity:  1,
	})
	assert.ErrorIs(t, err, utils.ErrStockExhausted)
}

func TestOrderService_GetOrderByOrderNo_ScopedToOwner(t *testing.T) {
	svc, mock, _ := setupService(t)

	mock.ExpectQuery("SELECT \\* FROM `orders`").
		WithArgs("FS42", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_no", "user_id"}).
			AddRow(1, "FS42", 100))

	_, err := svc.GetOrderByOrderNo(context.Background(), 200, "FS42")
	assert.ErrorIs(t, err, utils.ErrOrderNotFound, "another user's order stays hidden")
}
