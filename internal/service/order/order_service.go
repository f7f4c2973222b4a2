package order

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"flashsale/internal/model"
	"flashsale/internal/repository"
	"flashsale/pkg/lock"
	"flashsale/pkg/log"
	"flashsale/pkg/snowflake"
	"flashsale/pkg/utils"
)

// OrderService order service interface
type OrderService interface {
	// Confirm turns an admitted ticket into a durable order, idempotent
	// per ticket id
	Confirm(ctx context.Context, t *model.Ticket) (string, error)

	// Create order directly, bypassing the admission queue
	CreateOrder(ctx context.Context, userID uint64, req *model.CreateOrderRequest) (*model.Order, error)

	// Get order by order number
	GetOrderByOrderNo(ctx context.Context, userID uint64, orderNo string) (*model.Order, error)

	// List user orders
	ListUserOrders(ctx context.Context, userID uint64, page, pageSize int) ([]*model.Order, int64, error)
}

// orderService order service implementation
type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	redisClient redis.Cmdable
	idGenerator *snowflake.IDGenerator
	lockTTL     time.Duration
}

// NewOrderService creates an order service
func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	redisClient redis.Cmdable,
	idGenerator *snowflake.IDGenerator,
	lockTTL time.Duration,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		redisClient: redisClient,
		idGenerator: idGenerator,
		lockTTL:     lockTTL,
	}
}

// Confirm creates the order backing an admitted ticket. A retried
// confirmation finds the already created order through the ticket id
// and returns the same order number.
func (s *orderService) Confirm(ctx context.Context, t *model.Ticket) (string, error) {
	existing, err := s.orderRepo.GetByTicketID(ctx, t.TicketID)
	if err != nil {
		return "", utils.WrapError(err, utils.CodeDatabaseError, "failed to check existing order")
	}
	if existing != nil {
		return existing.OrderNo, nil
	}

	product, err := s.productRepo.GetByID(ctx, t.ProductID)
	if err != nil {
		return "", err
	}

	orderNo := s.idGenerator.NextOrderNo()
	order := &model.Order{
		OrderNo:   orderNo,
		UserID:    t.UserID,
		ProductID: t.ProductID,
		TicketID:  t.TicketID,
		Quantity:  1,
		Amount:    product.Price,
		Status:    model.OrderStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewProductRepository(tx).DecrementStock(ctx, t.ProductID, 1); err != nil {
			return err
		}
		return repository.NewOrderRepository(tx).Create(ctx, order)
	})
	if err != nil {
		return "", err
	}

	log.WithFields(map[string]interface{}{
		"order_no":   orderNo,
		"ticket_id":  t.TicketID,
		"user_id":    t.UserID,
		"product_id": t.ProductID,
	}).Info("flash-sale order confirmed")
	return orderNo, nil
}

// CreateOrder creates an order on the direct path. A per-product Redis
// lock serializes buyers; contention surfaces as ErrOrderBusy so the
// client can retry instead of piling up on the database.
func (s *orderService) CreateOrder(ctx context.Context, userID uint64, req *model.CreateOrderRequest) (*model.Order, error) {
	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsOnSale(time.Now()) {
		return nil, utils.ErrProductNotFound
	}

	lockKey := fmt.Sprintf("order:product:%d", req.ProductID)
	lockValue := fmt.Sprintf("%d-%d", userID, s.idGenerator.NextID())
	productLock := lock.NewProductLock(s.redisClient, lockKey, lockValue, s.lockTTL)

	if err := productLock.Lock(ctx); err != nil {
		return nil, utils.ErrOrderBusy
	}
	defer func() {
		if err := productLock.Unlock(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("failed to release product lock")
		}
	}()

	order := &model.Order{
		OrderNo:   s.idGenerator.NextOrderNo(),
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Amount:    product.Price * float64(req.Quantity),
		Status:    model.OrderStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewProductRepository(tx).DecrementStock(ctx, req.ProductID, req.Quantity); err != nil {
			return err
		}
		return repository.NewOrderRepository(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrderByOrderNo gets an order, scoped to its owner
func (s *orderService) GetOrderByOrderNo(ctx context.Context, userID uint64, orderNo string) (*model.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, utils.ErrOrderNotFound
	}
	return order, nil
}

// ListUserOrders lists user orders
func (s *orderService) ListUserOrders(ctx context.Context, userID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return s.orderRepo.ListUserOrders(ctx, userID, page, pageSize)
}
