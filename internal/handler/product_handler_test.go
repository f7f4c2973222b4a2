package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashsale/internal/model"
	"flashsale/pkg/utils"
)

// fakeProductRepo serves scripted products.
type fakeProductRepo struct {
	products map[uint64]*model.Product
	created  []*model.Product
}

func newFakeProductRepo(products ...*model.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: make(map[uint64]*model.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (f *fakeProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uint64(len(f.created) + 1000)
	f.created = append(f.created, product)
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, utils.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) ListActive(ctx context.Context, page, pageSize int) ([]*model.Product, int64, error) {
	var active []*model.Product
	for _, p := range f.products {
		if p.Status == model.ProductStatusActive {
			active = append(active, p)
		}
	}
	return active, int64(len(active)), nil
}

func (f *fakeProductRepo) AdjustStock(ctx context.Context, id uint64, delta int) error {
	p, ok := f.products[id]
	if !ok {
		return utils.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return utils.ErrStockExhausted
	}
	p.Stock += delta
	return nil
}

func (f *fakeProductRepo) DecrementStock(ctx context.Context, id uint64, quantity int) error {
	return f.AdjustStock(ctx, id, -quantity)
}

func (f *fakeProductRepo) UpdateStatus(ctx context.Context, id uint64, status int) error {
	p, ok := f.products[id]
	if !ok {
		return utils.ErrProductNotFound
	}
	p.Status = status
	return nil
}

// fakeStockService records sale-window calls.
type fakeStockService struct {
	opened   []uint64
	closed   []uint64
	restocks map[uint64]int
	openErr  error
}

func newFakeStockService() *fakeStockService {
	return &fakeStockService{restocks: make(map[uint64]int)}
}

func (f *fakeStockService) OpenSaleWindow(ctx context.Context, productID uint64) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = append(f.opened, productID)
	return nil
}

func (f *fakeStockService) CloseSaleWindow(ctx context.Context, productID uint64) error {
	f.closed = append(f.closed, productID)
	return nil
}

func (f *fakeStockService) Restock(ctx context.Context, productID uint64, delta int) error {
	if delta <= 0 {
		return utils.ErrInvalidParam
	}
	f.restocks[productID] += delta
	return nil
}

func (f *fakeStockService) Remaining(ctx context.Context, productID uint64) (int64, error) {
	return 0, nil
}

func productRouter(repo *fakeProductRepo, svc *fakeStockService) *gin.Engine {
	h := NewProductHandler(repo, svc)
	r := gin.New()
	r.GET("/api/v1/products", h.List)
	r.GET("/api/v1/products/:product_id", h.Get)
	r.POST("/api/v1/admin/products", h.Create)
	r.POST("/api/v1/admin/products/:product_id/open", h.OpenSale)
	r.POST("/api/v1/admin/products/:product_id/close", h.CloseSale)
	r.POST("/api/v1/admin/products/:product_id/restock", h.Restock)
	return r
}

func TestProductHandler_Get(t *testing.T) {
	repo := newFakeProductRepo(&model.Product{ID: 1, Name: "phone", Stock: 10})
	r := productRouter(repo, newFakeStockService())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "phone")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductHandler_Create(t *testing.T) {
	repo := newFakeProductRepo()
	r := productRouter(repo, newFakeStockService())

	body, err := json.Marshal(model.CreateProductRequest{
		Name:  "limited sneaker",
		Price: 199.0,
		Stock: 50,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.created, 1)
	// New products start inactive until the sale window opens.
	assert.Equal(t, model.ProductStatusInactive, repo.created[0].Status)
}

func TestProductHandler_OpenAndCloseSale(t *testing.T) {
	repo := newFakeProductRepo(&model.Product{ID: 7, Stock: 5})
	svc := newFakeStockService()
	r := productRouter(repo, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/7/open", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uint64{7}, svc.opened)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/7/close", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uint64{7}, svc.closed)
}

func TestProductHandler_OpenSaleAlreadyOpen(t *testing.T) {
	repo := newFakeProductRepo(&model.Product{ID: 7, Stock: 5})
	svc := newFakeStockService()
	svc.openErr = utils.ErrSaleWindowOpen
	r := productRouter(repo, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/7/open", nil))
	assert.Equal(t, utils.HTTPStatus(utils.CodeSaleWindowOpen), w.Code)
}

func TestProductHandler_Restock(t *testing.T) {
	repo := newFakeProductRepo(&model.Product{ID: 3, Stock: 0})
	svc := newFakeStockService()
	r := productRouter(repo, svc)

	body, err := json.Marshal(model.UpdateStockRequest{Delta: 20})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/3/restock", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, svc.restocks[3])
}

func TestProductHandler_RestockRejectsBadBody(t *testing.T) {
	repo := newFakeProductRepo(&model.Product{ID: 3, Stock: 0})
	r := productRouter(repo, newFakeStockService())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/3/restock",
		bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
