package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newCartFixture() (*usecase.CartUsecase, *CartItemRepoMock, *ProductRepoMock) {
	cartItems := new(CartItemRepoMock)
	products := new(ProductRepoMock)
	return usecase.NewCartUsecase(cartItems, products), cartItems, products
}

func TestGetCart_SkipsInactiveProducts(t *testing.T) {
	ctx := context.Background()
	uc, cartItems, products := newCartFixture()

	cartItems.On("ListByUserID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, UserID: 7, ProductID: 1, Quantity: 2},
		{ID: 2, UserID: 7, ProductID: 2, Quantity: 1},
		{ID: 3, UserID: 7, ProductID: 3, Quantity: 1},
	}, nil)
	products.On("FindByID", mock.Anything, int64(1)).Return(widget(5), nil)
	products.On("FindByID", mock.Anything, int64(2)).Return(model.Product{ID: 2, Name: "Gone", Price: d("10"), IsActive: false}, nil)
	products.On("FindByID", mock.Anything, int64(3)).Return(model.Product{}, repo.ErrNotFound)

	out, err := uc.GetCart(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out.Items))
	assertDecimalEqual(t, "200", out.Subtotal)
	assert.Equal(t, int64(2), out.Count)
}

// 現在価格で計算する。カートに入れた時点の価格は持たない。
func TestGetCart_UsesCurrentPrice(t *testing.T) {
	ctx := context.Background()
	uc, cartItems, products := newCartFixture()

	cartItems.On("ListByUserID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, UserID: 7, ProductID: 1, Quantity: 1},
	}, nil)
	p := widget(5)
	p.Price = d("120.50")
	products.On("FindByID", mock.Anything, int64(1)).Return(p, nil)

	out, err := uc.GetCart(ctx, 7)
	assert.NoError(t, err)
	assertDecimalEqual(t, "120.50", out.Subtotal)
}

func TestAddToCart_StockCeiling(t *testing.T) {
	ctx := context.Background()
	uc, cartItems, products := newCartFixture()

	products.On("FindByID", mock.Anything, int64(1)).Return(widget(5), nil)
	//既に4個入っている
	cartItems.On("ListByUserID", mock.Anything, int64(7)).Return([]model.CartItem{
		{ID: 1, UserID: 7, ProductID: 1, Quantity: 4},
	}, nil)

	err := uc.AddToCart(ctx, 7, 1, 2)
	assertHTTPStatus(t, err, http.StatusConflict)

	cartItems.AssertNotCalled(t, "UpsertByUserAndProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddToCart_Success(t *testing.T) {
	ctx := context.Background()
	uc, cartItems, products := newCartFixture()

	products.On("FindByID", mock.Anything, int64(1)).Return(widget(5), nil)
	cartItems.On("ListByUserID", mock.Anything, int64(7)).Return([]model.CartItem{}, nil)
	cartItems.On("UpsertByUserAndProduct", mock.Anything, int64(7), int64(1), int64(2)).Return(nil)

	err := uc.AddToCart(ctx, 7, 1, 2)
	assert.NoError(t, err)
	cartItems.AssertExpectations(t)
}

func TestAddToCart_InactiveProduct(t *testing.T) {
	ctx := context.Background()
	uc, _, products := newCartFixture()

	p := widget(5)
	p.IsActive = false
	products.On("FindByID", mock.Anything, int64(1)).Return(p, nil)

	err := uc.AddToCart(ctx, 7, 1, 1)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

// 数量0以下は削除扱い
func TestUpdateCartItem_ZeroQuantityDeletes(t *testing.T) {
	ctx := context.Background()
	uc, cartItems, _ := newCartFixture()

	cartItems.On("FindByID", mock.Anything, int64(10)).
		Return(model.CartItem{ID: 10, UserID: 7, ProductID: 1, Quantity: 2}, nil)
	cartItems.On("DeleteByID", mock.Anything, int64(10)).Return(nil)

	err := uc.UpdateCartItem(ctx, 7, 10, 0)
	assert.NoError(t, err)
	cartItems.AssertExpectations(t)
}

// 他人のカート行は404扱い
func TestUpdateCartItem_OtherUsersItem(t *testing.T) {
	ctx := context.Background()
	uc, cartItems, _ := newCartFixture()

	cartItems.On("FindByID", mock.Anything, int64(10)).
		Return(model.CartItem{ID: 10, UserID: 99, ProductID: 1, Quantity: 2}, nil)

	err := uc.UpdateCartItem(ctx, 7, 10, 1)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestDeleteCartItem_OtherUsersItem(t *testing.T) {
	ctx := context.Background()
	uc, cartItems, _ := newCartFixture()

	cartItems.On("FindByID", mock.Anything, int64(10)).
		Return(model.CartItem{ID: 10, UserID: 99, ProductID: 1, Quantity: 2}, nil)

	err := uc.DeleteCartItem(ctx, 7, 10)
	assertHTTPStatus(t, err, http.StatusNotFound)

	cartItems.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}
