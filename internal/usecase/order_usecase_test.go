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

func newOrderFixture() (*usecase.OrderUsecase, *OrderRepoMock, *OrderItemRepoMock, *PaymentRepoMock) {
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	payments := new(PaymentRepoMock)
	return usecase.NewOrderUsecase(orders, orderItems, payments), orders, orderItems, payments
}

// 他人の注文は404扱い（存在を漏らさない）
func TestGetMyOrderDetail_OtherUsersOrder(t *testing.T) {
	ctx := context.Background()
	uc, orders, _, _ := newOrderFixture()

	o := pendingOrder(42)
	o.UserID = 99
	orders.On("FindByID", mock.Anything, int64(42)).Return(o, nil)

	_, err := uc.GetMyOrderDetail(ctx, 7, 42)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestGetMyOrderDetail_IncludesSnapshotsAndPayment(t *testing.T) {
	ctx := context.Background()
	uc, orders, orderItems, payments := newOrderFixture()

	orders.On("FindByID", mock.Anything, int64(42)).Return(pendingOrder(42), nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{OrderID: 42, ProductID: 1, ProductNameSnapshot: "Widget", UnitPriceSnapshot: d("100"), Quantity: 2, LineTotal: d("200")},
	}, nil)
	payments.On("FindByOrderID", mock.Anything, int64(42)).Return(model.Payment{
		OrderID: 42, Status: model.PaymentStatusPending, Method: model.PaymentMethodCreditCard, TransactionID: "TXN-PENDING-x",
	}, nil)

	out, err := uc.GetMyOrderDetail(ctx, 7, 42)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(out.Items))
	assert.Equal(t, "Widget", out.Items[0].ProductName)
	assertDecimalEqual(t, "100", out.Items[0].UnitPrice)
	assert.NotNil(t, out.Payment)
	assert.Equal(t, model.PaymentStatusPending, out.Payment.Status)
}

// 決済レコードがまだ無くても明細は返す
func TestGetMyOrderDetail_NoPaymentYet(t *testing.T) {
	ctx := context.Background()
	uc, orders, orderItems, payments := newOrderFixture()

	orders.On("FindByID", mock.Anything, int64(42)).Return(pendingOrder(42), nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{}, nil)
	payments.On("FindByOrderID", mock.Anything, int64(42)).Return(model.Payment{}, repo.ErrNotFound)

	out, err := uc.GetMyOrderDetail(ctx, 7, 42)
	assert.NoError(t, err)
	assert.Nil(t, out.Payment)
}

func TestListMyOrders_Paginates(t *testing.T) {
	ctx := context.Background()
	uc, orders, _, _ := newOrderFixture()

	orders.On("ListByUserID", mock.Anything, int64(7), 2, 10).
		Return([]model.Order{pendingOrder(42)}, int64(11), nil)

	out, err := uc.ListMyOrders(ctx, 7, 2, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(11), out.Total)
	assert.Equal(t, 2, out.Page)
	assert.Equal(t, 1, len(out.Items))
}
