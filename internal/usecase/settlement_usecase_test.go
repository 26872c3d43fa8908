package usecase_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newSettlementFixture() (*usecase.SettlementUsecase, *txReposStub, *UserRepoMock, *MailerMock) {
	repos := newTxReposStub()
	users := new(UserRepoMock)
	mailer := new(MailerMock)
	uc := usecase.NewSettlementUsecase(&TxManagerStub{repos: repos}, users, mailer)
	return uc, repos, users, mailer
}

func pendingOrder(id int64) model.Order {
	return model.Order{
		ID:          id,
		UserID:      7,
		Status:      model.OrderStatusPending,
		TotalAmount: d("228"),
	}
}

func TestOnPaymentSuccess_MarksPaid(t *testing.T) {
	ctx := context.Background()
	uc, repos, users, mailer := newSettlementFixture()

	repos.orders.On("FindByID", mock.Anything, int64(42)).Return(pendingOrder(42), nil)
	repos.orders.On("UpdateStatusIfCurrent", mock.Anything, int64(42), model.OrderStatusPending, model.OrderStatusPaid).
		Return(true, nil)
	repos.payments.On("MarkCompleted", mock.Anything, int64(42), mock.MatchedBy(func(txnID string) bool {
		return strings.HasPrefix(txnID, "TXN-42-")
	}), mock.Anything).Return(nil)

	users.On("FindByID", mock.Anything, int64(7)).Return(model.User{ID: 7, Email: "a@b.c", FullName: "Taro"}, nil)
	mailer.On("SendPaymentReceipt", mock.Anything, "a@b.c", "Taro", int64(42), mock.Anything).Return(nil)

	out, err := uc.OnPaymentSuccess(ctx, 42)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, out.Status)
	assert.False(t, out.AlreadyProcessed)

	repos.orders.AssertExpectations(t)
	repos.payments.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

// 再送コールバックはno-op。決済確定もメールも二重には走らない。
func TestOnPaymentSuccess_ReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	uc, repos, _, mailer := newSettlementFixture()

	paid := pendingOrder(42)
	paid.Status = model.OrderStatusPaid
	repos.orders.On("FindByID", mock.Anything, int64(42)).Return(paid, nil)

	out, err := uc.OnPaymentSuccess(ctx, 42)
	assert.NoError(t, err)
	assert.True(t, out.AlreadyProcessed)

	repos.orders.AssertNotCalled(t, "UpdateStatusIfCurrent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repos.payments.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "SendPaymentReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// 並行コールバックで条件付き更新に負けた場合もno-op扱い
func TestOnPaymentSuccess_LostConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	uc, repos, _, mailer := newSettlementFixture()

	repos.orders.On("FindByID", mock.Anything, int64(42)).Return(pendingOrder(42), nil)
	repos.orders.On("UpdateStatusIfCurrent", mock.Anything, int64(42), model.OrderStatusPending, model.OrderStatusPaid).
		Return(false, nil)

	out, err := uc.OnPaymentSuccess(ctx, 42)
	assert.NoError(t, err)
	assert.True(t, out.AlreadyProcessed)

	repos.payments.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "SendPaymentReceipt", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOnPaymentSuccess_OrderNotFound(t *testing.T) {
	uc, repos, _, _ := newSettlementFixture()

	repos.orders.On("FindByID", mock.Anything, int64(99)).Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.OnPaymentSuccess(context.Background(), 99)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOnPaymentSuccess_NonPendingConflicts(t *testing.T) {
	uc, repos, _, _ := newSettlementFixture()

	shipped := pendingOrder(42)
	shipped.Status = model.OrderStatusShipped
	repos.orders.On("FindByID", mock.Anything, int64(42)).Return(shipped, nil)

	_, err := uc.OnPaymentSuccess(context.Background(), 42)
	assertHTTPStatus(t, err, http.StatusConflict)
}

// キャンセルは確定時に引いた数量をそのまま戻す
func TestOnPaymentCancelled_RestoresStock(t *testing.T) {
	ctx := context.Background()
	uc, repos, _, _ := newSettlementFixture()

	repos.orders.On("FindByID", mock.Anything, int64(42)).Return(pendingOrder(42), nil)
	repos.orders.On("UpdateStatusIfCurrent", mock.Anything, int64(42), model.OrderStatusPending, model.OrderStatusCanceled).
		Return(true, nil)
	repos.orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{OrderID: 42, ProductID: 1, Quantity: 2},
		{OrderID: 42, ProductID: 3, Quantity: 1},
	}, nil)

	repos.inventory.On("IncreaseStock", mock.Anything, int64(1), int64(2)).Return(nil).Once()
	repos.inventory.On("IncreaseStock", mock.Anything, int64(3), int64(1)).Return(nil).Once()
	repos.inventory.On("CreateMovement", mock.Anything, mock.MatchedBy(func(mv model.StockMovement) bool {
		return mv.Reason == model.StockReasonOrderCanceled && mv.Delta > 0
	})).Return(nil).Times(2)

	repos.payments.On("UpdateStatusByOrderID", mock.Anything, int64(42), model.PaymentStatusFailed).Return(nil)

	out, err := uc.OnPaymentCancelled(ctx, 42)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCanceled, out.Status)

	repos.inventory.AssertExpectations(t)
	repos.payments.AssertExpectations(t)
}

// キャンセル再送もno-op。在庫が二重に戻ることはない。
func TestOnPaymentCancelled_ReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	uc, repos, _, _ := newSettlementFixture()

	canceled := pendingOrder(42)
	canceled.Status = model.OrderStatusCanceled
	repos.orders.On("FindByID", mock.Anything, int64(42)).Return(canceled, nil)

	out, err := uc.OnPaymentCancelled(ctx, 42)
	assert.NoError(t, err)
	assert.True(t, out.AlreadyProcessed)

	repos.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestOnPaymentCancelled_NonPendingConflicts(t *testing.T) {
	uc, repos, _, _ := newSettlementFixture()

	paid := pendingOrder(42)
	paid.Status = model.OrderStatusPaid
	repos.orders.On("FindByID", mock.Anything, int64(42)).Return(paid, nil)

	_, err := uc.OnPaymentCancelled(context.Background(), 42)
	assertHTTPStatus(t, err, http.StatusConflict)
}
