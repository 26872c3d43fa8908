package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

// 決済コールバックの処理。成功/キャンセルとも再送される前提で、
// PENDINGからの条件付き遷移で冪等にする。
type SettlementUsecase struct {
	tx       repo.TransactionManager
	userRepo repo.UserRepository
	mailer   Mailer
}

// DI
func NewSettlementUsecase(tx repo.TransactionManager, userRepo repo.UserRepository, mailer Mailer) *SettlementUsecase {
	return &SettlementUsecase{
		tx:       tx,
		userRepo: userRepo,
		mailer:   mailer,
	}
}

type SettlementOutput struct {
	OrderID     int64             `json:"order_id"`
	Status      model.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`

	// 再送コールバック等で何も変更しなかった場合true
	AlreadyProcessed bool `json:"already_processed"`
}

// 決済成功コールバック。PENDING→PAIDに遷移し決済を確定する。
func (u *SettlementUsecase) OnPaymentSuccess(ctx context.Context, orderID int64) (SettlementOutput, error) {
	if orderID <= 0 {
		return SettlementOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var (
		out    SettlementOutput
		userID int64
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		userID = o.UserID

		//再送コールバックは何もしない
		if o.Status == model.OrderStatusPaid {
			out = SettlementOutput{OrderID: o.ID, Status: o.Status, TotalAmount: o.TotalAmount, AlreadyProcessed: true}
			return nil
		}
		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusConflict, "order is not pending")
		}

		moved, err := r.Orders().UpdateStatusIfCurrent(ctx, o.ID, model.OrderStatusPending, model.OrderStatusPaid)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !moved {
			//並行コールバックに負けた。相手が処理済み。
			out = SettlementOutput{OrderID: o.ID, Status: model.OrderStatusPaid, TotalAmount: o.TotalAmount, AlreadyProcessed: true}
			return nil
		}

		txnID := fmt.Sprintf("TXN-%d-%s", o.ID, uuid.NewString())
		if err := r.Payments().MarkCompleted(ctx, o.ID, txnID, time.Now()); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = SettlementOutput{OrderID: o.ID, Status: model.OrderStatusPaid, TotalAmount: o.TotalAmount}
		return nil
	})
	if err != nil {
		return SettlementOutput{}, err
	}

	if !out.AlreadyProcessed {
		u.notifyPaymentReceipt(ctx, userID, out.OrderID, out.TotalAmount)
	}
	return out, nil
}

// 決済キャンセルコールバック。PENDING→CANCELEDに遷移し在庫を戻す。
func (u *SettlementUsecase) OnPaymentCancelled(ctx context.Context, orderID int64) (SettlementOutput, error) {
	if orderID <= 0 {
		return SettlementOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var out SettlementOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if o.Status == model.OrderStatusCanceled {
			out = SettlementOutput{OrderID: o.ID, Status: o.Status, TotalAmount: o.TotalAmount, AlreadyProcessed: true}
			return nil
		}
		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusConflict, "order is not pending")
		}

		moved, err := r.Orders().UpdateStatusIfCurrent(ctx, o.ID, model.OrderStatusPending, model.OrderStatusCanceled)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !moved {
			out = SettlementOutput{OrderID: o.ID, Status: model.OrderStatusCanceled, TotalAmount: o.TotalAmount, AlreadyProcessed: true}
			return nil
		}

		//確定時に引いた数量をそのまま戻す
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			oid := o.ID
			if err := r.Inventory().CreateMovement(ctx, model.StockMovement{
				ProductID: it.ProductID,
				OrderID:   &oid,
				Delta:     it.Quantity,
				Reason:    model.StockReasonOrderCanceled,
			}); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Payments().UpdateStatusByOrderID(ctx, o.ID, model.PaymentStatusFailed); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = SettlementOutput{OrderID: o.ID, Status: model.OrderStatusCanceled, TotalAmount: o.TotalAmount}
		return nil
	})
	if err != nil {
		return SettlementOutput{}, err
	}
	return out, nil
}

func (u *SettlementUsecase) notifyPaymentReceipt(ctx context.Context, userID int64, orderID int64, amount decimal.Decimal) {
	usr, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		log.Warnf("failed to load user %d for payment receipt: %v", userID, err)
		return
	}
	if err := u.mailer.SendPaymentReceipt(ctx, usr.Email, usr.FullName, orderID, amount); err != nil {
		log.Warnf("failed to send payment receipt for order %d: %v", orderID, err)
	}
}
