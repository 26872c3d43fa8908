package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	orderRepo repo.OrderRepository
	auditRepo repo.AuditLogRepository
}

// DI
func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orderRepo repo.OrderRepository,
	auditRepo repo.AuditLogRepository,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		tx:        tx,
		orderRepo: orderRepo,
		auditRepo: auditRepo,
	}
}

type AdminListOrdersInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

func (u *AdminOrderUsecase) List(ctx context.Context, in AdminListOrdersInput) (OrderListOutput, error) {
	if in.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.Status != "" {
		switch model.OrderStatus(in.Status) {
		case model.OrderStatusPending, model.OrderStatusPaid, model.OrderStatusProcessing,
			model.OrderStatusShipped, model.OrderStatusDelivered, model.OrderStatusCanceled,
			model.OrderStatusRefunded:
		default:
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}

	orders, total, err := u.orderRepo.ListAdmin(ctx, repo.AdminOrderListFilter{
		Page:   in.Page,
		Limit:  in.Limit,
		Status: in.Status,
		UserID: in.UserID,
		From:   in.From,
		To:     in.To,
	})
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderOutput(o))
	}
	return OrderListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// 許可される遷移。同一ステータスへの変更はno-op。
func canTransition(from model.OrderStatus, to model.OrderStatus) bool {
	switch from {
	case model.OrderStatusPending:
		return to == model.OrderStatusPaid || to == model.OrderStatusCanceled
	case model.OrderStatusPaid:
		return to == model.OrderStatusProcessing || to == model.OrderStatusCanceled || to == model.OrderStatusRefunded
	case model.OrderStatusProcessing:
		return to == model.OrderStatusShipped
	case model.OrderStatusShipped:
		return to == model.OrderStatusDelivered
	default:
		//CANCELED/DELIVERED/REFUNDEDは終端
		return false
	}
}

// 管理者による注文ステータス変更。
// キャンセル時は在庫を戻し、すべて監査ログに残す。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, adminUserID int64, orderID int64, to model.OrderStatus) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	switch to {
	case model.OrderStatusPending, model.OrderStatusPaid, model.OrderStatusProcessing,
		model.OrderStatusShipped, model.OrderStatusDelivered, model.OrderStatusCanceled,
		model.OrderStatusRefunded:
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if o.Status == to {
			return nil
		}
		if !canTransition(o.Status, to) {
			return NewHTTPError(http.StatusConflict, fmt.Sprintf("cannot change status from %s to %s", o.Status, to))
		}

		moved, err := r.Orders().UpdateStatusIfCurrent(ctx, o.ID, o.Status, to)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !moved {
			//並行更新に負けた
			return NewHTTPError(http.StatusConflict, "order was updated concurrently")
		}

		switch to {
		case model.OrderStatusCanceled:
			//PENDING/PAIDからのキャンセルは在庫を戻す
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
					ProductID:   it.ProductID,
					OrderID:     &oid,
					ActorUserID: &adminUserID,
					Delta:       it.Quantity,
					Reason:      model.StockReasonOrderCanceled,
				}); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
			if err := r.Payments().UpdateStatusByOrderID(ctx, o.ID, model.PaymentStatusFailed); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

		case model.OrderStatusRefunded:
			if err := r.Payments().UpdateStatusByOrderID(ctx, o.ID, model.PaymentStatusRefunded); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

		case model.OrderStatusDelivered:
			if err := r.Orders().SetDeliveredAt(ctx, o.ID, time.Now()); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		//監査ログ（ステータス変更）
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, o.Status),
			AfterJSON:    fmt.Sprintf(`{"status":%q}`, to),
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}
