package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

// 外部決済ゲートウェイ
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, orderID int64, amount decimal.Decimal, productNames []string) (string, error)
}

// 通知メール。失敗しても注文処理は失敗させない
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, email string, name string, orderID int64, amount decimal.Decimal) error
	SendPaymentReceipt(ctx context.Context, email string, name string, orderID int64, amount decimal.Decimal) error
}

type CheckoutUsecase struct {
	tx           repo.TransactionManager
	cartItemRepo repo.CartItemRepository
	userRepo     repo.UserRepository
	gateway      PaymentGateway
	mailer       Mailer
	taxRate      decimal.Decimal
}

// DI
func NewCheckoutUsecase(
	tx repo.TransactionManager,
	cartItemRepo repo.CartItemRepository,
	userRepo repo.UserRepository,
	gateway PaymentGateway,
	mailer Mailer,
	taxRate decimal.Decimal,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:           tx,
		cartItemRepo: cartItemRepo,
		userRepo:     userRepo,
		gateway:      gateway,
		mailer:       mailer,
		taxRate:      taxRate,
	}
}

type PlaceOrderInput struct {
	PaymentMethod   model.PaymentMethod
	ShippingAddress string
	City            string
	Country         string
	PhoneNumber     string
	Notes           string
	PromoCode       string
}

type PlaceOrderOutput struct {
	OrderID        int64             `json:"order_id"`
	Status         model.OrderStatus `json:"status"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`

	// ゲートウェイ決済の場合のみ。ユーザーをここへリダイレクトする
	RedirectURL string `json:"redirect_url,omitempty"`

	// プロモコードが却下されたときの理由（注文自体は成立する）
	PromoMessage string `json:"promo_message,omitempty"`
}

type QuoteOutput struct {
	Items          []CartLineOutput `json:"items"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	TaxAmount      decimal.Decimal  `json:"tax_amount"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	PromoMessage   string           `json:"promo_message,omitempty"`
}

// 確定前の見積もり。在庫もプロモも一切更新しない。
func (u *CheckoutUsecase) Quote(ctx context.Context, userID int64, promoCode string) (QuoteOutput, error) {
	if userID <= 0 {
		return QuoteOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out QuoteOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		lines, subtotal, err := u.assembleCart(ctx, r, userID)
		if err != nil {
			return err
		}

		tax := subtotal.Mul(u.taxRate).Round(2)
		preDiscount := subtotal.Add(tax)

		discount := decimal.Zero
		promoMsg := ""
		if strings.TrimSpace(promoCode) != "" {
			pc, err := r.PromoCodes().FindByCode(ctx, strings.TrimSpace(promoCode))
			if err == repo.ErrNotFound {
				promoMsg = PromoReasonInvalidCode
			} else if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			} else {
				ev := EvaluatePromo(pc, preDiscount, time.Now())
				if ev.Accepted {
					discount = ev.DiscountAmount
				} else {
					promoMsg = ev.Reason
				}
			}
		}

		total := preDiscount.Sub(discount)
		if total.IsNegative() {
			total = decimal.Zero
		}

		items := make([]CartLineOutput, 0, len(lines))
		for _, ln := range lines {
			items = append(items, CartLineOutput{
				ProductID:   ln.product.ID,
				ProductName: ln.product.Name,
				UnitPrice:   ln.product.Price,
				Quantity:    ln.quantity,
				LineTotal:   ln.lineTotal,
				Stock:       ln.product.Stock,
			})
		}
		out = QuoteOutput{
			Items:          items,
			Subtotal:       subtotal,
			TaxAmount:      tax,
			DiscountAmount: discount,
			TotalAmount:    total,
			PromoMessage:   promoMsg,
		}
		return nil
	})
	if err != nil {
		return QuoteOutput{}, err
	}
	return out, nil
}

type PromoValidationOutput struct {
	Valid          bool            `json:"valid"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Message        string          `json:"message,omitempty"`
}

// プロモコードのドライラン検証。usage_countは加算しない。
func (u *CheckoutUsecase) ValidatePromoCode(ctx context.Context, userID int64, code string) (PromoValidationOutput, error) {
	if userID <= 0 {
		return PromoValidationOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(code) == "" {
		return PromoValidationOutput{}, NewHTTPError(http.StatusBadRequest, "code required")
	}

	var out PromoValidationOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, subtotal, err := u.assembleCart(ctx, r, userID)
		if err != nil {
			return err
		}

		preDiscount := subtotal.Add(subtotal.Mul(u.taxRate).Round(2))

		pc, err := r.PromoCodes().FindByCode(ctx, strings.TrimSpace(code))
		if err == repo.ErrNotFound {
			out = PromoValidationOutput{Valid: false, DiscountAmount: decimal.Zero, Message: PromoReasonInvalidCode}
			return nil
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		ev := EvaluatePromo(pc, preDiscount, time.Now())
		out = PromoValidationOutput{
			Valid:          ev.Accepted,
			DiscountAmount: ev.DiscountAmount,
			Message:        ev.Reason,
		}
		return nil
	})
	if err != nil {
		return PromoValidationOutput{}, err
	}
	return out, nil
}

type assembledLine struct {
	product   model.Product
	quantity  int64
	lineTotal decimal.Decimal
}

// カートを確定用の明細に組み立てる。
// 無効化・削除済み商品はスキップ。在庫不足は商品名入りの409で止める。
func (u *CheckoutUsecase) assembleCart(ctx context.Context, r repo.TxRepos, userID int64) ([]assembledLine, decimal.Decimal, error) {
	cartItems, err := r.CartItems().ListByUserID(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(cartItems) == 0 {
		return nil, decimal.Zero, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	lines := make([]assembledLine, 0, len(cartItems))
	subtotal := decimal.Zero
	for _, it := range cartItems {
		p, err := r.Products().FindByID(ctx, it.ProductID)
		if err == repo.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, decimal.Zero, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			continue
		}
		if p.Stock < it.Quantity {
			return nil, decimal.Zero, NewHTTPError(http.StatusConflict, fmt.Sprintf("%s is out of stock", p.Name))
		}

		lineTotal := p.Price.Mul(decimal.NewFromInt(it.Quantity))
		lines = append(lines, assembledLine{product: p, quantity: it.Quantity, lineTotal: lineTotal})
		subtotal = subtotal.Add(lineTotal)
	}
	if len(lines) == 0 {
		return nil, decimal.Zero, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}
	return lines, subtotal, nil
}

// 注文確定。明細組み立て・税・割引・在庫減算・注文/決済作成を1つのTxで行う。
// 途中で失敗したら全部巻き戻る（在庫もプロモのusage_countも）。
func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (PlaceOrderOutput, error) {
	if userID <= 0 {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	switch in.PaymentMethod {
	case model.PaymentMethodCashOnDelivery, model.PaymentMethodCreditCard:
	default:
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment method")
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, "shipping address required")
	}
	if strings.TrimSpace(in.City) == "" {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, "city required")
	}
	if strings.TrimSpace(in.Country) == "" {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, "country required")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return PlaceOrderOutput{}, NewHTTPError(http.StatusBadRequest, "phone number required")
	}

	var (
		out          PlaceOrderOutput
		productNames []string
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		lines, subtotal, err := u.assembleCart(ctx, r, userID)
		if err != nil {
			return err
		}

		tax := subtotal.Mul(u.taxRate).Round(2)
		preDiscount := subtotal.Add(tax)

		//プロモコードは任意。却下されても注文は成立し、理由だけ返す。
		discount := decimal.Zero
		promoMsg := ""
		var promoCodeID *int64
		if strings.TrimSpace(in.PromoCode) != "" {
			pc, err := r.PromoCodes().FindByCode(ctx, strings.TrimSpace(in.PromoCode))
			if err == repo.ErrNotFound {
				promoMsg = PromoReasonInvalidCode
			} else if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			} else {
				ev := EvaluatePromo(pc, preDiscount, time.Now())
				if !ev.Accepted {
					promoMsg = ev.Reason
				} else {
					//上限との競合はここで確定する。負けたら割引なしで続行。
					ok, err := r.PromoCodes().IncrementUsage(ctx, pc.ID)
					if err != nil {
						return NewHTTPError(http.StatusInternalServerError, "db error")
					}
					if !ok {
						promoMsg = PromoReasonUsageLimitReached
					} else {
						discount = ev.DiscountAmount
						id := pc.ID
						promoCodeID = &id
					}
				}
			}
		}

		total := preDiscount.Sub(discount)
		if total.IsNegative() {
			total = decimal.Zero
		}

		//在庫減算。全明細が引けなければ注文は成立しない。
		for _, ln := range lines {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ln.product.ID, ln.quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf("%s is out of stock", ln.product.Name))
			}
		}

		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:          userID,
			Status:          model.OrderStatusPending,
			PaymentMethod:   in.PaymentMethod,
			Subtotal:        subtotal,
			TaxAmount:       tax,
			DiscountAmount:  discount,
			TotalAmount:     total,
			PromoCodeID:     promoCodeID,
			ShippingAddress: strings.TrimSpace(in.ShippingAddress),
			City:            strings.TrimSpace(in.City),
			Country:         strings.TrimSpace(in.Country),
			PhoneNumber:     strings.TrimSpace(in.PhoneNumber),
			Notes:           in.Notes,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		orderItems := make([]model.OrderItem, 0, len(lines))
		for _, ln := range lines {
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ln.product.ID,
				ProductNameSnapshot: ln.product.Name,
				UnitPriceSnapshot:   ln.product.Price,
				Quantity:            ln.quantity,
				LineTotal:           ln.lineTotal,
			})
			productNames = append(productNames, ln.product.Name)
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//在庫変動履歴
		for _, ln := range lines {
			oid := orderID
			if err := r.Inventory().CreateMovement(ctx, model.StockMovement{
				ProductID: ln.product.ID,
				OrderID:   &oid,
				Delta:     -ln.quantity,
				Reason:    model.StockReasonOrderPlaced,
			}); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		//決済レコードは注文と同時にPENDINGで作成。取引番号は仮番号。
		if _, err := r.Payments().Create(ctx, model.Payment{
			OrderID:       orderID,
			Amount:        total,
			Method:        in.PaymentMethod,
			Status:        model.PaymentStatusPending,
			TransactionID: "TXN-PENDING-" + uuid.NewString(),
			PaymentDate:   time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//代引きはここでカートも空にする（全部同じTx）
		if !in.PaymentMethod.UsesGateway() {
			if err := r.CartItems().DeleteByUserID(ctx, userID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		out = PlaceOrderOutput{
			OrderID:        orderID,
			Status:         model.OrderStatusPending,
			Subtotal:       subtotal,
			TaxAmount:      tax,
			DiscountAmount: discount,
			TotalAmount:    total,
			PromoMessage:   promoMsg,
		}
		return nil
	})
	if err != nil {
		return PlaceOrderOutput{}, err
	}

	if in.PaymentMethod.UsesGateway() {
		//注文はコミット済み。セッション作成に失敗してもPENDINGのまま残し、
		//リトライか成功/キャンセルコールバックで回収する。
		redirectURL, err := u.gateway.CreateCheckoutSession(ctx, out.OrderID, out.TotalAmount, productNames)
		if err != nil {
			log.Errorf("checkout session failed for order %d: %v", out.OrderID, err)
			return PlaceOrderOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway is unavailable, please retry")
		}
		out.RedirectURL = redirectURL

		//カートクリアはベストエフォート
		if err := u.cartItemRepo.DeleteByUserID(ctx, userID); err != nil {
			log.Warnf("failed to clear cart for user %d: %v", userID, err)
		}
		return out, nil
	}

	//代引きは即時に確認メール。失敗はログのみ。
	u.notifyOrderConfirmation(ctx, userID, out.OrderID, out.TotalAmount)
	return out, nil
}

func (u *CheckoutUsecase) notifyOrderConfirmation(ctx context.Context, userID int64, orderID int64, amount decimal.Decimal) {
	usr, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		log.Warnf("failed to load user %d for order confirmation: %v", userID, err)
		return
	}
	if err := u.mailer.SendOrderConfirmation(ctx, usr.Email, usr.FullName, orderID, amount); err != nil {
		log.Warnf("failed to send order confirmation for order %d: %v", orderID, err)
	}
}
