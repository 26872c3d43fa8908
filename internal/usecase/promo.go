package usecase

import (
	"time"

	"shop/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 却下理由（ユーザー向けメッセージにそのまま使う）
const (
	PromoReasonInvalidCode       = "invalid code"
	PromoReasonInactive          = "inactive"
	PromoReasonNotYetValid       = "not yet valid"
	PromoReasonExpired           = "expired"
	PromoReasonUsageLimitReached = "usage limit reached"
	PromoReasonMinPurchaseNotMet = "minimum purchase not met"
)

type PromoEvaluation struct {
	Accepted       bool
	DiscountAmount decimal.Decimal
	Reason         string
}

func rejectPromo(reason string) PromoEvaluation {
	return PromoEvaluation{Accepted: false, DiscountAmount: decimal.Zero, Reason: reason}
}

// EvaluatePromoは注文合計に対してプロモコードを判定する。
// チェックは上から順に短絡評価で、最初に失敗した理由を返す。
// usage_countの加算は呼び出し側の責任（ドライランでは絶対に加算しない）。
func EvaluatePromo(pc model.PromoCode, orderTotal decimal.Decimal, now time.Time) PromoEvaluation {
	if !pc.IsActive {
		return rejectPromo(PromoReasonInactive)
	}
	if pc.StartDate != nil && now.Before(*pc.StartDate) {
		return rejectPromo(PromoReasonNotYetValid)
	}
	if pc.EndDate != nil && now.After(*pc.EndDate) {
		return rejectPromo(PromoReasonExpired)
	}
	if pc.UsageLimit != nil && pc.UsageCount >= *pc.UsageLimit {
		return rejectPromo(PromoReasonUsageLimitReached)
	}
	if pc.MinimumPurchase != nil && orderTotal.LessThan(*pc.MinimumPurchase) {
		return rejectPromo(PromoReasonMinPurchaseNotMet)
	}

	var discount decimal.Decimal
	switch pc.DiscountType {
	case model.DiscountTypePercentage:
		discount = orderTotal.Mul(pc.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
		if pc.MaximumDiscount != nil && discount.GreaterThan(*pc.MaximumDiscount) {
			discount = *pc.MaximumDiscount
		}
	case model.DiscountTypeFixed:
		discount = pc.DiscountValue
	default:
		return rejectPromo(PromoReasonInvalidCode)
	}

	//割引が注文合計を超えることはない
	if discount.GreaterThan(orderTotal) {
		discount = orderTotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return PromoEvaluation{Accepted: true, DiscountAmount: discount}
}
