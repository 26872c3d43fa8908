package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	CartItems() CartItemRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Payments() PaymentRepository
	PromoCodes() PromoCodeRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// 注文確定の在庫減算・注文作成・決済作成はすべて同じTxで行う。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
