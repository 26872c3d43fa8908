package handler

import (
	"net/http"
	"strconv"

	"shop/internal/config"
	"shop/internal/domain/model"
	"shop/internal/middleware"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkoutのHTTP。注文確定と決済コールバックをまとめる。
type CheckoutHandler struct {
	checkoutUC   *usecase.CheckoutUsecase
	settlementUC *usecase.SettlementUsecase
}

// DI
func NewCheckoutHandler(checkoutUC *usecase.CheckoutUsecase, settlementUC *usecase.SettlementUsecase) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutUC:   checkoutUC,
		settlementUC: settlementUC,
	}
}

type PlaceOrderRequest struct {
	PaymentMethod   string `json:"payment_method"`
	ShippingAddress string `json:"shipping_address"`
	City            string `json:"city"`
	Country         string `json:"country"`
	PhoneNumber     string `json:"phone_number"`
	Notes           string `json:"notes"`
	PromoCode       string `json:"promo_code"`
}

type ValidatePromoRequest struct {
	Code string `json:"code"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/checkout")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.quote)
	g.POST("/orders", h.placeOrder)
	g.POST("/promo/validate", h.validatePromo)

	//決済コールバックはゲートウェイからのリダイレクトで届くので認証なし
	e.GET("/checkout/payment/success", h.paymentSuccess)
	e.GET("/checkout/payment/cancel", h.paymentCancel)
}

func (h *CheckoutHandler) quote(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.checkoutUC.Quote(c.Request().Context(), userID, c.QueryParam("promo_code"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) placeOrder(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.checkoutUC.PlaceOrder(c.Request().Context(), userID, usecase.PlaceOrderInput{
		PaymentMethod:   model.PaymentMethod(req.PaymentMethod),
		ShippingAddress: req.ShippingAddress,
		City:            req.City,
		Country:         req.Country,
		PhoneNumber:     req.PhoneNumber,
		Notes:           req.Notes,
		PromoCode:       req.PromoCode,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *CheckoutHandler) validatePromo(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req ValidatePromoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.checkoutUC.ValidatePromoCode(c.Request().Context(), userID, req.Code)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) paymentSuccess(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.QueryParam("order_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order_id"})
	}

	out, err := h.settlementUC.OnPaymentSuccess(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) paymentCancel(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.QueryParam("order_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order_id"})
	}

	out, err := h.settlementUC.OnPaymentCancelled(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
