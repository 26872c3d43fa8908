package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shop/internal/config"

	"github.com/shopspring/decimal"
)

// 外部ゲートウェイのホスト型決済ページを作るクライアント。
// 注文はPENDINGのまま作成済みで、ユーザーを返ってきたURLへリダイレクトする。
type HostedCheckoutClient struct {
	apiURL     string
	apiKey     string
	successURL string
	cancelURL  string
	httpClient *http.Client
}

func NewHostedCheckoutClient(cfg config.Config) *HostedCheckoutClient {
	return &HostedCheckoutClient{
		apiURL:     cfg.PaymentAPIURL,
		apiKey:     cfg.PaymentAPIKey,
		successURL: cfg.CheckoutSuccessURL,
		cancelURL:  cfg.CheckoutCancelURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type sessionRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
}

type sessionResponse struct {
	URL   string `json:"url"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// 決済セッションを作成してリダイレクト先URLを返す。
func (c *HostedCheckoutClient) CreateCheckoutSession(ctx context.Context, orderID int64, amount decimal.Decimal, productNames []string) (string, error) {
	if c.apiURL == "" || c.apiKey == "" {
		return "", fmt.Errorf("payment gateway is not configured")
	}

	//説明は先頭3商品まで
	names := productNames
	if len(names) > 3 {
		names = names[:3]
	}

	body := sessionRequest{
		Amount:      amount.StringFixed(2),
		Currency:    "usd",
		Description: fmt.Sprintf("Order #%d: %s", orderID, strings.Join(names, ", ")),
		Reference:   fmt.Sprintf("%d", orderID),
		SuccessURL:  fmt.Sprintf("%s?order_id=%d", c.successURL, orderID),
		CancelURL:   fmt.Sprintf("%s?order_id=%d", c.cancelURL, orderID),
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payment gateway error (%d): %s", resp.StatusCode, string(raw))
	}

	var sr sessionResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return "", fmt.Errorf("failed to parse gateway response: %w", err)
	}
	if sr.Error != nil {
		return "", fmt.Errorf("payment gateway error: %s", sr.Error.Message)
	}
	if sr.URL == "" {
		return "", fmt.Errorf("payment gateway returned empty session url")
	}

	return sr.URL, nil
}
