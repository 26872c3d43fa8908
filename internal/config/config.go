package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット

	// 税率。ハードコードせず設定から読む（既定0.14）
	TaxRate decimal.Decimal

	// 外部決済ゲートウェイ
	PaymentAPIURL      string
	PaymentAPIKey      string
	CheckoutSuccessURL string // 決済成功後に戻るURL
	CheckoutCancelURL  string // 決済キャンセル後に戻るURL

	// 通知メール
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
}

// Loadは環境変数
func Load() (Config, error) {
	taxRate, err := decimal.NewFromString(getenv("TAX_RATE", "0.14"))
	if err != nil {
		return Config{}, fmt.Errorf("TAX_RATE must be a decimal: %w", err)
	}
	if taxRate.IsNegative() {
		return Config{}, fmt.Errorf("TAX_RATE must be >= 0")
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		TaxRate: taxRate,

		PaymentAPIURL:      os.Getenv("PAYMENT_API_URL"),
		PaymentAPIKey:      os.Getenv("PAYMENT_API_KEY"),
		CheckoutSuccessURL: os.Getenv("CHECKOUT_SUCCESS_URL"),
		CheckoutCancelURL:  os.Getenv("CHECKOUT_CANCEL_URL"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getenv("MAIL_FROM", "no-reply@localhost"),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
