package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/cartshop/pkg/config"
	"github.com/example/cartshop/pkg/shop"
	"github.com/shopspring/decimal"
)

// Paystack is a shop.PaymentGateway backed by the Paystack transaction API.
// Amounts cross the wire in kobo.
type Paystack struct {
	baseURL     string
	secretKey   string
	callbackURL string
	client      *http.Client
}

func NewPaystack(cfg *config.PaymentConfig) *Paystack {
	return &Paystack{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      string `json:"amount"`
	Reference   string `json:"reference,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

func toKobo(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromKobo(kobo int64) decimal.Decimal {
	return decimal.New(kobo, -2)
}

func (p *Paystack) Initiate(ctx context.Context, email string, amount decimal.Decimal, reference string) (*shop.PaymentInitiation, error) {
	body, err := json.Marshal(initializeRequest{
		Email:       email,
		Amount:      fmt.Sprintf("%d", toKobo(amount)),
		Reference:   reference,
		CallbackURL: p.callbackURL,
	})
	if err != nil {
		return nil, err
	}

	var data initializeData
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	return &shop.PaymentInitiation{
		Reference:        data.Reference,
		AccessCode:       data.AccessCode,
		AuthorizationURL: data.AuthorizationURL,
	}, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*shop.PaymentVerification, error) {
	var data verifyData
	if err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, err
	}
	return &shop.PaymentVerification{
		Reference: data.Reference,
		Status:    data.Status,
		Amount:    fromKobo(data.Amount),
	}, nil
}

func (p *Paystack) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("paystack %s %s: decode response (status %d): %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !env.Status {
		return fmt.Errorf("paystack %s %s: %d %s", method, path, resp.StatusCode, env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("paystack %s %s: decode data: %w", method, path, err)
	}
	return nil
}
