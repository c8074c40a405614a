package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirichaiw/supermarket-backend/internal/config"
)

// PayPal drives the v2 checkout-orders API: create an order, redirect the
// buyer to the approve link, capture on return.
type PayPal struct {
	cfg    config.PayPalConfig
	client *http.Client
}

func NewPayPal(cfg config.PayPalConfig) *PayPal {
	return &PayPal{cfg: cfg, client: &http.Client{Timeout: 20 * time.Second}}
}

func (p *PayPal) Name() string { return GatewayPayPal }

func (p *PayPal) configured() bool {
	return p.cfg.ClientID != "" && p.cfg.ClientSecret != ""
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrder struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []paypalLink `json:"links"`
}

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v1/oauth2/token",
		strings.NewReader(url.Values{"grant_type": {"client_credentials"}}.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var tok paypalTokenResponse
	if err := p.do(req, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &RequestError{Gateway: GatewayPayPal, Message: "empty access token"}
	}
	return tok.AccessToken, nil
}

func (p *PayPal) Initiate(ctx context.Context, r InitiateRequest) (InitiateResult, error) {
	if !p.configured() {
		return InitiateResult{}, ErrGatewayUnavailable
	}
	value, err := FormatAmount(r.Amount)
	if err != nil {
		return InitiateResult{}, err
	}

	token, err := p.accessToken(ctx)
	if err != nil {
		return InitiateResult{}, err
	}

	currency := p.cfg.Currency
	if currency == "" {
		currency = "SGD"
	}
	body, _ := json.Marshal(map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": currency,
				"value":         value,
			},
		}},
		"application_context": map[string]string{
			"brand_name": "Supermarket App",
			"return_url": r.ReturnURL,
			"cancel_url": r.CancelURL,
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return InitiateResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Prefer", "return=representation")

	var order paypalOrder
	if err := p.do(req, &order); err != nil {
		return InitiateResult{}, err
	}

	approve := ""
	for _, l := range order.Links {
		if l.Rel == "approve" {
			approve = l.Href
			break
		}
	}
	if order.ID == "" || approve == "" {
		return InitiateResult{}, &RequestError{Gateway: GatewayPayPal, Message: "order response missing approve link"}
	}

	return InitiateResult{ProviderPaymentID: order.ID, RedirectURL: approve}, nil
}

// Confirm captures the approved order. Anything other than a COMPLETED
// capture is a failure.
func (p *PayPal) Confirm(ctx context.Context, orderID string) (ConfirmResult, error) {
	if !p.configured() {
		return ConfirmResult{}, ErrGatewayUnavailable
	}
	token, err := p.accessToken(ctx)
	if err != nil {
		return ConfirmResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v2/checkout/orders/%s/capture", p.cfg.BaseURL, orderID), nil)
	if err != nil {
		return ConfirmResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var capture paypalOrder
	if err := p.do(req, &capture); err != nil {
		return ConfirmResult{}, err
	}

	ref := capture.ID
	if ref == "" {
		ref = orderID
	}
	if capture.Status == "COMPLETED" {
		return ConfirmResult{Status: StatusSucceeded, Reference: ref}, nil
	}
	return ConfirmResult{Status: StatusFailed, Reference: ref}, nil
}

func (p *PayPal) do(req *http.Request, out any) error {
	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("paypal: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &RequestError{Gateway: GatewayPayPal, StatusCode: res.StatusCode, Message: string(data)}
	}
	return json.Unmarshal(data, out)
}
