package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sirichaiw/supermarket-backend/internal/config"
)

// Airwallex creates payment intents for the embedded drop-in flow. Login
// tokens are cached and refreshed with a one-minute safety margin.
type Airwallex struct {
	cfg    config.AirwallexConfig
	client *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewAirwallex(cfg config.AirwallexConfig) *Airwallex {
	return &Airwallex{cfg: cfg, client: &http.Client{Timeout: 20 * time.Second}}
}

func (a *Airwallex) Name() string { return GatewayAirwallex }

func (a *Airwallex) configured() bool {
	return a.cfg.APIKey != "" && a.cfg.ClientID != ""
}

type airwallexLoginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

type airwallexIntent struct {
	ID                   string `json:"id"`
	ClientSecret         string `json:"client_secret"`
	Status               string `json:"status"`
	LatestPaymentAttempt *struct {
		ID string `json:"id"`
	} `json:"latest_payment_attempt"`
}

func (a *Airwallex) accessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Until(a.expiresAt) > time.Minute {
		return a.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/api/v1/authentication/login", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("x-client-id", a.cfg.ClientID)

	var login airwallexLoginResponse
	if err := a.do(req, &login); err != nil {
		return "", err
	}

	token := login.Token
	if token == "" {
		token = login.AccessToken
	}
	if token == "" {
		return "", &RequestError{Gateway: GatewayAirwallex, Message: "login returned no token"}
	}

	a.token = token
	a.expiresAt = time.Now().Add(25 * time.Minute)
	if login.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, login.ExpiresAt); err == nil {
			a.expiresAt = t
		}
	}
	return token, nil
}

func (a *Airwallex) Initiate(ctx context.Context, r InitiateRequest) (InitiateResult, error) {
	if !a.configured() {
		return InitiateResult{}, ErrGatewayUnavailable
	}
	if _, err := FormatAmount(r.Amount); err != nil {
		return InitiateResult{}, err
	}

	token, err := a.accessToken(ctx)
	if err != nil {
		return InitiateResult{}, err
	}

	body, _ := json.Marshal(map[string]any{
		"request_id":        uuid.NewString(),
		"amount":            Round2(r.Amount),
		"currency":          a.cfg.Currency,
		"merchant_order_id": r.OrderRef,
		"return_url":        r.ReturnURL,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/api/v1/pa/payment_intents/create", bytes.NewReader(body))
	if err != nil {
		return InitiateResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	var intent airwallexIntent
	if err := a.do(req, &intent); err != nil {
		return InitiateResult{}, err
	}
	if intent.ID == "" {
		return InitiateResult{}, &RequestError{Gateway: GatewayAirwallex, Message: "intent response missing id"}
	}

	return InitiateResult{ProviderPaymentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// Confirm retrieves the intent; SUCCEEDED and AUTHORIZED both count as
// payment success.
func (a *Airwallex) Confirm(ctx context.Context, intentID string) (ConfirmResult, error) {
	if !a.configured() {
		return ConfirmResult{}, ErrGatewayUnavailable
	}
	token, err := a.accessToken(ctx)
	if err != nil {
		return ConfirmResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/pa/payment_intents/%s", a.cfg.BaseURL, intentID), nil)
	if err != nil {
		return ConfirmResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var intent airwallexIntent
	if err := a.do(req, &intent); err != nil {
		return ConfirmResult{}, err
	}

	ref := intent.ID
	if intent.LatestPaymentAttempt != nil && intent.LatestPaymentAttempt.ID != "" {
		ref = intent.LatestPaymentAttempt.ID
	}
	if ref == "" {
		ref = intentID
	}

	switch strings.ToUpper(intent.Status) {
	case "SUCCEEDED", "AUTHORIZED":
		return ConfirmResult{Status: StatusSucceeded, Reference: ref}, nil
	default:
		return ConfirmResult{Status: StatusFailed, Reference: ref}, nil
	}
}

func (a *Airwallex) do(req *http.Request, out any) error {
	res, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("airwallex: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("airwallex: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &RequestError{Gateway: GatewayAirwallex, StatusCode: res.StatusCode, Message: string(data)}
	}
	return json.Unmarshal(data, out)
}
