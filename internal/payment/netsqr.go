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

	"github.com/google/uuid"

	"github.com/sirichaiw/supermarket-backend/internal/config"
)

// NETSQR integrates the NETS OpenAPI QR push-payment flow. Unlike the
// redirect gateways, confirmation normally arrives via webhook; Confirm is
// the fallback poll against the provider's query endpoint.
type NETSQR struct {
	cfg    config.NETSConfig
	client *http.Client
}

func NewNETSQR(cfg config.NETSConfig) *NETSQR {
	return &NETSQR{cfg: cfg, client: &http.Client{Timeout: 20 * time.Second}}
}

func (n *NETSQR) Name() string { return GatewayNETSQR }

func (n *NETSQR) configured() bool {
	return n.cfg.APIKey != "" && n.cfg.ProjectID != ""
}

type netsEnvelope struct {
	Result struct {
		Data netsData `json:"data"`
	} `json:"result"`
}

type netsData struct {
	TxnID           string `json:"txn_id"`
	TxnRetrievalRef string `json:"txn_retrieval_ref"`
	TxnStatus       *int   `json:"txn_status"`
	ResponseCode    string `json:"response_code"`
	QRCode          string `json:"qr_code"`
	Status          string `json:"status"`
	ErrorMessage    string `json:"error_message"`
}

// Initiate requests a QR code. The legacy integration sends the amount as
// a two-decimal string, and creation only counts as successful when the
// provider answers response_code "00" with txn_status 1 and a QR payload.
func (n *NETSQR) Initiate(ctx context.Context, r InitiateRequest) (InitiateResult, error) {
	if !n.configured() {
		return InitiateResult{}, ErrGatewayUnavailable
	}
	amount, err := FormatAmount(r.Amount)
	if err != nil {
		return InitiateResult{}, err
	}

	body, _ := json.Marshal(map[string]any{
		"txn_id":         "sandbox_nets|m|" + uuid.NewString(),
		"amt_in_dollars": amount,
		"notify_mobile":  0,
	})

	var env netsEnvelope
	if err := n.post(ctx, "/api/v1/common/payments/nets-qr/request", body, &env); err != nil {
		return InitiateResult{}, err
	}

	data := env.Result.Data
	created := data.ResponseCode == "00" && data.TxnStatus != nil && *data.TxnStatus == 1 && data.QRCode != ""
	if !created {
		msg := data.ErrorMessage
		if msg == "" {
			msg = "NETS QR request failed"
		}
		return InitiateResult{}, &RequestError{Gateway: GatewayNETSQR, Message: msg}
	}

	paymentID := data.TxnRetrievalRef
	if paymentID == "" {
		paymentID = data.TxnID
	}
	if paymentID == "" {
		paymentID = r.OrderRef
	}

	return InitiateResult{
		ProviderPaymentID: paymentID,
		QRImage:           "data:image/png;base64," + data.QRCode,
	}, nil
}

// Confirm polls the query endpoint using the retrieval reference.
func (n *NETSQR) Confirm(ctx context.Context, paymentID string) (ConfirmResult, error) {
	if !n.configured() {
		return ConfirmResult{}, ErrGatewayUnavailable
	}

	body, _ := json.Marshal(map[string]string{"txn_retrieval_ref": paymentID})
	var env netsEnvelope
	if err := n.post(ctx, "/api/v1/common/payments/nets-qr/query", body, &env); err != nil {
		return ConfirmResult{}, err
	}

	data := env.Result.Data
	return ConfirmResult{
		Status:    normalizeNETSStatus(data.Status, data.TxnStatus),
		Reference: paymentID,
	}, nil
}

type netsWebhook struct {
	Event           string `json:"event"`
	Type            string `json:"type"`
	PaymentID       string `json:"paymentId"`
	TxnRetrievalRef string `json:"txn_retrieval_ref"`
	TxnStatus       *int   `json:"txn_status"`
	Status          string `json:"status"`
	Data            *struct {
		ID              string `json:"id"`
		TxnRetrievalRef string `json:"txn_retrieval_ref"`
		TxnStatus       *int   `json:"txn_status"`
		Status          string `json:"status"`
	} `json:"data"`
}

// ParseWebhook normalizes an asynchronous status push. Event names take
// precedence; numeric txn_status and raw status strings are fallbacks.
// Duplicate and out-of-order deliveries are handled by the pending
// store's terminal-sticky write, not here.
func ParseNETSWebhook(payload []byte) (paymentID string, status Status, err error) {
	var w netsWebhook
	if err := json.Unmarshal(payload, &w); err != nil {
		return "", StatusPending, fmt.Errorf("webhook payload: %w", err)
	}

	paymentID = w.PaymentID
	if paymentID == "" && w.Data != nil {
		paymentID = w.Data.ID
		if paymentID == "" {
			paymentID = w.Data.TxnRetrievalRef
		}
	}
	if paymentID == "" {
		paymentID = w.TxnRetrievalRef
	}

	event := w.Event
	if event == "" {
		event = w.Type
	}
	switch event {
	case "payment.completed", "payment.succeeded":
		return paymentID, StatusSucceeded, nil
	case "payment.failed", "payment.declined":
		return paymentID, StatusFailed, nil
	}

	txnStatus := w.TxnStatus
	rawStatus := w.Status
	if w.Data != nil {
		if txnStatus == nil {
			txnStatus = w.Data.TxnStatus
		}
		if rawStatus == "" {
			rawStatus = w.Data.Status
		}
	}
	return paymentID, normalizeNETSStatus(rawStatus, txnStatus), nil
}

func normalizeNETSStatus(raw string, txnStatus *int) Status {
	if txnStatus != nil {
		if *txnStatus == 1 {
			return StatusSucceeded
		}
		return StatusFailed
	}
	switch strings.ToUpper(raw) {
	case "SUCCESS", "COMPLETED", "AUTHORIZED":
		return StatusSucceeded
	case "FAILED", "DECLINED":
		return StatusFailed
	default:
		return StatusPending
	}
}

func (n *NETSQR) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", n.cfg.APIKey)
	req.Header.Set("project-id", n.cfg.ProjectID)

	res, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("nets: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("nets: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &RequestError{Gateway: GatewayNETSQR, StatusCode: res.StatusCode, Message: string(data)}
	}
	return json.Unmarshal(data, out)
}
