package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirichaiw/supermarket-backend/internal/config"
)

func TestParseNETSWebhook(t *testing.T) {
	cases := []struct {
		name       string
		payload    string
		wantID     string
		wantStatus Status
	}{
		{
			name:       "completed event",
			payload:    `{"event":"payment.completed","paymentId":"ref-1"}`,
			wantID:     "ref-1",
			wantStatus: StatusSucceeded,
		},
		{
			name:       "failed event",
			payload:    `{"event":"payment.failed","paymentId":"ref-2"}`,
			wantID:     "ref-2",
			wantStatus: StatusFailed,
		},
		{
			name:       "nested data with retrieval ref",
			payload:    `{"type":"payment.succeeded","data":{"txn_retrieval_ref":"ref-3"}}`,
			wantID:     "ref-3",
			wantStatus: StatusSucceeded,
		},
		{
			name:       "numeric txn_status success",
			payload:    `{"txn_retrieval_ref":"ref-4","txn_status":1}`,
			wantID:     "ref-4",
			wantStatus: StatusSucceeded,
		},
		{
			name:       "numeric txn_status failure",
			payload:    `{"txn_retrieval_ref":"ref-5","txn_status":3}`,
			wantID:     "ref-5",
			wantStatus: StatusFailed,
		},
		{
			name:       "unknown status stays pending",
			payload:    `{"paymentId":"ref-6","status":"PROCESSING"}`,
			wantID:     "ref-6",
			wantStatus: StatusPending,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			id, status, err := ParseNETSWebhook([]byte(c.payload))
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if id != c.wantID {
				t.Errorf("paymentID = %q, want %q", id, c.wantID)
			}
			if status != c.wantStatus {
				t.Errorf("status = %q, want %q", status, c.wantStatus)
			}
		})
	}

	if _, _, err := ParseNETSWebhook([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestNETSQRInitiate(t *testing.T) {
	one := 1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/common/payments/nets-qr/request" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("api-key") != "k" || r.Header.Get("project-id") != "p" {
			t.Error("missing auth headers")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["amt_in_dollars"] != "45.00" {
			t.Errorf("amt_in_dollars = %v, want 45.00", body["amt_in_dollars"])
		}
		if id, _ := body["txn_id"].(string); !strings.HasPrefix(id, "sandbox_nets|m|") {
			t.Errorf("txn_id = %v lacks sandbox prefix", body["txn_id"])
		}
		var env netsEnvelope
		env.Result.Data = netsData{
			TxnRetrievalRef: "ref-abc",
			TxnStatus:       &one,
			ResponseCode:    "00",
			QRCode:          "aGVsbG8=",
		}
		json.NewEncoder(w).Encode(env)
	}))
	defer srv.Close()

	gw := NewNETSQR(config.NETSConfig{APIKey: "k", ProjectID: "p", BaseURL: srv.URL})
	res, err := gw.Initiate(context.Background(), InitiateRequest{Amount: 45, OrderRef: "co-1"})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if res.ProviderPaymentID != "ref-abc" {
		t.Errorf("ProviderPaymentID = %q, want ref-abc", res.ProviderPaymentID)
	}
	if res.QRImage != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("unexpected QRImage %q", res.QRImage)
	}
}

func TestNETSQRInitiateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env netsEnvelope
		env.Result.Data = netsData{ResponseCode: "55", ErrorMessage: "invalid amount"}
		json.NewEncoder(w).Encode(env)
	}))
	defer srv.Close()

	gw := NewNETSQR(config.NETSConfig{APIKey: "k", ProjectID: "p", BaseURL: srv.URL})
	_, err := gw.Initiate(context.Background(), InitiateRequest{Amount: 10})
	reqErr, ok := err.(*RequestError)
	if !ok {
		t.Fatalf("expected *RequestError, got %v", err)
	}
	if reqErr.Message != "invalid amount" {
		t.Errorf("message = %q", reqErr.Message)
	}
}

func TestNETSQRConfirm(t *testing.T) {
	one := 1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/common/payments/nets-qr/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["txn_retrieval_ref"] != "ref-abc" {
			t.Errorf("txn_retrieval_ref = %q", body["txn_retrieval_ref"])
		}
		var env netsEnvelope
		env.Result.Data = netsData{TxnStatus: &one}
		json.NewEncoder(w).Encode(env)
	}))
	defer srv.Close()

	gw := NewNETSQR(config.NETSConfig{APIKey: "k", ProjectID: "p", BaseURL: srv.URL})
	res, err := gw.Confirm(context.Background(), "ref-abc")
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if res.Status != StatusSucceeded || res.Reference != "ref-abc" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestNETSQRUnconfigured(t *testing.T) {
	gw := NewNETSQR(config.NETSConfig{})
	if _, err := gw.Initiate(context.Background(), InitiateRequest{Amount: 1}); err != ErrGatewayUnavailable {
		t.Errorf("Initiate err = %v, want ErrGatewayUnavailable", err)
	}
	if _, err := gw.Confirm(context.Background(), "x"); err != ErrGatewayUnavailable {
		t.Errorf("Confirm err = %v, want ErrGatewayUnavailable", err)
	}
}
