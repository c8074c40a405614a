package checkout

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sirichaiw/supermarket-backend/internal/cart"
	"github.com/sirichaiw/supermarket-backend/internal/payment"
	"github.com/sirichaiw/supermarket-backend/internal/user"
	"github.com/sirichaiw/supermarket-backend/internal/voucher"
)

// Handler drives the checkout flow: staging, voucher application, the
// hand-off to a gateway and every gateway's return path.
type Handler struct {
	engine   *Engine
	sessions SessionStore
	pending  payment.PendingStore
	carts    *cart.Service
	vouchers *voucher.Service
	gateways map[string]payment.Gateway
	baseURL  string
	logger   *slog.Logger
}

func NewHandler(engine *Engine, sessions SessionStore, pending payment.PendingStore,
	carts *cart.Service, vouchers *voucher.Service, gateways map[string]payment.Gateway,
	baseURL string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   engine,
		sessions: sessions,
		pending:  pending,
		carts:    carts,
		vouchers: vouchers,
		gateways: gateways,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// RegisterPublicRoutes mounts the webhook endpoint; the provider calls
// it without a user token.
func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/v1/payment/nets/webhook", h.netsWebhook)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/checkout", h.checkout)
	app.Post("/api/v1/apply-voucher", h.applyVoucher)
	app.Get("/api/v1/remove-voucher", h.removeVoucher)

	app.Get("/api/v1/payment/paypal/redirect", h.paymentRedirect)
	app.Get("/api/v1/payment/paypal/success", h.successHandler(payment.GatewayPayPal, "token"))
	app.Get("/api/v1/payment/paypal/cancel", h.cancelHandler)

	app.Get("/api/v1/payment/stripe/redirect", h.paymentRedirect)
	app.Get("/api/v1/payment/stripe/success", h.successHandler(payment.GatewayStripe, "session_id"))
	app.Get("/api/v1/payment/stripe/cancel", h.cancelHandler)

	app.Get("/api/v1/payment/airwallex/redirect", h.paymentRedirect)
	app.Get("/api/v1/payment/airwallex/success", h.successHandler(payment.GatewayAirwallex, "id", "payment_intent_id"))
	app.Get("/api/v1/payment/airwallex/cancel", h.cancelHandler)

	app.Get("/api/v1/payment/nets/qr", h.netsQR)
	app.Get("/api/v1/payment/nets/status/:id", h.netsStatus)
	app.Get("/api/v1/payment/nets/success", h.successHandler(payment.GatewayNETSQR, "txn_retrieval_ref"))
	app.Get("/api/v1/payment/nets/failed", h.netsFailed)
	app.Get("/api/v1/payment/nets/cancel", h.cancelHandler)
}

type checkoutRequest struct {
	DeliveryMethod string `json:"deliveryMethod"`
	Address        string `json:"address"`
	PaymentMethod  string `json:"paymentMethod"`
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	payload := new(checkoutRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	items, err := h.carts.Get(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	lines := make(CartSnapshot, 0, len(items))
	for _, it := range items {
		lines = append(lines, SnapshotLine{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.Price,
			Quantity:    it.Quantity,
		})
	}

	var code string
	var discount float64
	if applied, ok, err := h.sessions.GetVoucher(c.Context(), userID); err == nil && ok {
		code = applied.Code
		discount = applied.Discount
	}

	st, err := Stage(lines, payload.DeliveryMethod, payload.Address, payload.PaymentMethod, code, discount)
	if err != nil {
		if v, ok := err.(*ValidationError); ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": v.Error(), "field": v.Field})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	gw, ok := h.gateways[st.Gateway]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "unsupported payment method", "field": "paymentMethod"})
	}

	gwItems := make([]payment.LineItem, 0, len(st.Lines))
	for _, l := range st.Lines {
		gwItems = append(gwItems, payment.LineItem{
			ProductID: l.ProductID,
			Name:      l.ProductName,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}

	prefix := h.baseURL + "/api/v1/payment/" + routeSegment(st.Gateway)
	res, err := gw.Initiate(c.Context(), payment.InitiateRequest{
		Amount:    st.Total,
		OrderRef:  fmt.Sprintf("ORD-%d-%d", userID, time.Now().Unix()),
		Items:     gwItems,
		ReturnURL: prefix + "/success",
		CancelURL: prefix + "/cancel",
	})
	if err != nil {
		if err == payment.ErrGatewayUnavailable {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "payment gateway unavailable"})
		}
		if reqErr, ok := err.(*payment.RequestError); ok {
			h.logger.Error("gateway rejected payment initiation",
				"userId", userID, "gateway", st.Gateway, "status", reqErr.StatusCode, "detail", reqErr.Message)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "payment provider rejected the request"})
		}
		h.logger.Error("payment initiation failed", "userId", userID, "gateway", st.Gateway, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "could not reach payment provider"})
	}

	if err := h.pending.Put(c.Context(), res.ProviderPaymentID, st.Gateway, payment.RecordPending, nil); err != nil {
		h.logger.Warn("pending record write failed",
			"userId", userID, "gateway", st.Gateway, "paymentId", res.ProviderPaymentID, "error", err)
	}

	st.ProviderPaymentID = res.ProviderPaymentID
	st.RedirectURL = res.RedirectURL
	st.ClientSecret = res.ClientSecret
	st.QRImage = res.QRImage
	if err := h.sessions.SetStaging(c.Context(), userID, st); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	resp := fiber.Map{
		"gateway":   st.Gateway,
		"paymentId": st.ProviderPaymentID,
		"amount":    st.Total,
	}
	if st.RedirectURL != "" {
		resp["redirectUrl"] = st.RedirectURL
	}
	if st.ClientSecret != "" {
		resp["clientSecret"] = st.ClientSecret
	}
	if st.QRImage != "" {
		resp["qrImage"] = st.QRImage
	}
	return c.JSON(resp)
}

// routeSegment maps gateway names onto the URL path segment used by the
// return endpoints.
func routeSegment(gateway string) string {
	switch gateway {
	case payment.GatewayPayPal:
		return "paypal"
	case payment.GatewayStripe:
		return "stripe"
	case payment.GatewayAirwallex:
		return "airwallex"
	default:
		return "nets"
	}
}

// successHandler builds the return endpoint for one gateway. The
// provider-chosen query parameter carries the payment id; when absent
// the id staged before the redirect is used instead.
func (h *Handler) successHandler(gateway string, queryKeys ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := user.GetUserIDFromCtx(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}

		var paymentID string
		for _, k := range queryKeys {
			if v := c.Query(k); v != "" {
				paymentID = v
				break
			}
		}
		if paymentID == "" {
			if st, ok, err := h.sessions.GetStaging(c.Context(), userID); err == nil && ok {
				paymentID = st.ProviderPaymentID
			}
		}
		if paymentID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "missing payment reference"})
		}

		return h.finish(c, userID, gateway, paymentID)
	}
}

func (h *Handler) finish(c *fiber.Ctx, userID int, gateway, paymentID string) error {
	outcome, err := h.engine.Confirm(c.Context(), userID, gateway, paymentID)
	if err != nil {
		if err == ErrNoStaging {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "CHECKOUT_EXPIRED",
				"message": "payment received but the checkout session expired; support has been notified",
			})
		}
		if err == ErrPaymentMismatch {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "PAYMENT_MISMATCH",
				"message": "payment does not belong to the current checkout",
			})
		}
		if _, ok := err.(*ReconcileError); ok {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "RECONCILE_ERROR",
				"message": "payment received but the order could not be completed; support has been notified",
			})
		}
		h.logger.Error("payment confirmation failed",
			"userId", userID, "gateway", gateway, "paymentId", paymentID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "could not confirm payment"})
	}

	switch outcome.Status {
	case payment.StatusSucceeded:
		return c.JSON(fiber.Map{
			"status":  "PAID",
			"orderID": outcome.OrderID,
			"invoice": fmt.Sprintf("/api/v1/invoice/%d", outcome.OrderID),
		})
	case payment.StatusPending:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "PENDING"})
	default:
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"status":  "FAILED",
			"message": "payment was not completed",
		})
	}
}

func (h *Handler) cancelHandler(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.engine.Cancel(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "payment cancelled"})
}

// paymentRedirect bounces the browser to the provider-hosted page the
// staging captured during initiation.
func (h *Handler) paymentRedirect(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	st, ok, err := h.sessions.GetStaging(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	if !ok || st.RedirectURL == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "no payment in progress"})
	}
	return c.Redirect(st.RedirectURL, fiber.StatusFound)
}

func (h *Handler) netsQR(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	st, ok, err := h.sessions.GetStaging(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	if !ok || st.QRImage == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "no QR payment in progress"})
	}
	return c.JSON(fiber.Map{
		"qrImage":   st.QRImage,
		"paymentId": st.ProviderPaymentID,
		"amount":    st.Total,
	})
}

// netsStatus is the browser's fallback poll while the shopper scans the
// QR code. It drives the same reconciliation as a success return, so a
// webhook that already landed completes the order here.
func (h *Handler) netsStatus(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	paymentID := c.Params("id")
	if paymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "missing payment reference"})
	}
	return h.finish(c, userID, payment.GatewayNETSQR, paymentID)
}

func (h *Handler) netsFailed(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.engine.Cancel(c.Context(), userID); err != nil {
		h.logger.Warn("clearing gateway artifacts failed", "userId", userID, "error", err)
	}
	return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
		"status":  "FAILED",
		"message": "payment was not completed",
	})
}

// netsWebhook records asynchronous status pushes. It acknowledges every
// parseable payload, even for unknown payments, because delivery is
// at-least-once and the provider retries on non-200s.
func (h *Handler) netsWebhook(c *fiber.Ctx) error {
	body := c.Body()
	paymentID, status, err := payment.ParseNETSWebhook(body)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "malformed webhook payload"})
	}

	if paymentID == "" {
		// parseable but carrying no payment id; nothing to key a record on
		h.logger.Warn("webhook without payment reference ignored", "status", status)
	} else if err := h.engine.RecordWebhook(c.Context(), paymentID, status, body); err != nil {
		h.logger.Error("webhook record failed", "paymentId", paymentID, "status", status, "error", err)
	} else {
		h.logger.Info("webhook recorded", "paymentId", paymentID, "status", status)
	}

	return c.JSON(fiber.Map{
		"received":  true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type applyVoucherRequest struct {
	Code string `json:"code"`
}

func (h *Handler) applyVoucher(c *fiber.Ctx) error {
	payload := new(applyVoucherRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "code is required"})
	}

	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	items, err := h.carts.Get(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	subtotal := cart.Subtotal(items)

	applied, err := h.vouchers.Apply(subtotal, payload.Code)
	if err != nil {
		if rej, ok := err.(*voucher.Rejected); ok {
			resp := fiber.Map{"error": string(rej.Reason)}
			if rej.Reason == voucher.MinSpendNotMet {
				resp["minSpend"] = rej.MinSpend
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	if err := h.sessions.SetVoucher(c.Context(), userID, applied); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	total := payment.Round2(subtotal - applied.Discount)
	if total < 0 {
		total = 0
	}
	return c.JSON(fiber.Map{
		"code":     applied.Code,
		"discount": applied.Discount,
		"subtotal": subtotal,
		"total":    total,
	})
}

func (h *Handler) removeVoucher(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.sessions.ClearVoucher(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "voucher removed"})
}
