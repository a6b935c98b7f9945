package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appfees "github.com/shulepay/backend/internal/application/fees"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
	"github.com/shulepay/backend/internal/infrastructure/gateway/mpesa"
	"github.com/shulepay/backend/internal/interfaces/http/dto"
)

// SignatureHeader carries the HMAC signature on gateway callbacks
const SignatureHeader = "X-Mpesa-Signature"

// maxCallbackBody bounds how much of a callback body we read
const maxCallbackBody = 1 << 20

// MpesaHandler exposes the gateway surface: the public Daraja callback, STK
// push initiation and the unmatched-transaction admin operations
type MpesaHandler struct {
	BaseHandler
	mobileMoney    *appfees.MobileMoneyService
	payments       *appfees.PaymentService
	client         *mpesa.Client
	callbackSecret string
}

// NewMpesaHandler creates a new M-Pesa handler. The client may be nil when
// STK push is not configured; the callback and admin endpoints still work.
func NewMpesaHandler(
	mobileMoney *appfees.MobileMoneyService,
	payments *appfees.PaymentService,
	client *mpesa.Client,
	callbackSecret string,
	logger *zap.Logger,
) *MpesaHandler {
	return &MpesaHandler{
		BaseHandler:    NewBaseHandler(logger),
		mobileMoney:    mobileMoney,
		payments:       payments,
		client:         client,
		callbackSecret: callbackSecret,
	}
}

// Callback handles POST /callbacks/mpesa/:school_id. Daraja retries on
// non-200 responses, so every handled payload acknowledges with 200 even
// when the payment inside it failed; only unverifiable or unreadable
// requests are rejected.
func (h *MpesaHandler) Callback(c *gin.Context) {
	schoolID, err := uuid.Parse(c.Param("school_id"))
	if err != nil {
		h.BadRequest(c, "Invalid school ID")
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	if !mpesa.VerifySignature(body, c.GetHeader(SignatureHeader), h.callbackSecret) {
		h.logger.Warn("mpesa callback rejected: bad signature",
			zap.String("school_id", schoolID.String()))
		h.Error(c, dto.ErrCodeInvalidSignature, "Invalid callback signature")
		return
	}

	data, err := mpesa.ParseCallback(body)
	if err != nil {
		h.logger.Warn("mpesa callback rejected: unparseable payload",
			zap.String("school_id", schoolID.String()),
			zap.Error(err))
		h.BadRequest(c, "Unrecognized callback payload")
		return
	}

	// A failed push (cancelled, timed out, insufficient funds) carries no
	// money; acknowledge and drop it.
	if !data.Successful() {
		h.logger.Info("mpesa callback reported failure",
			zap.String("external_id", data.ExternalID),
			zap.Int("result_code", data.ResultCode),
			zap.String("result_desc", data.ResultDesc))
		h.ack(c)
		return
	}

	phone, err := valueobject.NewPhone(data.Phone)
	if err != nil {
		h.logger.Warn("mpesa callback carried an invalid phone",
			zap.String("external_id", data.ExternalID),
			zap.String("phone", data.Phone))
		h.ack(c)
		return
	}

	result, err := h.mobileMoney.Ingest(c.Request.Context(), schoolID, appfees.PaymentNotification{
		ExternalID: data.ExternalID,
		Amount:     valueobject.NewMoneyKES(data.Amount),
		Phone:      phone,
		Reference:  data.Reference,
		RawPayload: data.RawPayload,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("mpesa callback ingested",
		zap.String("external_id", data.ExternalID),
		zap.String("status", string(result.Status)))
	h.ack(c)
}

// ack sends the acknowledgement shape Daraja expects
func (h *MpesaHandler) ack(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// InitiateSTKPush handles POST /payments/stk-push
func (h *MpesaHandler) InitiateSTKPush(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}
	if h.client == nil {
		h.Error(c, dto.ErrCodeGatewayError, "Mobile money gateway is not configured")
		return
	}

	var req dto.STKPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	phone, err := valueobject.NewPhone(req.Phone)
	if err != nil {
		h.BadRequest(c, "Invalid phone number")
		return
	}

	invoice, err := h.payments.GetInvoice(c.Request.Context(), req.InvoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if invoice.SchoolID != schoolID {
		h.Error(c, dto.ErrCodeInvoiceNotFound, "Invoice not found")
		return
	}

	amount := invoice.GetBalanceMoney()
	if req.Amount != nil {
		amount, err = parseMoney(*req.Amount)
		if err != nil {
			h.BadRequest(c, "Invalid amount")
			return
		}
	}
	if !amount.IsPositive() {
		h.Error(c, dto.ErrCodeInvalidAmount, "Nothing to pay on this invoice")
		return
	}

	resp, err := h.client.InitiateSTKPush(c.Request.Context(), mpesa.STKPushRequest{
		Phone:     phone.MSISDN(),
		Amount:    amount.Amount().IntPart(), // Daraja rejects decimals
		Reference: invoice.InvoiceNumber,
		Narrative: "School fees",
	})
	if err != nil {
		h.logger.Error("stk push initiation failed",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err))
		h.Error(c, dto.ErrCodeGatewayError, "Payment prompt could not be initiated")
		return
	}

	h.Success(c, dto.STKPushResponse{
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		CustomerMessage:   resp.CustomerMessage,
	})
}

// ListUnmatched handles GET /mpesa/unmatched
func (h *MpesaHandler) ListUnmatched(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.mobileMoney.ListUnmatched(c.Request.Context(), schoolID, req.ToFilter("received_at", "amount"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	txns := make([]dto.TransactionResponse, 0, len(page.Items))
	for _, t := range page.Items {
		txns = append(txns, dto.TransactionFromDomain(t))
	}
	h.SuccessWithMeta(c, txns, page.Total, page.Page, page.PageSize)
}

// RetryMatch handles POST /mpesa/transactions/:id/retry-match
func (h *MpesaHandler) RetryMatch(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}
	transactionID, ok := h.uriID(c)
	if !ok {
		return
	}

	result, err := h.mobileMoney.RetryMatch(c.Request.Context(), schoolID, transactionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
