package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appfees "github.com/shulepay/backend/internal/application/fees"
	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/interfaces/http/dto"
)

// InvoiceHandler exposes invoice generation, lookup and payment recording
type InvoiceHandler struct {
	BaseHandler
	generator *appfees.InvoiceGenerationService
	payments  *appfees.PaymentService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(
	generator *appfees.InvoiceGenerationService,
	payments *appfees.PaymentService,
	logger *zap.Logger,
) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: NewBaseHandler(logger),
		generator:   generator,
		payments:    payments,
	}
}

// Generate handles POST /invoices/generate
func (h *InvoiceHandler) Generate(c *gin.Context) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return
	}

	var req dto.GenerateInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), appfees.GenerationRequest{
		SchoolID: schoolID,
		TermID:   req.TermID,
		ClassID:  req.ClassID,
		ActorID:  h.ActorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, ok := h.scopedInvoice(c)
	if !ok {
		return
	}
	h.Success(c, dto.InvoiceFromDomain(invoice))
}

// ListStudentInvoices handles GET /students/:id/invoices
func (h *InvoiceHandler) ListStudentInvoices(c *gin.Context) {
	if _, ok := h.SchoolScope(c); !ok {
		return
	}
	studentID, ok := h.uriID(c)
	if !ok {
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.payments.ListStudentInvoices(c.Request.Context(), studentID, req.ToFilter("due_date", "issued_at", "created_at"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.InvoicesFromDomain(page.Items), page.Total, page.Page, page.PageSize)
}

// RecordPayment handles POST /invoices/:id/payments
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	invoice, ok := h.scopedInvoice(c)
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid amount")
		return
	}

	payment, err := h.payments.RecordPayment(c.Request.Context(), appfees.RecordPaymentRequest{
		InvoiceID: invoice.ID,
		Amount:    amount,
		Method:    fees.PaymentMethod(req.Method),
		Reference: req.Reference,
		ActorID:   h.ActorID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.PaymentFromDomain(payment))
}

// ListPayments handles GET /invoices/:id/payments
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	invoice, ok := h.scopedInvoice(c)
	if !ok {
		return
	}

	payments, err := h.payments.ListInvoicePayments(c.Request.Context(), invoice.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.PaymentsFromDomain(payments))
}

// Cancel handles POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	invoice, ok := h.scopedInvoice(c)
	if !ok {
		return
	}

	var req dto.CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cancelled, err := h.payments.CancelInvoice(c.Request.Context(), invoice.ID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.InvoiceFromDomain(cancelled))
}

// scopedInvoice loads the invoice from the :id parameter and rejects it when
// it belongs to another school. Cross-school IDs look like missing resources,
// never like forbidden ones.
func (h *InvoiceHandler) scopedInvoice(c *gin.Context) (*fees.Invoice, bool) {
	schoolID, ok := h.SchoolScope(c)
	if !ok {
		return nil, false
	}
	invoiceID, ok := h.uriID(c)
	if !ok {
		return nil, false
	}

	invoice, err := h.payments.GetInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	if invoice.SchoolID != schoolID {
		h.Error(c, dto.ErrCodeInvoiceNotFound, "Invoice not found")
		return nil, false
	}
	return invoice, true
}
