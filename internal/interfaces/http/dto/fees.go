package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/domain/fees"
)

// CreateTermRequest is the request body for creating a term
type CreateTermRequest struct {
	Name      string    `json:"name" binding:"required,max=50"`
	Year      int       `json:"year" binding:"required,min=2000,max=2100"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

// TermResponse is the API view of a term
type TermResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Year      int       `json:"year"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// TermFromDomain converts a domain term to its API view
func TermFromDomain(t *fees.Term) TermResponse {
	return TermResponse{
		ID:        t.ID,
		Name:      t.Name,
		Year:      t.Year,
		StartDate: t.StartDate,
		EndDate:   t.EndDate,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
	}
}

// CreateFeeStructureRequest is the request body for creating a fee structure
type CreateFeeStructureRequest struct {
	TermID      uuid.UUID  `json:"term_id" binding:"required"`
	ClassID     *uuid.UUID `json:"class_id"`
	Description string     `json:"description" binding:"required,max=255"`
	Amount      string     `json:"amount" binding:"required"`
	DueDate     time.Time  `json:"due_date" binding:"required"`
}

// UpdateFeeStructureAmountRequest is the request body for an amount change
type UpdateFeeStructureAmountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// FeeStructureResponse is the API view of a fee structure
type FeeStructureResponse struct {
	ID          uuid.UUID  `json:"id"`
	TermID      uuid.UUID  `json:"term_id"`
	ClassID     *uuid.UUID `json:"class_id,omitempty"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	DueDate     time.Time  `json:"due_date"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FeeStructureFromDomain converts a domain fee structure to its API view
func FeeStructureFromDomain(f *fees.FeeStructure) FeeStructureResponse {
	return FeeStructureResponse{
		ID:          f.ID,
		TermID:      f.TermID,
		ClassID:     f.ClassID,
		Description: f.Description,
		Amount:      f.Amount.StringFixed(2),
		DueDate:     f.DueDate,
		Active:      f.Active,
		CreatedAt:   f.CreatedAt,
	}
}

// SetOverrideRequest is the request body for setting a student fee override.
// A null amount waives the fee entirely.
type SetOverrideRequest struct {
	StudentID      uuid.UUID `json:"student_id" binding:"required"`
	TermID         uuid.UUID `json:"term_id" binding:"required"`
	FeeStructureID uuid.UUID `json:"fee_structure_id" binding:"required"`
	Amount         *string   `json:"amount"`
	Reason         string    `json:"reason" binding:"required,max=255"`
}

// OverrideResponse is the API view of a student fee override
type OverrideResponse struct {
	ID             uuid.UUID `json:"id"`
	StudentID      uuid.UUID `json:"student_id"`
	TermID         uuid.UUID `json:"term_id"`
	FeeStructureID uuid.UUID `json:"fee_structure_id"`
	Amount         *string   `json:"amount,omitempty"`
	Waived         bool      `json:"waived"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}

// OverrideFromDomain converts a domain override to its API view
func OverrideFromDomain(o *fees.StudentFeeOverride) OverrideResponse {
	resp := OverrideResponse{
		ID:             o.ID,
		StudentID:      o.StudentID,
		TermID:         o.TermID,
		FeeStructureID: o.FeeStructureID,
		Waived:         o.IsWaiver(),
		Reason:         o.Reason,
		CreatedAt:      o.CreatedAt,
	}
	if o.OverrideAmount != nil {
		amount := o.OverrideAmount.StringFixed(2)
		resp.Amount = &amount
	}
	return resp
}

// GenerateInvoicesRequest is the request body for an invoice generation run
type GenerateInvoicesRequest struct {
	TermID  uuid.UUID  `json:"term_id" binding:"required"`
	ClassID *uuid.UUID `json:"class_id"`
}

// InvoiceResponse is the API view of an invoice
type InvoiceResponse struct {
	ID            uuid.UUID  `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	StudentID     uuid.UUID  `json:"student_id"`
	TermID        uuid.UUID  `json:"term_id"`
	TotalAmount   string     `json:"total_amount"`
	AmountPaid    string     `json:"amount_paid"`
	Balance       string     `json:"balance"`
	Status        string     `json:"status"`
	DueDate       time.Time  `json:"due_date"`
	IssuedAt      time.Time  `json:"issued_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
}

// InvoiceFromDomain converts a domain invoice to its API view
func InvoiceFromDomain(inv *fees.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		StudentID:     inv.StudentID,
		TermID:        inv.TermID,
		TotalAmount:   inv.TotalAmount.StringFixed(2),
		AmountPaid:    inv.AmountPaid.StringFixed(2),
		Balance:       inv.Balance.StringFixed(2),
		Status:        inv.Status.String(),
		DueDate:       inv.DueDate,
		IssuedAt:      inv.IssuedAt,
		PaidAt:        inv.PaidAt,
		CancelledAt:   inv.CancelledAt,
		CancelReason:  inv.CancelReason,
	}
}

// InvoicesFromDomain converts a slice of invoices to API views
func InvoicesFromDomain(invoices []*fees.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, InvoiceFromDomain(inv))
	}
	return out
}

// RecordPaymentRequest is the request body for recording a payment
type RecordPaymentRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method" binding:"required,oneof=MOBILE_MONEY BANK_TRANSFER CASH CHECK OTHER"`
	Reference string `json:"reference" binding:"max=100"`
}

// CancelInvoiceRequest is the request body for cancelling an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// PaymentResponse is the API view of a payment
type PaymentResponse struct {
	ID            uuid.UUID  `json:"id"`
	ReceiptNumber string     `json:"receipt_number"`
	InvoiceID     uuid.UUID  `json:"invoice_id"`
	StudentID     uuid.UUID  `json:"student_id"`
	Amount        string     `json:"amount"`
	Method        string     `json:"method"`
	Reference     string     `json:"reference,omitempty"`
	Status        string     `json:"status"`
	PaidAt        time.Time  `json:"paid_at"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
}

// PaymentFromDomain converts a domain payment to its API view
func PaymentFromDomain(p *fees.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		ReceiptNumber: p.ReceiptNumber,
		InvoiceID:     p.InvoiceID,
		StudentID:     p.StudentID,
		Amount:        p.Amount.StringFixed(2),
		Method:        p.Method.String(),
		Reference:     p.Reference,
		Status:        string(p.Status),
		PaidAt:        p.PaidAt,
		RefundedAt:    p.RefundedAt,
	}
}

// PaymentsFromDomain converts a slice of payments to API views
func PaymentsFromDomain(payments []*fees.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, PaymentFromDomain(p))
	}
	return out
}

// ArrearsResponse is the API view of a student's arrears position
type ArrearsResponse struct {
	ID               uuid.UUID  `json:"id"`
	StudentID        uuid.UUID  `json:"student_id"`
	TotalArrears     string     `json:"total_arrears"`
	DaysOutstanding  int        `json:"days_outstanding"`
	FirstArrearsDate time.Time  `json:"first_arrears_date"`
	IsResolved       bool       `json:"is_resolved"`
	ResolvedDate     *time.Time `json:"resolved_date,omitempty"`
}

// ArrearsFromDomain converts a domain arrears row to its API view
func ArrearsFromDomain(a *fees.Arrears) ArrearsResponse {
	return ArrearsResponse{
		ID:               a.ID,
		StudentID:        a.StudentID,
		TotalArrears:     a.TotalArrears.StringFixed(2),
		DaysOutstanding:  a.DaysOutstanding,
		FirstArrearsDate: a.FirstArrearsDate,
		IsResolved:       a.IsResolved,
		ResolvedDate:     a.ResolvedDate,
	}
}

// TransactionResponse is the API view of a mobile money transaction
type TransactionResponse struct {
	ID         uuid.UUID  `json:"id"`
	ExternalID string     `json:"external_id"`
	Amount     string     `json:"amount"`
	Phone      string     `json:"phone"`
	Reference  string     `json:"reference,omitempty"`
	Status     string     `json:"status"`
	InvoiceID  *uuid.UUID `json:"invoice_id,omitempty"`
	PaymentID  *uuid.UUID `json:"payment_id,omitempty"`
	MatchNote  string     `json:"match_note,omitempty"`
	ReceivedAt time.Time  `json:"received_at"`
}

// TransactionFromDomain converts a domain transaction to its API view
func TransactionFromDomain(t *fees.MobileMoneyTransaction) TransactionResponse {
	return TransactionResponse{
		ID:         t.ID,
		ExternalID: t.ExternalID,
		Amount:     t.Amount.StringFixed(2),
		Phone:      t.Phone.Local(),
		Reference:  t.Reference,
		Status:     t.Status.String(),
		InvoiceID:  t.InvoiceID,
		PaymentID:  t.PaymentID,
		MatchNote:  t.MatchNote,
		ReceivedAt: t.ReceivedAt,
	}
}

// STKPushRequest is the request body for initiating an STK push prompt
type STKPushRequest struct {
	InvoiceID uuid.UUID `json:"invoice_id" binding:"required"`
	Phone     string    `json:"phone" binding:"required,kephone"`
	Amount    *string   `json:"amount"` // defaults to the invoice balance
}

// STKPushResponse is the API view of an initiated STK push
type STKPushResponse struct {
	MerchantRequestID string `json:"merchant_request_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	CustomerMessage   string `json:"customer_message"`
}
