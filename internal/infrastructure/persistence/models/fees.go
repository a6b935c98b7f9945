package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// TermModel is the persistence model for the Term domain entity.
type TermModel struct {
	SchoolAggregateModel
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_term_school_name_year,priority:2"`
	Year      int       `gorm:"not null;uniqueIndex:idx_term_school_name_year,priority:3"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TermModel) TableName() string {
	return "terms"
}

// ToDomain converts the persistence model to a domain Term entity.
func (m *TermModel) ToDomain() *fees.Term {
	return &fees.Term{
		SchoolAggregateRoot: m.schoolAggregateRoot(),
		Name:                m.Name,
		Year:                m.Year,
		StartDate:           m.StartDate,
		EndDate:             m.EndDate,
		Active:              m.Active,
	}
}

// FromDomain populates the persistence model from a domain Term entity.
func (m *TermModel) FromDomain(t *fees.Term) {
	m.FromDomainSchoolAggregateRoot(t.SchoolAggregateRoot)
	m.Name = t.Name
	m.Year = t.Year
	m.StartDate = t.StartDate
	m.EndDate = t.EndDate
	m.Active = t.Active
}

// TermModelFromDomain creates a new persistence model from a domain Term entity.
func TermModelFromDomain(t *fees.Term) *TermModel {
	m := &TermModel{}
	m.FromDomain(t)
	return m
}

// FeeStructureModel is the persistence model for the FeeStructure domain entity.
// A NULL class_id means the charge applies school-wide.
type FeeStructureModel struct {
	SchoolAggregateModel
	TermID      uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_fee_structure_scope,priority:2"`
	ClassID     *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_fee_structure_scope,priority:3"`
	Description string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_fee_structure_scope,priority:4"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DueDate     time.Time       `gorm:"not null"`
	Active      bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (FeeStructureModel) TableName() string {
	return "fee_structures"
}

// ToDomain converts the persistence model to a domain FeeStructure entity.
func (m *FeeStructureModel) ToDomain() *fees.FeeStructure {
	return &fees.FeeStructure{
		SchoolAggregateRoot: m.schoolAggregateRoot(),
		TermID:              m.TermID,
		ClassID:             m.ClassID,
		Description:         m.Description,
		Amount:              m.Amount,
		DueDate:             m.DueDate,
		Active:              m.Active,
	}
}

// FromDomain populates the persistence model from a domain FeeStructure entity.
func (m *FeeStructureModel) FromDomain(f *fees.FeeStructure) {
	m.FromDomainSchoolAggregateRoot(f.SchoolAggregateRoot)
	m.TermID = f.TermID
	m.ClassID = f.ClassID
	m.Description = f.Description
	m.Amount = f.Amount
	m.DueDate = f.DueDate
	m.Active = f.Active
}

// FeeStructureModelFromDomain creates a new persistence model from a domain FeeStructure entity.
func FeeStructureModelFromDomain(f *fees.FeeStructure) *FeeStructureModel {
	m := &FeeStructureModel{}
	m.FromDomain(f)
	return m
}

// StudentFeeOverrideModel is the persistence model for the StudentFeeOverride
// domain entity. A NULL override_amount marks a full waiver.
type StudentFeeOverrideModel struct {
	SchoolAggregateModel
	StudentID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_override_student_term_fee,priority:2"`
	TermID         uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:idx_override_student_term_fee,priority:3"`
	FeeStructureID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_override_student_term_fee,priority:4"`
	OverrideAmount *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Reason         string           `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (StudentFeeOverrideModel) TableName() string {
	return "student_fee_overrides"
}

// ToDomain converts the persistence model to a domain StudentFeeOverride entity.
func (m *StudentFeeOverrideModel) ToDomain() *fees.StudentFeeOverride {
	return &fees.StudentFeeOverride{
		SchoolAggregateRoot: m.schoolAggregateRoot(),
		StudentID:           m.StudentID,
		TermID:              m.TermID,
		FeeStructureID:      m.FeeStructureID,
		OverrideAmount:      m.OverrideAmount,
		Reason:              m.Reason,
	}
}

// FromDomain populates the persistence model from a domain StudentFeeOverride entity.
func (m *StudentFeeOverrideModel) FromDomain(o *fees.StudentFeeOverride) {
	m.FromDomainSchoolAggregateRoot(o.SchoolAggregateRoot)
	m.StudentID = o.StudentID
	m.TermID = o.TermID
	m.FeeStructureID = o.FeeStructureID
	m.OverrideAmount = o.OverrideAmount
	m.Reason = o.Reason
}

// StudentFeeOverrideModelFromDomain creates a new persistence model from a domain StudentFeeOverride entity.
func StudentFeeOverrideModelFromDomain(o *fees.StudentFeeOverride) *StudentFeeOverrideModel {
	m := &StudentFeeOverrideModel{}
	m.FromDomain(o)
	return m
}

// InvoiceModel is the persistence model for the Invoice domain entity.
type InvoiceModel struct {
	SchoolAggregateModel
	InvoiceNumber string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_school_number,priority:2"`
	StudentID     uuid.UUID          `gorm:"type:uuid;not null;index"`
	TermID        uuid.UUID          `gorm:"type:uuid;not null;index"`
	TotalAmount   decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	AmountPaid    decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	Balance       decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	Status        fees.InvoiceStatus `gorm:"type:varchar(20);not null;default:'ISSUED';index"`
	DueDate       time.Time          `gorm:"not null;index"`
	IssuedAt      time.Time          `gorm:"not null"`
	PaidAt        *time.Time
	CancelledAt   *time.Time
	CancelReason  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *fees.Invoice {
	return &fees.Invoice{
		SchoolAggregateRoot: m.schoolAggregateRoot(),
		InvoiceNumber:       m.InvoiceNumber,
		StudentID:           m.StudentID,
		TermID:              m.TermID,
		TotalAmount:         m.TotalAmount,
		AmountPaid:          m.AmountPaid,
		Balance:             m.Balance,
		Status:              m.Status,
		DueDate:             m.DueDate,
		IssuedAt:            m.IssuedAt,
		PaidAt:              m.PaidAt,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *fees.Invoice) {
	m.FromDomainSchoolAggregateRoot(inv.SchoolAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.StudentID = inv.StudentID
	m.TermID = inv.TermID
	m.TotalAmount = inv.TotalAmount
	m.AmountPaid = inv.AmountPaid
	m.Balance = inv.Balance
	m.Status = inv.Status
	m.DueDate = inv.DueDate
	m.IssuedAt = inv.IssuedAt
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(inv *fees.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for the Payment domain entity.
type PaymentModel struct {
	SchoolAggregateModel
	ReceiptNumber string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_school_receipt,priority:2"`
	InvoiceID     uuid.UUID          `gorm:"type:uuid;not null;index"`
	StudentID     uuid.UUID          `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	Method        fees.PaymentMethod `gorm:"type:varchar(20);not null"`
	Reference     string             `gorm:"type:varchar(100);index"`
	Status        fees.PaymentStatus `gorm:"type:varchar(20);not null;default:'COMPLETED'"`
	PaidAt        time.Time          `gorm:"not null"`
	RefundedAt    *time.Time
	RefundReason  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *fees.Payment {
	return &fees.Payment{
		SchoolAggregateRoot: m.schoolAggregateRoot(),
		ReceiptNumber:       m.ReceiptNumber,
		InvoiceID:           m.InvoiceID,
		StudentID:           m.StudentID,
		Amount:              m.Amount,
		Method:              m.Method,
		Reference:           m.Reference,
		Status:              m.Status,
		PaidAt:              m.PaidAt,
		RefundedAt:          m.RefundedAt,
		RefundReason:        m.RefundReason,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *fees.Payment) {
	m.FromDomainSchoolAggregateRoot(p.SchoolAggregateRoot)
	m.ReceiptNumber = p.ReceiptNumber
	m.InvoiceID = p.InvoiceID
	m.StudentID = p.StudentID
	m.Amount = p.Amount
	m.Method = p.Method
	m.Reference = p.Reference
	m.Status = p.Status
	m.PaidAt = p.PaidAt
	m.RefundedAt = p.RefundedAt
	m.RefundReason = p.RefundReason
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment entity.
func PaymentModelFromDomain(p *fees.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// ArrearsModel is the persistence model for the Arrears domain entity.
// One row per student; resolved rows are kept for history.
type ArrearsModel struct {
	SchoolAggregateModel
	StudentID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_arrears_school_student,priority:2"`
	TotalArrears     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DaysOutstanding  int             `gorm:"not null;default:0"`
	FirstArrearsDate time.Time       `gorm:"not null"`
	IsResolved       bool            `gorm:"not null;default:false;index"`
	ResolvedDate     *time.Time
}

// TableName returns the table name for GORM
func (ArrearsModel) TableName() string {
	return "arrears"
}

// ToDomain converts the persistence model to a domain Arrears entity.
func (m *ArrearsModel) ToDomain() *fees.Arrears {
	return &fees.Arrears{
		SchoolAggregateRoot: m.schoolAggregateRoot(),
		StudentID:           m.StudentID,
		TotalArrears:        m.TotalArrears,
		DaysOutstanding:     m.DaysOutstanding,
		FirstArrearsDate:    m.FirstArrearsDate,
		IsResolved:          m.IsResolved,
		ResolvedDate:        m.ResolvedDate,
	}
}

// FromDomain populates the persistence model from a domain Arrears entity.
func (m *ArrearsModel) FromDomain(a *fees.Arrears) {
	m.FromDomainSchoolAggregateRoot(a.SchoolAggregateRoot)
	m.StudentID = a.StudentID
	m.TotalArrears = a.TotalArrears
	m.DaysOutstanding = a.DaysOutstanding
	m.FirstArrearsDate = a.FirstArrearsDate
	m.IsResolved = a.IsResolved
	m.ResolvedDate = a.ResolvedDate
}

// ArrearsModelFromDomain creates a new persistence model from a domain Arrears entity.
func ArrearsModelFromDomain(a *fees.Arrears) *ArrearsModel {
	m := &ArrearsModel{}
	m.FromDomain(a)
	return m
}

// MobileMoneyTransactionModel is the persistence model for the
// MobileMoneyTransaction domain entity. The unique index on external_id is
// the final guard against duplicate gateway callbacks.
type MobileMoneyTransactionModel struct {
	SchoolAggregateModel
	ExternalID  string                 `gorm:"type:varchar(100);not null;uniqueIndex"`
	Amount      decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Phone       string                 `gorm:"type:varchar(20);not null;index"`
	Reference   string                 `gorm:"type:varchar(200)"`
	RawPayload  string                 `gorm:"type:text"`
	Status      fees.TransactionStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	InvoiceID   *uuid.UUID             `gorm:"type:uuid;index"`
	PaymentID   *uuid.UUID             `gorm:"type:uuid"`
	MatchNote   string                 `gorm:"type:text"`
	MatchedAt   *time.Time
	ProcessedAt *time.Time
	ReceivedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MobileMoneyTransactionModel) TableName() string {
	return "mobile_money_transactions"
}

// ToDomain converts the persistence model to a domain MobileMoneyTransaction entity.
func (m *MobileMoneyTransactionModel) ToDomain() *fees.MobileMoneyTransaction {
	return &fees.MobileMoneyTransaction{
		SchoolAggregateRoot: m.schoolAggregateRoot(),
		ExternalID:          m.ExternalID,
		Amount:              m.Amount,
		Phone:               valueobject.PhoneFromCanonical(m.Phone),
		Reference:           m.Reference,
		RawPayload:          m.RawPayload,
		Status:              m.Status,
		InvoiceID:           m.InvoiceID,
		PaymentID:           m.PaymentID,
		MatchNote:           m.MatchNote,
		MatchedAt:           m.MatchedAt,
		ProcessedAt:         m.ProcessedAt,
		ReceivedAt:          m.ReceivedAt,
	}
}

// FromDomain populates the persistence model from a domain MobileMoneyTransaction entity.
func (m *MobileMoneyTransactionModel) FromDomain(t *fees.MobileMoneyTransaction) {
	m.FromDomainSchoolAggregateRoot(t.SchoolAggregateRoot)
	m.ExternalID = t.ExternalID
	m.Amount = t.Amount
	m.Phone = t.Phone.Local()
	m.Reference = t.Reference
	m.RawPayload = t.RawPayload
	m.Status = t.Status
	m.InvoiceID = t.InvoiceID
	m.PaymentID = t.PaymentID
	m.MatchNote = t.MatchNote
	m.MatchedAt = t.MatchedAt
	m.ProcessedAt = t.ProcessedAt
	m.ReceivedAt = t.ReceivedAt
}

// MobileMoneyTransactionModelFromDomain creates a new persistence model from a domain MobileMoneyTransaction entity.
func MobileMoneyTransactionModelFromDomain(t *fees.MobileMoneyTransaction) *MobileMoneyTransactionModel {
	m := &MobileMoneyTransactionModel{}
	m.FromDomain(t)
	return m
}
