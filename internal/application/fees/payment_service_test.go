package fees

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

func servicePaymentInvoice(t *testing.T, total int64) *fees.Invoice {
	t.Helper()
	inv, err := fees.NewInvoice(
		uuid.New(), "INV-2026-TEST", uuid.New(), uuid.New(),
		valueobject.NewMoneyKES(decimal.NewFromInt(total)),
		time.Now().Add(14*24*time.Hour), nil,
	)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func newPaymentService(invoiceRepo *MockInvoiceRepository, paymentRepo *MockPaymentRepository, arrearsRepo *MockArrearsRepository) *PaymentService {
	return NewPaymentService(invoiceRepo, paymentRepo, arrearsRepo, fakeTxManager{}, nopPublisher{}, zap.NewNop())
}

func TestPaymentService_RecordPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("records completed payment and updates invoice", func(t *testing.T) {
		inv := servicePaymentInvoice(t, 5000)
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		arrearsRepo := new(MockArrearsRepository)

		invoiceRepo.On("FindByID", ctx, inv.ID).Return(inv, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*fees.Payment")).Return(nil)

		svc := newPaymentService(invoiceRepo, paymentRepo, arrearsRepo)
		payment, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			InvoiceID: inv.ID,
			Amount:    valueobject.NewMoneyKES(decimal.NewFromInt(2000)),
			Method:    fees.PaymentMethodCash,
		})

		require.NoError(t, err)
		assert.Equal(t, fees.PaymentStatusCompleted, payment.Status)
		assert.True(t, payment.Amount.Equal(decimal.NewFromInt(2000)))
		assert.Equal(t, fees.InvoiceStatusPartial, inv.Status)
		assert.True(t, inv.Balance.Equal(decimal.NewFromInt(3000)))
		invoiceRepo.AssertExpectations(t)
		paymentRepo.AssertExpectations(t)
	})

	t.Run("rejects overpayment before writing anything", func(t *testing.T) {
		inv := servicePaymentInvoice(t, 5000)
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		arrearsRepo := new(MockArrearsRepository)

		invoiceRepo.On("FindByID", ctx, inv.ID).Return(inv, nil)

		svc := newPaymentService(invoiceRepo, paymentRepo, arrearsRepo)
		_, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			InvoiceID: inv.ID,
			Amount:    valueobject.NewMoneyKES(decimal.NewFromInt(5001)),
			Method:    fees.PaymentMethodCash,
		})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "EXCEEDS_BALANCE", domainErr.Code)
		invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		paymentRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects non positive amount without loading the invoice", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		svc := newPaymentService(invoiceRepo, new(MockPaymentRepository), new(MockArrearsRepository))

		_, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			InvoiceID: uuid.New(),
			Amount:    valueobject.ZeroKES(),
			Method:    fees.PaymentMethodCash,
		})

		assert.Error(t, err)
		invoiceRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown invoice surfaces not found", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		invoiceID := uuid.New()
		invoiceRepo.On("FindByID", ctx, invoiceID).Return(nil, nil)

		svc := newPaymentService(invoiceRepo, new(MockPaymentRepository), new(MockArrearsRepository))
		_, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			InvoiceID: invoiceID,
			Amount:    valueobject.NewMoneyKES(decimal.NewFromInt(100)),
			Method:    fees.PaymentMethodCash,
		})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVOICE_NOT_FOUND", domainErr.Code)
	})

	t.Run("retries on version conflict with fresh state", func(t *testing.T) {
		invoiceID := uuid.New()
		first := servicePaymentInvoice(t, 5000)
		second := servicePaymentInvoice(t, 5000)

		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		arrearsRepo := new(MockArrearsRepository)

		invoiceRepo.On("FindByID", ctx, invoiceID).Return(first, nil).Once()
		invoiceRepo.On("FindByID", ctx, invoiceID).Return(second, nil).Once()
		invoiceRepo.On("SaveWithLock", mock.Anything, first).Return(shared.ErrConcurrencyConflict).Once()
		invoiceRepo.On("SaveWithLock", mock.Anything, second).Return(nil).Once()
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*fees.Payment")).Return(nil)

		svc := newPaymentService(invoiceRepo, paymentRepo, arrearsRepo)
		payment, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			InvoiceID: invoiceID,
			Amount:    valueobject.NewMoneyKES(decimal.NewFromInt(1000)),
			Method:    fees.PaymentMethodCash,
		})

		require.NoError(t, err)
		assert.NotNil(t, payment)
		invoiceRepo.AssertExpectations(t)
	})

	t.Run("gives up after bounded conflict retries", func(t *testing.T) {
		invoiceID := uuid.New()
		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)

		invoiceRepo.On("FindByID", ctx, invoiceID).Return(servicePaymentInvoice(t, 5000), nil).Once()
		invoiceRepo.On("FindByID", ctx, invoiceID).Return(servicePaymentInvoice(t, 5000), nil).Once()
		invoiceRepo.On("FindByID", ctx, invoiceID).Return(servicePaymentInvoice(t, 5000), nil).Once()
		invoiceRepo.On("SaveWithLock", mock.Anything, mock.Anything).Return(shared.ErrConcurrencyConflict).Times(3)

		svc := newPaymentService(invoiceRepo, paymentRepo, new(MockArrearsRepository))
		_, err := svc.RecordPayment(ctx, RecordPaymentRequest{
			InvoiceID: invoiceID,
			Amount:    valueobject.NewMoneyKES(decimal.NewFromInt(1000)),
			Method:    fees.PaymentMethodCash,
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		invoiceRepo.AssertExpectations(t)
	})

	t.Run("settling the invoice resolves open arrears", func(t *testing.T) {
		inv := servicePaymentInvoice(t, 5000)
		overdueInv, err := fees.NewInvoice(
			inv.SchoolID, "INV-OLD", inv.StudentID, uuid.New(),
			valueobject.NewMoneyKES(decimal.NewFromInt(5000)),
			time.Now().Add(-20*24*time.Hour), nil,
		)
		require.NoError(t, err)
		snap := fees.ComputeArrearsSnapshot([]*fees.Invoice{overdueInv}, time.Now())
		arrears, err := fees.NewArrears(inv.SchoolID, inv.StudentID, snap, time.Now())
		require.NoError(t, err)
		arrears.ClearDomainEvents()

		invoiceRepo := new(MockInvoiceRepository)
		paymentRepo := new(MockPaymentRepository)
		arrearsRepo := new(MockArrearsRepository)

		invoiceRepo.On("FindByID", ctx, inv.ID).Return(inv, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*fees.Payment")).Return(nil)
		arrearsRepo.On("FindByStudent", mock.Anything, inv.SchoolID, inv.StudentID).Return(arrears, nil)
		arrearsRepo.On("SaveWithLock", mock.Anything, arrears).Return(nil)

		svc := newPaymentService(invoiceRepo, paymentRepo, arrearsRepo)
		_, err = svc.RecordPayment(ctx, RecordPaymentRequest{
			InvoiceID: inv.ID,
			Amount:    valueobject.NewMoneyKES(decimal.NewFromInt(5000)),
			Method:    fees.PaymentMethodBankTransfer,
		})

		require.NoError(t, err)
		assert.True(t, arrears.IsResolved)
		arrearsRepo.AssertExpectations(t)
	})
}
