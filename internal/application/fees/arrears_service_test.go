package fees

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

func overdueInvoiceFor(t *testing.T, schoolID, studentID uuid.UUID, total int64, daysLate int) *fees.Invoice {
	t.Helper()
	inv, err := fees.NewInvoice(
		schoolID, "INV-"+uuid.NewString()[:8], studentID, uuid.New(),
		valueobject.NewMoneyKES(decimal.NewFromInt(total)),
		time.Now().Add(-time.Duration(daysLate)*24*time.Hour), nil,
	)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func newArrearsService(invoiceRepo *MockInvoiceRepository, arrearsRepo *MockArrearsRepository) *ArrearsService {
	return NewArrearsService(invoiceRepo, arrearsRepo, fakeTxManager{}, nopPublisher{}, zap.NewNop())
}

func TestArrearsService_RecomputeForStudent(t *testing.T) {
	ctx := context.Background()
	schoolID := uuid.New()
	studentID := uuid.New()

	t.Run("creates arrears row and marks invoices overdue", func(t *testing.T) {
		inv1 := overdueInvoiceFor(t, schoolID, studentID, 5000, 20)
		inv2 := overdueInvoiceFor(t, schoolID, studentID, 3000, 5)

		invoiceRepo := new(MockInvoiceRepository)
		arrearsRepo := new(MockArrearsRepository)
		invoiceRepo.On("FindPastDueByStudent", ctx, studentID, mock.AnythingOfType("time.Time")).Return([]*fees.Invoice{inv1, inv2}, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*fees.Invoice")).Return(nil)
		arrearsRepo.On("FindByStudent", ctx, schoolID, studentID).Return(nil, nil)

		var saved *fees.Arrears
		arrearsRepo.On("Save", mock.Anything, mock.AnythingOfType("*fees.Arrears")).Run(func(args mock.Arguments) {
			saved = args.Get(1).(*fees.Arrears)
		}).Return(nil)

		svc := newArrearsService(invoiceRepo, arrearsRepo)
		result, err := svc.RecomputeForStudent(ctx, schoolID, studentID)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.True(t, saved.TotalArrears.Equal(decimal.NewFromInt(8000)))
		assert.Equal(t, 20, saved.DaysOutstanding)
		assert.False(t, saved.IsResolved)
		assert.Equal(t, fees.InvoiceStatusOverdue, inv1.Status)
		assert.Equal(t, fees.InvoiceStatusOverdue, inv2.Status)
	})

	t.Run("no overdue invoices resolves an existing row", func(t *testing.T) {
		old := overdueInvoiceFor(t, schoolID, studentID, 5000, 20)
		snap := fees.ComputeArrearsSnapshot([]*fees.Invoice{old}, time.Now())
		existing, err := fees.NewArrears(schoolID, studentID, snap, time.Now())
		require.NoError(t, err)
		existing.ClearDomainEvents()

		invoiceRepo := new(MockInvoiceRepository)
		arrearsRepo := new(MockArrearsRepository)
		invoiceRepo.On("FindPastDueByStudent", ctx, studentID, mock.AnythingOfType("time.Time")).Return([]*fees.Invoice{}, nil)
		arrearsRepo.On("FindByStudent", ctx, schoolID, studentID).Return(existing, nil)
		arrearsRepo.On("SaveWithLock", mock.Anything, existing).Return(nil)

		svc := newArrearsService(invoiceRepo, arrearsRepo)
		result, err := svc.RecomputeForStudent(ctx, schoolID, studentID)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.True(t, result.IsResolved)
		assert.NotNil(t, result.ResolvedDate)
	})

	t.Run("no overdue invoices and no row is a no-op", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		arrearsRepo := new(MockArrearsRepository)
		invoiceRepo.On("FindPastDueByStudent", ctx, studentID, mock.AnythingOfType("time.Time")).Return([]*fees.Invoice{}, nil)
		arrearsRepo.On("FindByStudent", ctx, schoolID, studentID).Return(nil, nil)

		svc := newArrearsService(invoiceRepo, arrearsRepo)
		result, err := svc.RecomputeForStudent(ctx, schoolID, studentID)

		require.NoError(t, err)
		assert.Nil(t, result)
		arrearsRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("already overdue invoices are not saved again", func(t *testing.T) {
		inv := overdueInvoiceFor(t, schoolID, studentID, 5000, 20)
		require.NoError(t, inv.MarkOverdue(time.Now()))
		inv.ClearDomainEvents()

		invoiceRepo := new(MockInvoiceRepository)
		arrearsRepo := new(MockArrearsRepository)
		invoiceRepo.On("FindPastDueByStudent", ctx, studentID, mock.AnythingOfType("time.Time")).Return([]*fees.Invoice{inv}, nil)
		arrearsRepo.On("FindByStudent", ctx, schoolID, studentID).Return(nil, nil)
		arrearsRepo.On("Save", mock.Anything, mock.AnythingOfType("*fees.Arrears")).Return(nil)

		svc := newArrearsService(invoiceRepo, arrearsRepo)
		_, err := svc.RecomputeForStudent(ctx, schoolID, studentID)

		require.NoError(t, err)
		invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestArrearsService_RecomputeAll(t *testing.T) {
	ctx := context.Background()
	schoolID := uuid.New()

	t.Run("per student failures do not abort the batch", func(t *testing.T) {
		okStudent := uuid.New()
		badStudent := uuid.New()
		inv := overdueInvoiceFor(t, schoolID, okStudent, 4000, 10)

		invoiceRepo := new(MockInvoiceRepository)
		arrearsRepo := new(MockArrearsRepository)
		invoiceRepo.On("StudentIDsWithInvoices", ctx, schoolID).Return([]uuid.UUID{badStudent, okStudent}, nil)

		invoiceRepo.On("FindPastDueByStudent", ctx, badStudent, mock.AnythingOfType("time.Time")).Return([]*fees.Invoice{}, errors.New("connection reset"))
		invoiceRepo.On("FindPastDueByStudent", ctx, okStudent, mock.AnythingOfType("time.Time")).Return([]*fees.Invoice{inv}, nil)
		invoiceRepo.On("SaveWithLock", mock.Anything, inv).Return(nil)
		arrearsRepo.On("FindByStudent", ctx, schoolID, badStudent).Return(nil, nil)
		arrearsRepo.On("FindByStudent", ctx, schoolID, okStudent).Return(nil, nil)
		arrearsRepo.On("Save", mock.Anything, mock.AnythingOfType("*fees.Arrears")).Return(nil)

		svc := newArrearsService(invoiceRepo, arrearsRepo)
		result, err := svc.RecomputeAll(ctx, schoolID)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Students)
		assert.Equal(t, 1, result.Created)
		assert.Len(t, result.Errors, 1)
	})

	t.Run("counts resolutions", func(t *testing.T) {
		studentID := uuid.New()
		old := overdueInvoiceFor(t, schoolID, studentID, 5000, 15)
		snap := fees.ComputeArrearsSnapshot([]*fees.Invoice{old}, time.Now())
		existing, err := fees.NewArrears(schoolID, studentID, snap, time.Now())
		require.NoError(t, err)
		existing.ClearDomainEvents()

		invoiceRepo := new(MockInvoiceRepository)
		arrearsRepo := new(MockArrearsRepository)
		invoiceRepo.On("StudentIDsWithInvoices", ctx, schoolID).Return([]uuid.UUID{studentID}, nil)
		invoiceRepo.On("FindPastDueByStudent", ctx, studentID, mock.AnythingOfType("time.Time")).Return([]*fees.Invoice{}, nil)
		arrearsRepo.On("FindByStudent", ctx, schoolID, studentID).Return(existing, nil)
		arrearsRepo.On("SaveWithLock", mock.Anything, existing).Return(nil)

		svc := newArrearsService(invoiceRepo, arrearsRepo)
		result, err := svc.RecomputeAll(ctx, schoolID)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Resolved)
	})
}
