package fees

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/people"
	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// =============================================================================
// Mock repositories shared across the fee application service tests
// =============================================================================

type MockTermRepository struct {
	mock.Mock
}

func (m *MockTermRepository) Save(ctx context.Context, term *fees.Term) error {
	args := m.Called(ctx, term)
	return args.Error(0)
}

func (m *MockTermRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.Term, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.Term), args.Error(1)
}

func (m *MockTermRepository) FindActive(ctx context.Context, schoolID uuid.UUID) ([]*fees.Term, error) {
	args := m.Called(ctx, schoolID)
	return args.Get(0).([]*fees.Term), args.Error(1)
}

func (m *MockTermRepository) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Term], error) {
	args := m.Called(ctx, schoolID, filter)
	return args.Get(0).(shared.Paginated[*fees.Term]), args.Error(1)
}

type MockFeeStructureRepository struct {
	mock.Mock
}

func (m *MockFeeStructureRepository) Save(ctx context.Context, fs *fees.FeeStructure) error {
	args := m.Called(ctx, fs)
	return args.Error(0)
}

func (m *MockFeeStructureRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.FeeStructure, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.FeeStructure), args.Error(1)
}

func (m *MockFeeStructureRepository) FindActiveByTerm(ctx context.Context, schoolID, termID uuid.UUID, classID *uuid.UUID) ([]*fees.FeeStructure, error) {
	args := m.Called(ctx, schoolID, termID, classID)
	return args.Get(0).([]*fees.FeeStructure), args.Error(1)
}

func (m *MockFeeStructureRepository) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.FeeStructure], error) {
	args := m.Called(ctx, schoolID, filter)
	return args.Get(0).(shared.Paginated[*fees.FeeStructure]), args.Error(1)
}

func (m *MockFeeStructureRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockFeeOverrideRepository struct {
	mock.Mock
}

func (m *MockFeeOverrideRepository) Save(ctx context.Context, o *fees.StudentFeeOverride) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockFeeOverrideRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.StudentFeeOverride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.StudentFeeOverride), args.Error(1)
}

func (m *MockFeeOverrideRepository) FindForGeneration(ctx context.Context, studentID, termID, feeStructureID uuid.UUID) (*fees.StudentFeeOverride, error) {
	args := m.Called(ctx, studentID, termID, feeStructureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.StudentFeeOverride), args.Error(1)
}

func (m *MockFeeOverrideRepository) FindByTerm(ctx context.Context, schoolID, termID uuid.UUID) ([]*fees.StudentFeeOverride, error) {
	args := m.Called(ctx, schoolID, termID)
	return args.Get(0).([]*fees.StudentFeeOverride), args.Error(1)
}

func (m *MockFeeOverrideRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Save(ctx context.Context, inv *fees.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, inv *fees.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, schoolID uuid.UUID, invoiceNumber string) (*fees.Invoice, error) {
	args := m.Called(ctx, schoolID, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ExistsForStudentTerm(ctx context.Context, studentID, termID uuid.UUID) (bool, error) {
	args := m.Called(ctx, studentID, termID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) FindOpenByStudents(ctx context.Context, schoolID uuid.UUID, studentIDs []uuid.UUID) ([]*fees.Invoice, error) {
	args := m.Called(ctx, schoolID, studentIDs)
	return args.Get(0).([]*fees.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindPastDueByStudent(ctx context.Context, studentID uuid.UUID, before time.Time) ([]*fees.Invoice, error) {
	args := m.Called(ctx, studentID, before)
	return args.Get(0).([]*fees.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByStudent(ctx context.Context, studentID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Invoice], error) {
	args := m.Called(ctx, studentID, filter)
	return args.Get(0).(shared.Paginated[*fees.Invoice]), args.Error(1)
}

func (m *MockInvoiceRepository) StudentIDsWithInvoices(ctx context.Context, schoolID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, schoolID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockInvoiceRepository) CountByTerm(ctx context.Context, schoolID, termID uuid.UUID) (int64, error) {
	args := m.Called(ctx, schoolID, termID)
	return args.Get(0).(int64), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Save(ctx context.Context, p *fees.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*fees.Payment, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]*fees.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByReference(ctx context.Context, schoolID uuid.UUID, reference string) (*fees.Payment, error) {
	args := m.Called(ctx, schoolID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.Payment), args.Error(1)
}

func (m *MockPaymentRepository) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Payment], error) {
	args := m.Called(ctx, schoolID, filter)
	return args.Get(0).(shared.Paginated[*fees.Payment]), args.Error(1)
}

type MockArrearsRepository struct {
	mock.Mock
}

func (m *MockArrearsRepository) Save(ctx context.Context, a *fees.Arrears) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockArrearsRepository) SaveWithLock(ctx context.Context, a *fees.Arrears) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockArrearsRepository) FindByStudent(ctx context.Context, schoolID, studentID uuid.UUID) (*fees.Arrears, error) {
	args := m.Called(ctx, schoolID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.Arrears), args.Error(1)
}

func (m *MockArrearsRepository) FindUnresolved(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Arrears], error) {
	args := m.Called(ctx, schoolID, filter)
	return args.Get(0).(shared.Paginated[*fees.Arrears]), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Save(ctx context.Context, t *fees.MobileMoneyTransaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.MobileMoneyTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.MobileMoneyTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByExternalID(ctx context.Context, externalID string) (*fees.MobileMoneyTransaction, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fees.MobileMoneyTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindUnmatched(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.MobileMoneyTransaction], error) {
	args := m.Called(ctx, schoolID, filter)
	return args.Get(0).(shared.Paginated[*fees.MobileMoneyTransaction]), args.Error(1)
}

type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) Save(ctx context.Context, student *people.Student) error {
	args := m.Called(ctx, student)
	return args.Error(0)
}

func (m *MockStudentRepository) SaveWithLock(ctx context.Context, student *people.Student) error {
	args := m.Called(ctx, student)
	return args.Error(0)
}

func (m *MockStudentRepository) FindByID(ctx context.Context, id uuid.UUID) (*people.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*people.Student), args.Error(1)
}

func (m *MockStudentRepository) FindByAdmissionNumber(ctx context.Context, schoolID uuid.UUID, admissionNumber string) (*people.Student, error) {
	args := m.Called(ctx, schoolID, admissionNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*people.Student), args.Error(1)
}

func (m *MockStudentRepository) FindActive(ctx context.Context, schoolID uuid.UUID, classID *uuid.UUID) ([]*people.Student, error) {
	args := m.Called(ctx, schoolID, classID)
	return args.Get(0).([]*people.Student), args.Error(1)
}

func (m *MockStudentRepository) FindByGuardianPhone(ctx context.Context, schoolID uuid.UUID, phone valueobject.Phone) ([]*people.Student, error) {
	args := m.Called(ctx, schoolID, phone)
	return args.Get(0).([]*people.Student), args.Error(1)
}

func (m *MockStudentRepository) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*people.Student], error) {
	args := m.Called(ctx, schoolID, filter)
	return args.Get(0).(shared.Paginated[*people.Student]), args.Error(1)
}

func (m *MockStudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// =============================================================================
// Supporting fakes
// =============================================================================

// fakeTxManager runs the function inline; the repositories under test are
// mocks, so there is no real transaction to manage.
type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// nopPublisher accepts any events without recording expectations
type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return nil
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, id, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
