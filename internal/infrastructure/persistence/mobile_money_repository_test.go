package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/shared"
)

func newMockMobileMoneyRepository(t *testing.T) (*GormMobileMoneyTransactionRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormMobileMoneyTransactionRepository(gormDB), mock, mockDB
}

func mobileMoneyColumns() []string {
	return []string{"id", "school_id", "version", "external_id", "amount", "phone",
		"reference", "status", "received_at"}
}

func TestGormMobileMoneyTransactionRepository_FindByExternalID(t *testing.T) {
	t.Run("finds transaction by gateway receipt", func(t *testing.T) {
		repo, mock, mockDB := newMockMobileMoneyRepository(t)
		defer mockDB.Close()

		schoolID := uuid.New()

		rows := sqlmock.NewRows(mobileMoneyColumns()).
			AddRow(uuid.New(), schoolID, 1, "NLJ7RT61SV", decimal.NewFromInt(15000), "0712345678",
				"INV-2024-0001", fees.TransactionStatusPending, time.Now())

		mock.ExpectQuery(`SELECT \* FROM "mobile_money_transactions" WHERE external_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("NLJ7RT61SV", 1).
			WillReturnRows(rows)

		txn, err := repo.FindByExternalID(context.Background(), "NLJ7RT61SV")

		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, "NLJ7RT61SV", txn.ExternalID)
		assert.Equal(t, "0712345678", txn.Phone.Local())
		assert.Equal(t, "254712345678", txn.Phone.MSISDN())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil for unseen receipt", func(t *testing.T) {
		repo, mock, mockDB := newMockMobileMoneyRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "mobile_money_transactions"`).
			WillReturnError(gorm.ErrRecordNotFound)

		txn, err := repo.FindByExternalID(context.Background(), "UNSEEN123")

		assert.NoError(t, err)
		assert.Nil(t, txn)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMobileMoneyTransactionRepository_FindUnmatched(t *testing.T) {
	t.Run("pages unmatched transactions oldest first", func(t *testing.T) {
		repo, mock, mockDB := newMockMobileMoneyRepository(t)
		defer mockDB.Close()

		schoolID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "mobile_money_transactions" WHERE school_id = \$1 AND status = \$2`).
			WithArgs(schoolID, fees.TransactionStatusUnmatched).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		rows := sqlmock.NewRows(mobileMoneyColumns()).
			AddRow(uuid.New(), schoolID, 1, "QDX81LM204", decimal.NewFromInt(7500), "0722000111",
				"UNKNOWN-REF", fees.TransactionStatusUnmatched, time.Now().Add(-2*time.Hour))

		mock.ExpectQuery(`SELECT \* FROM "mobile_money_transactions" WHERE school_id = \$1 AND status = \$2 ORDER BY received_at ASC LIMIT .*`).
			WithArgs(schoolID, fees.TransactionStatusUnmatched, 20).
			WillReturnRows(rows)

		page, err := repo.FindUnmatched(context.Background(), schoolID, shared.Filter{Page: 1, PageSize: 20})

		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		require.Len(t, page.Items, 1)
		assert.Equal(t, fees.TransactionStatusUnmatched, page.Items[0].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMobileMoneyTransactionRepository_InterfaceCompliance(t *testing.T) {
	repo, _, mockDB := newMockMobileMoneyRepository(t)
	defer mockDB.Close()

	var _ fees.MobileMoneyTransactionRepository = repo
}
