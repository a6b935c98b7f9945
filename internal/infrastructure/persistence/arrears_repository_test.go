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

func newMockArrearsRepository(t *testing.T) (*GormArrearsRepository, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormArrearsRepository(gormDB), mock, mockDB
}

func arrearsColumns() []string {
	return []string{"id", "school_id", "version", "student_id", "total_arrears",
		"days_outstanding", "first_arrears_date", "is_resolved"}
}

func TestGormArrearsRepository_FindByStudent(t *testing.T) {
	t.Run("finds arrears row for student", func(t *testing.T) {
		repo, mock, mockDB := newMockArrearsRepository(t)
		defer mockDB.Close()

		schoolID := uuid.New()
		studentID := uuid.New()

		rows := sqlmock.NewRows(arrearsColumns()).
			AddRow(uuid.New(), schoolID, 2, studentID, decimal.NewFromInt(12500), 45,
				time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false)

		mock.ExpectQuery(`SELECT \* FROM "arrears" WHERE school_id = \$1 AND student_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(schoolID, studentID, 1).
			WillReturnRows(rows)

		a, err := repo.FindByStudent(context.Background(), schoolID, studentID)

		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, studentID, a.StudentID)
		assert.Equal(t, 45, a.DaysOutstanding)
		assert.False(t, a.IsResolved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil for student never in arrears", func(t *testing.T) {
		repo, mock, mockDB := newMockArrearsRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "arrears"`).
			WillReturnError(gorm.ErrRecordNotFound)

		a, err := repo.FindByStudent(context.Background(), uuid.New(), uuid.New())

		assert.NoError(t, err)
		assert.Nil(t, a)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormArrearsRepository_SaveWithLock(t *testing.T) {
	newArrears := func(t *testing.T) *fees.Arrears {
		t.Helper()
		snap := fees.ArrearsSnapshot{
			Total:           decimal.NewFromInt(12500),
			EarliestDue:     time.Now().AddDate(0, 0, -45),
			DaysOutstanding: 45,
		}
		a, err := fees.NewArrears(uuid.New(), uuid.New(), snap, time.Now())
		require.NoError(t, err)
		return a
	}

	t.Run("writes resolved row with zero totals", func(t *testing.T) {
		repo, mock, mockDB := newMockArrearsRepository(t)
		defer mockDB.Close()

		a := newArrears(t)
		a.ApplySnapshot(fees.ArrearsSnapshot{Total: decimal.Zero}, time.Now())
		require.True(t, a.IsResolved)

		mock.ExpectExec(`UPDATE "arrears" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SaveWithLock(context.Background(), a))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns conflict on stale version", func(t *testing.T) {
		repo, mock, mockDB := newMockArrearsRepository(t)
		defer mockDB.Close()

		a := newArrears(t)
		a.IncrementVersion()

		mock.ExpectExec(`UPDATE "arrears" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), a)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormArrearsRepository_FindUnresolved(t *testing.T) {
	t.Run("pages unresolved rows oldest debt first", func(t *testing.T) {
		repo, mock, mockDB := newMockArrearsRepository(t)
		defer mockDB.Close()

		schoolID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "arrears" WHERE school_id = \$1 AND is_resolved = \$2`).
			WithArgs(schoolID, false).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		rows := sqlmock.NewRows(arrearsColumns()).
			AddRow(uuid.New(), schoolID, 1, uuid.New(), decimal.NewFromInt(20000), 90,
				time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false).
			AddRow(uuid.New(), schoolID, 1, uuid.New(), decimal.NewFromInt(5000), 10,
				time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), false)

		mock.ExpectQuery(`SELECT \* FROM "arrears" WHERE school_id = \$1 AND is_resolved = \$2 ORDER BY days_outstanding DESC LIMIT .*`).
			WithArgs(schoolID, false, 20).
			WillReturnRows(rows)

		page, err := repo.FindUnresolved(context.Background(), schoolID, shared.Filter{Page: 1, PageSize: 20})

		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, 90, page.Items[0].DaysOutstanding)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormArrearsRepository_InterfaceCompliance(t *testing.T) {
	repo, _, mockDB := newMockArrearsRepository(t)
	defer mockDB.Close()

	var _ fees.ArrearsRepository = repo
}
