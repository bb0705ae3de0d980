package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/transfer"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func newTransfer(t *testing.T) *transfer.Transfer {
	t.Helper()
	tr, err := transfer.New(
		uuid.New(), uuid.New(),
		decimal.RequireFromString("1200.50"),
		"Acme Supplies", nil, 3,
		decimal.RequireFromString("25.00"),
	)
	require.NoError(t, err)
	return tr
}

func TestTransferRepo_Create(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := transferRepo{db: db}
	tr := newTransfer(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "transfers" (.+) VALUES (.+)`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(repo.Create(context.Background(), tr))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "transfers" (.+) VALUES (.+)`).
		WillReturnError(errors.New("create error"))
	mock.ExpectRollback()

	require.Error(repo.Create(context.Background(), tr))
}

func TestTransferRepo_Get(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	db, mock := newMockDB(t)
	repo := transferRepo{db: db}
	id := uuid.New()
	userID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "user_id", "loan_id", "amount", "recipient", "status", "progress_percent", "required_codes", "codes_validated", "version", "created_at", "updated_at"}).
		AddRow(id, userID, uuid.New(), "1200.50", "Acme Supplies", "pending", 10, 3, 0, 0, time.Now().UTC(), time.Now().UTC())
	mock.ExpectQuery(`SELECT (.+) FROM "transfers" WHERE id = \$1`).
		WithArgs(id, 1).WillReturnRows(rows)

	got, err := repo.Get(context.Background(), id)
	require.NoError(err)
	assert.Equal(id, got.ID)
	assert.Equal(transfer.StatusPending, got.Status)
	assert.Equal(10, got.ProgressPercent)

	mock.ExpectQuery(`SELECT (.+) FROM "transfers" WHERE id = \$1`).
		WithArgs(sqlmock.AnyArg(), 1).WillReturnError(gorm.ErrRecordNotFound)

	_, err = repo.Get(context.Background(), uuid.New())
	require.ErrorIs(err, domain.ErrTransferNotFound)
}

func TestTransferRepo_Update_VersionCheck(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := transferRepo{db: db}
	tr := newTransfer(t)
	tr.Version = 2

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "transfers" SET (.+) WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(repo.Update(context.Background(), tr))
	require.Equal(3, tr.Version)

	// A concurrent writer already bumped the row past the version we
	// read, so no rows match the guard.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "transfers" SET (.+) WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), tr)
	require.ErrorIs(err, domain.ErrStaleTransfer)
}

func TestCodeRepo_ActiveForSequence_NoneIsNil(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := codeRepo{db: db}

	mock.ExpectQuery(`SELECT (.+) FROM "validation_codes" WHERE transfer_id = \$1 AND sequence = \$2`).
		WithArgs(sqlmock.AnyArg(), 1, "step", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	code, err := repo.ActiveForSequence(context.Background(), uuid.New(), 1)
	require.NoError(err)
	require.Nil(code)
}

func TestSettingsRepo_Get_Missing(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := settingsRepo{db: db}

	mock.ExpectQuery(`SELECT (.+) FROM "settings" WHERE key = \$1`).
		WithArgs("transfer_validation_count", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.Get(context.Background(), "transfer_validation_count")
	require.ErrorIs(err, domain.ErrSettingNotFound)
}
