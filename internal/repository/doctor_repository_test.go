package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

func TestDoctorCreateNormalizesEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO doctors").
		WithArgs("doc@clinic.ru", sqlmock.AnyArg(), "Petrova Anna", "cardiology").
		WillReturnResult(sqlmock.NewResult(12, 1))

	id, err := NewDoctorRepo(db).Create(context.Background(),
		"  Doc@Clinic.RU ", "password", "Petrova Anna", "cardiology", bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDoctorCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO doctors").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'doc@clinic.ru' for key 'doctors.email'"))

	_, err = NewDoctorRepo(db).Create(context.Background(),
		"doc@clinic.ru", "password", "Petrova Anna", "", bcrypt.MinCost)
	assert.Equal(t, ErrEmailExists, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormUpsertReusesRowID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	minV, maxV := 1.5, 3.5
	// LAST_INSERT_ID(id) makes the duplicate-key path report the
	// existing row's id instead of 0.
	mock.ExpectExec("ON DUPLICATE KEY UPDATE").
		WithArgs(uint64(3), "echo", "lv_edd", "default", "all", 1.5, 3.5).
		WillReturnResult(sqlmock.NewResult(42, 2))

	id, err := NewNormRepo(db).Upsert(context.Background(), model.Norm{
		DoctorID:       3,
		StudyType:      "echo",
		ParameterID:    "lv_edd",
		ConditionType:  "default",
		ConditionValue: "all",
		MinValue:       &minV,
		MaxValue:       &maxV,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormDeleteScopedToOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM doctor_norms WHERE id=\\? AND doctor_id=\\?").
		WithArgs(uint64(42), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewNormRepo(db).Delete(context.Background(), 42, 9)
	assert.Equal(t, ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
