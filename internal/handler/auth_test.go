package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/config"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/repository"
)

var testCfg = config.Config{
	JWTSecret:      "unit-test-secret",
	AccessTTLMin:   15,
	RefreshTTLDays: 30,
	BcryptCost:     bcrypt.MinCost,
}

// newJSONContext builds an echo context carrying a JSON body.
func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAuthHandler(testCfg, repository.NewDoctorRepo(db), repository.NewTokenRepo(db)), mock
}

var doctorCols = []string{
	"id", "email", "password_hash", "full_name", "specialization",
	"signature_url", "created_at", "updated_at",
}

func doctorRowWithPassword(t *testing.T, id uint64, email, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	return sqlmock.NewRows(doctorCols).
		AddRow(id, email, string(hash), "Petrova Anna", "cardiology", nil, now, now)
}

func TestRegisterMissingFields(t *testing.T) {
	h, mock := newAuthHandler(t)

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/register", `{"email":"doc@clinic.ru"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email/password/full_name required")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec("INSERT INTO doctors").
		WillReturnError(errDuplicate{})

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/register",
		`{"email":"doc@clinic.ru","password":"pass","full_name":"Petrova Anna"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type errDuplicate struct{}

func (errDuplicate) Error() string { return "Error 1062 (23000): Duplicate entry" }

func TestLoginSuccess(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE email=\\? LIMIT 1").
		WithArgs("doc@clinic.ru").
		WillReturnRows(doctorRowWithPassword(t, 3, "doc@clinic.ru", "correct-pass"))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/login",
		`{"email":"Doc@Clinic.RU","password":"correct-pass"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"access"`)
	assert.Contains(t, body, `"refresh"`)
	// The bcrypt hash must never leak in the response.
	assert.NotContains(t, body, "password_hash")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE email=\\? LIMIT 1").
		WithArgs("doc@clinic.ru").
		WillReturnRows(doctorRowWithPassword(t, 3, "doc@clinic.ru", "correct-pass"))

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/login",
		`{"email":"doc@clinic.ru","password":"wrong-pass"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownEmail(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE email=\\? LIMIT 1").
		WithArgs("ghost@clinic.ru").
		WillReturnRows(sqlmock.NewRows(doctorCols))

	c, rec := newJSONContext(http.MethodPost, "/v1/auth/login",
		`{"email":"ghost@clinic.ru","password":"whatever"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePasswordWrongOld(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE id=\\? LIMIT 1").
		WithArgs(uint64(3)).
		WillReturnRows(doctorRowWithPassword(t, 3, "doc@clinic.ru", "correct-pass"))

	c, rec := newJSONContext(http.MethodPost, "/v1/change-password",
		`{"old_password":"wrong","new_password":"next-pass"}`)
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "wrong old password")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeUnauthorized(t *testing.T) {
	h, _ := newAuthHandler(t)

	c, rec := newJSONContext(http.MethodGet, "/v1/me", "")
	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
