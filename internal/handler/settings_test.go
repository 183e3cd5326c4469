package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/repository"
)

func newSettingsHandler(t *testing.T) (*SettingsHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSettingsHandler(
		repository.NewNormRepo(db),
		repository.NewNormTableRepo(db),
		repository.NewTemplateRepo(db),
		repository.NewInputSettingsRepo(db),
		repository.NewClinicSettingsRepo(db),
	), mock
}

func TestSaveNormAppliesConditionDefaults(t *testing.T) {
	h, mock := newSettingsHandler(t)

	// Omitted condition fields collapse to the catch-all key.
	mock.ExpectExec("ON DUPLICATE KEY UPDATE").
		WithArgs(uint64(3), "echo", "lv_edd", "default", "all", 4.0, 5.6).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := newJSONContext(http.MethodPost, "/v1/settings/norms",
		`{"study_type":"echo","parameter_id":"lv_edd","min_value":4.0,"max_value":5.6}`)
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.SaveNorm(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNormForeignDoctorID(t *testing.T) {
	h, _ := newSettingsHandler(t)

	// A payload naming a different doctor than the token is rejected
	// before any SQL runs.
	c, rec := newJSONContext(http.MethodPost, "/v1/settings/norms",
		`{"doctor_id":99,"study_type":"echo","parameter_id":"lv_edd"}`)
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.SaveNorm(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSaveNormTableRejectsUnknownCategory(t *testing.T) {
	h, _ := newSettingsHandler(t)

	c, rec := newJSONContext(http.MethodPost, "/v1/settings/norm-tables",
		`{"study_type":"echo","parameter":"lv_edd","category":"alien","norm_type":"age","rows":[]}`)
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.SaveNormTable(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid category")
}

func TestParseTableID(t *testing.T) {
	cases := []struct {
		raw    string
		id     uint64
		insert bool
	}{
		{"", 0, true},
		{"new", 0, true},
		{"0", 0, true},
		{"abc", 0, true},
		{"17", 17, false},
		{" 17 ", 17, false},
	}
	for _, tc := range cases {
		id, insert := parseTableID(tc.raw)
		assert.Equal(t, tc.id, id, "raw=%q", tc.raw)
		assert.Equal(t, tc.insert, insert, "raw=%q", tc.raw)
	}
}

func TestSettingsDeleteUnknownResource(t *testing.T) {
	h, _ := newSettingsHandler(t)

	c, rec := newJSONContext(http.MethodDelete, "/v1/settings/clinic/5", "")
	c.SetParamNames("resource", "id")
	c.SetParamValues("clinic", "5")
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsDeleteScopedToOwner(t *testing.T) {
	h, mock := newSettingsHandler(t)

	// Deleting someone else's norm affects zero rows and maps to 404,
	// indistinguishable from a norm that never existed.
	mock.ExpectExec("DELETE FROM doctor_norms WHERE id=\\? AND doctor_id=\\?").
		WithArgs(uint64(42), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, rec := newJSONContext(http.MethodDelete, "/v1/settings/norms/42", "")
	c.SetParamNames("resource", "id")
	c.SetParamValues("norms", "42")
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsDeleteNormTable(t *testing.T) {
	h, mock := newSettingsHandler(t)

	mock.ExpectExec("DELETE FROM norm_tables WHERE id=\\? AND doctor_id=\\?").
		WithArgs(uint64(7), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newJSONContext(http.MethodDelete, "/v1/settings/norm-tables/7", "")
	c.SetParamNames("resource", "id")
	c.SetParamValues("norm-tables", "7")
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
