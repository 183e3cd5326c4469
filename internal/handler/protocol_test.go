package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/repository"
)

func newProtocolHandler(t *testing.T) (*ProtocolHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProtocolHandler(repository.NewProtocolRepo(db)), mock
}

const validProtocolBody = `{
	"study_type": "echo",
	"patient_name": "Ivanov Ivan",
	"patient_gender": "male",
	"patient_birth_date": "1980-03-15",
	"patient_weight": 70,
	"patient_height": 170,
	"study_date": "2020-03-15",
	"results": {"lv": {"edd": 50}},
	"conclusion": "normal study"
}`

func TestProtocolCreateNamesFirstMissingField(t *testing.T) {
	h, _ := newProtocolHandler(t)

	// Both patient_name and conclusion are absent; the error must name
	// patient_name because it comes first in the required order.
	c, rec := newJSONContext(http.MethodPost, "/v1/protocols", `{
		"study_type": "echo",
		"patient_gender": "male",
		"patient_birth_date": "1980-03-15",
		"study_date": "2020-03-15",
		"results": {}
	}`)
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required field: patient_name")
}

func TestProtocolCreateDerivesAgeAndBSA(t *testing.T) {
	h, mock := newProtocolHandler(t)

	mock.ExpectExec("INSERT INTO protocols").
		WithArgs(uint64(3), "echo", "Ivanov Ivan", "male", "1980-03-15",
			[]byte(`{"years":40,"months":0,"days":0}`), 70.0, 170.0, 1.82, nil,
			"2020-03-15", []byte(`{"lv": {"edd": 50}}`), nil, "normal study", false).
		WillReturnResult(sqlmock.NewResult(11, 1))

	c, rec := newJSONContext(http.MethodPost, "/v1/protocols", validProtocolBody)
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID uint64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(11), resp.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProtocolCreateUnauthorized(t *testing.T) {
	h, _ := newProtocolHandler(t)

	c, rec := newJSONContext(http.MethodPost, "/v1/protocols", validProtocolBody)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtocolUpdateForeignRecord(t *testing.T) {
	h, mock := newProtocolHandler(t)

	mock.ExpectQuery("SELECT doctor_id FROM protocols WHERE id=\\? LIMIT 1").
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"doctor_id"}).AddRow(5))

	c, rec := newJSONContext(http.MethodPut, "/v1/protocols/9", `{"signed": true}`)
	c.SetParamNames("id")
	c.SetParamValues("9")
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProtocolDeleteMissing(t *testing.T) {
	h, mock := newProtocolHandler(t)

	mock.ExpectQuery("SELECT doctor_id FROM protocols WHERE id=\\? LIMIT 1").
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"doctor_id"}))

	c, rec := newJSONContext(http.MethodDelete, "/v1/protocols/404", "")
	c.SetParamNames("id")
	c.SetParamValues("404")
	c.Set("doctor_id", uint64(3))
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildPatchPresenceSemantics(t *testing.T) {
	var present map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{
		"signed": false,
		"conclusion": "revised",
		"results_min_max": null
	}`), &present))

	patch, err := buildPatch(present)
	require.NoError(t, err)
	// Explicit false is a real update, not an omission.
	require.NotNil(t, patch.Signed)
	assert.False(t, *patch.Signed)
	require.NotNil(t, patch.Conclusion)
	assert.Equal(t, "revised", *patch.Conclusion)
	// Explicit null for results_min_max means "clear the stored ranges".
	assert.Equal(t, "null", string(patch.ResultsMinMax))
	// Untouched fields stay nil.
	assert.Nil(t, patch.PatientName)
	assert.Nil(t, patch.Results)
}

func TestBuildPatchRejectsNullResults(t *testing.T) {
	var present map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{"results": null}`), &present))

	_, err := buildPatch(present)
	assert.Error(t, err)
}
