package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/repository"
)

// GetNorms handles GET /v1/settings/norms.  The optional study_type
// query parameter narrows the result to one study; rows come back
// ordered by (study_type, parameter_id).
func (h *SettingsHandler) GetNorms(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	studyType := strings.TrimSpace(c.QueryParam("study_type"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	norms, err := h.Norms.ListByDoctor(ctx, doctorID, studyType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"norms": norms})
}

// SaveNorm handles POST /v1/settings/norms: an upsert keyed on
// (doctor, study_type, parameter_id, condition_type, condition_value).
// Saving an existing key overwrites only the min/max bounds.
func (h *SettingsHandler) SaveNorm(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		DoctorID       uint64   `json:"doctor_id"`
		StudyType      string   `json:"study_type"`
		ParameterID    string   `json:"parameter_id"`
		ConditionType  string   `json:"condition_type"`
		ConditionValue string   `json:"condition_value"`
		MinValue       *float64 `json:"min_value"`
		MaxValue       *float64 `json:"max_value"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := rejectForeignDoctor(c, body.DoctorID, doctorID); err != nil {
		return err
	}
	body.StudyType = strings.TrimSpace(body.StudyType)
	body.ParameterID = strings.TrimSpace(body.ParameterID)
	if body.StudyType == "" || body.ParameterID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "study_type/parameter_id required"})
	}
	if body.ConditionType == "" {
		body.ConditionType = "default"
	}
	if body.ConditionValue == "" {
		body.ConditionValue = "all"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Norms.Upsert(ctx, model.Norm{
		DoctorID:       doctorID,
		StudyType:      body.StudyType,
		ParameterID:    body.ParameterID,
		ConditionType:  body.ConditionType,
		ConditionValue: body.ConditionValue,
		MinValue:       body.MinValue,
		MaxValue:       body.MaxValue,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "norm saved", "id": id})
}

// GetNormTables handles GET /v1/settings/norm-tables with the same
// study_type narrowing as GetNorms.
func (h *SettingsHandler) GetNormTables(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	studyType := strings.TrimSpace(c.QueryParam("study_type"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tables, err := h.NormTables.ListByDoctor(ctx, doctorID, studyType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"norm_tables": tables})
}

// normTableReq carries a norm table save.  The id field keeps the
// sentinel behavior the front end relies on: absent, zero or the
// literal "new" insert a fresh table, anything else updates in place.
type normTableReq struct {
	ID              string               `json:"id"`
	DoctorID        uint64               `json:"doctor_id"`
	StudyType       string               `json:"study_type"`
	Category        string               `json:"category"`
	Parameter       string               `json:"parameter"`
	NormType        string               `json:"norm_type"`
	Rows            []model.NormTableRow `json:"rows"`
	ShowInReport    bool                 `json:"show_in_report"`
	ConclusionBelow string               `json:"conclusion_below"`
	ConclusionAbove string               `json:"conclusion_above"`
}

var validCategories = map[string]bool{
	model.CategoryAdultMale:   true,
	model.CategoryAdultFemale: true,
	model.CategoryChildMale:   true,
	model.CategoryChildFemale: true,
}

var validNormTypes = map[string]bool{
	model.NormTypeAge:    true,
	model.NormTypeWeight: true,
	model.NormTypeHeight: true,
	model.NormTypeBSA:    true,
}

// SaveNormTable handles POST /v1/settings/norm-tables.
func (h *SettingsHandler) SaveNormTable(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body normTableReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := rejectForeignDoctor(c, body.DoctorID, doctorID); err != nil {
		return err
	}
	body.StudyType = strings.TrimSpace(body.StudyType)
	body.Parameter = strings.TrimSpace(body.Parameter)
	if body.StudyType == "" || body.Parameter == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "study_type/parameter required"})
	}
	if !validCategories[body.Category] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
	}
	if !validNormTypes[body.NormType] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid norm_type"})
	}

	table := model.NormTable{
		DoctorID:        doctorID,
		StudyType:       body.StudyType,
		Category:        body.Category,
		Parameter:       body.Parameter,
		NormType:        body.NormType,
		Rows:            body.Rows,
		ShowInReport:    body.ShowInReport,
		ConclusionBelow: body.ConclusionBelow,
		ConclusionAbove: body.ConclusionAbove,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if id, isNew := parseTableID(body.ID); !isNew {
		table.ID = id
		if err := h.NormTables.Update(ctx, table); err != nil {
			if err == repository.ErrNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "norm table not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "norm table saved", "id": id})
	}

	id, err := h.NormTables.Insert(ctx, table)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "norm table saved", "id": id})
}

// parseTableID resolves the save-target sentinel: returns (0, true)
// when the payload asks for an insert, else the numeric id to update.
func parseTableID(raw string) (uint64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "new" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, true
	}
	return id, false
}
