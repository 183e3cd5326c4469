package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

// GetInputSettings handles GET /v1/settings/input?study_type=...
// Responds with the stored layout or a JSON null when the doctor never
// customized this study type; the client then falls back to defaults.
func (h *SettingsHandler) GetInputSettings(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	studyType := strings.TrimSpace(c.QueryParam("study_type"))
	if studyType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "study_type required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Input.Get(ctx, doctorID, studyType)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusOK, echo.Map{"settings": nil})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": s})
}

// SaveInputSettings handles PUT /v1/settings/input: an upsert keyed on
// (doctor, study_type) replacing both lists.
func (h *SettingsHandler) SaveInputSettings(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		DoctorID      uint64   `json:"doctor_id"`
		StudyType     string   `json:"study_type"`
		FieldOrder    []string `json:"field_order"`
		EnabledFields []string `json:"enabled_fields"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := rejectForeignDoctor(c, body.DoctorID, doctorID); err != nil {
		return err
	}
	body.StudyType = strings.TrimSpace(body.StudyType)
	if body.StudyType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "study_type required"})
	}
	if body.FieldOrder == nil {
		body.FieldOrder = []string{}
	}
	if body.EnabledFields == nil {
		body.EnabledFields = []string{}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	id, err := h.Input.Upsert(ctx, model.InputSettings{
		DoctorID:      doctorID,
		StudyType:     body.StudyType,
		FieldOrder:    body.FieldOrder,
		EnabledFields: body.EnabledFields,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "input settings saved", "id": id})
}

// GetClinicSettings handles GET /v1/settings/clinic.
func (h *SettingsHandler) GetClinicSettings(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	s, err := h.Clinic.Get(ctx, doctorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusOK, echo.Map{"settings": nil})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": s})
}

// SaveClinicSettings handles PUT /v1/settings/clinic: creates the row
// on first save, overwrites it after.
func (h *SettingsHandler) SaveClinicSettings(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		DoctorID   uint64 `json:"doctor_id"`
		ClinicName string `json:"clinic_name"`
		Address    string `json:"address"`
		Phone      string `json:"phone"`
		LogoURL    string `json:"logo_url"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := rejectForeignDoctor(c, body.DoctorID, doctorID); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	id, err := h.Clinic.Upsert(ctx, model.ClinicSettings{
		DoctorID:   doctorID,
		ClinicName: body.ClinicName,
		Address:    body.Address,
		Phone:      body.Phone,
		LogoURL:    body.LogoURL,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "clinic settings saved", "id": id})
}
