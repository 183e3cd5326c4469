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

// GetTemplates handles GET /v1/settings/templates.  Templates come back
// ordered by priority descending so the client can apply first-match
// semantics by walking the list.
func (h *SettingsHandler) GetTemplates(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	studyType := strings.TrimSpace(c.QueryParam("study_type"))
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	templates, err := h.Templates.ListByDoctor(ctx, doctorID, studyType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"templates": templates})
}

// SaveTemplate handles POST /v1/settings/templates.  Always inserts;
// editing goes through UpdateTemplate.
func (h *SettingsHandler) SaveTemplate(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		DoctorID       uint64                    `json:"doctor_id"`
		StudyType      string                    `json:"study_type"`
		TemplateName   string                    `json:"template_name"`
		Priority       int                       `json:"priority"`
		Conditions     []model.TemplateCondition `json:"conditions"`
		ConclusionText string                    `json:"conclusion_text"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := rejectForeignDoctor(c, body.DoctorID, doctorID); err != nil {
		return err
	}
	body.StudyType = strings.TrimSpace(body.StudyType)
	body.TemplateName = strings.TrimSpace(body.TemplateName)
	if body.StudyType == "" || body.TemplateName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "study_type/template_name required"})
	}
	if body.Conditions == nil {
		body.Conditions = []model.TemplateCondition{}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	id, err := h.Templates.Insert(ctx, model.ConclusionTemplate{
		DoctorID:       doctorID,
		StudyType:      body.StudyType,
		TemplateName:   body.TemplateName,
		Priority:       body.Priority,
		Conditions:     body.Conditions,
		ConclusionText: body.ConclusionText,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "template saved", "id": id})
}

// UpdateTemplate handles PUT /v1/settings/templates/:id.  Only supplied
// fields change; everything else keeps its stored value.
func (h *SettingsHandler) UpdateTemplate(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		TemplateName   *string                   `json:"template_name"`
		Priority       *int                      `json:"priority"`
		Conditions     []model.TemplateCondition `json:"conditions"`
		ConclusionText *string                   `json:"conclusion_text"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	err = h.Templates.UpdatePartial(ctx, id, doctorID, repository.TemplatePatch{
		TemplateName:   body.TemplateName,
		Priority:       body.Priority,
		Conditions:     body.Conditions,
		ConclusionText: body.ConclusionText,
	})
	switch err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "template updated"})
	case repository.ErrNoFields:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "template not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
}
