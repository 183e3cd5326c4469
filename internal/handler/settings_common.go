// Package handler defines the HTTP handlers of the diagnostics API.
// This file implements the shared plumbing of the doctor settings
// endpoints: every settings resource (norms, norm tables, conclusion
// templates, input layouts, clinic branding) is owned by exactly one
// doctor, and the authenticated doctor id from the access token is the
// only scope any operation runs under.  A doctor_id supplied in a
// payload that contradicts the token is rejected with 403 instead of
// being silently trusted.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/repository"
)

// settingsDeleter is the uniform deletion capability each settings
// repository exposes.  Registering repositories under their resource
// name lets one handler serve DELETE for all of them.
type settingsDeleter interface {
	Delete(ctx context.Context, id, doctorID uint64) error
}

// SettingsHandler bundles the per-doctor configuration repositories.
type SettingsHandler struct {
	Norms      *repository.NormRepo
	NormTables *repository.NormTableRepo
	Templates  *repository.TemplateRepo
	Input      *repository.InputSettingsRepo
	Clinic     *repository.ClinicSettingsRepo

	deleters map[string]settingsDeleter
}

func NewSettingsHandler(n *repository.NormRepo, nt *repository.NormTableRepo, t *repository.TemplateRepo,
	in *repository.InputSettingsRepo, cl *repository.ClinicSettingsRepo) *SettingsHandler {
	if n == nil || nt == nil || t == nil || in == nil || cl == nil {
		panic("nil repository passed to NewSettingsHandler")
	}
	return &SettingsHandler{
		Norms:      n,
		NormTables: nt,
		Templates:  t,
		Input:      in,
		Clinic:     cl,
		deleters: map[string]settingsDeleter{
			"norms":       n,
			"norm-tables": nt,
			"templates":   t,
		},
	}
}

// Delete handles DELETE /v1/settings/:resource/:id for every deletable
// settings resource.  404 covers both unknown ids and rows owned by a
// different doctor; deletes are always scoped to the caller so the
// existence of someone else's row is not revealed.
func (h *SettingsHandler) Delete(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	repo, ok := h.deleters[c.Param("resource")]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown settings resource"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := repo.Delete(ctx, id, doctorID); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}

// rejectForeignDoctor enforces that an explicit doctor_id in a payload
// matches the authenticated caller.  Zero means the field was omitted.
func rejectForeignDoctor(c echo.Context, payloadDoctorID, doctorID uint64) error {
	if payloadDoctorID != 0 && payloadDoctorID != doctorID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return nil
}
