package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/queue"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/repository"
	queue_publisher "github.com/pr-poehali-dev/functional-diagnostics-api/internal/service"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/utils"
)

// ProtocolHandler serves CRUD and search over diagnostic study records.
type ProtocolHandler struct {
	Protocols *repository.ProtocolRepo
}

func NewProtocolHandler(p *repository.ProtocolRepo) *ProtocolHandler {
	if p == nil {
		panic("nil repository passed to NewProtocolHandler")
	}
	return &ProtocolHandler{Protocols: p}
}

// Required protocol fields, checked in this order so validation errors
// always name the first missing one.
var protocolRequired = []string{
	"study_type", "patient_name", "patient_gender",
	"patient_birth_date", "study_date", "results", "conclusion",
}

// Get handles GET /v1/protocols/:id.  Registered publicly or behind
// JWT depending on the PUBLIC_PROTOCOL_READ policy.
func (h *ProtocolHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Protocols.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "protocol not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"protocol": p})
}

// List handles GET /v1/protocols with conjunctive filters and a sort
// allow-list.  When the route is registered behind JWT the result is
// scoped to the caller's own protocols; on the public route it is not.
func (h *ProtocolHandler) List(c echo.Context) error {
	q := repository.ProtocolSearchQuery{
		Name:      strings.TrimSpace(c.QueryParam("search_name")),
		StudyType: strings.TrimSpace(c.QueryParam("search_study_type")),
		DateFrom:  strings.TrimSpace(c.QueryParam("date_from")),
		DateTo:    strings.TrimSpace(c.QueryParam("date_to")),
		SortBy:    strings.TrimSpace(c.QueryParam("sort_by")),
		SortOrder: strings.TrimSpace(c.QueryParam("sort_order")),
	}
	if doctorID, err := getDoctorID(c); err == nil {
		q.DoctorID = doctorID
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	protocols, err := h.Protocols.Search(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"protocols": protocols})
}

// createReq mirrors the protocol creation payload.  Results and
// results_min_max stay raw so the stored JSON preserves the client's
// key order.
type createReq struct {
	StudyType        string            `json:"study_type"`
	PatientName      string            `json:"patient_name"`
	PatientGender    string            `json:"patient_gender"`
	PatientBirthDate string            `json:"patient_birth_date"`
	PatientAge       *model.PatientAge `json:"patient_age"`
	PatientWeight    *float64          `json:"patient_weight"`
	PatientHeight    *float64          `json:"patient_height"`
	PatientBSA       *float64          `json:"patient_bsa"`
	UltrasoundDevice *string           `json:"ultrasound_device"`
	StudyDate        string            `json:"study_date"`
	Results          json.RawMessage   `json:"results"`
	ResultsMinMax    json.RawMessage   `json:"results_min_max"`
	Conclusion       *string           `json:"conclusion"`
	Signed           bool              `json:"signed"`
}

// Create handles POST /v1/protocols.  The authenticated doctor becomes
// the owner; missing derived fields (calendar age, body surface area)
// are computed server-side.
func (h *ProtocolHandler) Create(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	// Field presence matters for validation, so the body is decoded
	// twice: once as a key set, once into the typed request.
	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	for _, field := range protocolRequired {
		if _, ok := present[field]; !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required field: " + field})
		}
	}
	var req createReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Conclusion == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required field: conclusion"})
	}
	if !json.Valid(req.Results) || string(req.Results) == "null" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "results must be valid JSON"})
	}
	if len(req.ResultsMinMax) > 0 && !json.Valid(req.ResultsMinMax) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "results_min_max must be valid JSON"})
	}

	p := model.Protocol{
		DoctorID:         doctorID,
		StudyType:        req.StudyType,
		PatientName:      req.PatientName,
		PatientGender:    req.PatientGender,
		PatientBirthDate: req.PatientBirthDate,
		PatientAge:       req.PatientAge,
		PatientWeight:    req.PatientWeight,
		PatientHeight:    req.PatientHeight,
		PatientBSA:       req.PatientBSA,
		UltrasoundDevice: req.UltrasoundDevice,
		StudyDate:        req.StudyDate,
		Results:          req.Results,
		ResultsMinMax:    req.ResultsMinMax,
		Conclusion:       *req.Conclusion,
		Signed:           req.Signed,
	}
	fillDerived(&p)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Protocols.Create(ctx, p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}

	h.publishAudit(queue.ProtocolAuditEvent{
		ProtocolID:  id,
		DoctorID:    doctorID,
		Action:      queue.ActionCreated,
		StudyType:   p.StudyType,
		PatientName: p.PatientName,
	})
	return c.JSON(http.StatusCreated, echo.Map{"message": "protocol created", "id": id})
}

// fillDerived computes calendar age and body surface area when the
// client did not supply them.
func fillDerived(p *model.Protocol) {
	if p.PatientAge == nil && p.PatientBirthDate != "" {
		birth, berr := time.Parse("2006-01-02", p.PatientBirthDate)
		ref, rerr := time.Parse("2006-01-02", p.StudyDate)
		if berr == nil && rerr == nil && !ref.Before(birth) {
			age := utils.AgeBetween(birth, ref)
			p.PatientAge = &age
		}
	}
	if p.PatientBSA == nil && p.PatientWeight != nil && p.PatientHeight != nil {
		if bsa := utils.BodySurfaceArea(*p.PatientWeight, *p.PatientHeight); bsa > 0 {
			p.PatientBSA = &bsa
		}
	}
}

// Update handles PUT /v1/protocols/:id.  Only fields present in the
// body change; presence is detected per key so that explicit false and
// null values are honored.
func (h *ProtocolHandler) Update(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	patch, err := buildPatch(present)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Protocols.UpdatePartial(ctx, id, doctorID, patch)
	switch err {
	case nil:
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "protocol not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case repository.ErrNoFields:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	action := queue.ActionUpdated
	if patch.Signed != nil && *patch.Signed {
		action = queue.ActionSigned
	}
	h.publishAudit(queue.ProtocolAuditEvent{ProtocolID: id, DoctorID: doctorID, Action: action})
	return c.JSON(http.StatusOK, echo.Map{"message": "protocol updated"})
}

// Delete handles DELETE /v1/protocols/:id, scoped to the owner.
func (h *ProtocolHandler) Delete(c echo.Context) error {
	doctorID, err := getDoctorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Protocols.Delete(ctx, id, doctorID)
	switch err {
	case nil:
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "protocol not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	h.publishAudit(queue.ProtocolAuditEvent{ProtocolID: id, DoctorID: doctorID, Action: queue.ActionDeleted})
	return c.JSON(http.StatusOK, echo.Map{"message": "protocol deleted"})
}

// buildPatch turns the present keys of an update body into a repository
// patch.  Unknown keys are ignored; a malformed value fails the whole
// request.
func buildPatch(present map[string]json.RawMessage) (repository.ProtocolPatch, error) {
	var patch repository.ProtocolPatch
	for key, val := range present {
		var err error
		switch key {
		case "study_type":
			err = json.Unmarshal(val, &patch.StudyType)
		case "patient_name":
			err = json.Unmarshal(val, &patch.PatientName)
		case "patient_gender":
			err = json.Unmarshal(val, &patch.PatientGender)
		case "patient_birth_date":
			err = json.Unmarshal(val, &patch.PatientBirthDate)
		case "patient_age":
			err = json.Unmarshal(val, &patch.PatientAge)
		case "patient_weight":
			err = json.Unmarshal(val, &patch.PatientWeight)
		case "patient_height":
			err = json.Unmarshal(val, &patch.PatientHeight)
		case "patient_bsa":
			err = json.Unmarshal(val, &patch.PatientBSA)
		case "ultrasound_device":
			err = json.Unmarshal(val, &patch.UltrasoundDevice)
		case "study_date":
			err = json.Unmarshal(val, &patch.StudyDate)
		case "results":
			if !json.Valid(val) || string(val) == "null" {
				return patch, errInvalidField("results")
			}
			patch.Results = val
		case "results_min_max":
			// Explicit null clears the stored ranges.
			if !json.Valid(val) {
				return patch, errInvalidField("results_min_max")
			}
			patch.ResultsMinMax = val
		case "conclusion":
			err = json.Unmarshal(val, &patch.Conclusion)
		case "signed":
			err = json.Unmarshal(val, &patch.Signed)
		}
		if err != nil {
			return patch, errInvalidField(key)
		}
	}
	return patch, nil
}

type errInvalidField string

func (e errInvalidField) Error() string { return "invalid value for field: " + string(e) }

// publishAudit stamps and fires an audit event.  Failures are ignored:
// the broker being down must not fail the request.
func (h *ProtocolHandler) publishAudit(ev queue.ProtocolAuditEvent) {
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = queue_publisher.PublishProtocolAudit(ctx, ev)
}
