// Package model declares the persistent entities of the diagnostics
// service.  Structs carry json tags because repositories return them
// straight to handlers for serialization.
package model

import "time"

// Patient categories a norm table can target.
const (
	CategoryAdultMale   = "adult_male"
	CategoryAdultFemale = "adult_female"
	CategoryChildMale   = "child_male"
	CategoryChildFemale = "child_female"
)

// Axes a norm table can be keyed on.
const (
	NormTypeAge    = "age"
	NormTypeWeight = "weight"
	NormTypeHeight = "height"
	NormTypeBSA    = "bsa"
)

// Norm is a doctor-defined reference range for a single measured
// parameter of a study type.  The (doctor, study_type, parameter,
// condition_type, condition_value) tuple is unique; saving again
// overwrites only the min/max bounds.
type Norm struct {
	ID             uint64    `json:"id"`
	DoctorID       uint64    `json:"doctor_id"`
	StudyType      string    `json:"study_type"`
	ParameterID    string    `json:"parameter_id"`
	ConditionType  string    `json:"condition_type"`
	ConditionValue string    `json:"condition_value"`
	MinValue       *float64  `json:"min_value"`
	MaxValue       *float64  `json:"max_value"`
	CreatedAt      time.Time `json:"created_at"`
}

// NormTableRow is one band of a row-structured norm table.  Ranges are
// kept as strings because the UI allows open bounds and unit suffixes.
type NormTableRow struct {
	ID            string `json:"id"`
	RangeFrom     string `json:"range_from"`
	RangeTo       string `json:"range_to"`
	RangeUnit     string `json:"range_unit,omitempty"` // years | months | days, age tables only
	ParameterFrom string `json:"parameter_from"`
	ParameterTo   string `json:"parameter_to"`
}

// NormTable is a row-structured reference table for one parameter,
// scoped to a patient category and keyed on age, weight, height or BSA.
// Rows are persisted as a JSON column.
type NormTable struct {
	ID              uint64         `json:"id"`
	DoctorID        uint64         `json:"doctor_id"`
	StudyType       string         `json:"study_type"`
	Category        string         `json:"category"`
	Parameter       string         `json:"parameter"`
	NormType        string         `json:"norm_type"`
	Rows            []NormTableRow `json:"rows"`
	ShowInReport    bool           `json:"show_in_report"`
	ConclusionBelow string         `json:"conclusion_below"`
	ConclusionAbove string         `json:"conclusion_above"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TemplateCondition is a single structured match condition of a
// conclusion template.  Operator is one of lt, lte, gt, gte, eq or
// between; ValueTo is only meaningful for between.
type TemplateCondition struct {
	Parameter string   `json:"parameter"`
	Operator  string   `json:"operator"`
	Value     float64  `json:"value"`
	ValueTo   *float64 `json:"value_to,omitempty"`
}

// ConclusionTemplate generates standard conclusion text when all of its
// conditions match a study's results.  Templates are evaluated in
// priority order, highest first.
type ConclusionTemplate struct {
	ID             uint64              `json:"id"`
	DoctorID       uint64              `json:"doctor_id"`
	StudyType      string              `json:"study_type"`
	TemplateName   string              `json:"template_name"`
	Priority       int                 `json:"priority"`
	Conditions     []TemplateCondition `json:"conditions"`
	ConclusionText string              `json:"conclusion_text"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// InputSettings holds the field ordering and the enabled-field set for
// one (doctor, study_type) pair.  Exactly one row exists per pair;
// saving replaces both lists.
type InputSettings struct {
	ID            uint64    `json:"id"`
	DoctorID      uint64    `json:"doctor_id"`
	StudyType     string    `json:"study_type"`
	FieldOrder    []string  `json:"field_order"`
	EnabledFields []string  `json:"enabled_fields"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ClinicSettings is the per-doctor clinic branding block printed on
// reports.  One row per doctor, upsert semantics.
type ClinicSettings struct {
	ID         uint64    `json:"id"`
	DoctorID   uint64    `json:"doctor_id"`
	ClinicName string    `json:"clinic_name"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	LogoURL    string    `json:"logo_url"`
	UpdatedAt  time.Time `json:"updated_at"`
}
