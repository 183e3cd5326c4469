package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

// InputSettingsRepo persists per-study input layouts ('input_settings').
// One row per (doctor, study_type); saves are upserts.
type InputSettingsRepo struct{ DB *sql.DB }

func NewInputSettingsRepo(db *sql.DB) *InputSettingsRepo { return &InputSettingsRepo{DB: db} }

// Get returns the layout for one (doctor, study_type) pair, or
// sql.ErrNoRows when the doctor never saved one.
func (r *InputSettingsRepo) Get(ctx context.Context, doctorID uint64, studyType string) (model.InputSettings, error) {
	var s model.InputSettings
	var rawOrder, rawEnabled []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT id,doctor_id,study_type,field_order,enabled_fields,created_at,updated_at
		 FROM input_settings WHERE doctor_id=? AND study_type=? LIMIT 1`,
		doctorID, studyType).
		Scan(&s.ID, &s.DoctorID, &s.StudyType, &rawOrder, &rawEnabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	if len(rawOrder) > 0 {
		if err := json.Unmarshal(rawOrder, &s.FieldOrder); err != nil {
			return s, err
		}
	}
	if len(rawEnabled) > 0 {
		if err := json.Unmarshal(rawEnabled, &s.EnabledFields); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Upsert replaces the field order and enabled-field set for the pair,
// bumping updated_at.  The unique key on (doctor_id, study_type)
// guarantees a second save updates the one existing row instead of
// adding another.
func (r *InputSettingsRepo) Upsert(ctx context.Context, s model.InputSettings) (uint64, error) {
	rawOrder, err := json.Marshal(s.FieldOrder)
	if err != nil {
		return 0, err
	}
	rawEnabled, err := json.Marshal(s.EnabledFields)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO input_settings (doctor_id, study_type, field_order, enabled_fields)
		VALUES (?,?,?,?)
		ON DUPLICATE KEY UPDATE
			field_order    = VALUES(field_order),
			enabled_fields = VALUES(enabled_fields),
			updated_at     = NOW(),
			id             = LAST_INSERT_ID(id)`,
		s.DoctorID, s.StudyType, rawOrder, rawEnabled)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
