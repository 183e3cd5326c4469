package repository

import (
	"context"
	"database/sql"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

// ClinicSettingsRepo persists the per-doctor clinic branding row.
type ClinicSettingsRepo struct{ DB *sql.DB }

func NewClinicSettingsRepo(db *sql.DB) *ClinicSettingsRepo { return &ClinicSettingsRepo{DB: db} }

// Get returns the doctor's clinic settings, or sql.ErrNoRows when none
// were saved yet.
func (r *ClinicSettingsRepo) Get(ctx context.Context, doctorID uint64) (model.ClinicSettings, error) {
	var s model.ClinicSettings
	err := r.DB.QueryRowContext(ctx,
		`SELECT id,doctor_id,clinic_name,address,phone,logo_url,updated_at
		 FROM clinic_settings WHERE doctor_id=? LIMIT 1`, doctorID).
		Scan(&s.ID, &s.DoctorID, &s.ClinicName, &s.Address, &s.Phone, &s.LogoURL, &s.UpdatedAt)
	return s, err
}

// Upsert creates the row on first save and overwrites it thereafter.
// doctor_id carries a unique key, so the upsert is atomic.
func (r *ClinicSettingsRepo) Upsert(ctx context.Context, s model.ClinicSettings) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO clinic_settings (doctor_id, clinic_name, address, phone, logo_url)
		VALUES (?,?,?,?,?)
		ON DUPLICATE KEY UPDATE
			clinic_name = VALUES(clinic_name),
			address     = VALUES(address),
			phone       = VALUES(phone),
			logo_url    = VALUES(logo_url),
			updated_at  = NOW(),
			id          = LAST_INSERT_ID(id)`,
		s.DoctorID, s.ClinicName, s.Address, s.Phone, s.LogoURL)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
