package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/utils"
)

type DoctorRepo struct{ DB *sql.DB }

func NewDoctorRepo(db *sql.DB) *DoctorRepo { return &DoctorRepo{DB: db} }

const doctorCols = "id,email,password_hash,full_name,specialization,signature_url,created_at,updated_at"

func scanDoctor(row *sql.Row) (model.Doctor, error) {
	var d model.Doctor
	var sig sql.NullString
	err := row.Scan(&d.ID, &d.Email, &d.PasswordHash, &d.FullName, &d.Specialization, &sig, &d.CreatedAt, &d.UpdatedAt)
	if sig.Valid {
		d.SignatureURL = &sig.String
	}
	return d, err
}

// Create inserts a doctor and returns its ID.
func (r *DoctorRepo) Create(ctx context.Context, email, password, fullName, specialization string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO doctors (email, password_hash, full_name, specialization) VALUES (?,?,?,?)",
		email, hash, fullName, specialization)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a doctor by normalized email.
func (r *DoctorRepo) GetByEmail(ctx context.Context, email string) (model.Doctor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanDoctor(r.DB.QueryRowContext(ctx,
		"SELECT "+doctorCols+" FROM doctors WHERE email=? LIMIT 1", email))
}

// GetByID fetches a doctor by id.
func (r *DoctorRepo) GetByID(ctx context.Context, id uint64) (model.Doctor, error) {
	return scanDoctor(r.DB.QueryRowContext(ctx,
		"SELECT "+doctorCols+" FROM doctors WHERE id=? LIMIT 1", id))
}

// UpdatePassword replaces the stored hash and bumps updated_at.
func (r *DoctorRepo) UpdatePassword(ctx context.Context, id uint64, newHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE doctors SET password_hash=?, updated_at=NOW() WHERE id=?", newHash, id)
	return err
}

// UpdateProfile updates only the supplied profile fields via COALESCE,
// leaving the rest untouched.  Nil pointers mean "keep current value".
func (r *DoctorRepo) UpdateProfile(ctx context.Context, id uint64, fullName, specialization, signatureURL *string) error {
	if fullName == nil && specialization == nil && signatureURL == nil {
		return ErrNoFields
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE doctors SET
			full_name      = COALESCE(?, full_name),
			specialization = COALESCE(?, specialization),
			signature_url  = COALESCE(?, signature_url),
			updated_at     = NOW()
		WHERE id=?`,
		fullName, specialization, signatureURL, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 affected rows for no-op updates too, so confirm
		// the doctor actually exists before calling it a 404.
		if _, gerr := r.GetByID(ctx, id); gerr == sql.ErrNoRows {
			return ErrNotFound
		}
	}
	return nil
}
