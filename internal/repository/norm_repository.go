package repository

import (
	"context"
	"database/sql"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

// NormRepo persists simple min/max reference ranges ('doctor_norms' table).
type NormRepo struct{ DB *sql.DB }

func NewNormRepo(db *sql.DB) *NormRepo { return &NormRepo{DB: db} }

const normCols = "id,doctor_id,study_type,parameter_id,condition_type,condition_value,min_value,max_value,created_at"

// ListByDoctor returns the doctor's norms, optionally restricted to one
// study type, ordered by (study_type, parameter_id).
func (r *NormRepo) ListByDoctor(ctx context.Context, doctorID uint64, studyType string) ([]model.Norm, error) {
	query := "SELECT " + normCols + " FROM doctor_norms WHERE doctor_id=?"
	args := []any{doctorID}
	if studyType != "" {
		query += " AND study_type=?"
		args = append(args, studyType)
	}
	query += " ORDER BY study_type, parameter_id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Norm, 0)
	for rows.Next() {
		var n model.Norm
		var min, max sql.NullFloat64
		if err := rows.Scan(&n.ID, &n.DoctorID, &n.StudyType, &n.ParameterID,
			&n.ConditionType, &n.ConditionValue, &min, &max, &n.CreatedAt); err != nil {
			return nil, err
		}
		if min.Valid {
			n.MinValue = &min.Float64
		}
		if max.Valid {
			n.MaxValue = &max.Float64
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Upsert inserts a norm or, when the (doctor, study_type, parameter,
// condition) key already exists, overwrites only its min/max bounds.
// Returns the row id.  Relies on the table's unique key for atomicity;
// concurrent saves of the same key cannot produce two rows.
func (r *NormRepo) Upsert(ctx context.Context, n model.Norm) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO doctor_norms
			(doctor_id, study_type, parameter_id, condition_type, condition_value, min_value, max_value)
		VALUES (?,?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE
			min_value = VALUES(min_value),
			max_value = VALUES(max_value),
			id = LAST_INSERT_ID(id)`,
		n.DoctorID, n.StudyType, n.ParameterID, n.ConditionType, n.ConditionValue, n.MinValue, n.MaxValue)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Delete removes a norm scoped to its owner.  ErrNotFound when no row
// matched the (id, doctor) pair.
func (r *NormRepo) Delete(ctx context.Context, id, doctorID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM doctor_norms WHERE id=? AND doctor_id=?", id, doctorID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
