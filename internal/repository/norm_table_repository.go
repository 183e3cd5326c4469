package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

// NormTableRepo persists row-structured reference tables ('norm_tables').
// The table_rows column is JSON; marshaling happens here so handlers only ever
// see typed []model.NormTableRow slices.
type NormTableRepo struct{ DB *sql.DB }

func NewNormTableRepo(db *sql.DB) *NormTableRepo { return &NormTableRepo{DB: db} }

// table_rows, not rows: ROWS is a reserved word in MySQL 8.
const normTableCols = "id,doctor_id,study_type,category,parameter,norm_type,table_rows,show_in_report,conclusion_below,conclusion_above,created_at,updated_at"

// ListByDoctor returns the doctor's norm tables ordered by
// (study_type, parameter), optionally restricted to one study type.
func (r *NormTableRepo) ListByDoctor(ctx context.Context, doctorID uint64, studyType string) ([]model.NormTable, error) {
	query := "SELECT " + normTableCols + " FROM norm_tables WHERE doctor_id=?"
	args := []any{doctorID}
	if studyType != "" {
		query += " AND study_type=?"
		args = append(args, studyType)
	}
	query += " ORDER BY study_type, parameter"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.NormTable, 0)
	for rows.Next() {
		var t model.NormTable
		var rawRows []byte
		if err := rows.Scan(&t.ID, &t.DoctorID, &t.StudyType, &t.Category, &t.Parameter,
			&t.NormType, &rawRows, &t.ShowInReport, &t.ConclusionBelow, &t.ConclusionAbove,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if len(rawRows) > 0 {
			if err := json.Unmarshal(rawRows, &t.Rows); err != nil {
				return nil, err
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Insert stores a new norm table and returns its id.
func (r *NormTableRepo) Insert(ctx context.Context, t model.NormTable) (uint64, error) {
	rawRows, err := json.Marshal(t.Rows)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO norm_tables
			(doctor_id, study_type, category, parameter, norm_type, table_rows, show_in_report, conclusion_below, conclusion_above)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		t.DoctorID, t.StudyType, t.Category, t.Parameter, t.NormType, rawRows,
		t.ShowInReport, t.ConclusionBelow, t.ConclusionAbove)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites an existing table in place, scoped to (id, doctor).
// ErrNotFound when no row matched that scope.
func (r *NormTableRepo) Update(ctx context.Context, t model.NormTable) error {
	rawRows, err := json.Marshal(t.Rows)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE norm_tables SET
			study_type=?, category=?, parameter=?, norm_type=?, table_rows=?,
			show_in_report=?, conclusion_below=?, conclusion_above=?, updated_at=NOW()
		WHERE id=? AND doctor_id=?`,
		t.StudyType, t.Category, t.Parameter, t.NormType, rawRows,
		t.ShowInReport, t.ConclusionBelow, t.ConclusionAbove, t.ID, t.DoctorID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "not yours / gone" from "saved identical content":
		// MySQL also reports zero affected rows when nothing changed.
		var exists uint64
		err := r.DB.QueryRowContext(ctx,
			"SELECT id FROM norm_tables WHERE id=? AND doctor_id=? LIMIT 1",
			t.ID, t.DoctorID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete removes a norm table scoped to its owner.  ErrNotFound when
// nothing was deleted.
func (r *NormTableRepo) Delete(ctx context.Context, id, doctorID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM norm_tables WHERE id=? AND doctor_id=?", id, doctorID)
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
