package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

// TemplateRepo persists conclusion templates ('conclusion_templates').
type TemplateRepo struct{ DB *sql.DB }

func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{DB: db} }

const templateCols = "id,doctor_id,study_type,template_name,priority,conditions,conclusion_text,created_at,updated_at"

// ListByDoctor returns the doctor's templates, highest priority first so
// callers can apply first-match semantics by walking the slice in order.
// When studyType is empty the templates of every study type are returned,
// grouped by study type.
func (r *TemplateRepo) ListByDoctor(ctx context.Context, doctorID uint64, studyType string) ([]model.ConclusionTemplate, error) {
	query := "SELECT " + templateCols + " FROM conclusion_templates WHERE doctor_id=?"
	args := []any{doctorID}
	order := " ORDER BY study_type, priority DESC"
	if studyType != "" {
		query += " AND study_type=?"
		args = append(args, studyType)
		order = " ORDER BY priority DESC"
	}
	rows, err := r.DB.QueryContext(ctx, query+order, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ConclusionTemplate, 0)
	for rows.Next() {
		var t model.ConclusionTemplate
		var rawConds []byte
		if err := rows.Scan(&t.ID, &t.DoctorID, &t.StudyType, &t.TemplateName, &t.Priority,
			&rawConds, &t.ConclusionText, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if len(rawConds) > 0 {
			if err := json.Unmarshal(rawConds, &t.Conditions); err != nil {
				return nil, err
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Insert stores a new template and returns its id.  Templates are never
// upserted; saving the same name twice creates two rows.
func (r *TemplateRepo) Insert(ctx context.Context, t model.ConclusionTemplate) (uint64, error) {
	rawConds, err := json.Marshal(t.Conditions)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO conclusion_templates
			(doctor_id, study_type, template_name, priority, conditions, conclusion_text)
		VALUES (?,?,?,?,?,?)`,
		t.DoctorID, t.StudyType, t.TemplateName, t.Priority, rawConds, t.ConclusionText)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// TemplatePatch carries the optional fields of a partial template
// update.  Nil means "leave unchanged".
type TemplatePatch struct {
	TemplateName   *string
	Priority       *int
	Conditions     []model.TemplateCondition
	ConclusionText *string
}

// UpdatePartial applies a COALESCE-style partial update scoped to
// (id, doctor).  ErrNoFields when the patch is empty, ErrNotFound when
// the row does not exist within the caller's scope.
func (r *TemplateRepo) UpdatePartial(ctx context.Context, id, doctorID uint64, p TemplatePatch) error {
	if p.TemplateName == nil && p.Priority == nil && p.Conditions == nil && p.ConclusionText == nil {
		return ErrNoFields
	}
	var rawConds any
	if p.Conditions != nil {
		b, err := json.Marshal(p.Conditions)
		if err != nil {
			return err
		}
		rawConds = b
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE conclusion_templates SET
			template_name   = COALESCE(?, template_name),
			priority        = COALESCE(?, priority),
			conditions      = COALESCE(?, conditions),
			conclusion_text = COALESCE(?, conclusion_text),
			updated_at      = NOW()
		WHERE id=? AND doctor_id=?`,
		p.TemplateName, p.Priority, rawConds, p.ConclusionText, id, doctorID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists uint64
		err := r.DB.QueryRowContext(ctx,
			"SELECT id FROM conclusion_templates WHERE id=? AND doctor_id=? LIMIT 1",
			id, doctorID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete removes a template scoped to its owner.
func (r *TemplateRepo) Delete(ctx context.Context, id, doctorID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM conclusion_templates WHERE id=? AND doctor_id=?", id, doctorID)
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
