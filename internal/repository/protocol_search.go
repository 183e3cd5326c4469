package repository

import (
	"context"
	"strings"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

// ProtocolSearchQuery defines the conjunctive filters and ordering for
// protocol search.  DoctorID of zero means an unscoped (public) search.
type ProtocolSearchQuery struct {
	DoctorID  uint64
	Name      string
	StudyType string
	DateFrom  string
	DateTo    string
	SortBy    string
	SortOrder string
}

// Columns callers may sort on.  Anything else silently falls back to
// created_at rather than erroring, matching what the front end expects.
var protocolSortCols = map[string]string{
	"created_at":   "created_at",
	"study_date":   "study_date",
	"patient_name": "patient_name",
	"study_type":   "study_type",
}

// Search returns every protocol matching the query, ordered per its
// sort fields.  No pagination: result sets are small per doctor and the
// report list view renders them all.
func (r *ProtocolRepo) Search(ctx context.Context, q ProtocolSearchQuery) ([]model.Protocol, error) {
	where := []string{}
	args := []any{}

	if q.DoctorID != 0 {
		where = append(where, "doctor_id = ?")
		args = append(args, q.DoctorID)
	}
	if q.Name != "" {
		where = append(where, "LOWER(patient_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	if q.StudyType != "" {
		where = append(where, "study_type = ?")
		args = append(args, q.StudyType)
	}
	if q.DateFrom != "" {
		where = append(where, "study_date >= ?")
		args = append(args, q.DateFrom)
	}
	if q.DateTo != "" {
		where = append(where, "study_date <= ?")
		args = append(args, q.DateTo)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	sortCol, ok := protocolSortCols[q.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	dir := "ASC"
	if q.SortOrder == "" || strings.EqualFold(q.SortOrder, "desc") {
		dir = "DESC"
	}

	query := "SELECT " + protocolCols + " FROM protocols WHERE " + cond +
		" ORDER BY " + sortCol + " " + dir

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Protocol, 0)
	for rows.Next() {
		p, err := scanProtocol(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
