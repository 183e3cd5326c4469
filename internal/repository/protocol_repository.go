package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pr-poehali-dev/functional-diagnostics-api/internal/model"
)

// ProtocolRepo persists diagnostic study records ('protocols' table).
type ProtocolRepo struct{ DB *sql.DB }

func NewProtocolRepo(db *sql.DB) *ProtocolRepo { return &ProtocolRepo{DB: db} }

const protocolCols = `id,doctor_id,study_type,patient_name,patient_gender,patient_birth_date,
patient_age,patient_weight,patient_height,patient_bsa,ultrasound_device,study_date,
results,results_min_max,conclusion,signed,created_at`

const dateLayout = "2006-01-02"

// scanProtocol maps one row onto a model.Protocol, parsing the JSON
// columns and flattening DATE values to "2006-01-02" strings.
func scanProtocol(scan func(dest ...any) error) (model.Protocol, error) {
	var (
		p                  model.Protocol
		birth, study       sql.NullTime
		age, results, mm   []byte
		weight, height, bs sql.NullFloat64
		device             sql.NullString
	)
	err := scan(&p.ID, &p.DoctorID, &p.StudyType, &p.PatientName, &p.PatientGender,
		&birth, &age, &weight, &height, &bs, &device, &study,
		&results, &mm, &p.Conclusion, &p.Signed, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	if birth.Valid {
		p.PatientBirthDate = birth.Time.Format(dateLayout)
	}
	if study.Valid {
		p.StudyDate = study.Time.Format(dateLayout)
	}
	if len(age) > 0 {
		var a model.PatientAge
		if err := json.Unmarshal(age, &a); err == nil {
			p.PatientAge = &a
		}
	}
	if weight.Valid {
		p.PatientWeight = &weight.Float64
	}
	if height.Valid {
		p.PatientHeight = &height.Float64
	}
	if bs.Valid {
		p.PatientBSA = &bs.Float64
	}
	if device.Valid {
		p.UltrasoundDevice = &device.String
	}
	p.Results = json.RawMessage(results)
	if len(mm) > 0 {
		p.ResultsMinMax = json.RawMessage(mm)
	}
	return p, nil
}

// GetByID returns one protocol.  ErrNotFound when the id does not resolve.
func (r *ProtocolRepo) GetByID(ctx context.Context, id uint64) (model.Protocol, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+protocolCols+" FROM protocols WHERE id=? LIMIT 1", id)
	p, err := scanProtocol(row.Scan)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// ownerOf returns the doctor_id of a protocol, or ErrNotFound.
func (r *ProtocolRepo) ownerOf(ctx context.Context, id uint64) (uint64, error) {
	var owner uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT doctor_id FROM protocols WHERE id=? LIMIT 1", id).Scan(&owner)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return owner, err
}

// Create inserts a protocol and returns its id.  The caller has already
// validated required fields and filled derived ones (age, BSA).
func (r *ProtocolRepo) Create(ctx context.Context, p model.Protocol) (uint64, error) {
	var age any
	if p.PatientAge != nil {
		b, err := json.Marshal(p.PatientAge)
		if err != nil {
			return 0, err
		}
		age = b
	}
	var mm any
	if len(p.ResultsMinMax) > 0 {
		mm = []byte(p.ResultsMinMax)
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO protocols
			(doctor_id, study_type, patient_name, patient_gender, patient_birth_date,
			 patient_age, patient_weight, patient_height, patient_bsa, ultrasound_device,
			 study_date, results, results_min_max, conclusion, signed)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.DoctorID, p.StudyType, p.PatientName, p.PatientGender, p.PatientBirthDate,
		age, p.PatientWeight, p.PatientHeight, p.PatientBSA, p.UltrasoundDevice,
		p.StudyDate, []byte(p.Results), mm, p.Conclusion, p.Signed)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ProtocolPatch carries the optional fields of a partial protocol
// update.  Nil means "leave unchanged"; for results_min_max an explicit
// JSON null clears the column.
type ProtocolPatch struct {
	StudyType        *string
	PatientName      *string
	PatientGender    *string
	PatientBirthDate *string
	PatientAge       *model.PatientAge
	PatientWeight    *float64
	PatientHeight    *float64
	PatientBSA       *float64
	UltrasoundDevice *string
	StudyDate        *string
	Results          json.RawMessage
	ResultsMinMax    json.RawMessage
	Conclusion       *string
	Signed           *bool
}

// UpdatePartial updates only the supplied fields of a protocol owned by
// doctorID.  ErrNotFound for an unknown id, ErrForbidden when the
// protocol belongs to another doctor, ErrNoFields for an empty patch.
func (r *ProtocolRepo) UpdatePartial(ctx context.Context, id, doctorID uint64, p ProtocolPatch) error {
	owner, err := r.ownerOf(ctx, id)
	if err != nil {
		return err
	}
	if owner != doctorID {
		return ErrForbidden
	}

	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		set = append(set, col+"=?")
		args = append(args, v)
	}
	if p.StudyType != nil {
		add("study_type", *p.StudyType)
	}
	if p.PatientName != nil {
		add("patient_name", *p.PatientName)
	}
	if p.PatientGender != nil {
		add("patient_gender", *p.PatientGender)
	}
	if p.PatientBirthDate != nil {
		add("patient_birth_date", *p.PatientBirthDate)
	}
	if p.PatientAge != nil {
		b, err := json.Marshal(p.PatientAge)
		if err != nil {
			return err
		}
		add("patient_age", b)
	}
	if p.PatientWeight != nil {
		add("patient_weight", *p.PatientWeight)
	}
	if p.PatientHeight != nil {
		add("patient_height", *p.PatientHeight)
	}
	if p.PatientBSA != nil {
		add("patient_bsa", *p.PatientBSA)
	}
	if p.UltrasoundDevice != nil {
		add("ultrasound_device", *p.UltrasoundDevice)
	}
	if p.StudyDate != nil {
		add("study_date", *p.StudyDate)
	}
	if p.Results != nil {
		add("results", []byte(p.Results))
	}
	if p.ResultsMinMax != nil {
		if string(p.ResultsMinMax) == "null" {
			add("results_min_max", nil)
		} else {
			add("results_min_max", []byte(p.ResultsMinMax))
		}
	}
	if p.Conclusion != nil {
		add("conclusion", *p.Conclusion)
	}
	if p.Signed != nil {
		add("signed", *p.Signed)
	}
	if len(set) == 0 {
		return ErrNoFields
	}

	query := "UPDATE protocols SET "
	for i, s := range set {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += " WHERE id=?"
	args = append(args, id)

	_, err = r.DB.ExecContext(ctx, query, args...)
	return err
}

// Delete removes a protocol owned by doctorID.  ErrNotFound for an
// unknown id, ErrForbidden for someone else's record.
func (r *ProtocolRepo) Delete(ctx context.Context, id, doctorID uint64) error {
	owner, err := r.ownerOf(ctx, id)
	if err != nil {
		return err
	}
	if owner != doctorID {
		return ErrForbidden
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM protocols WHERE id=?", id)
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
