package model

import (
	"encoding/json"
	"time"
)

// PatientAge is the calendar age structure stored alongside a protocol.
type PatientAge struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

// Protocol is a single diagnostic study record for a patient.
//
// Results and ResultsMinMax are kept as raw JSON rather than decoded
// maps: measurement blocks are nested per study type and the report
// renderer depends on the client's key order, which json.RawMessage
// round-trips byte for byte.  PatientBirthDate and StudyDate are plain
// dates and serialize as "2006-01-02" strings.
type Protocol struct {
	ID               uint64          `json:"id"`
	DoctorID         uint64          `json:"doctor_id"`
	StudyType        string          `json:"study_type"`
	PatientName      string          `json:"patient_name"`
	PatientGender    string          `json:"patient_gender"`
	PatientBirthDate string          `json:"patient_birth_date"`
	PatientAge       *PatientAge     `json:"patient_age"`
	PatientWeight    *float64        `json:"patient_weight"`
	PatientHeight    *float64        `json:"patient_height"`
	PatientBSA       *float64        `json:"patient_bsa"`
	UltrasoundDevice *string         `json:"ultrasound_device"`
	StudyDate        string          `json:"study_date"`
	Results          json.RawMessage `json:"results"`
	ResultsMinMax    json.RawMessage `json:"results_min_max,omitempty"`
	Conclusion       string          `json:"conclusion"`
	Signed           bool            `json:"signed"`
	CreatedAt        time.Time       `json:"created_at"`
}
