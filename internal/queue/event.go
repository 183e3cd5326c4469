// Package queue defines message payloads exchanged over the message broker.
package queue

// Audit actions recorded for protocol mutations.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionSigned  = "signed"
)

// ProtocolAuditEvent is published whenever a protocol is mutated.  It
// carries enough information for downstream consumers to build an audit
// trail without querying the primary database.
type ProtocolAuditEvent struct {
	ProtocolID  uint64 `json:"protocol_id"`
	DoctorID    uint64 `json:"doctor_id"`
	Action      string `json:"action"`
	StudyType   string `json:"study_type,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}
