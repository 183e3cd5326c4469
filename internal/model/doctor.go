package model

import "time"

// Doctor represents a physician account as stored in the `doctors` table.
// PasswordHash never leaves the repository layer; handlers respond with
// PublicDoctor instead.
//
// Fields:
//  ID             - primary key identifier of the doctor.
//  Email          - unique, case-folded email address.
//  PasswordHash   - bcrypt hashed password.
//  FullName       - display name printed on protocols.
//  Specialization - medical specialization (free text).
//  SignatureURL   - optional URL of the scanned signature image.
//  CreatedAt      - timestamp of registration.
//  UpdatedAt      - timestamp of last profile or password change.
type Doctor struct {
	ID             uint64     // doctors.id
	Email          string     // doctors.email
	PasswordHash   string     // doctors.password_hash
	FullName       string     // doctors.full_name
	Specialization string     // doctors.specialization
	SignatureURL   *string    // doctors.signature_url (nullable)
	CreatedAt      time.Time  // doctors.created_at
	UpdatedAt      time.Time  // doctors.updated_at
}

// PublicDoctor is the subset of Doctor safe to return to clients.
type PublicDoctor struct {
	ID             uint64    `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Specialization string    `json:"specialization"`
	SignatureURL   *string   `json:"signature_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// Public strips the credential fields from a Doctor.
func (d Doctor) Public() PublicDoctor {
	return PublicDoctor{
		ID:             d.ID,
		Email:          d.Email,
		FullName:       d.FullName,
		Specialization: d.Specialization,
		SignatureURL:   d.SignatureURL,
		CreatedAt:      d.CreatedAt,
	}
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each token
// belongs to a doctor; only the SHA-256 hash of the raw value is stored.
//
// Fields:
//  ID        - primary key identifier.
//  DoctorID  - owner of the token.
//  TokenHash - SHA-256 hex digest of the token value.
//  ExpiresAt - expiration timestamp of the token.
//  RevokedAt - when the token was revoked (null if still active).
//  CreatedAt - timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	DoctorID  uint64     // refresh_tokens.doctor_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
