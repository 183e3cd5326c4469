package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes a doctor's password with the configured
// cost. The hash is what gets stored in doctors.password_hash; the
// plaintext never leaves the handler.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored doctor hash.
// Used on login and again on change-password to check the old password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
