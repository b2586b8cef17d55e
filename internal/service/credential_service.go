package service

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt work factor for stored credentials.
const PasswordCost = 12

// CredentialService hashes and verifies passwords.
type CredentialService struct {
	cost int
}

// NewCredentialService returns a credential service using PasswordCost.
func NewCredentialService() *CredentialService {
	return &CredentialService{cost: PasswordCost}
}

// Hash returns the bcrypt hash of password.
func (s *CredentialService) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. Malformed hashes never match.
func (s *CredentialService) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
