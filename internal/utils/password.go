package utils

import "golang.org/x/crypto/bcrypt"

// DefaultCost is the bcrypt cost used by the hashpw tool.
const DefaultCost = bcrypt.DefaultCost

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password. An empty
// hash never matches, so an unconfigured admin account cannot log in.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
