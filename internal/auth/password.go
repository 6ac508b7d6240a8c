package auth

import "golang.org/x/crypto/bcrypt"

// bcrypt only reads the first 72 bytes of input; longer passwords are
// truncated instead of rejected so callers never see a length error.
const bcryptMaxLen = 72

func HashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(truncate(p), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(plain)) == nil
}

func truncate(p string) []byte {
	b := []byte(p)
	if len(b) > bcryptMaxLen {
		b = b[:bcryptMaxLen]
	}
	return b
}
