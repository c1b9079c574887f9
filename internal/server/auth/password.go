package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost keeps verification in the hundreds-of-milliseconds range on
// commodity hardware, throttling offline guessing.
const bcryptCost = 12

// HashPassword produces a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash. The
// comparison is done by bcrypt itself and is safe against timing leaks.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
