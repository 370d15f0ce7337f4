package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword returns the bcrypt hash of the password using a cost that balances security and performance.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// HashOptionalPassword hashes password when set; an empty password yields nil, meaning open access.
func HashOptionalPassword(password string) (*string, error) {
	if password == "" {
		return nil, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &hash, nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
