package pkg

import "golang.org/x/crypto/bcrypt"

// PasswordHashCost is exported so tests can lower it, cost 14 takes ~1s per hash.
var PasswordHashCost = 12

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
