package services

import (
	"crypto/rand"
	"math/big"
)

const tempPasswordLength = 10

// GenerateTempPassword builds a temporary password with at least one digit, one upper-case
// letter, one lower-case letter and one symbol. Look-alike characters are left out.
func GenerateTempPassword() (string, error) {
	const (
		digits  = "23456789"
		uppers  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
		lowers  = "abcdefghijkmnpqrstuvwxyz"
		symbols = "!@#$%&*"
	)
	charsets := []string{digits, uppers, lowers, symbols}
	result := make([]byte, tempPasswordLength)

	for i, charset := range charsets {
		c, err := randomChar(charset)
		if err != nil {
			return "", err
		}
		result[i] = c
	}

	all := digits + uppers + lowers + symbols
	for i := len(charsets); i < tempPasswordLength; i++ {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		result[i] = c
	}

	// Fisher-Yates so the required classes do not always lead
	for i := len(result) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}
	return string(result), nil
}

func randomChar(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, err
	}
	return charset[n.Int64()], nil
}
