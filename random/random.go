package random

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// StringSecure returns a string of the given length drawn from charset
// using crypto/rand.
func StringSecure(length int) (string, error) {
	b := make([]byte, length)
	l := big.NewInt(int64(len(charset)))
	for i := range b {
		num, err := crand.Int(crand.Reader, l)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

// Reference builds a gateway transaction reference such as "ord-4f2Kq9...".
// References are sent to the payment provider, so they must be unguessable.
func Reference(prefix string, length int) (string, error) {
	s, err := StringSecure(length)
	if err != nil {
		return "", fmt.Errorf("generating reference: %w", err)
	}
	if prefix == "" {
		return s, nil
	}
	return prefix + "-" + s, nil
}
