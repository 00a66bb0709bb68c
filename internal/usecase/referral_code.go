package usecase

import (
	"crypto/rand"
	"io"
)

const (
	referralPrefix     = "REF-"
	referralCodeLength = 8
	// Avoids ambiguous characters like O/0, I/1, l.
	referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// generateReferralCode returns a code like REF-7KX2MQ9D. The alphabet has 32 symbols, so the
// modulo below is unbiased for byte input.
func generateReferralCode() (string, error) {
	buffer := make([]byte, referralCodeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := range buffer {
		buffer[i] = referralAlphabet[int(buffer[i])%len(referralAlphabet)]
	}
	return referralPrefix + string(buffer), nil
}
