package usecase

import (
	"crypto/rand"
	"io"
	"strings"
)

// generateVoucherCode creates a random, human-readable voucher code.
// Format: XXXX-XXXX
func generateVoucherCode() (string, error) {
	// Avoids ambiguous characters like O/0, I/1.
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLength = 8

	buffer := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := 0; i < codeLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}
	return string(buffer[0:4]) + "-" + string(buffer[4:8]), nil
}

// canonicalVoucherCode upper-cases codes; M-Pesa receipts are upper-case already.
func canonicalVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
