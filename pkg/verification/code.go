package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// CodeLength is the number of characters in a captcha code.
	CodeLength = 6

	// codeAlphabet leaves out characters that are easily confused (O/0 and I/1).
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewCode generates a random captcha code.
func NewCode() (string, error) {
	size := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, CodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("error generating code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
