package utils

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const otpSpace = 1_000_000

// GenerateOTP returns a uniformly random 6-digit code, zero-padded ("000000".."999999").
func GenerateOTP() (string, error) {
	return GenerateOTPFrom(rand.Reader)
}

// GenerateOTPFrom draws the code from r.
func GenerateOTPFrom(r io.Reader) (string, error) {
	n, err := rand.Int(r, big.NewInt(otpSpace))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
