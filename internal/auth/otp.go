package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OTPValidity is how long an issued password-reset code stays
// verifiable. Past this window verification fails closed.
const OTPValidity = 10 * time.Minute

// otpRange covers the 6-digit codes 100000–999999 (900000 values).
// Codes never start with 0, so they survive being read back as integers.
var otpRange = big.NewInt(900000)

// GenerateOTP returns a uniformly random 6-digit one-time password.
//
// The code is a short-lived credential, so it comes from crypto/rand —
// math/rand output can be predicted from a few observed values, which is
// fatal for anything an attacker can brute-force onto a reset flow.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpRange)
	if err != nil {
		return "", fmt.Errorf("auth: generating OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
