package kite

import (
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
)

// totpPeriod is the standard time step used by the broker's 2FA.
const totpPeriod = 30 * time.Second

// totpCode generates the current time-based one-time password for the
// shared secret. When fewer than two seconds remain in the current
// window the code is generated for the next window instead, so the
// broker never receives a code that expires mid-flight.
func totpCode(secret string, now time.Time) (string, error) {
	remaining := totpPeriod - time.Duration(now.Unix()%30)*time.Second
	if remaining < 2*time.Second {
		now = now.Add(remaining)
	}

	code, err := totp.GenerateCode(secret, now)
	if err != nil {
		return "", fmt.Errorf("failed to generate totp: %w", err)
	}

	return code, nil
}

// nextTOTPWindow returns how long to wait until a fresh code is valid.
func nextTOTPWindow(now time.Time) time.Duration {
	return totpPeriod - time.Duration(now.Unix()%30)*time.Second
}
