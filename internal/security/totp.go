package security

import (
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret creates a new TOTP secret for the account and returns
// the secret plus the otpauth provisioning URL.
func GenerateTOTPSecret(username string) (secret, url string, err error) {
	key, errGen := totp.Generate(totp.GenerateOpts{
		Issuer:      tokenIssuer,
		AccountName: username,
	})
	if errGen != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", errGen)
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP reports whether the code matches the secret for the current
// time step.
func ValidateTOTP(secret, code string) bool {
	secret = strings.TrimSpace(secret)
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}
