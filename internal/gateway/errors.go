package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates the identity API rejected the email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrDuplicateAccount indicates an account already exists for the email.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInvalidRefreshToken indicates the identity API rejected the refresh token.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidResponse indicates a success response that is missing the access token.
	ErrInvalidResponse = errors.New("invalid identity response")
	// ErrNetwork indicates the identity API could not be reached or failed server-side.
	ErrNetwork = errors.New("identity service unavailable")
)

// ValidationError carries the most specific validation message the identity
// API returned for a request.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Detail)
}
