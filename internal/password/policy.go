// Package password enforces the account password policy on the client before
// a registration or login request is submitted, so requests that can never
// succeed are rejected without a round trip.
package password

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Rule names a password policy requirement.
type Rule string

const (
	RuleMinLength Rule = "min-length"
	RuleUppercase Rule = "uppercase"
	RuleDigit     Rule = "digit"
	RuleSpecial   Rule = "special"
)

// PolicyError reports the first policy rule a password failed.
type PolicyError struct {
	Rule   Rule
	Detail string
}

func (e *PolicyError) Error() string {
	return e.Detail
}

var (
	hasUppercase = regexp.MustCompile(`[A-Z]`)
	hasDigit     = regexp.MustCompile(`[0-9]`)
	hasSpecial   = regexp.MustCompile(`[^A-Za-z0-9]`)
)

var checks = []struct {
	rule   Rule
	check  validation.Rule
	detail string
}{
	{RuleMinLength, validation.Length(8, 0), "password must be at least 8 characters"},
	{RuleUppercase, validation.Match(hasUppercase), "password must contain an uppercase letter"},
	{RuleDigit, validation.Match(hasDigit), "password must contain a digit"},
	{RuleSpecial, validation.Match(hasSpecial), "password must contain a special character"},
}

// Validate checks a password against the policy, returning a *PolicyError
// naming the first failed rule, or nil when the password satisfies all rules.
func Validate(password string) error {
	// ozzo rules skip blank values, so an empty password is handled up front.
	if password == "" {
		return &PolicyError{Rule: RuleMinLength, Detail: "password must be at least 8 characters"}
	}

	for _, c := range checks {
		if err := validation.Validate(password, c.check); err != nil {
			return &PolicyError{Rule: c.rule, Detail: c.detail}
		}
	}

	return nil
}
