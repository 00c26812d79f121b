package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsOnly = regexp.MustCompile(`^[0-9]+$`)
)

// Validator collects field errors for a request body.
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first message recorded for a field.
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Required checks that a string is not blank.
func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "must not be empty")
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(IsEmail(email), field, "must be a valid email address")
}

// MinLength checks if a string has at least n characters
func (v *Validator) MinLength(field, value string, n int) {
	v.Check(len(value) >= n, field, fmt.Sprintf("must be at least %d characters long", n))
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// CPF checks for exactly eleven digits.
func (v *Validator) CPF(field, cpf string) {
	v.Check(IsCPF(cpf), field, fmt.Sprintf("must be exactly %d digits", CPFLength))
}

// Date checks for a YYYY-MM-DD date in the past.
func (v *Validator) Date(field, value string) {
	d, err := ParseDate(value)
	if err != nil {
		v.AddError(field, "must be formatted as YYYY-MM-DD")
		return
	}
	v.Check(d.Before(time.Now()), field, "must be in the past")
}

// IsEmail reports whether s looks like an address (local@domain.tld).
func IsEmail(s string) bool {
	return len(s) <= MaxEmailLength && emailRegex.MatchString(s)
}

// IsCPF reports whether s is exactly eleven ASCII digits. Check digits are
// not verified.
func IsCPF(s string) bool {
	return len(s) == CPFLength && digitsOnly.MatchString(s)
}

// ParseDate parses a YYYY-MM-DD birth date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

// NormalizeEmail trims and lower-cases an address so lookups are exact.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
