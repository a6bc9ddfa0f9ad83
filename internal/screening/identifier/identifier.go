// Package identifier validates national identifiers locally, before any
// source is called.
package identifier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalid is wrapped by every format or checksum failure.
var ErrInvalid = errors.New("invalid identifier")

// Scheme normalizes and validates one national identifier format.
type Scheme interface {
	Name() string
	// Normalize returns the canonical form or an error wrapping ErrInvalid.
	Normalize(raw string) (string, error)
}

// Validate runs the scheme and discards the canonical form.
func Validate(s Scheme, raw string) error {
	_, err := s.Normalize(raw)
	return err
}

// PersonID is the national person number: YYMMDD-NNNN with a Luhn check
// digit. It accepts YYYYMMDD-NNNN, YYMMDD-NNNN, YYMMDD+NNNN (over 100 years
// old) and the same without separator. The canonical form is the 10-digit
// YYMMDDNNNN.
type PersonID struct{}

func (PersonID) Name() string { return "person_id" }

func (PersonID) Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalid)
	}
	if idx := strings.IndexAny(s, "-+"); idx >= 0 {
		if idx != len(s)-5 {
			return "", fmt.Errorf("%w: misplaced separator", ErrInvalid)
		}
		s = s[:idx] + s[idx+1:]
	}
	if !allDigits(s) {
		return "", fmt.Errorf("%w: non-digit characters", ErrInvalid)
	}
	switch len(s) {
	case 12:
		s = s[2:]
	case 10:
	default:
		return "", fmt.Errorf("%w: want 10 or 12 digits, got %d", ErrInvalid, len(s))
	}

	month, _ := strconv.Atoi(s[2:4])
	day, _ := strconv.Atoi(s[4:6])
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: month out of range", ErrInvalid)
	}
	// Coordination numbers add 60 to the day.
	if day > 60 {
		day -= 60
	}
	if day < 1 || day > 31 {
		return "", fmt.Errorf("%w: day out of range", ErrInvalid)
	}
	if !luhnValid(s) {
		return "", fmt.Errorf("%w: check digit mismatch", ErrInvalid)
	}
	return s, nil
}

// OrgNumber is the national organization number: 10 digits, optionally as
// NNNNNN-NNNN, third digit at least 2, Luhn check digit.
type OrgNumber struct{}

func (OrgNumber) Name() string { return "org_number" }

func (OrgNumber) Normalize(raw string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "-", "")
	// A 16 prefix is sometimes written in front of the number.
	if len(s) == 12 && strings.HasPrefix(s, "16") {
		s = s[2:]
	}
	if len(s) != 10 || !allDigits(s) {
		return "", fmt.Errorf("%w: want 10 digits", ErrInvalid)
	}
	if s[2] < '2' {
		return "", fmt.Errorf("%w: third digit must be at least 2", ErrInvalid)
	}
	if !luhnValid(s) {
		return "", fmt.Errorf("%w: check digit mismatch", ErrInvalid)
	}
	return s, nil
}

// luhnValid checks the trailing Luhn (mod 10) check digit of a digit string.
func luhnValid(digits string) bool {
	sum := 0
	for i := 0; i < len(digits); i++ {
		n := int(digits[len(digits)-1-i] - '0')
		if i%2 == 1 {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
	}
	return sum%10 == 0
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
