// Package isbn validates ISBN-10 and ISBN-13 identifiers.
// Validation is pure and deterministic: input is normalized (whitespace and
// hyphens stripped), then checked against the format and checksum rules of
// the matching standard.
package isbn

import (
	"errors"
	"strings"
)

// Validation errors. ErrFormat and ErrChecksum are distinct so callers can
// report malformed input separately from a failed check digit.
var (
	// ErrFormat indicates the normalized input is not shaped like an ISBN:
	// wrong length, non-digit characters, or a misplaced check character.
	ErrFormat = errors.New("invalid isbn format")

	// ErrChecksum indicates a well-formed ISBN whose check digit does not
	// match the computed checksum.
	ErrChecksum = errors.New("invalid isbn checksum")
)

// Normalize strips whitespace and hyphens from a raw ISBN string.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate checks that raw is a checksum-valid ISBN-10 or ISBN-13.
// Returns nil on success, ErrFormat for malformed input, and ErrChecksum
// for a well-formed ISBN with a bad check digit.
func Validate(raw string) error {
	s := Normalize(raw)

	switch len(s) {
	case 10:
		return validate10(s)
	case 13:
		return validate13(s)
	default:
		return ErrFormat
	}
}

// validate10 checks an ISBN-10: nine digits plus a final digit or 'X',
// with Σ digit[i]*(10-i) ≡ 0 (mod 11), where X counts as 10.
func validate10(s string) error {
	sum := 0
	for i := 0; i < 9; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return ErrFormat
		}
		sum += int(c-'0') * (10 - i)
	}

	switch c := s[9]; {
	case c >= '0' && c <= '9':
		sum += int(c - '0')
	case c == 'X' || c == 'x':
		sum += 10
	default:
		return ErrFormat
	}

	if sum%11 != 0 {
		return ErrChecksum
	}
	return nil
}

// validate13 checks an ISBN-13: thirteen digits with alternating 1/3 weights
// over the first twelve and a check digit of (10 - sum mod 10) mod 10.
func validate13(s string) error {
	sum := 0
	for i := 0; i < 12; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return ErrFormat
		}
		weight := 1
		if i%2 == 1 {
			weight = 3
		}
		sum += int(c-'0') * weight
	}

	check := s[12]
	if check < '0' || check > '9' {
		return ErrFormat
	}

	if (10-sum%10)%10 != int(check-'0') {
		return ErrChecksum
	}
	return nil
}
