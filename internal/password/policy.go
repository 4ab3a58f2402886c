// Package password evaluates signup passwords against the campus password policy.
package password

import (
	"strings"
	"unicode/utf8"
)

// MinLength is the minimum number of characters (code points).
const MinLength = 8

// SpecialChars is the set of characters that satisfies the special character rule.
const SpecialChars = `!@#$%^&*(),.?":{}|<>`

// Requirements records which policy rules a password satisfies.
type Requirements struct {
	LengthOK       bool `json:"length_ok"`
	HasUppercase   bool `json:"has_uppercase"`
	HasSpecialChar bool `json:"has_special_char"`
	// HasNoCyrillic is true when the password contains no Cyrillic letter.
	HasNoCyrillic bool `json:"has_no_cyrillic"`
}

// Satisfied reports whether all four rules hold.
func (r Requirements) Satisfied() bool {
	return r.LengthOK && r.HasUppercase && r.HasSpecialChar && r.HasNoCyrillic
}

// Evaluate checks p against every rule independently.
func Evaluate(p string) Requirements {
	req := Requirements{
		LengthOK:      utf8.RuneCountInString(p) >= MinLength,
		HasNoCyrillic: true,
	}
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			req.HasUppercase = true
		case isCyrillic(r):
			req.HasNoCyrillic = false
		case strings.ContainsRune(SpecialChars, r):
			req.HasSpecialChar = true
		}
	}
	return req
}

// isCyrillic matches а-я, А-Я, ё and Ё.
func isCyrillic(r rune) bool {
	return (r >= 'а' && r <= 'я') || (r >= 'А' && r <= 'Я') || r == 'ё' || r == 'Ё'
}
