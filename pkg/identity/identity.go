// Package identity holds the shared input validators: CPF normalization,
// birth-date parsing and monetary amount parsing.
package identity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// IdentifierLength is the number of digits of a CPF.
const IdentifierLength = 11

// CanonicalDateLayout is the layout birth dates are stored and compared in.
const CanonicalDateLayout = "2006-01-02"

var (
	ErrInvalidIdentifier = errors.New("identifier must have 11 digits")
	ErrInvalidDate       = errors.New("unrecognized date format")
	ErrInvalidAmount     = errors.New("unrecognized amount")
)

// DateLayouts are tried in order when parsing a birth date.
var DateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"20060102",
	"02012006",
}

const (
	minYear = 1900
	maxYear = 2100
)

// Normalize keeps only the digits of a raw identifier.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeIdentifier normalizes raw and checks its length.
func NormalizeIdentifier(raw string) (string, error) {
	id := Normalize(raw)
	if len(id) != IdentifierLength {
		return id, fmt.Errorf("%w: got %d", ErrInvalidIdentifier, len(id))
	}
	return id, nil
}

// ParseBirthDate accepts any of DateLayouts (with '/', '.' or spaces as
// separators) and returns the date in CanonicalDateLayout.
func ParseBirthDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer("/", "-", ".", "-", " ", "-").Replace(s)
	if s == "" {
		return "", ErrInvalidDate
	}

	for _, layout := range DateLayouts {
		if len(layout) != len(s) {
			continue
		}
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < minYear || t.Year() > maxYear {
			continue
		}
		return t.Format(CanonicalDateLayout), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// ParseAmount reads a currency amount written either in Brazilian notation
// ("R$ 13.000,50") or with a dot as decimal separator ("13000.50").
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.ToUpper(s), "R$")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case strings.Count(s, ".") == 1 && len(s)-strings.Index(s, ".") == 4:
		// "13.000" is a thousands separator, not three decimals.
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return v, nil
}
