package answer

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// FloatTolerance is the absolute tolerance for the floating-point stage.
const FloatTolerance = 1e-6

// rationalPattern accepts integers, plain decimals with optional exponent and "a/b" fractions.
// Base prefixes are rejected so "010" stays decimal.
var rationalPattern = regexp.MustCompile(`^[+-]?(\d+/\d+|\d+\.?\d*([eE][+-]?\d+)?|\.\d+([eE][+-]?\d+)?)$`)

// IsCorrect reports whether userText matches expected.
//
// Both sides are trimmed, lowercased and have decimal commas turned into points.
// Comparison then runs three stages, each falling through on parse failure:
//  1. exact rational equality (integers, decimals, simple fractions);
//  2. float equality within FloatTolerance;
//  3. normalized string equality.
//
// Two rationals that differ still get the float stage, so near-equal decimals
// such as "0.5000001" and "0.5" are accepted.
func IsCorrect(userText, expected string) bool {
	user := Normalize(userText)
	want := Normalize(expected)

	if u, ok := parseRational(user); ok {
		if w, ok := parseRational(want); ok && u.Cmp(w) == 0 {
			return true
		}
	}

	if u, err := parseFloat(user); err == nil {
		if w, err := parseFloat(want); err == nil {
			return math.Abs(u-w) < FloatTolerance
		}
	}

	return user == want
}

// Normalize trims, lowercases and maps decimal commas to points.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, ",", ".")
}

func parseRational(s string) (*big.Rat, bool) {
	if !rationalPattern.MatchString(s) {
		return nil, false
	}

	if num, den, isFraction := strings.Cut(s, "/"); isFraction {
		n, ok := new(big.Int).SetString(num, 10)
		if !ok {
			return nil, false
		}
		d, ok := new(big.Int).SetString(den, 10)
		if !ok || d.Sign() == 0 {
			return nil, false
		}
		return new(big.Rat).SetFrac(n, d), true
	}

	r, ok := new(big.Rat).SetString(s)
	return r, ok
}

func parseFloat(s string) (float64, error) {
	if num, den, isFraction := strings.Cut(s, "/"); isFraction {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, err
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, err
		}
		if d == 0 {
			return 0, strconv.ErrRange
		}
		return n / d, nil
	}
	return strconv.ParseFloat(s, 64)
}
